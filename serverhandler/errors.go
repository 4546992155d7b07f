package serverhandler

import "errors"

// Error kinds per spec.md section 7. The dispatcher logs these and
// returns no outbound packet; there is no retry, and no partially
// mutated state survives a failed handler.
var (
	ErrProtocolDecode = errors.New("serverhandler: malformed payload")
	ErrFieldLength    = errors.New("serverhandler: field length out of range")
	ErrTokenInvalid   = errors.New("serverhandler: token rejected")
	ErrNoKey          = errors.New("serverhandler: encrypted packet with no cipher session")
	ErrNoSecretKey    = errors.New("serverhandler: server has no RSA key pair configured")
	ErrDisconnect     = errors.New("serverhandler: context-required operation without a session")
	ErrUnknown        = errors.New("serverhandler: unrecognized class/sub-protocol combination")
)
