package cryptography

import "errors"

var (
	ErrNoKey          = errors.New("cryptography: no cipher session for source")
	ErrNoRSA          = errors.New("cryptography: server has no RSA key pair")
	ErrBadKeyLength   = errors.New("cryptography: aes key must be 32 bytes")
	ErrBadTrailerSize = errors.New("cryptography: encryption trailer has unexpected size")
	ErrDecryptFailed  = errors.New("cryptography: decryption failed")
)
