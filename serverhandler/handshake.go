package serverhandler

import (
	"net/netip"

	"lanrelay/domain/frame"
	"lanrelay/domain/messages"
	"lanrelay/infrastructure/cryptography"
)

// handlePlainHandshake answers the Service/HandshakeRequest bypass
// (spec.md 4.F). The reply is never sealed: the caller has no cipher
// session yet, by construction — this is the first message of the
// exchange.
func (h *Handler) handlePlainHandshake(p *frame.Packet) (*frame.Packet, error) {
	resp := messages.HandshakeResponse{Version: h.Config.ServerVersion}
	if h.Config.RSA != nil {
		resp.Secret = true
		resp.PublicKey = h.Config.RSA.PublicKey()
		resp.KeyFinger = h.Config.RSA.Finger().Bytes()
	}
	return newReplyPacket(frame.ClassService, uint8(frame.OpHandshakeResponse), 0, 0, resp.Marshal(), nil)
}

// handleSecretHandshake unwraps the RSA-sealed AES key and installs the
// resulting session cipher *before* replying, per the ordering guarantee
// in spec.md 5: any packet the peer sends after receiving this reply
// must already be decryptable.
func (h *Handler) handleSecretHandshake(p *frame.Packet, addr netip.AddrPort) (*frame.Packet, error) {
	if h.Config.RSA == nil {
		return nil, ErrNoSecretKey
	}

	plain, err := h.Config.RSA.Decrypt(p.Payload())
	if err != nil {
		return nil, err
	}
	req, ok := messages.UnmarshalSecretHandshakeRequest(plain)
	if !ok {
		return nil, ErrProtocolDecode
	}

	finger := cryptography.NewFinger([]byte(req.Token))
	cipher, err := cryptography.NewAES256GCMCipher(req.Key[:], finger)
	if err != nil {
		return nil, err
	}
	h.Cache.InsertCipherSession(addr, cipher)

	return newReplyPacket(frame.ClassService, uint8(frame.OpSecretHandshakeResponse), 0, 0, nil, nil)
}
