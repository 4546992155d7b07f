package serverhandler

import (
	"fmt"
	"net/netip"

	"lanrelay/domain/frame"
	"lanrelay/domain/messages"
	"lanrelay/domain/network"
)

// Dispatch routes one inbound framed packet per spec.md 4.G. It is
// state-free per call — a pure router over the session cache — and
// returns at most one outbound buffer for the caller to send back on
// the same transport. sink is the peer's TCP fallback sink, or nil for
// a UDP-only peer.
//
// Every packet this drops (decode failure, crypto failure, rejected
// token, failed allocation, missing context, unrecognized opcode) is
// logged at Warn with the peer address, the group when one is known,
// and the reason, before the error reaches the caller.
func (h *Handler) Dispatch(buf []byte, addr netip.AddrPort, sink network.Sink) ([]byte, error) {
	out, group, err := h.dispatch(buf, addr, sink)
	if err != nil {
		h.Log.Warn("dropped packet", "addr", addr, "group", group, "reason", err)
	}
	return out, err
}

func (h *Handler) dispatch(buf []byte, addr netip.AddrPort, sink network.Sink) ([]byte, string, error) {
	p, err := frame.New(buf)
	if err != nil {
		return nil, "", err
	}

	// 1. Handshake bypass: no decryption step, no context required.
	if p.Class() == frame.ClassService {
		switch frame.ServiceOp(p.SubProtocol()) {
		case frame.OpHandshakeRequest:
			out, err := finalize(h.handlePlainHandshake(p))
			return out, "", err
		case frame.OpSecretHandshakeRequest:
			out, err := finalize(h.handleSecretHandshake(p, addr))
			return out, "", err
		}
	}

	// 2. Decryption gate.
	cipher, hasCipher := h.Cache.CipherSession(addr)
	if p.Encrypted() {
		if !hasCipher {
			return nil, "", ErrNoKey
		}
		if err := cipher.DecryptIPv4(p); err != nil {
			return nil, "", err
		}
	}
	var sealWith = cipher
	if !hasCipher {
		sealWith = nil
	}

	// 3. No-context requests.
	if p.Class() == frame.ClassService && frame.ServiceOp(p.SubProtocol()) == frame.OpRegistrationRequest {
		var group string
		if req, ok := messages.UnmarshalRegistrationRequest(p.Payload()); ok {
			group = req.Token
		}
		out, err := finalize(h.handleRegistration(p, addr, sink, sealWith))
		return out, group, err
	}
	if p.Class() == frame.ClassControl && frame.ControlOp(p.SubProtocol()) == frame.OpAddrRequest {
		out, err := finalize(h.handleAddrRequest(p, addr, sealWith))
		return out, "", err
	}

	// 4. Context-required requests.
	ctx, ok := h.Cache.GetContext(addr)
	if !ok {
		return nil, "", ErrDisconnect
	}

	switch p.Class() {
	case frame.ClassService:
		switch frame.ServiceOp(p.SubProtocol()) {
		case frame.OpPollDeviceList:
			out, err := finalize(h.handlePollDeviceList(p, ctx, sealWith))
			return out, ctx.Group, err
		case frame.OpClientStatusInfo:
			return nil, ctx.Group, h.handleClientStatusUpload(p, ctx)
		}
	case frame.ClassControl:
		if frame.ControlOp(p.SubProtocol()) == frame.OpPing {
			out, err := finalize(h.handlePing(p, ctx, sealWith))
			return out, ctx.Group, err
		}
	case frame.ClassIPTurn:
		switch frame.IPTurnOp(p.SubProtocol()) {
		case frame.OpIPv4Broadcast:
			return nil, ctx.Group, h.handleBroadcast(p, ctx)
		case frame.OpIPv4:
			out, err := finalize(h.handleIPv4Gateway(p))
			return out, ctx.Group, err
		}
	}

	return nil, ctx.Group, fmt.Errorf("%w: class=%s sub=%d", ErrUnknown, p.Class(), p.SubProtocol())
}

func finalize(p *frame.Packet, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	return p.Buffer(), nil
}
