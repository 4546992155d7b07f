package serverhandler

import (
	"encoding/binary"
	"net/netip"
	"time"

	"lanrelay/domain/frame"
	"lanrelay/domain/messages"
	"lanrelay/domain/network"
	"lanrelay/infrastructure/cryptography"
	"lanrelay/infrastructure/session"
)

// reflectIPv4 collapses an observed transport address to its IPv4 form,
// or reports false for a pure-IPv6 peer (spec.md 4.G: silently drop pure
// IPv6 reflection).
func reflectIPv4(addr netip.AddrPort) (uint32, bool) {
	a := addr.Addr()
	if a.Is4In6() {
		a = a.Unmap()
	}
	if !a.Is4() {
		return 0, false
	}
	return network.AddrToU32(a), true
}

// handleAddrRequest answers Control/AddrRequest with the caller's
// observed transport address.
func (h *Handler) handleAddrRequest(p *frame.Packet, addr netip.AddrPort, cipher *cryptography.AES256GCMCipher) (*frame.Packet, error) {
	ip, ok := reflectIPv4(addr)
	if !ok {
		return nil, nil
	}
	resp := messages.AddrResponse{IPv4: ip, Port: addr.Port()}
	return newReplyPacket(frame.ClassControl, uint8(frame.OpAddrResponse), p.Destination(), p.Source(), resp.Marshal(), cipher)
}

// handlePing answers Control/Ping with Pong: the same payload prefix
// plus the group epoch truncated to u16 (spec.md 9, a known, tolerated
// precision loss).
func (h *Handler) handlePing(p *frame.Packet, ctx *session.Context, cipher *cryptography.AES256GCMCipher) (*frame.Packet, error) {
	ctx.Network.RLock()
	epoch := ctx.Network.Epoch
	ctx.Network.RUnlock()

	echoed := p.Payload()
	out := make([]byte, len(echoed)+2)
	copy(out, echoed)
	binary.BigEndian.PutUint16(out[len(echoed):], uint16(epoch))

	return newReplyPacket(frame.ClassControl, uint8(frame.OpPong), p.Destination(), p.Source(), out, cipher)
}

// handlePollDeviceList answers Service/PollDeviceList with PushDeviceList:
// a snapshot of (epoch, roster minus self) taken under the read lock and
// serialized only after the lock is released (spec.md 4.H).
func (h *Handler) handlePollDeviceList(p *frame.Packet, ctx *session.Context, cipher *cryptography.AES256GCMCipher) (*frame.Packet, error) {
	ctx.Network.RLock()
	epoch := ctx.Network.Epoch
	roster := clientsInfo(ctx.Network.Clients, ctx.VIP)
	ctx.Network.RUnlock()

	resp := messages.DeviceList{Epoch: uint32(epoch), DeviceInfoList: roster}
	return newReplyPacket(frame.ClassService, uint8(frame.OpPushDeviceList), h.Config.GatewayIP, ctx.VIP, resp.Marshal(), cipher)
}

// handleClientStatusUpload stamps a client's self-reported status onto
// its directory entry. It keys on the upload's self-reported Source vip
// rather than the caller's actual Context vip — an intentionally
// preserved quirk (spec.md 9, second open question): a misbehaving
// client could stamp another entry's status this way.
func (h *Handler) handleClientStatusUpload(p *frame.Packet, ctx *session.Context) error {
	upload, ok := messages.UnmarshalClientStatusUpload(p.Payload())
	if !ok {
		return ErrProtocolDecode
	}

	ctx.Network.Lock()
	defer ctx.Network.Unlock()

	target, ok := ctx.Network.Clients[upload.Source]
	if !ok {
		return nil
	}

	p2p := make([]netip.Addr, len(upload.P2PList))
	for i, ip := range upload.P2PList {
		p2p[i] = network.U32ToAddr(ip)
	}
	target.ClientStatus = &network.ClientStatusInfo{
		P2PList:    p2p,
		UpStream:   upload.UpStream,
		DownStream: upload.DownStream,
		IsCone:     upload.NatType == messages.NATCone,
		UpdateTime: time.Now(),
	}
	return nil
}
