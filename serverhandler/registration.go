package serverhandler

import (
	"net/netip"

	"lanrelay/domain/frame"
	"lanrelay/domain/messages"
	"lanrelay/domain/network"
	"lanrelay/infrastructure/cryptography"
	"lanrelay/infrastructure/session"
)

// applyPublicAddress fills the reflected-address fields of resp per
// spec.md 4.E: an IPv4-mapped-IPv6 address collapses to plain IPv4;
// pure IPv6 goes into the ipv6 field instead.
func applyPublicAddress(resp *messages.RegistrationResponse, addr netip.AddrPort) {
	a := addr.Addr()
	if a.Is4In6() {
		a = a.Unmap()
	}
	if a.Is4() {
		resp.PublicIP = a
	} else {
		resp.PublicIPv6 = a.AsSlice()
	}
	resp.PublicPort = addr.Port()
}

// handleRegistration runs the Registration handler (spec.md 4.E):
// validates the request, resolves/creates the group directory, invokes
// the allocator under its write lock, publishes both session mappings
// only after the lock is released, and returns a
// Service/RegistrationResponse, sealed with cipher when the peer has a
// cipher session and unsealed otherwise.
func (h *Handler) handleRegistration(p *frame.Packet, addr netip.AddrPort, sink network.Sink, cipher *cryptography.AES256GCMCipher) (*frame.Packet, error) {
	req, ok := messages.UnmarshalRegistrationRequest(p.Payload())
	if !ok {
		return nil, ErrProtocolDecode
	}
	if !validField(req.Token) || !validField(req.DeviceID) || !validField(req.Name) {
		return nil, ErrFieldLength
	}
	if !h.Config.TokenAllowed(req.Token) {
		return nil, ErrTokenInvalid
	}

	group := req.Token
	net := h.Cache.GetOrCreateGroup(group, func() *network.NetworkInfo {
		return network.NewNetworkInfo(h.Config.GatewayIP&h.Config.MaskIP, h.Config.MaskIP, h.Config.GatewayIP)
	})

	net.Lock()
	vip, err := network.Allocate(net, network.AllocateRequest{
		VirtualIP:     req.VirtualIP,
		DeviceID:      req.DeviceID,
		Name:          req.Name,
		ClientSecret:  req.ClientSecret,
		AllowIPChange: req.AllowIPChange,
		BroadcastIP:   h.Config.BroadcastIP,
		Address:       addr,
		TCPSender:     sink,
	})
	if err != nil {
		net.Unlock()
		return nil, err
	}
	epoch := net.Epoch
	roster := clientsInfo(net.Clients, vip)
	net.Unlock()

	// Publish both session mappings only after the write lock is
	// released, then the response is sent — a peer never observes a
	// peer-initiated message before its own RegistrationResponse
	// (spec.md 5, ordering guarantee a).
	gv := session.GroupVIP{Group: group, VIP: vip}
	h.Cache.InsertAddrSession(addr, gv)
	h.Cache.InsertIPSession(gv, addr)

	resp := messages.RegistrationResponse{
		VirtualIP:      vip,
		VirtualNetmask: h.Config.MaskIP,
		VirtualGateway: h.Config.GatewayIP,
		Epoch:          uint32(epoch),
		DeviceInfoList: roster,
	}
	applyPublicAddress(&resp, addr)

	return newReplyPacket(frame.ClassService, uint8(frame.OpRegistrationResponse), h.Config.GatewayIP, vip, resp.Marshal(), cipher)
}
