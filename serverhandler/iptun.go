package serverhandler

import (
	"bytes"
	"encoding/binary"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"lanrelay/domain/frame"
	"lanrelay/domain/network"
	"lanrelay/infrastructure/session"
)

// decodeBroadcastHeader splits an IpTurn/Ipv4Broadcast payload into its
// exclude list and nested frame (spec.md 6: "header: exclude-list of
// IPv4s, then nested NetPacket").
func decodeBroadcastHeader(payload []byte) (exclude []uint32, inner []byte, ok bool) {
	if len(payload) < 2 {
		return nil, nil, false
	}
	count := int(binary.BigEndian.Uint16(payload))
	payload = payload[2:]
	if len(payload) < count*4 {
		return nil, nil, false
	}
	exclude = make([]uint32, count)
	for i := 0; i < count; i++ {
		exclude[i] = binary.BigEndian.Uint32(payload)
		payload = payload[4:]
	}
	return exclude, payload, true
}

// handleIPv4Gateway implements the gateway's ICMP echo emulation
// (spec.md 4.G, IpTurn/Ipv4): an EchoRequest addressed to the gateway
// gets a newly built EchoReply packet, with both the IPv4 and ICMP
// checksums recomputed and the envelope's gateway flag set. Any other
// Ipv4 traffic is relayed by the listener side or ignored here.
func (h *Handler) handleIPv4Gateway(p *frame.Packet) (*frame.Packet, error) {
	parsed := gopacket.NewPacket(p.Payload(), layers.LayerTypeIPv4, gopacket.NoCopy)

	ipLayer := parsed.Layer(layers.LayerTypeIPv4)
	if ipLayer == nil {
		return nil, nil
	}
	ip4, _ := ipLayer.(*layers.IPv4)

	icmpLayer := parsed.Layer(layers.LayerTypeICMPv4)
	if icmpLayer == nil {
		return nil, nil
	}
	icmp, _ := icmpLayer.(*layers.ICMPv4)

	if icmp.TypeCode.Type() != layers.ICMPv4TypeEchoRequest {
		return nil, nil
	}
	gatewayIP := network.U32ToAddr(h.Config.GatewayIP).AsSlice()
	if !bytes.Equal(ip4.DstIP, gatewayIP) {
		return nil, nil
	}

	replyIP := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolICMPv4,
		SrcIP:    ip4.DstIP,
		DstIP:    ip4.SrcIP,
	}
	replyICMP := &layers.ICMPv4{
		TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoReply, 0),
		Id:       icmp.Id,
		Seq:      icmp.Seq,
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, replyIP, replyICMP, gopacket.Payload(icmp.Payload)); err != nil {
		return nil, err
	}

	reply := frame.NewPlain(len(buf.Bytes()))
	reply.SetClass(frame.ClassIPTurn)
	reply.SetSubProtocol(uint8(frame.OpIPv4))
	reply.SetSource(p.Destination())
	reply.SetDestination(p.Source())
	reply.SetGatewayFlag(true)
	if err := reply.SetPayload(buf.Bytes()); err != nil {
		return nil, err
	}
	return reply, nil
}

type broadcastTarget struct {
	sink network.Sink
	addr netip.AddrPort
}

// handleBroadcast implements selective relay (spec.md 4.I): every online
// client not in the exclude list whose client_secret matches the inner
// packet's encrypted flag receives the inner frame, via its TCP sink if
// attached or else UDP. Delivery is best-effort; failures are swallowed.
// The roster is snapshotted under the read lock and released before any
// send, per the lock-discipline rule against I/O while locked.
func (h *Handler) handleBroadcast(p *frame.Packet, ctx *session.Context) error {
	excludeList, innerBuf, ok := decodeBroadcastHeader(p.Payload())
	if !ok {
		return ErrProtocolDecode
	}
	inner, err := frame.New(innerBuf)
	if err != nil {
		return err
	}

	exclude := make(map[uint32]struct{}, len(excludeList))
	for _, ip := range excludeList {
		exclude[ip] = struct{}{}
	}

	ctx.Network.RLock()
	targets := make([]broadcastTarget, 0, len(ctx.Network.Clients))
	for ip, info := range ctx.Network.Clients {
		if !info.Online {
			continue
		}
		if _, skip := exclude[ip]; skip {
			continue
		}
		if info.ClientSecret != inner.Encrypted() {
			continue
		}
		targets = append(targets, broadcastTarget{sink: info.TCPSender, addr: info.Address})
	}
	ctx.Network.RUnlock()

	for _, t := range targets {
		if t.sink != nil {
			t.sink.TrySend(inner.Buffer())
			continue
		}
		if h.Egress != nil {
			_, _ = h.Egress.WriteToUDPAddrPort(inner.Buffer(), t.addr)
		}
	}
	return nil
}
