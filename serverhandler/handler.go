// Package serverhandler implements the rendezvous core's dispatch loop
// and sub-handlers (spec.md components E through I): registration,
// handshakes, control/directory operations, ICMP gateway emulation, and
// broadcast relay. It is driven by a listener that hands it a framed
// inbound buffer, the peer's transport address, and — for TCP peers —
// a send sink; it returns at most one outbound buffer for the caller to
// send back on the same transport.
package serverhandler

import (
	"lanrelay/application/logging"
	"lanrelay/application/transport"
	"lanrelay/domain/frame"
	"lanrelay/domain/messages"
	"lanrelay/domain/network"
	"lanrelay/infrastructure/cryptography"
	"lanrelay/infrastructure/session"
)

// Handler holds every collaborator the dispatch core needs: the session
// cache, startup configuration, the outbound UDP egress used for
// fallback broadcast delivery, and a logger. The zero value is not
// usable; construct with New.
type Handler struct {
	Cache  *session.Cache
	Config *Config
	Egress transport.UdpListener
	Log    logging.Logger
}

// New builds a Handler from its collaborators.
func New(cache *session.Cache, cfg *Config, egress transport.UdpListener, log logging.Logger) *Handler {
	return &Handler{Cache: cache, Config: cfg, Egress: egress, Log: log}
}

func validField(s string) bool {
	return len(s) >= 1 && len(s) <= 128
}

// clientsInfo snapshots a group's roster as the wire DeviceInfo list,
// excluding the entry at selfVIP (spec.md 4.E/4.H: "every client except
// the caller"). Callers must already hold the group's lock.
func clientsInfo(clients map[uint32]*network.ClientInfo, selfVIP uint32) []messages.DeviceInfo {
	out := make([]messages.DeviceInfo, 0, len(clients))
	for vip, c := range clients {
		if vip == selfVIP {
			continue
		}
		status := uint8(1)
		if c.Online {
			status = 0
		}
		out = append(out, messages.DeviceInfo{
			VirtualIP:    vip,
			Name:         c.Name,
			DeviceStatus: status,
			ClientSecret: c.ClientSecret,
		})
	}
	return out
}

// newReplyPacket builds an outbound packet, sealing it with cipher when
// non-nil and leaving it unsealed otherwise. Every sub-handler routes its
// reply through here so sealing behavior stays in one place.
func newReplyPacket(class frame.Class, sub uint8, srcVIP, dstVIP uint32, payload []byte, cipher *cryptography.AES256GCMCipher) (*frame.Packet, error) {
	var p *frame.Packet
	if cipher != nil {
		p = frame.NewEncryptable(len(payload))
	} else {
		p = frame.NewPlain(len(payload))
	}
	p.SetClass(class)
	p.SetSubProtocol(sub)
	p.SetSource(srcVIP)
	p.SetDestination(dstVIP)
	if err := p.SetPayload(payload); err != nil {
		return nil, err
	}
	if cipher != nil {
		if err := cipher.Seal(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}
