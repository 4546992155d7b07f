package network

import (
	"net/netip"
	"time"
)

// Sink is a non-blocking byte-frame delivery path to a TCP-attached peer.
// TrySend must never block; callers treat a false return as "peer gone"
// and drop the frame rather than retry.
type Sink interface {
	TrySend(frame []byte) bool
}

// ClientInfo is one peer's directory entry within a group's NetworkInfo.
type ClientInfo struct {
	DeviceID     string
	Name         string
	ClientSecret bool
	Address      netip.AddrPort
	Online       bool
	VirtualIP    uint32
	TCPSender    Sink
	ClientStatus *ClientStatusInfo
}

// ClientStatusInfo is the latest self-report a client uploaded about its
// own peer-to-peer connectivity.
type ClientStatusInfo struct {
	P2PList    []netip.Addr
	UpStream   uint64
	DownStream uint64
	IsCone     bool
	UpdateTime time.Time
}
