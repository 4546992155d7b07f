// Package transport declares the collaborator contracts the dispatch
// core is driven through: a UDP socket abstraction and the per-peer TCP
// fallback sink. Concrete sockets, accept loops, and retry/backoff are
// external collaborators; this package only names the surface the core
// depends on.
package transport

import "net/netip"

// UdpListener is the UDP transport the core reads datagrams from and
// writes replies to. It mirrors *net.UDPConn's AddrPort-based API.
type UdpListener interface {
	Close() error
	ReadFromUDPAddrPort(b []byte) (n int, addr netip.AddrPort, err error)
	WriteToUDPAddrPort(data []byte, addr netip.AddrPort) (int, error)
}

// TcpSink is a single TCP client connection used as a best-effort,
// non-blocking fallback for unicast delivery. TrySend must never block;
// returning false means the peer is gone and the caller should drop the
// frame rather than retry.
type TcpSink interface {
	TrySend(frame []byte) bool
	RemoteAddr() netip.AddrPort
	Close() error
}
