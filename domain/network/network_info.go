package network

import "sync"

// NetworkInfo is one group's virtual subnet directory: the fixed CIDR it
// was created with, its monotonic epoch, and the client roster keyed by
// virtual IP. Callers hold the embedded RWMutex for the minimum span
// needed — read locks while snapshotting fields into owned data, write
// locks only inside the allocator and the client-status updater. Never
// perform I/O (including serialization) while holding either lock.
type NetworkInfo struct {
	sync.RWMutex

	NetworkIP uint32
	MaskIP    uint32
	GatewayIP uint32

	Epoch   uint64
	Clients map[uint32]*ClientInfo
}

func NewNetworkInfo(networkIP, maskIP, gatewayIP uint32) *NetworkInfo {
	return &NetworkInfo{
		NetworkIP: networkIP,
		MaskIP:    maskIP,
		GatewayIP: gatewayIP,
		Clients:   make(map[uint32]*ClientInfo),
	}
}
