package network

import "net/netip"

// AllocateRequest carries the fields of a registration request the
// allocator needs. VirtualIP == 0 means "let the server choose".
type AllocateRequest struct {
	VirtualIP     uint32
	DeviceID      string
	Name          string
	ClientSecret  bool
	AllowIPChange bool
	BroadcastIP   uint32
	Address       netip.AddrPort
	TCPSender     Sink
}

// Allocate runs the group's IP assignment algorithm (spec.md 4.D) and
// installs/updates the resulting ClientInfo in net.Clients, bumping the
// group's epoch by exactly one on success. The caller must hold net's
// write lock; Allocate performs no I/O and never blocks.
//
// Precedence, in order: (1) an explicit, valid virtual IP held by nobody,
// or held by the same device, resolves outright and skips the remaining
// steps; a valid IP held by a different device fails IpAlreadyExists
// unless allow_ip_change is set, in which case the request is treated as
// unresolved and falls through. Only when (1) leaves the request
// unresolved (no IP requested, or the requested one relocated) does (2),
// the device-stickiness scan, run — reusing the device's existing entry
// in this group if it has one. A device requesting the vip it already
// holds resolves in (1) and never reaches the scan (see DESIGN.md Open
// Question notes). Only if neither resolves to a nonzero IP does (3), the
// ascending first-fit scan, run.
func Allocate(net *NetworkInfo, req AllocateRequest) (uint32, error) {
	low := (net.GatewayIP & net.MaskIP) + 1
	high := net.GatewayIP | ^net.MaskIP
	inRange := func(ip uint32) bool { return ip >= low && ip < high }

	virtualIP := req.VirtualIP

	if virtualIP != 0 {
		if virtualIP == net.GatewayIP || virtualIP == req.BroadcastIP || !inRange(virtualIP) {
			return 0, ErrInvalidIP
		}
		if existing, ok := net.Clients[virtualIP]; ok && existing.DeviceID != req.DeviceID {
			if !req.AllowIPChange {
				return 0, ErrIPAlreadyExists
			}
			virtualIP = 0
		}
	}

	if virtualIP == 0 {
		for ip, info := range net.Clients {
			if info.DeviceID == req.DeviceID {
				virtualIP = ip
			}
		}
	}

	if virtualIP == 0 {
		for ip := low; ip < high; ip++ {
			if ip == net.GatewayIP {
				continue
			}
			if _, taken := net.Clients[ip]; !taken {
				virtualIP = ip
				break
			}
		}
	}

	if virtualIP == 0 {
		return 0, ErrAddressExhausted
	}

	info, ok := net.Clients[virtualIP]
	if !ok {
		info = &ClientInfo{}
		net.Clients[virtualIP] = info
	}
	info.DeviceID = req.DeviceID
	info.Name = req.Name
	info.ClientSecret = req.ClientSecret
	info.Address = req.Address
	info.Online = true
	info.VirtualIP = virtualIP
	info.TCPSender = req.TCPSender

	net.Epoch++

	return virtualIP, nil
}
