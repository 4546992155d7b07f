package network

import "errors"

var (
	// ErrInvalidIP is returned when a client-requested virtual IP equals
	// the gateway, equals the broadcast address, or falls outside the
	// group's usable range.
	ErrInvalidIP = errors.New("network: invalid virtual ip")
	// ErrIPAlreadyExists is returned when a client-requested virtual IP is
	// already held by a different device and allow_ip_change is false.
	ErrIPAlreadyExists = errors.New("network: virtual ip already assigned")
	// ErrAddressExhausted is returned when no free virtual IP remains in
	// the group's usable range.
	ErrAddressExhausted = errors.New("network: address space exhausted")
)
