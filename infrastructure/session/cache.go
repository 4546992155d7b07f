// Package session backs the rendezvous core's four process-wide, TTL
// bounded lookup structures (spec.md 4.C) with jellydator/ttlcache/v3:
// addr_session, ip_session, cipher_session, and the per-group
// virtual_network directory. Every map behaves as its own critical
// section; callers never need an external lock around these operations.
package session

import (
	"net/netip"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"lanrelay/domain/network"
	"lanrelay/infrastructure/cryptography"
)

const (
	// DefaultAddrSessionTTL bounds address-keyed session entries
	// (addr_session, ip_session, cipher_session). A client whose TTL
	// expires must re-handshake.
	DefaultAddrSessionTTL = 2 * time.Hour
	// DefaultGroupTTL bounds how long an idle group's NetworkInfo survives
	// so a group can outlast transient churn (spec.md 3).
	DefaultGroupTTL = 7 * 24 * time.Hour
)

// GroupVIP identifies one client within one group: the pair a forward
// (ip_session) and reverse (addr_session) lookup both key or carry.
type GroupVIP struct {
	Group string
	VIP   uint32
}

// Context is the handle Dispatch retrieves for an address with an
// established registration: the group's shared, lockable directory plus
// the caller's own virtual IP within it.
type Context struct {
	Network *network.NetworkInfo
	Group   string
	VIP     uint32
}

// Cache bundles the four TTL-bounded maps. The zero value is not usable;
// construct with New.
type Cache struct {
	addrSessions   *ttlcache.Cache[string, GroupVIP]
	ipSessions     *ttlcache.Cache[GroupVIP, string]
	cipherSessions *ttlcache.Cache[string, *cryptography.AES256GCMCipher]
	groups         *ttlcache.Cache[string, *network.NetworkInfo]
	groupsMu       sync.Mutex
}

// New constructs a Cache and starts each map's background eviction loop.
// Callers must call Close when done to stop those goroutines.
func New(addrTTL time.Duration) *Cache {
	c := &Cache{
		addrSessions: ttlcache.New[string, GroupVIP](
			ttlcache.WithTTL[string, GroupVIP](addrTTL),
		),
		ipSessions: ttlcache.New[GroupVIP, string](
			ttlcache.WithTTL[GroupVIP, string](addrTTL),
		),
		cipherSessions: ttlcache.New[string, *cryptography.AES256GCMCipher](
			ttlcache.WithTTL[string, *cryptography.AES256GCMCipher](addrTTL),
		),
		groups: ttlcache.New[string, *network.NetworkInfo](
			ttlcache.WithTTL[string, *network.NetworkInfo](DefaultGroupTTL),
		),
	}
	go c.addrSessions.Start()
	go c.ipSessions.Start()
	go c.cipherSessions.Start()
	go c.groups.Start()
	return c
}

func (c *Cache) Close() {
	c.addrSessions.Stop()
	c.ipSessions.Stop()
	c.cipherSessions.Stop()
	c.groups.Stop()
}

// InsertAddrSession is idempotent and resets the entry's TTL.
func (c *Cache) InsertAddrSession(addr netip.AddrPort, gv GroupVIP) {
	c.addrSessions.Set(addr.String(), gv, ttlcache.DefaultTTL)
}

// InsertIPSession is idempotent and resets the entry's TTL.
func (c *Cache) InsertIPSession(gv GroupVIP, addr netip.AddrPort) {
	c.ipSessions.Set(gv, addr.String(), ttlcache.DefaultTTL)
}

// InsertCipherSession overwrites any prior cipher session for addr.
func (c *Cache) InsertCipherSession(addr netip.AddrPort, aes *cryptography.AES256GCMCipher) {
	c.cipherSessions.Set(addr.String(), aes, ttlcache.DefaultTTL)
}

// CipherSession looks up the cipher bound to addr by a prior secret
// handshake.
func (c *Cache) CipherSession(addr netip.AddrPort) (*cryptography.AES256GCMCipher, bool) {
	item := c.cipherSessions.Get(addr.String())
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

// GetContext returns the Context for addr, or false if no address
// session (or its group has since expired) exists.
func (c *Cache) GetContext(addr netip.AddrPort) (*Context, bool) {
	item := c.addrSessions.Get(addr.String())
	if item == nil {
		return nil, false
	}
	gv := item.Value()
	netItem := c.groups.Get(gv.Group)
	if netItem == nil {
		return nil, false
	}
	return &Context{Network: netItem.Value(), Group: gv.Group, VIP: gv.VIP}, true
}

// IPSession is the forward (group, vip) -> address lookup, e.g. for
// directed unicast.
func (c *Cache) IPSession(gv GroupVIP) (netip.AddrPort, bool) {
	item := c.ipSessions.Get(gv)
	if item == nil {
		return netip.AddrPort{}, false
	}
	ap, err := netip.ParseAddrPort(item.Value())
	if err != nil {
		return netip.AddrPort{}, false
	}
	return ap, true
}

// GetOrCreateGroup implements the spec's optionally_get_with: race-safe
// get-or-create. The lookup and the insert run under one mutex, so
// concurrent misses on a group are serialized: factory runs at most once
// per group and every caller sees the same NetworkInfo (spec.md 9, group
// creation race).
func (c *Cache) GetOrCreateGroup(group string, factory func() *network.NetworkInfo) *network.NetworkInfo {
	c.groupsMu.Lock()
	defer c.groupsMu.Unlock()
	if item := c.groups.Get(group); item != nil {
		return item.Value()
	}
	return c.groups.Set(group, factory(), DefaultGroupTTL).Value()
}
