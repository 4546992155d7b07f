package network

import (
	"errors"
	"net/netip"
	"testing"
)

const (
	testGateway   = 0x0A000001 // 10.0.0.1
	testMask      = 0xFFFFFF00 // 255.255.255.0
	testBroadcast = 0x0A0000FF // 10.0.0.255
	testNetwork   = testGateway & testMask
)

func newTestNet() *NetworkInfo {
	return NewNetworkInfo(testNetwork, testMask, testGateway)
}

func addr(s string) netip.AddrPort { return netip.MustParseAddrPort(s) }

func TestAllocate_FirstComeAscending(t *testing.T) {
	n := newTestNet()

	vipA, err := Allocate(n, AllocateRequest{DeviceID: "A", BroadcastIP: testBroadcast, Address: addr("203.0.113.5:4000")})
	if err != nil {
		t.Fatalf("A: %v", err)
	}
	if vipA != 0x0A000002 {
		t.Fatalf("expected 10.0.0.2, got %x", vipA)
	}
	if n.Epoch != 1 {
		t.Fatalf("expected epoch 1, got %d", n.Epoch)
	}

	vipB, err := Allocate(n, AllocateRequest{DeviceID: "B", BroadcastIP: testBroadcast, Address: addr("198.51.100.7:5000")})
	if err != nil {
		t.Fatalf("B: %v", err)
	}
	if vipB != 0x0A000003 {
		t.Fatalf("expected 10.0.0.3, got %x", vipB)
	}
	if n.Epoch != 2 {
		t.Fatalf("expected epoch 2, got %d", n.Epoch)
	}
}

func TestAllocate_ReregisterSameDeviceZeroIP_ReusesVIPIncrementsEpochByOne(t *testing.T) {
	n := newTestNet()
	vip1, _ := Allocate(n, AllocateRequest{DeviceID: "A", BroadcastIP: testBroadcast})
	vip2, err := Allocate(n, AllocateRequest{DeviceID: "A", BroadcastIP: testBroadcast})
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if vip1 != vip2 {
		t.Fatalf("expected same vip, got %x vs %x", vip1, vip2)
	}
	if n.Epoch != 2 {
		t.Fatalf("expected epoch to increment by exactly 1 per registration, got %d", n.Epoch)
	}
}

func TestAllocate_InvalidIP_GatewayOrBroadcast(t *testing.T) {
	n := newTestNet()
	for _, ip := range []uint32{testGateway, testBroadcast} {
		_, err := Allocate(n, AllocateRequest{DeviceID: "A", VirtualIP: ip, BroadcastIP: testBroadcast})
		if !errors.Is(err, ErrInvalidIP) {
			t.Fatalf("ip=%x: expected ErrInvalidIP, got %v", ip, err)
		}
	}
}

func TestAllocate_InvalidIP_OutsideRange(t *testing.T) {
	n := newTestNet()
	_, err := Allocate(n, AllocateRequest{DeviceID: "A", VirtualIP: 0x0B000002, BroadcastIP: testBroadcast})
	if !errors.Is(err, ErrInvalidIP) {
		t.Fatalf("expected ErrInvalidIP, got %v", err)
	}
}

func TestAllocate_IPAlreadyExists_NoChangeAllowed(t *testing.T) {
	n := newTestNet()
	vipA, _ := Allocate(n, AllocateRequest{DeviceID: "A", BroadcastIP: testBroadcast})
	epochBefore := n.Epoch

	_, err := Allocate(n, AllocateRequest{
		DeviceID:      "C",
		VirtualIP:     vipA,
		AllowIPChange: false,
		BroadcastIP:   testBroadcast,
	})
	if !errors.Is(err, ErrIPAlreadyExists) {
		t.Fatalf("expected ErrIPAlreadyExists, got %v", err)
	}
	if n.Epoch != epochBefore {
		t.Fatalf("epoch must not change on failed allocation: before=%d after=%d", epochBefore, n.Epoch)
	}
}

func TestAllocate_IPAlreadyExists_ChangeAllowed_RelocatesRequester(t *testing.T) {
	n := newTestNet()
	vipA, _ := Allocate(n, AllocateRequest{DeviceID: "A", BroadcastIP: testBroadcast}) // 10.0.0.2
	_, _ = Allocate(n, AllocateRequest{DeviceID: "B", BroadcastIP: testBroadcast})     // 10.0.0.3

	vipC, err := Allocate(n, AllocateRequest{
		DeviceID:      "C",
		VirtualIP:     vipA,
		AllowIPChange: true,
		BroadcastIP:   testBroadcast,
	})
	if err != nil {
		t.Fatalf("C: %v", err)
	}
	if vipC != 0x0A000004 {
		t.Fatalf("expected C relocated to 10.0.0.4, got %x", vipC)
	}
	// incumbent A must never be displaced
	if n.Clients[vipA].DeviceID != "A" {
		t.Fatalf("incumbent A was displaced: %+v", n.Clients[vipA])
	}
}

func TestAllocate_DeviceReclaimsOwnRequestedVIP(t *testing.T) {
	n := newTestNet()
	vipA, _ := Allocate(n, AllocateRequest{DeviceID: "A", BroadcastIP: testBroadcast})

	// Open Question: requesting the IP you already hold resolves to the
	// same vip — the explicit-request step passes through since the
	// holder is the same device, so there is nothing to reclaim.
	vipA2, err := Allocate(n, AllocateRequest{
		DeviceID:    "A",
		VirtualIP:   vipA,
		BroadcastIP: testBroadcast,
	})
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if vipA2 != vipA {
		t.Fatalf("expected reclaim of same vip, got %x vs %x", vipA2, vipA)
	}
}

func TestAllocate_FreeRequestedVIPOverridesStickiness(t *testing.T) {
	n := newTestNet()
	vipA, _ := Allocate(n, AllocateRequest{DeviceID: "A", BroadcastIP: testBroadcast}) // 10.0.0.2

	// A already has an entry, but explicitly requests a different, free,
	// valid vip: the stickiness scan only runs when the explicit-request
	// step leaves nothing resolved, so the requested vip wins here.
	const requested = 0x0A000009
	got, err := Allocate(n, AllocateRequest{
		DeviceID:    "A",
		VirtualIP:   requested,
		BroadcastIP: testBroadcast,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != requested {
		t.Fatalf("expected free requested vip %x to win over stickiness %x, got %x", requested, vipA, got)
	}
}

func TestAllocate_AddressExhausted(t *testing.T) {
	n := newTestNet()
	// usable range is 10.0.0.2 .. 10.0.0.254 (gateway=.1 skipped, .255 excluded)
	low := uint32(testGateway&testMask) + 1
	high := testGateway | ^uint32(testMask)
	count := 0
	for ip := low; ip < high; ip++ {
		if ip == testGateway {
			continue
		}
		count++
		if _, err := Allocate(n, AllocateRequest{DeviceID: deviceName(count), BroadcastIP: testBroadcast}); err != nil {
			t.Fatalf("unexpected error filling slot %d: %v", count, err)
		}
	}
	if _, err := Allocate(n, AllocateRequest{DeviceID: "overflow", BroadcastIP: testBroadcast}); !errors.Is(err, ErrAddressExhausted) {
		t.Fatalf("expected ErrAddressExhausted, got %v", err)
	}
}

func deviceName(n int) string {
	b := make([]byte, 0, 12)
	b = append(b, "dev-"...)
	for n > 0 {
		b = append(b, byte('0'+n%10))
		n /= 10
	}
	return string(b)
}
