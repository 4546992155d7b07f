// Package messages defines the structured Service/Control payload bodies
// the dispatch core consumes and produces. The real wire-format codec for
// these bodies is protocol buffers and is an external collaborator, out
// of scope for this core (spec.md section 1) — the Marshal/Unmarshal
// pairs below are a self-consistent stand-in, built in the teacher's
// manual length-prefixed framing idiom (see domain/network/serviceframe
// in the teacher tree), used so this repo's own tests can round-trip a
// request through the dispatcher without a protobuf toolchain.
package messages

import (
	"encoding/binary"
	"net/netip"
)

// RegistrationRequest is the Service/RegistrationRequest body.
type RegistrationRequest struct {
	Token         string
	DeviceID      string
	Name          string
	Version       string
	VirtualIP     uint32
	ClientSecret  bool
	AllowIPChange bool
	IsFast        bool
}

// DeviceInfo is one roster entry in a RegistrationResponse or DeviceList.
type DeviceInfo struct {
	VirtualIP    uint32
	Name         string
	DeviceStatus uint8 // 0 = online, 1 = offline
	ClientSecret bool
}

// RegistrationResponse is the Service/RegistrationResponse body.
type RegistrationResponse struct {
	PublicIP       netip.Addr // present when the peer's public address is IPv4 (or IPv4-mapped)
	PublicPort     uint16
	PublicIPv6     []byte // set instead of PublicIP for pure-IPv6 peers
	VirtualIP      uint32
	VirtualNetmask uint32
	VirtualGateway uint32
	Epoch          uint32
	DeviceInfoList []DeviceInfo
}

// DeviceList is the Service/PushDeviceList body.
type DeviceList struct {
	Epoch          uint32
	DeviceInfoList []DeviceInfo
}

// HandshakeResponse is the Service/HandshakeResponse body.
type HandshakeResponse struct {
	Version   string
	PublicKey []byte
	Secret    bool
	KeyFinger []byte
}

// SecretHandshakeRequest is the RSA-decrypted body of a
// Service/SecretHandshakeRequest.
type SecretHandshakeRequest struct {
	Key   [32]byte
	Token string
}

// NATType mirrors the client's self-reported NAT classification.
type NATType uint8

const (
	NATCone NATType = iota
	NATSymmetric
)

// ClientStatusUpload is the Service/ClientStatusInfo body a client
// uploads about itself.
type ClientStatusUpload struct {
	Source     uint32 // the vip the client claims to be (see DESIGN.md Open Question)
	P2PList    []uint32
	UpStream   uint64
	DownStream uint64
	NatType    NATType
}

// AddrResponse is the Control/AddrResponse body.
type AddrResponse struct {
	IPv4 uint32
	Port uint16
}

func putString(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...)
}

func getString(data []byte) (string, []byte, bool) {
	if len(data) < 2 {
		return "", nil, false
	}
	n := int(binary.BigEndian.Uint16(data))
	data = data[2:]
	if len(data) < n {
		return "", nil, false
	}
	return string(data[:n]), data[n:], true
}

func putDeviceInfo(buf []byte, d DeviceInfo) []byte {
	buf = binary.BigEndian.AppendUint32(buf, d.VirtualIP)
	buf = putString(buf, d.Name)
	status := d.DeviceStatus
	if d.ClientSecret {
		status |= 0x80
	}
	return append(buf, status)
}

func getDeviceInfo(data []byte) (DeviceInfo, []byte, bool) {
	if len(data) < 4 {
		return DeviceInfo{}, nil, false
	}
	vip := binary.BigEndian.Uint32(data)
	data = data[4:]
	name, rest, ok := getString(data)
	if !ok || len(rest) < 1 {
		return DeviceInfo{}, nil, false
	}
	status := rest[0]
	return DeviceInfo{
		VirtualIP:    vip,
		Name:         name,
		DeviceStatus: status &^ 0x80,
		ClientSecret: status&0x80 != 0,
	}, rest[1:], true
}

// Marshal encodes a RegistrationRequest.
func (r RegistrationRequest) Marshal() []byte {
	buf := make([]byte, 0, 64)
	buf = putString(buf, r.Token)
	buf = putString(buf, r.DeviceID)
	buf = putString(buf, r.Name)
	buf = putString(buf, r.Version)
	buf = binary.BigEndian.AppendUint32(buf, r.VirtualIP)
	flags := byte(0)
	if r.ClientSecret {
		flags |= 1
	}
	if r.AllowIPChange {
		flags |= 2
	}
	if r.IsFast {
		flags |= 4
	}
	return append(buf, flags)
}

// UnmarshalRegistrationRequest decodes a RegistrationRequest.
func UnmarshalRegistrationRequest(data []byte) (RegistrationRequest, bool) {
	var r RegistrationRequest
	var ok bool
	if r.Token, data, ok = getString(data); !ok {
		return r, false
	}
	if r.DeviceID, data, ok = getString(data); !ok {
		return r, false
	}
	if r.Name, data, ok = getString(data); !ok {
		return r, false
	}
	if r.Version, data, ok = getString(data); !ok {
		return r, false
	}
	if len(data) < 5 {
		return r, false
	}
	r.VirtualIP = binary.BigEndian.Uint32(data)
	flags := data[4]
	r.ClientSecret = flags&1 != 0
	r.AllowIPChange = flags&2 != 0
	r.IsFast = flags&4 != 0
	return r, true
}

// Marshal encodes a RegistrationResponse.
func (r RegistrationResponse) Marshal() []byte {
	buf := make([]byte, 0, 64+16*len(r.DeviceInfoList))
	if r.PublicIP.Is4() {
		buf = append(buf, 1)
		b := r.PublicIP.As4()
		buf = append(buf, b[:]...)
	} else {
		buf = append(buf, 0)
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(r.PublicIPv6)))
		buf = append(buf, r.PublicIPv6...)
	}
	buf = binary.BigEndian.AppendUint16(buf, r.PublicPort)
	buf = binary.BigEndian.AppendUint32(buf, r.VirtualIP)
	buf = binary.BigEndian.AppendUint32(buf, r.VirtualNetmask)
	buf = binary.BigEndian.AppendUint32(buf, r.VirtualGateway)
	buf = binary.BigEndian.AppendUint32(buf, r.Epoch)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(r.DeviceInfoList)))
	for _, d := range r.DeviceInfoList {
		buf = putDeviceInfo(buf, d)
	}
	return buf
}

// UnmarshalRegistrationResponse decodes a RegistrationResponse.
func UnmarshalRegistrationResponse(data []byte) (RegistrationResponse, bool) {
	var r RegistrationResponse
	if len(data) < 1 {
		return r, false
	}
	isV4 := data[0] == 1
	data = data[1:]
	if isV4 {
		if len(data) < 4 {
			return r, false
		}
		r.PublicIP = netip.AddrFrom4([4]byte(data[:4]))
		data = data[4:]
	} else {
		if len(data) < 2 {
			return r, false
		}
		n := int(binary.BigEndian.Uint16(data))
		data = data[2:]
		if len(data) < n {
			return r, false
		}
		r.PublicIPv6 = append([]byte(nil), data[:n]...)
		data = data[n:]
	}
	if len(data) < 20 {
		return r, false
	}
	r.PublicPort = binary.BigEndian.Uint16(data)
	data = data[2:]
	r.VirtualIP = binary.BigEndian.Uint32(data)
	data = data[4:]
	r.VirtualNetmask = binary.BigEndian.Uint32(data)
	data = data[4:]
	r.VirtualGateway = binary.BigEndian.Uint32(data)
	data = data[4:]
	r.Epoch = binary.BigEndian.Uint32(data)
	data = data[4:]
	count := int(binary.BigEndian.Uint16(data))
	data = data[2:]
	r.DeviceInfoList = make([]DeviceInfo, 0, count)
	for i := 0; i < count; i++ {
		var d DeviceInfo
		var ok bool
		d, data, ok = getDeviceInfo(data)
		if !ok {
			return r, false
		}
		r.DeviceInfoList = append(r.DeviceInfoList, d)
	}
	return r, true
}

// Marshal encodes a DeviceList.
func (l DeviceList) Marshal() []byte {
	buf := make([]byte, 0, 6+16*len(l.DeviceInfoList))
	buf = binary.BigEndian.AppendUint32(buf, l.Epoch)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(l.DeviceInfoList)))
	for _, d := range l.DeviceInfoList {
		buf = putDeviceInfo(buf, d)
	}
	return buf
}

// UnmarshalDeviceList decodes a DeviceList.
func UnmarshalDeviceList(data []byte) (DeviceList, bool) {
	var l DeviceList
	if len(data) < 6 {
		return l, false
	}
	l.Epoch = binary.BigEndian.Uint32(data)
	data = data[4:]
	count := int(binary.BigEndian.Uint16(data))
	data = data[2:]
	l.DeviceInfoList = make([]DeviceInfo, 0, count)
	for i := 0; i < count; i++ {
		var d DeviceInfo
		var ok bool
		d, data, ok = getDeviceInfo(data)
		if !ok {
			return l, false
		}
		l.DeviceInfoList = append(l.DeviceInfoList, d)
	}
	return l, true
}

// Marshal encodes a HandshakeResponse.
func (h HandshakeResponse) Marshal() []byte {
	buf := make([]byte, 0, 32+len(h.PublicKey)+len(h.KeyFinger))
	buf = putString(buf, h.Version)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(h.PublicKey)))
	buf = append(buf, h.PublicKey...)
	secret := byte(0)
	if h.Secret {
		secret = 1
	}
	buf = append(buf, secret)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(h.KeyFinger)))
	buf = append(buf, h.KeyFinger...)
	return buf
}

// UnmarshalHandshakeResponse decodes a HandshakeResponse.
func UnmarshalHandshakeResponse(data []byte) (HandshakeResponse, bool) {
	var h HandshakeResponse
	var ok bool
	if h.Version, data, ok = getString(data); !ok {
		return h, false
	}
	if len(data) < 2 {
		return h, false
	}
	n := int(binary.BigEndian.Uint16(data))
	data = data[2:]
	if len(data) < n {
		return h, false
	}
	if n > 0 {
		h.PublicKey = append([]byte(nil), data[:n]...)
	}
	data = data[n:]
	if len(data) < 1 {
		return h, false
	}
	h.Secret = data[0] == 1
	data = data[1:]
	if len(data) < 2 {
		return h, false
	}
	n = int(binary.BigEndian.Uint16(data))
	data = data[2:]
	if len(data) < n {
		return h, false
	}
	if n > 0 {
		h.KeyFinger = append([]byte(nil), data[:n]...)
	}
	return h, true
}

// UnmarshalSecretHandshakeRequest decodes an RSA-decrypted
// SecretHandshakeRequest body.
func UnmarshalSecretHandshakeRequest(data []byte) (SecretHandshakeRequest, bool) {
	var r SecretHandshakeRequest
	if len(data) < 32+2 {
		return r, false
	}
	copy(r.Key[:], data[:32])
	data = data[32:]
	token, _, ok := getString(data)
	if !ok {
		return r, false
	}
	r.Token = token
	return r, true
}

// Marshal encodes a SecretHandshakeRequest (used by clients; kept here
// for symmetry and tests).
func (s SecretHandshakeRequest) Marshal() []byte {
	buf := make([]byte, 0, 32+2+len(s.Token))
	buf = append(buf, s.Key[:]...)
	buf = putString(buf, s.Token)
	return buf
}

// UnmarshalClientStatusUpload decodes a ClientStatusInfo upload body.
func UnmarshalClientStatusUpload(data []byte) (ClientStatusUpload, bool) {
	var c ClientStatusUpload
	if len(data) < 4+2 {
		return c, false
	}
	c.Source = binary.BigEndian.Uint32(data)
	data = data[4:]
	count := int(binary.BigEndian.Uint16(data))
	data = data[2:]
	if len(data) < count*4+1+16 {
		return c, false
	}
	c.P2PList = make([]uint32, count)
	for i := 0; i < count; i++ {
		c.P2PList[i] = binary.BigEndian.Uint32(data)
		data = data[4:]
	}
	c.NatType = NATType(data[0])
	data = data[1:]
	c.UpStream = binary.BigEndian.Uint64(data)
	data = data[8:]
	c.DownStream = binary.BigEndian.Uint64(data)
	return c, true
}

// Marshal encodes a ClientStatusUpload (kept for symmetry/tests).
func (c ClientStatusUpload) Marshal() []byte {
	buf := make([]byte, 0, 16+4*len(c.P2PList))
	buf = binary.BigEndian.AppendUint32(buf, c.Source)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(c.P2PList)))
	for _, ip := range c.P2PList {
		buf = binary.BigEndian.AppendUint32(buf, ip)
	}
	buf = append(buf, byte(c.NatType))
	buf = binary.BigEndian.AppendUint64(buf, c.UpStream)
	buf = binary.BigEndian.AppendUint64(buf, c.DownStream)
	return buf
}

// Marshal encodes an AddrResponse.
func (a AddrResponse) Marshal() []byte {
	buf := make([]byte, 0, 6)
	buf = binary.BigEndian.AppendUint32(buf, a.IPv4)
	buf = binary.BigEndian.AppendUint16(buf, a.Port)
	return buf
}
