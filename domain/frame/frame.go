// Package frame implements the fixed 12-byte wire envelope shared by every
// packet the rendezvous core exchanges with a peer: protocol class,
// transport sub-protocol, flags, and the source/destination virtual IPv4
// addresses. Concurrency: a Packet wraps a caller-owned byte slice and is
// NOT safe for concurrent use — callers own one packet per goroutine, the
// same discipline the teacher's serviceframe.Frame follows.
package frame

import "encoding/binary"

const (
	// HeaderSize is the fixed header length: version, class, sub-protocol,
	// flags, 4-byte source VIP, 4-byte destination VIP.
	HeaderSize = 12

	// EncryptionReserved is the trailing byte count an encrypted packet
	// reserves for the AES-256-GCM nonce (12 bytes) and tag (16 bytes).
	EncryptionReserved = 28

	Version1 = 1
)

const (
	offVersion = 0
	offClass   = 1
	offSubProt = 2
	offFlags   = 3
	offSrcVIP  = 4
	offDstVIP  = 8
)

// Packet is a mutable view over a byte buffer laid out as the wire
// envelope. It never copies the buffer on construction; Payload and
// PayloadMut return subslices of it.
type Packet struct {
	buf []byte
	// hasTrailer reports whether buf's layout reserves the trailing
	// EncryptionReserved region, independent of whether the wire
	// encrypted flag bit is currently set. A packet built via
	// NewEncryptable reserves the region up front so Seal can fill it
	// in before the flag bit itself is set.
	hasTrailer bool
}

// New wraps an existing buffer as a Packet, validating the header length
// and, for buffers whose flags byte marks them encrypted, that the buffer
// is long enough to also hold the reserved trailer.
func New(buf []byte) (*Packet, error) {
	if len(buf) < HeaderSize {
		return nil, ErrTooShort
	}
	p := &Packet{buf: buf}
	p.hasTrailer = Flags(buf[offFlags]).Encrypted()
	if p.hasTrailer && len(buf) < HeaderSize+EncryptionReserved {
		return nil, ErrInconsistentLen
	}
	return p, nil
}

// NewEncryptable allocates a zero-initialized packet sized to hold
// payloadLen bytes of payload plus the encryption trailer. The encrypted
// flag is not set by this constructor; callers that actually seal the
// payload must call Seal (which sets the flag once sealing succeeds).
func NewEncryptable(payloadLen int) *Packet {
	buf := make([]byte, HeaderSize+payloadLen+EncryptionReserved)
	buf[offVersion] = Version1
	return &Packet{buf: buf, hasTrailer: true}
}

// NewPlain allocates a zero-initialized packet with no encryption
// trailer, for replies that are never sealed (e.g. the plain handshake).
func NewPlain(payloadLen int) *Packet {
	buf := make([]byte, HeaderSize+payloadLen)
	buf[offVersion] = Version1
	return &Packet{buf: buf}
}

func (p *Packet) Buffer() []byte { return p.buf }

func (p *Packet) Version() uint8 { return p.buf[offVersion] }

func (p *Packet) Class() Class { return Class(p.buf[offClass]) }

func (p *Packet) SetClass(c Class) { p.buf[offClass] = byte(c) }

func (p *Packet) SubProtocol() uint8 { return p.buf[offSubProt] }

func (p *Packet) SetSubProtocol(v uint8) { p.buf[offSubProt] = v }

func (p *Packet) Flags() Flags { return Flags(p.buf[offFlags]) }

func (p *Packet) Encrypted() bool { return Flags(p.buf[offFlags]).Encrypted() }

func (p *Packet) SetEncrypted(v bool) {
	p.buf[offFlags] = byte(Flags(p.buf[offFlags]).withEncrypted(v))
}

func (p *Packet) Gateway() bool { return Flags(p.buf[offFlags]).Gateway() }

func (p *Packet) SetGatewayFlag(v bool) {
	p.buf[offFlags] = byte(Flags(p.buf[offFlags]).withGateway(v))
}

func (p *Packet) Source() uint32 { return binary.BigEndian.Uint32(p.buf[offSrcVIP:]) }

func (p *Packet) SetSource(ip uint32) { binary.BigEndian.PutUint32(p.buf[offSrcVIP:], ip) }

func (p *Packet) Destination() uint32 { return binary.BigEndian.Uint32(p.buf[offDstVIP:]) }

func (p *Packet) SetDestination(ip uint32) { binary.BigEndian.PutUint32(p.buf[offDstVIP:], ip) }

// payloadEnd returns the index one past the last payload byte, excluding
// the reserved encryption trailer region when present.
func (p *Packet) payloadEnd() int {
	if p.hasTrailer {
		return len(p.buf) - EncryptionReserved
	}
	return len(p.buf)
}

func (p *Packet) Payload() []byte { return p.buf[HeaderSize:p.payloadEnd()] }

func (p *Packet) PayloadMut() []byte { return p.buf[HeaderSize:p.payloadEnd()] }

// Trailer returns the reserved encryption trailer (nonce+tag region).
// Empty if the packet's buffer does not reserve one.
func (p *Packet) Trailer() []byte {
	if !p.hasTrailer {
		return nil
	}
	return p.buf[p.payloadEnd():]
}

// SetPayload copies data into the payload region; data must exactly fill
// the existing payload capacity (the buffer is not resized).
func (p *Packet) SetPayload(data []byte) error {
	dst := p.PayloadMut()
	if len(data) != len(dst) {
		return ErrInconsistentLen
	}
	copy(dst, data)
	return nil
}
