package frame

// Flags is the single flags byte carried in the frame header.
type Flags uint8

const (
	// FlagEncrypted marks the payload as AES-256-GCM sealed; the trailing
	// EncryptionReserved bytes hold the nonce and tag.
	FlagEncrypted Flags = 1 << 0
	// FlagGateway marks a packet synthesized by the server itself, e.g. an
	// ICMP echo reply impersonating the virtual gateway.
	FlagGateway Flags = 1 << 1
)

func (f Flags) Encrypted() bool { return f&FlagEncrypted != 0 }
func (f Flags) Gateway() bool   { return f&FlagGateway != 0 }

func (f Flags) withEncrypted(v bool) Flags {
	if v {
		return f | FlagEncrypted
	}
	return f &^ FlagEncrypted
}

func (f Flags) withGateway(v bool) Flags {
	if v {
		return f | FlagGateway
	}
	return f &^ FlagGateway
}
