package cryptography

import "crypto/sha256"

// Finger is a stable 32-byte fingerprint, used both for the server's RSA
// public key (advertised in the plain handshake so a client can verify it
// is talking to the key it expects) and for binding an AES session to the
// token the client supplied during the secret handshake.
type Finger [sha256.Size]byte

func NewFinger(data []byte) Finger {
	return Finger(sha256.Sum256(data))
}

func (f Finger) Bytes() []byte { return f[:] }
