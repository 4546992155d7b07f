package cryptography

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
)

// RSACipher holds the server's long-lived RSA key pair and exposes the
// narrow surface the plain and secret handshakes need: advertising the
// public key and its fingerprint, and unwrapping a client-sealed AES key
// during the secret handshake.
type RSACipher struct {
	key        *rsa.PrivateKey
	publicDER  []byte
	publicFing Finger
}

// NewRSACipher generates a fresh RSA key pair of the given bit size
// (2048 is the spec's expected minimum).
func NewRSACipher(bits int) (*RSACipher, error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, err
	}
	return newRSACipher(key)
}

// LoadRSACipher wraps an already-loaded private key, e.g. one read from
// the server's configuration at startup.
func LoadRSACipher(key *rsa.PrivateKey) (*RSACipher, error) {
	return newRSACipher(key)
}

func newRSACipher(key *rsa.PrivateKey) (*RSACipher, error) {
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	return &RSACipher{
		key:        key,
		publicDER:  der,
		publicFing: NewFinger(der),
	}, nil
}

// PublicKey returns the PKIX DER encoding of the server's RSA public key.
func (c *RSACipher) PublicKey() []byte { return c.publicDER }

// Finger returns the stable fingerprint of the server's public key.
func (c *RSACipher) Finger() Finger { return c.publicFing }

// Decrypt unwraps an RSA-OAEP sealed body, yielding the plaintext the
// secret handshake will parse as a SecretHandshakeRequest.
func (c *RSACipher) Decrypt(ciphertext []byte) ([]byte, error) {
	return rsa.DecryptOAEP(sha256.New(), rand.Reader, c.key, ciphertext, nil)
}
