package cryptography

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"

	"lanrelay/domain/frame"
)

// AES256GCMCipher is one peer's symmetric session, established by the
// secret handshake and bound to a Finger derived from the handshake
// token. It never does I/O and is safe for concurrent use — AEAD.Open
// and AEAD.Seal are stateless per call given a fresh nonce.
type AES256GCMCipher struct {
	aead   cipher.AEAD
	finger Finger
}

// NewAES256GCMCipher builds a session cipher from a 32-byte key.
func NewAES256GCMCipher(key []byte, finger Finger) (*AES256GCMCipher, error) {
	if len(key) != 32 {
		return nil, ErrBadKeyLength
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AES256GCMCipher{aead: aead, finger: finger}, nil
}

func (c *AES256GCMCipher) Finger() Finger { return c.finger }

// DecryptIPv4 opens the packet's payload in place using the nonce and
// tag carried in its encryption trailer.
func (c *AES256GCMCipher) DecryptIPv4(p *frame.Packet) error {
	trailer := p.Trailer()
	if len(trailer) != frame.EncryptionReserved {
		return ErrBadTrailerSize
	}
	nonceSize := c.aead.NonceSize()
	nonce := trailer[:nonceSize]
	tag := trailer[nonceSize:]

	payload := p.PayloadMut()
	sealed := make([]byte, len(payload)+len(tag))
	copy(sealed, payload)
	copy(sealed[len(payload):], tag)

	plain, err := c.aead.Open(sealed[:0], nonce, sealed, nil)
	if err != nil {
		return ErrDecryptFailed
	}
	copy(payload, plain)
	return nil
}

// Seal encrypts the packet's payload in place, writes a fresh nonce and
// the resulting tag into the encryption trailer, and sets the encrypted
// flag. The caller must have sized the packet via frame.NewEncryptable.
func (c *AES256GCMCipher) Seal(p *frame.Packet) error {
	nonceSize := c.aead.NonceSize()
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return err
	}

	payload := p.PayloadMut()
	plaintext := append([]byte(nil), payload...)
	sealed := c.aead.Seal(nil, nonce, plaintext, nil) // ciphertext || tag

	copy(payload, sealed[:len(payload)])
	trailer := p.Trailer()
	copy(trailer[:nonceSize], nonce)
	copy(trailer[nonceSize:], sealed[len(payload):])
	p.SetEncrypted(true)
	return nil
}

// Encrypt implements a plain byte-in/byte-out encrypt, used where the
// caller manages framing itself rather than through frame.Packet.
func (c *AES256GCMCipher) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	sealed := c.aead.Seal(nil, nonce, plaintext, nil)
	out := make([]byte, 0, len(nonce)+len(sealed))
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

// Decrypt is the inverse of Encrypt.
func (c *AES256GCMCipher) Decrypt(data []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, ErrBadTrailerSize
	}
	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plain, nil
}
