package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// CipherType names the AEAD used to seal values.
type CipherType string

const (
	CipherChaCha20Poly1305  CipherType = "chacha20-poly1305"
	CipherXChaCha20Poly1305 CipherType = "xchacha20-poly1305"
	CipherAES256GCM         CipherType = "aes-256-gcm"
)

// KeySize is the key length every supported cipher expects.
const KeySize = chacha20poly1305.KeySize

// ParseCipherType accepts the names above case-insensitively; empty means
// ChaCha20-Poly1305.
func ParseCipherType(name string) (CipherType, error) {
	switch CipherType(strings.ToLower(strings.TrimSpace(name))) {
	case "", CipherChaCha20Poly1305:
		return CipherChaCha20Poly1305, nil
	case CipherXChaCha20Poly1305:
		return CipherXChaCha20Poly1305, nil
	case CipherAES256GCM:
		return CipherAES256GCM, nil
	default:
		return "", fmt.Errorf("unsupported cipher %q (must be chacha20-poly1305, xchacha20-poly1305, or aes-256-gcm)", name)
	}
}

// Cipher wraps an AEAD with its type.
type Cipher struct {
	aead       cipher.AEAD
	cipherType CipherType
}

// NewCipher builds the AEAD for t. The key must be exactly KeySize bytes.
func NewCipher(t CipherType, key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(key), KeySize)
	}

	var (
		aead cipher.AEAD
		err  error
	)
	switch t {
	case CipherChaCha20Poly1305:
		aead, err = chacha20poly1305.New(key)
	case CipherXChaCha20Poly1305:
		aead, err = chacha20poly1305.NewX(key)
	case CipherAES256GCM:
		var block cipher.Block
		block, err = aes.NewCipher(key)
		if err == nil {
			aead, err = cipher.NewGCM(block)
		}
	default:
		return nil, fmt.Errorf("unsupported cipher %q", t)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s cipher: %w", t, err)
	}

	return &Cipher{aead: aead, cipherType: t}, nil
}

// Encrypt returns [nonce][ciphertext+tag].
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt reverses Encrypt.
func (c *Cipher) Decrypt(ciphertext []byte) ([]byte, error) {
	n := c.aead.NonceSize()
	if len(ciphertext) < n {
		return nil, fmt.Errorf("ciphertext too short: got %d, need at least %d", len(ciphertext), n)
	}

	plaintext, err := c.aead.Open(nil, ciphertext[:n], ciphertext[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

func (c *Cipher) Type() CipherType {
	return c.cipherType
}
