// Package encryption seals short secrets (API keys) for storage in the
// settings table.
package encryption

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const sealedPrefix = "enc:"

var ErrNotSealed = errors.New("value is not sealed")

// Manager seals and opens string values.
type Manager struct {
	cipher *Cipher
}

func NewManager(cipher *Cipher) *Manager {
	return &Manager{cipher: cipher}
}

// NewManagerFromHex builds a manager from a 64-character hex key and a
// cipher name (see ParseCipherType).
func NewManagerFromHex(keyHex, cipherName string) (*Manager, error) {
	key, err := hex.DecodeString(strings.TrimSpace(keyHex))
	if err != nil {
		return nil, fmt.Errorf("invalid key format (must be 64-char hex string): %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be exactly %d bytes (%d hex chars), got %d bytes", KeySize, KeySize*2, len(key))
	}

	t, err := ParseCipherType(cipherName)
	if err != nil {
		return nil, err
	}

	c, err := NewCipher(t, key)
	if err != nil {
		return nil, err
	}
	return NewManager(c), nil
}

func (m *Manager) CipherType() CipherType {
	return m.cipher.Type()
}

// SealString encrypts value into "enc:<cipher>:<base64>".
func (m *Manager) SealString(value string) (string, error) {
	ciphertext, err := m.cipher.Encrypt([]byte(value))
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	return sealedPrefix + string(m.cipher.Type()) + ":" + base64.RawStdEncoding.EncodeToString(ciphertext), nil
}

// OpenString decrypts a value produced by SealString. Values sealed with a
// different cipher type are rejected.
func (m *Manager) OpenString(sealed string) (string, error) {
	if !IsSealed(sealed) {
		return "", ErrNotSealed
	}

	rest := strings.TrimPrefix(sealed, sealedPrefix)
	name, payload, ok := strings.Cut(rest, ":")
	if !ok {
		return "", ErrNotSealed
	}
	if CipherType(name) != m.cipher.Type() {
		return "", fmt.Errorf("value sealed with %s, manager uses %s", name, m.cipher.Type())
	}

	ciphertext, err := base64.RawStdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("decode sealed value: %w", err)
	}

	plaintext, err := m.cipher.Decrypt(ciphertext)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// IsSealed reports whether s looks like SealString output.
func IsSealed(s string) bool {
	return strings.HasPrefix(s, sealedPrefix)
}
