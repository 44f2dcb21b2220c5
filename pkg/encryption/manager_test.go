package encryption

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const zeroKey = "0000000000000000000000000000000000000000000000000000000000000000"

func TestNewManagerFromHex_Ciphers(t *testing.T) {
	for _, name := range []string{"", "chacha20-poly1305", "XCHACHA20-POLY1305", "aes-256-gcm"} {
		t.Run(name, func(t *testing.T) {
			mgr, err := NewManagerFromHex(zeroKey, name)
			require.NoError(t, err)

			sealed, err := mgr.SealString("sk-test-123")
			require.NoError(t, err)
			require.True(t, IsSealed(sealed))
			require.NotContains(t, sealed, "sk-test-123")

			opened, err := mgr.OpenString(sealed)
			require.NoError(t, err)
			require.Equal(t, "sk-test-123", opened)
		})
	}
}

func TestNewManagerFromHex_Errors(t *testing.T) {
	_, err := NewManagerFromHex("not-hex", "")
	require.Error(t, err)

	_, err = NewManagerFromHex("deadbeef", "")
	require.Error(t, err)

	_, err = NewManagerFromHex(zeroKey, "rot13")
	require.Error(t, err)
}

func TestSealString_Unique(t *testing.T) {
	mgr, err := NewManagerFromHex(zeroKey, "")
	require.NoError(t, err)

	a, err := mgr.SealString("same")
	require.NoError(t, err)
	b, err := mgr.SealString("same")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestOpenString_Rejects(t *testing.T) {
	chacha, err := NewManagerFromHex(zeroKey, "chacha20-poly1305")
	require.NoError(t, err)
	aes, err := NewManagerFromHex(zeroKey, "aes-256-gcm")
	require.NoError(t, err)

	_, err = chacha.OpenString("plain")
	require.ErrorIs(t, err, ErrNotSealed)

	sealed, err := aes.SealString("secret")
	require.NoError(t, err)
	_, err = chacha.OpenString(sealed)
	require.Error(t, err)

	// flip a payload character well inside the tag
	i := len(sealed) - 8
	flipped := byte('A')
	if sealed[i] == 'A' {
		flipped = 'B'
	}
	tampered := sealed[:i] + string(flipped) + sealed[i+1:]
	_, err = aes.OpenString(tampered)
	require.Error(t, err)

	other, err := NewManagerFromHex(strings.Repeat("1", 64), "aes-256-gcm")
	require.NoError(t, err)
	_, err = other.OpenString(sealed)
	require.Error(t, err)
}

func TestCipher_ShortCiphertext(t *testing.T) {
	c, err := NewCipher(CipherChaCha20Poly1305, make([]byte, KeySize))
	require.NoError(t, err)
	_, err = c.Decrypt([]byte{1, 2})
	require.Error(t, err)

	_, err = NewCipher(CipherAES256GCM, make([]byte, 16))
	require.Error(t, err)
}
