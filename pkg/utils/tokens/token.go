// Package tokens issues and verifies the bearer secrets that pair a browser
// extension with the local helper daemon.
package tokens

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Hash is an argon2id encoded secret.
type Hash string

var params = &argon2id.Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: uint8(2),
	SaltLength:  16,
	KeyLength:   32,
}

var ErrMalformed = errors.New("malformed pairing token")

// Token is a parsed "<id>.<secret>" bearer value.
type Token struct {
	ID     string `validate:"required,uuid4"`
	Secret string `validate:"required,min=32,max=128"`
}

func (t Token) String() string {
	return t.ID + "." + t.Secret
}

// New generates a token with a random id and a 32-byte secret.
func New() (Token, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return Token{}, fmt.Errorf("generate secret: %w", err)
	}
	return Token{
		ID:     uuid.NewString(),
		Secret: base64.RawURLEncoding.EncodeToString(b),
	}, nil
}

// Parse splits and validates a bearer value.
func Parse(raw string) (Token, error) {
	id, secret, ok := strings.Cut(strings.TrimSpace(raw), ".")
	if !ok {
		return Token{}, ErrMalformed
	}
	t := Token{ID: id, Secret: secret}
	if err := validator.New().Struct(t); err != nil {
		return Token{}, ErrMalformed
	}
	return t, nil
}

// HashSecret hashes the token's secret for storage.
func HashSecret(t Token) (Hash, error) {
	h, err := argon2id.CreateHash(t.Secret, params)
	if err != nil {
		return "", err
	}
	return Hash(h), nil
}

// Matches compares the token's secret with the stored hash.
func (h Hash) Matches(t Token) (bool, error) {
	if !IsArgonEncoded(string(h)) {
		return false, fmt.Errorf("stored hash is not argon2id")
	}
	return argon2id.ComparePasswordAndHash(t.Secret, string(h))
}

// IsArgonEncoded returns true if the input is an argon2id hash
func IsArgonEncoded(input string) bool {
	return strings.HasPrefix(input, "$argon2id$")
}
