package auth

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// CodeHasher hashes passcodes for storage and verifies attempts against a
// stored hash.
type CodeHasher interface {
	Hash(code string) (string, error)
	Verify(code, hash string) bool
}

type bcryptHasher struct {
	cost int
}

// NewBcryptHasher returns the production hasher (bcrypt, cost 10).
func NewBcryptHasher() CodeHasher {
	return &bcryptHasher{cost: 10}
}

func (h *bcryptHasher) Hash(code string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(code), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(b), nil
}

func (h *bcryptHasher) Verify(code, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}

const devHashPrefix = "dev_"

type devHasher struct{}

// NewDevHasher returns the dev stand-in hasher: "dev_" + plaintext. It
// trades the one-way property for inspectability in local testing and must
// never be selected in production.
func NewDevHasher() CodeHasher {
	return devHasher{}
}

func (devHasher) Hash(code string) (string, error) {
	return devHashPrefix + code, nil
}

func (devHasher) Verify(code, hash string) bool {
	return subtle.ConstantTimeCompare([]byte(devHashPrefix+code), []byte(hash)) == 1
}
