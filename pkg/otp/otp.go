// Package otp generates and verifies numeric one-time codes used by the
// password reset flow. Only the SHA-256 hash of a code is ever persisted.
package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var ErrMismatch = errors.New("otp does not match")

const Length = 6

// Generate returns a zero-padded 6 digit code from crypto/rand.
func Generate() (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(Length), nil)

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}

	return fmt.Sprintf("%0*d", Length, n), nil
}

// Hash returns the hex SHA-256 of the trimmed code.
func Hash(code string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(code)))
	return hex.EncodeToString(sum[:])
}

// Verify compares code against hash in constant time.
func Verify(hash, code string) error {
	if hash == "" {
		return ErrMismatch
	}
	if subtle.ConstantTimeCompare([]byte(hash), []byte(Hash(code))) != 1 {
		return ErrMismatch
	}
	return nil
}
