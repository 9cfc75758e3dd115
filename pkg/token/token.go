// Package token generates opaque, unguessable tokens for confirmation and
// unsubscribe links. Tokens are URL-safe so they can be embedded in email
// links without escaping.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// DefaultLength is the number of random bytes per token (43 chars encoded).
const DefaultLength = 32

// New returns a URL-safe random token of DefaultLength bytes.
func New() (string, error) {
	return NewWithLength(DefaultLength)
}

// NewWithLength returns a URL-safe random token of n bytes.
func NewWithLength(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("token length must be positive, got %d", n)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
