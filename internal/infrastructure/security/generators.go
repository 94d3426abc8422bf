// Package security provides secure random generation utilities
package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/oklog/ulid/v2"
)

// GenerateULID returns a new lexically sortable identifier. Used for event
// and application IDs so insertion order survives in the ID itself.
func GenerateULID() string {
	return ulid.Make().String()
}

// GenerateSecureKey creates a random key as a hex string of the given
// length. Used for per-tenant JWT and AES secrets at registration time.
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length/2)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
