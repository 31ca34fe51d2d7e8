package token

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash returns the hex SHA-256 digest of an opaque token.
// Stores persist the digest so a leaked table cannot be replayed.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
