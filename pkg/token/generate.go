package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// DefaultSize is the number of random bytes in a generated token.
const DefaultSize = 32

// Generate returns a URL-safe opaque token of DefaultSize random bytes.
func Generate() (string, error) {
	return GenerateN(DefaultSize)
}

// GenerateN returns a URL-safe opaque token of n random bytes.
func GenerateN(n int) (string, error) {
	if n <= 0 {
		return "", ErrInvalidSize
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrGenerate, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
