package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when Config.Cost is zero.
const DefaultCost = 12

// Config holds hasher settings.
type Config struct {
	Cost int `env:"PASSWORD_BCRYPT_COST" envDefault:"12"`
}

// Hasher hashes and verifies passwords with bcrypt.
// The zero value is not usable; construct with NewHasher.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher for cfg. Costs outside bcrypt's supported
// range are replaced by DefaultCost.
func NewHasher(cfg Config) *Hasher {
	cost := cfg.Cost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

// Cost reports the bcrypt cost in use.
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash returns a bcrypt hash of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: %w", ErrTooLong, err)
		}
		return "", errors.Join(ErrHashFailed, err)
	}
	return string(b), nil
}

// Compare reports whether plaintext matches hash.
// Malformed hashes never match.
func (h *Hasher) Compare(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// ValidateStrength is a convenience wrapper around the package-level function.
func (h *Hasher) ValidateStrength(plaintext string) error {
	return ValidateStrength(plaintext)
}
