package account

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Provider identifies how an identity authenticates.
type Provider string

const (
	ProviderPassword Provider = "password"
	ProviderGoogle   Provider = "google"
	ProviderApple    Provider = "apple"
)

// Valid reports whether p is a known provider.
func (p Provider) Valid() bool {
	switch p {
	case ProviderPassword, ProviderGoogle, ProviderApple:
		return true
	}
	return false
}

// Federated reports whether p is an external identity provider.
func (p Provider) Federated() bool {
	return p == ProviderGoogle || p == ProviderApple
}

func (p Provider) String() string { return string(p) }

// Identity is one person's account. Exactly one provider owns it.
type Identity struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	Provider     Provider
	// ProviderID is the subject assigned by a federated provider.
	ProviderID string

	// ResetTokenHash is the digest of the pending password-reset token.
	ResetTokenHash string
	ResetExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the provider invariants of i.
func (i *Identity) Validate() error {
	switch {
	case i == nil:
		return ErrInvalidIdentity
	case i.ID == uuid.Nil:
		return invalid("id is required")
	case NormalizeEmail(i.Email) == "":
		return invalid("email is required")
	case !i.Provider.Valid():
		return invalid("unknown provider " + string(i.Provider))
	case i.Provider == ProviderPassword && i.PasswordHash == "":
		return invalid("password identity requires a password hash")
	case i.Provider.Federated() && i.PasswordHash != "":
		return invalid("federated identity cannot hold a password hash")
	case i.Provider.Federated() && i.ProviderID == "":
		return invalid("federated identity requires a provider id")
	}
	return nil
}

// ResetTokenValid reports whether tokenHash matches an unexpired reset token.
func (i *Identity) ResetTokenValid(tokenHash string, now time.Time) bool {
	return i.ResetTokenHash != "" &&
		i.ResetTokenHash == tokenHash &&
		i.ResetExpiresAt != nil &&
		now.Before(*i.ResetExpiresAt)
}

// Clone returns a deep copy.
func (i *Identity) Clone() *Identity {
	c := *i
	if i.ResetExpiresAt != nil {
		t := *i.ResetExpiresAt
		c.ResetExpiresAt = &t
	}
	return &c
}

// Patch lists the mutable fields of an Identity. Nil fields are left as is.
// ClearResetToken wins over ResetTokenHash/ResetExpiresAt.
type Patch struct {
	Email           *string
	Name            *string
	PasswordHash    *string
	ResetTokenHash  *string
	ResetExpiresAt  *time.Time
	ClearResetToken bool
}

// Apply writes p onto i and stamps UpdatedAt.
func (p Patch) Apply(i *Identity, now time.Time) {
	if p.Email != nil {
		i.Email = NormalizeEmail(*p.Email)
	}
	if p.Name != nil {
		i.Name = *p.Name
	}
	if p.PasswordHash != nil {
		i.PasswordHash = *p.PasswordHash
	}
	if p.ResetTokenHash != nil {
		i.ResetTokenHash = *p.ResetTokenHash
	}
	if p.ResetExpiresAt != nil {
		t := *p.ResetExpiresAt
		i.ResetExpiresAt = &t
	}
	if p.ClearResetToken {
		i.ResetTokenHash = ""
		i.ResetExpiresAt = nil
	}
	i.UpdatedAt = now
}

// Repository persists identities.
// Lookups that match nothing return ErrNotFound; uniqueness violations
// on email or (provider, provider id) return ErrAlreadyExists. Any other
// error is an infrastructure failure.
//
// ConsumeResetToken stores passwordHash and clears the reset token in one
// conditional write, provided tokenHash matches a token still valid at now.
// Of several concurrent calls with one token at most one succeeds; the
// others get ErrNotFound.
type Repository interface {
	Create(ctx context.Context, identity *Identity) error
	FindByID(ctx context.Context, id uuid.UUID) (*Identity, error)
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	FindByProvider(ctx context.Context, provider Provider, providerID string) (*Identity, error)
	FindByResetToken(ctx context.Context, tokenHash string) (*Identity, error)
	Update(ctx context.Context, id uuid.UUID, patch Patch) (*Identity, error)
	ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*Identity, error)
}

// NormalizeEmail trims surrounding whitespace and lowercases email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
