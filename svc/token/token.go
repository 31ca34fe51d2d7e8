package token

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Claims is the identity carried by an access token.
type Claims struct {
	AccountID uuid.UUID
	Email     string
	Name      string
	Provider  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Pair is the credential pair handed to a client.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64  `json:"expires_in"`
	TokenType string `json:"token_type"`
}

// RefreshToken is a persisted refresh token. Only the digest of the raw
// token is stored.
type RefreshToken struct {
	TokenHash string
	AccountID uuid.UUID
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// Usable reports whether the token is neither revoked nor expired at now.
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}

// Store persists refresh tokens by digest.
type Store interface {
	Create(ctx context.Context, t *RefreshToken) error
	// FindByToken returns ErrNotFound when no token has the digest.
	FindByToken(ctx context.Context, tokenHash string) (*RefreshToken, error)
	// Delete removes the token; deleting a missing token is not an error.
	Delete(ctx context.Context, tokenHash string) error
	// Revoke marks the token revoked if it is usable at now and reports
	// whether this call changed it. The check and the write are atomic.
	Revoke(ctx context.Context, tokenHash string, now time.Time) (bool, error)
	RevokeAllForUser(ctx context.Context, accountID uuid.UUID) error
	// DeleteExpired removes tokens that expired before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
