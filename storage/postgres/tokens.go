package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/authcore/svc/token"
)

// TokenStore implements token.Store over PostgreSQL.
type TokenStore struct {
	pool *pgxpool.Pool
}

var _ token.Store = (*TokenStore)(nil)

func NewTokenStore(pool *pgxpool.Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

func (s *TokenStore) Create(ctx context.Context, t *token.RefreshToken) error {
	if t == nil || t.TokenHash == "" {
		return token.ErrInvalidRecord
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO refresh_tokens (token_hash, account_id, expires_at, revoked, created_at)
VALUES ($1, $2, $3, $4, $5)`,
		t.TokenHash, t.AccountID, utc(t.ExpiresAt), t.Revoked, utc(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("postgres: insert refresh token: %w", err)
	}
	return nil
}

func (s *TokenStore) FindByToken(ctx context.Context, tokenHash string) (*token.RefreshToken, error) {
	var t token.RefreshToken
	err := s.pool.QueryRow(ctx, `
SELECT token_hash, account_id, expires_at, revoked, created_at
FROM refresh_tokens WHERE token_hash = $1`, tokenHash,
	).Scan(&t.TokenHash, &t.AccountID, &t.ExpiresAt, &t.Revoked, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, token.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: select refresh token: %w", err)
	}
	t.ExpiresAt = t.ExpiresAt.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	return &t, nil
}

func (s *TokenStore) Delete(ctx context.Context, tokenHash string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, tokenHash); err != nil {
		return fmt.Errorf("postgres: delete refresh token: %w", err)
	}
	return nil
}

// Revoke is a single conditional UPDATE; row locking serialises racing
// rotations so only one sees a changed row.
func (s *TokenStore) Revoke(ctx context.Context, tokenHash string, now time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
UPDATE refresh_tokens SET revoked = TRUE
WHERE token_hash = $1 AND NOT revoked AND expires_at > $2`, tokenHash, utc(now))
	if err != nil {
		return false, fmt.Errorf("postgres: revoke refresh token: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *TokenStore) RevokeAllForUser(ctx context.Context, accountID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE account_id = $1 AND NOT revoked`, accountID); err != nil {
		return fmt.Errorf("postgres: revoke refresh tokens: %w", err)
	}
	return nil
}

func (s *TokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, utc(now))
	if err != nil {
		return 0, fmt.Errorf("postgres: delete expired refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
