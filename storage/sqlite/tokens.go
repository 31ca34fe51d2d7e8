package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authcore/svc/token"
)

// TokenStore implements token.Store over SQLite.
type TokenStore struct {
	db *sql.DB
}

var _ token.Store = (*TokenStore)(nil)

func (s *TokenStore) Create(ctx context.Context, t *token.RefreshToken) error {
	if t == nil || t.TokenHash == "" {
		return token.ErrInvalidRecord
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO refresh_tokens (token_hash, account_id, expires_at, revoked, created_at)
VALUES (?, ?, ?, ?, ?)`,
		t.TokenHash, t.AccountID.String(), toMillis(t.ExpiresAt), t.Revoked, toMillis(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert refresh token: %w", err)
	}
	return nil
}

func (s *TokenStore) FindByToken(ctx context.Context, tokenHash string) (*token.RefreshToken, error) {
	var (
		t                    token.RefreshToken
		expiresAt, createdAt int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT token_hash, account_id, expires_at, revoked, created_at
FROM refresh_tokens WHERE token_hash = ?`, tokenHash,
	).Scan(&t.TokenHash, &t.AccountID, &expiresAt, &t.Revoked, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, token.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: select refresh token: %w", err)
	}
	t.ExpiresAt = fromMillis(expiresAt)
	t.CreatedAt = fromMillis(createdAt)
	return &t, nil
}

func (s *TokenStore) Delete(ctx context.Context, tokenHash string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token_hash = ?`, tokenHash); err != nil {
		return fmt.Errorf("sqlite: delete refresh token: %w", err)
	}
	return nil
}

// Revoke flips the flag only on a usable row; the single UPDATE makes the
// check and the write atomic.
func (s *TokenStore) Revoke(ctx context.Context, tokenHash string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
UPDATE refresh_tokens SET revoked = 1
WHERE token_hash = ? AND revoked = 0 AND expires_at > ?`, tokenHash, toMillis(now))
	if err != nil {
		return false, fmt.Errorf("sqlite: revoke refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: revoke refresh token: %w", err)
	}
	return n == 1, nil
}

func (s *TokenStore) RevokeAllForUser(ctx context.Context, accountID uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = 1 WHERE account_id = ? AND revoked = 0`, accountID.String()); err != nil {
		return fmt.Errorf("sqlite: revoke refresh tokens: %w", err)
	}
	return nil
}

func (s *TokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < ?`, toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("sqlite: delete expired refresh tokens: %w", err)
	}
	return res.RowsAffected()
}
