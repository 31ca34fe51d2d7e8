package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/authcore/pkg/pg"
	"github.com/dmitrymomot/authcore/svc/account"
)

const accountColumns = `id, email, name, password_hash, provider, provider_id, reset_token_hash, reset_expires_at, created_at, updated_at`

// AccountRepository implements account.Repository over PostgreSQL.
type AccountRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ account.Repository = (*AccountRepository)(nil)

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool, now: time.Now}
}

func (r *AccountRepository) Create(ctx context.Context, identity *account.Identity) error {
	if err := identity.Validate(); err != nil {
		return err
	}
	email := account.NormalizeEmail(identity.Email)
	created := identity.CreatedAt
	if created.IsZero() {
		created = r.now()
	}
	updated := identity.UpdatedAt
	if updated.IsZero() {
		updated = created
	}

	_, err := r.pool.Exec(ctx, `
INSERT INTO accounts (`+accountColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		identity.ID,
		email,
		identity.Name,
		identity.PasswordHash,
		string(identity.Provider),
		nullable(identity.ProviderID),
		nullable(identity.ResetTokenHash),
		identity.ResetExpiresAt,
		utc(created),
		utc(updated),
	)
	if pg.IsDuplicateKeyError(err) {
		return account.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("postgres: insert account: %w", err)
	}

	identity.Email = email
	identity.CreatedAt = utc(created)
	identity.UpdatedAt = utc(updated)
	return nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*account.Identity, error) {
	return findAccount(ctx, r.pool, `id = $1`, id)
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*account.Identity, error) {
	return findAccount(ctx, r.pool, `email = $1`, account.NormalizeEmail(email))
}

func (r *AccountRepository) FindByProvider(ctx context.Context, provider account.Provider, providerID string) (*account.Identity, error) {
	if providerID == "" {
		return nil, account.ErrNotFound
	}
	return findAccount(ctx, r.pool, `provider = $1 AND provider_id = $2`, string(provider), providerID)
}

func (r *AccountRepository) FindByResetToken(ctx context.Context, tokenHash string) (*account.Identity, error) {
	if tokenHash == "" {
		return nil, account.ErrNotFound
	}
	return findAccount(ctx, r.pool, `reset_token_hash = $1`, tokenHash)
}

// Update locks the row, applies patch and writes it back in one transaction.
func (r *AccountRepository) Update(ctx context.Context, id uuid.UUID, patch account.Patch) (*account.Identity, error) {
	var next *account.Identity
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := findAccount(ctx, tx, `id = $1 FOR UPDATE`, id)
		if err != nil {
			return err
		}
		next = current.Clone()
		patch.Apply(next, r.now().UTC())
		if next.Email == "" {
			return fmt.Errorf("%w: email is required", account.ErrInvalidIdentity)
		}

		_, err = tx.Exec(ctx, `
UPDATE accounts
SET email = $2, name = $3, password_hash = $4, reset_token_hash = $5, reset_expires_at = $6, updated_at = $7
WHERE id = $1`,
			id,
			next.Email,
			next.Name,
			next.PasswordHash,
			nullable(next.ResetTokenHash),
			next.ResetExpiresAt,
			next.UpdatedAt,
		)
		if pg.IsDuplicateKeyError(err) {
			return account.ErrAlreadyExists
		}
		if err != nil {
			return fmt.Errorf("postgres: update account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

// ConsumeResetToken sets the password and clears the reset token with a
// single UPDATE guarded on the token digest and its expiry.
func (r *AccountRepository) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*account.Identity, error) {
	if tokenHash == "" {
		return nil, account.ErrNotFound
	}
	return scanAccount(r.pool.QueryRow(ctx, `
UPDATE accounts
SET password_hash = $2, reset_token_hash = NULL, reset_expires_at = NULL, updated_at = $3
WHERE reset_token_hash = $1 AND reset_expires_at > $4
RETURNING `+accountColumns,
		tokenHash,
		passwordHash,
		r.now().UTC(),
		now.UTC(),
	))
}

func findAccount(ctx context.Context, q querier, where string, args ...any) (*account.Identity, error) {
	return scanAccount(q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+where, args...))
}

func scanAccount(row pgx.Row) (*account.Identity, error) {
	var (
		i          account.Identity
		provider   string
		providerID *string
		resetHash  *string
	)
	err := row.Scan(
		&i.ID, &i.Email, &i.Name, &i.PasswordHash, &provider, &providerID, &resetHash, &i.ResetExpiresAt, &i.CreatedAt, &i.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, account.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: select account: %w", err)
	}

	i.Provider = account.Provider(provider)
	if providerID != nil {
		i.ProviderID = *providerID
	}
	if resetHash != nil {
		i.ResetTokenHash = *resetHash
	}
	if i.ResetExpiresAt != nil {
		t := i.ResetExpiresAt.UTC()
		i.ResetExpiresAt = &t
	}
	i.CreatedAt = i.CreatedAt.UTC()
	i.UpdatedAt = i.UpdatedAt.UTC()
	return &i, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
