package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authcore/svc/account"
)

const accountColumns = `id, email, name, password_hash, provider, provider_id, reset_token_hash, reset_expires_at, created_at, updated_at`

// AccountRepository implements account.Repository over SQLite.
type AccountRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ account.Repository = (*AccountRepository)(nil)

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

	_, err := r.db.ExecContext(ctx, `
INSERT INTO accounts (`+accountColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		identity.ID.String(),
		email,
		identity.Name,
		identity.PasswordHash,
		string(identity.Provider),
		nullString(identity.ProviderID),
		nullString(identity.ResetTokenHash),
		nullMillis(identity.ResetExpiresAt),
		toMillis(created),
		toMillis(updated),
	)
	if isUniqueViolation(err) {
		return account.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("sqlite: insert account: %w", err)
	}

	identity.Email = email
	identity.CreatedAt = fromMillis(toMillis(created))
	identity.UpdatedAt = fromMillis(toMillis(updated))
	return nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*account.Identity, error) {
	return r.findOne(ctx, r.db, `id = ?`, id.String())
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*account.Identity, error) {
	return r.findOne(ctx, r.db, `email = ?`, account.NormalizeEmail(email))
}

func (r *AccountRepository) FindByProvider(ctx context.Context, provider account.Provider, providerID string) (*account.Identity, error) {
	if providerID == "" {
		return nil, account.ErrNotFound
	}
	return r.findOne(ctx, r.db, `provider = ? AND provider_id = ?`, string(provider), providerID)
}

func (r *AccountRepository) FindByResetToken(ctx context.Context, tokenHash string) (*account.Identity, error) {
	if tokenHash == "" {
		return nil, account.ErrNotFound
	}
	return r.findOne(ctx, r.db, `reset_token_hash = ?`, tokenHash)
}

// Update applies patch inside an immediate transaction so concurrent
// updates of one account do not lose writes.
func (r *AccountRepository) Update(ctx context.Context, id uuid.UUID, patch account.Patch) (_ *account.Identity, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	current, err := r.findOne(ctx, tx, `id = ?`, id.String())
	if err != nil {
		return nil, err
	}
	next := current.Clone()
	patch.Apply(next, r.now().UTC())
	if next.Email == "" {
		return nil, fmt.Errorf("%w: email is required", account.ErrInvalidIdentity)
	}

	_, err = tx.ExecContext(ctx, `
UPDATE accounts
SET email = ?, name = ?, password_hash = ?, reset_token_hash = ?, reset_expires_at = ?, updated_at = ?
WHERE id = ?`,
		next.Email,
		next.Name,
		next.PasswordHash,
		nullString(next.ResetTokenHash),
		nullMillis(next.ResetExpiresAt),
		toMillis(next.UpdatedAt),
		id.String(),
	)
	if isUniqueViolation(err) {
		return nil, account.ErrAlreadyExists
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: update account: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: commit: %w", err)
	}
	next.UpdatedAt = fromMillis(toMillis(next.UpdatedAt))
	return next, nil
}

// ConsumeResetToken sets the password and clears the reset token with a
// single UPDATE guarded on the token digest and its expiry.
func (r *AccountRepository) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*account.Identity, error) {
	if tokenHash == "" {
		return nil, account.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `
UPDATE accounts
SET password_hash = ?, reset_token_hash = NULL, reset_expires_at = NULL, updated_at = ?
WHERE reset_token_hash = ? AND reset_expires_at > ?
RETURNING `+accountColumns,
		passwordHash,
		toMillis(r.now()),
		tokenHash,
		toMillis(now),
	)
	return scanAccount(row)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *AccountRepository) findOne(ctx context.Context, q queryRower, where string, args ...any) (*account.Identity, error) {
	return scanAccount(q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+where, args...))
}

func scanAccount(row *sql.Row) (*account.Identity, error) {
	var (
		i                   account.Identity
		provider            string
		providerID          sql.NullString
		resetHash           sql.NullString
		resetExpires        sql.NullInt64
		createdAt, updateAt int64
	)
	err := row.Scan(&i.ID, &i.Email, &i.Name, &i.PasswordHash, &provider, &providerID, &resetHash, &resetExpires, &createdAt, &updateAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, account.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: select account: %w", err)
	}

	i.Provider = account.Provider(provider)
	i.ProviderID = providerID.String
	i.ResetTokenHash = resetHash.String
	if resetExpires.Valid {
		t := fromMillis(resetExpires.Int64)
		i.ResetExpiresAt = &t
	}
	i.CreatedAt = fromMillis(createdAt)
	i.UpdatedAt = fromMillis(updateAt)
	return &i, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}
