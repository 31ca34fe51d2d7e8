// Package accounttest holds a behavioural test suite every
// account.Repository implementation must pass.
package accounttest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authcore/svc/account"
)

// NewPasswordIdentity returns a valid password identity for email.
func NewPasswordIdentity(email string) *account.Identity {
	return &account.Identity{
		ID:           uuid.New(),
		Email:        email,
		Name:         "Jane Doe",
		PasswordHash: "$2a$04$abcdefghijklmnopqrstuuJ0e0pZ6yWm0VJ5gRr3b8xkq9bX6u3Ge",
		Provider:     account.ProviderPassword,
	}
}

// NewFederatedIdentity returns a valid federated identity.
func NewFederatedIdentity(provider account.Provider, subject, email string) *account.Identity {
	return &account.Identity{
		ID:         uuid.New(),
		Email:      email,
		Name:       "Fed User",
		Provider:   provider,
		ProviderID: subject,
	}
}

func ptr[T any](v T) *T { return &v }

// Run executes the suite. newRepo must return an empty repository.
func Run(t *testing.T, newRepo func(t *testing.T) account.Repository) {
	t.Helper()
	ctx := context.Background()

	t.Run("create and find", func(t *testing.T) {
		repo := newRepo(t)
		id := NewPasswordIdentity("  Jane@Example.COM ")
		require.NoError(t, repo.Create(ctx, id))

		byID, err := repo.FindByID(ctx, id.ID)
		require.NoError(t, err)
		assert.Equal(t, "jane@example.com", byID.Email)
		assert.Equal(t, account.ProviderPassword, byID.Provider)
		assert.Equal(t, id.PasswordHash, byID.PasswordHash)
		assert.False(t, byID.CreatedAt.IsZero())

		byEmail, err := repo.FindByEmail(ctx, "JANE@example.com")
		require.NoError(t, err)
		assert.Equal(t, id.ID, byEmail.ID)
	})

	t.Run("not found", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, account.ErrNotFound)
		_, err = repo.FindByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, account.ErrNotFound)
		_, err = repo.FindByProvider(ctx, account.ProviderGoogle, "sub")
		assert.ErrorIs(t, err, account.ErrNotFound)
		_, err = repo.FindByResetToken(ctx, "digest")
		assert.ErrorIs(t, err, account.ErrNotFound)
		_, err = repo.Update(ctx, uuid.New(), account.Patch{Name: ptr("x")})
		assert.ErrorIs(t, err, account.ErrNotFound)
	})

	t.Run("duplicate email across providers", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Create(ctx, NewPasswordIdentity("dup@example.com")))
		err := repo.Create(ctx, NewFederatedIdentity(account.ProviderGoogle, "g-1", "DUP@example.com"))
		assert.ErrorIs(t, err, account.ErrAlreadyExists)
	})

	t.Run("duplicate provider subject", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Create(ctx, NewFederatedIdentity(account.ProviderApple, "a-1", "one@example.com")))
		err := repo.Create(ctx, NewFederatedIdentity(account.ProviderApple, "a-1", "two@example.com"))
		assert.ErrorIs(t, err, account.ErrAlreadyExists)

		// same subject at another provider is a different identity
		require.NoError(t, repo.Create(ctx, NewFederatedIdentity(account.ProviderGoogle, "a-1", "three@example.com")))
	})

	t.Run("find by provider", func(t *testing.T) {
		repo := newRepo(t)
		id := NewFederatedIdentity(account.ProviderGoogle, "g-42", "g@example.com")
		require.NoError(t, repo.Create(ctx, id))

		found, err := repo.FindByProvider(ctx, account.ProviderGoogle, "g-42")
		require.NoError(t, err)
		assert.Equal(t, id.ID, found.ID)
		assert.Empty(t, found.PasswordHash)

		_, err = repo.FindByProvider(ctx, account.ProviderApple, "g-42")
		assert.ErrorIs(t, err, account.ErrNotFound)
	})

	t.Run("invalid identity", func(t *testing.T) {
		repo := newRepo(t)
		bad := NewPasswordIdentity("bad@example.com")
		bad.PasswordHash = ""
		assert.ErrorIs(t, repo.Create(ctx, bad), account.ErrInvalidIdentity)
	})

	t.Run("update fields", func(t *testing.T) {
		repo := newRepo(t)
		id := NewPasswordIdentity("upd@example.com")
		require.NoError(t, repo.Create(ctx, id))

		expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
		updated, err := repo.Update(ctx, id.ID, account.Patch{
			Name:           ptr("New Name"),
			PasswordHash:   ptr("new-hash"),
			ResetTokenHash: ptr("reset-digest"),
			ResetExpiresAt: &expires,
		})
		require.NoError(t, err)
		assert.Equal(t, "New Name", updated.Name)
		assert.Equal(t, "new-hash", updated.PasswordHash)
		assert.Equal(t, "reset-digest", updated.ResetTokenHash)
		require.NotNil(t, updated.ResetExpiresAt)
		assert.WithinDuration(t, expires, *updated.ResetExpiresAt, time.Second)

		byToken, err := repo.FindByResetToken(ctx, "reset-digest")
		require.NoError(t, err)
		assert.Equal(t, id.ID, byToken.ID)

		cleared, err := repo.Update(ctx, id.ID, account.Patch{ClearResetToken: true})
		require.NoError(t, err)
		assert.Empty(t, cleared.ResetTokenHash)
		assert.Nil(t, cleared.ResetExpiresAt)
		assert.Equal(t, "New Name", cleared.Name)

		_, err = repo.FindByResetToken(ctx, "reset-digest")
		assert.ErrorIs(t, err, account.ErrNotFound)
	})

	t.Run("update email", func(t *testing.T) {
		repo := newRepo(t)
		a := NewPasswordIdentity("a@example.com")
		b := NewPasswordIdentity("b@example.com")
		require.NoError(t, repo.Create(ctx, a))
		require.NoError(t, repo.Create(ctx, b))

		_, err := repo.Update(ctx, a.ID, account.Patch{Email: ptr("B@example.com")})
		assert.ErrorIs(t, err, account.ErrAlreadyExists)

		moved, err := repo.Update(ctx, a.ID, account.Patch{Email: ptr(" C@Example.com")})
		require.NoError(t, err)
		assert.Equal(t, "c@example.com", moved.Email)

		_, err = repo.FindByEmail(ctx, "a@example.com")
		assert.ErrorIs(t, err, account.ErrNotFound)
		found, err := repo.FindByEmail(ctx, "c@example.com")
		require.NoError(t, err)
		assert.Equal(t, a.ID, found.ID)
	})

	t.Run("consume reset token", func(t *testing.T) {
		repo := newRepo(t)
		id := NewPasswordIdentity("consume@example.com")
		require.NoError(t, repo.Create(ctx, id))

		now := time.Now().UTC().Truncate(time.Second)
		expires := now.Add(time.Hour)
		_, err := repo.Update(ctx, id.ID, account.Patch{ResetTokenHash: ptr("consume-digest"), ResetExpiresAt: &expires})
		require.NoError(t, err)

		_, err = repo.ConsumeResetToken(ctx, "other-digest", "new-hash", now)
		assert.ErrorIs(t, err, account.ErrNotFound)
		_, err = repo.ConsumeResetToken(ctx, "consume-digest", "new-hash", expires)
		assert.ErrorIs(t, err, account.ErrNotFound, "token expired at now")
		_, err = repo.ConsumeResetToken(ctx, "", "new-hash", now)
		assert.ErrorIs(t, err, account.ErrNotFound)

		consumed, err := repo.ConsumeResetToken(ctx, "consume-digest", "new-hash", now)
		require.NoError(t, err)
		assert.Equal(t, id.ID, consumed.ID)
		assert.Equal(t, "consume@example.com", consumed.Email)
		assert.Equal(t, "new-hash", consumed.PasswordHash)
		assert.Empty(t, consumed.ResetTokenHash)
		assert.Nil(t, consumed.ResetExpiresAt)

		_, err = repo.ConsumeResetToken(ctx, "consume-digest", "second-hash", now)
		assert.ErrorIs(t, err, account.ErrNotFound, "token is single use")

		stored, err := repo.FindByID(ctx, id.ID)
		require.NoError(t, err)
		assert.Equal(t, "new-hash", stored.PasswordHash)
	})

	t.Run("concurrent consume reset token", func(t *testing.T) {
		repo := newRepo(t)
		id := NewPasswordIdentity("consume-race@example.com")
		require.NoError(t, repo.Create(ctx, id))
		expires := time.Now().Add(time.Hour)
		_, err := repo.Update(ctx, id.ID, account.Patch{ResetTokenHash: ptr("race-digest"), ResetExpiresAt: &expires})
		require.NoError(t, err)

		var wg sync.WaitGroup
		results := make(chan error, 8)
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.ConsumeResetToken(ctx, "race-digest", "hash-"+string(rune('a'+i)), time.Now())
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var ok, lost int
		for err := range results {
			switch {
			case err == nil:
				ok++
			case assert.ErrorIs(t, err, account.ErrNotFound):
				lost++
			}
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, 7, lost)
	})

	t.Run("concurrent create same email", func(t *testing.T) {
		repo := newRepo(t)
		var wg sync.WaitGroup
		results := make(chan error, 8)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- repo.Create(ctx, NewPasswordIdentity("race@example.com"))
			}()
		}
		wg.Wait()
		close(results)

		var ok, dup int
		for err := range results {
			switch {
			case err == nil:
				ok++
			case assert.ErrorIs(t, err, account.ErrAlreadyExists):
				dup++
			}
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, 7, dup)
	})
}
