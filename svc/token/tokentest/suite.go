// Package tokentest holds a behavioural test suite every token.Store
// implementation must pass.
package tokentest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authcore/svc/token"
)

// Run executes the suite. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) token.Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	newToken := func(hash string, owner uuid.UUID, ttl time.Duration) *token.RefreshToken {
		return &token.RefreshToken{
			TokenHash: hash,
			AccountID: owner,
			ExpiresAt: now.Add(ttl),
			CreatedAt: now,
		}
	}

	t.Run("create and find", func(t *testing.T) {
		store := newStore(t)
		owner := uuid.New()
		require.NoError(t, store.Create(ctx, newToken("h1", owner, time.Hour)))

		got, err := store.FindByToken(ctx, "h1")
		require.NoError(t, err)
		assert.Equal(t, owner, got.AccountID)
		assert.False(t, got.Revoked)
		assert.WithinDuration(t, now.Add(time.Hour), got.ExpiresAt, time.Second)

		_, err = store.FindByToken(ctx, "missing")
		assert.ErrorIs(t, err, token.ErrNotFound)
	})

	t.Run("revoke is conditional", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Create(ctx, newToken("h1", uuid.New(), time.Hour)))

		ok, err := store.Revoke(ctx, "h1", now)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Revoke(ctx, "h1", now)
		require.NoError(t, err)
		assert.False(t, ok, "already revoked")

		ok, err = store.Revoke(ctx, "missing", now)
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := store.FindByToken(ctx, "h1")
		require.NoError(t, err)
		assert.True(t, got.Revoked)
	})

	t.Run("revoke ignores expired", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Create(ctx, newToken("h1", uuid.New(), time.Minute)))

		ok, err := store.Revoke(ctx, "h1", now.Add(2*time.Minute))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("concurrent revoke has one winner", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Create(ctx, newToken("h1", uuid.New(), time.Hour)))

		var wins atomic.Int32
		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := store.Revoke(ctx, "h1", now)
				assert.NoError(t, err)
				if ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Create(ctx, newToken("h1", uuid.New(), time.Hour)))
		require.NoError(t, store.Delete(ctx, "h1"))
		require.NoError(t, store.Delete(ctx, "h1"))
		_, err := store.FindByToken(ctx, "h1")
		assert.ErrorIs(t, err, token.ErrNotFound)
	})

	t.Run("revoke all for user", func(t *testing.T) {
		store := newStore(t)
		owner, other := uuid.New(), uuid.New()
		require.NoError(t, store.Create(ctx, newToken("a1", owner, time.Hour)))
		require.NoError(t, store.Create(ctx, newToken("a2", owner, time.Hour)))
		require.NoError(t, store.Create(ctx, newToken("b1", other, time.Hour)))

		require.NoError(t, store.RevokeAllForUser(ctx, owner))

		for _, h := range []string{"a1", "a2"} {
			got, err := store.FindByToken(ctx, h)
			require.NoError(t, err)
			assert.True(t, got.Revoked, h)
		}
		got, err := store.FindByToken(ctx, "b1")
		require.NoError(t, err)
		assert.False(t, got.Revoked)
	})
}

// RunDeleteExpired checks DeleteExpired for stores that keep expired rows
// until swept.
func RunDeleteExpired(t *testing.T, newStore func(t *testing.T) token.Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	store := newStore(t)
	owner := uuid.New()
	require.NoError(t, store.Create(ctx, &token.RefreshToken{TokenHash: "old", AccountID: owner, ExpiresAt: now.Add(-time.Hour), CreatedAt: now.Add(-2 * time.Hour)}))
	require.NoError(t, store.Create(ctx, &token.RefreshToken{TokenHash: "new", AccountID: owner, ExpiresAt: now.Add(time.Hour), CreatedAt: now}))

	n, err := store.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.FindByToken(ctx, "old")
	assert.ErrorIs(t, err, token.ErrNotFound)
	_, err = store.FindByToken(ctx, "new")
	assert.NoError(t, err)
}
