package token_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	opaque "github.com/dmitrymomot/authcore/pkg/token"
	"github.com/dmitrymomot/authcore/svc/token"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var testConfig = token.Config{SigningKey: "test-signing-key", Issuer: "authcore"}

func newService(t *testing.T, store token.Store, clk *clock) *token.Service {
	t.Helper()
	svc, err := token.NewService(store, testConfig, token.WithClock(clk.Now))
	require.NoError(t, err)
	return svc
}

func testClaims() token.Claims {
	return token.Claims{
		AccountID: uuid.New(),
		Email:     "jane@example.com",
		Name:      "Jane",
		Provider:  "password",
	}
}

func TestNewService(t *testing.T) {
	t.Parallel()
	_, err := token.NewService(token.NewMemoryStore(), token.Config{})
	assert.ErrorIs(t, err, token.ErrMissingSigningKey)
}

func TestGenerateTokenPair(t *testing.T) {
	t.Parallel()
	clk := newClock()
	store := token.NewMemoryStore()
	svc := newService(t, store, clk)
	c := testClaims()

	pair, err := svc.GenerateTokenPair(context.Background(), c)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, int64(900), pair.ExpiresIn)
	assert.Equal(t, "Bearer", pair.TokenType)

	stored, err := store.FindByToken(context.Background(), opaque.Hash(pair.RefreshToken))
	require.NoError(t, err)
	assert.Equal(t, c.AccountID, stored.AccountID)
	assert.Equal(t, clk.Now().Add(7*24*time.Hour), stored.ExpiresAt)

	_, err = store.FindByToken(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, token.ErrNotFound, "raw token must never be stored")

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, c.AccountID, claims.AccountID)
	assert.Equal(t, c.Email, claims.Email)
	assert.Equal(t, c.Name, claims.Name)
	assert.Equal(t, c.Provider, claims.Provider)
	assert.Equal(t, clk.Now().Add(15*time.Minute), claims.ExpiresAt)
}

func TestGenerateTokenPair_DistinctTokensSameSecond(t *testing.T) {
	t.Parallel()
	svc := newService(t, token.NewMemoryStore(), newClock())
	c := testClaims()

	a, err := svc.GenerateTokenPair(context.Background(), c)
	require.NoError(t, err)
	b, err := svc.GenerateTokenPair(context.Background(), c)
	require.NoError(t, err)
	assert.NotEqual(t, a.AccessToken, b.AccessToken)
	assert.NotEqual(t, a.RefreshToken, b.RefreshToken)
}

func TestValidateAccessToken(t *testing.T) {
	t.Parallel()

	t.Run("expired", func(t *testing.T) {
		t.Parallel()
		clk := newClock()
		svc := newService(t, token.NewMemoryStore(), clk)
		pair, err := svc.GenerateTokenPair(context.Background(), testClaims())
		require.NoError(t, err)

		clk.Advance(15*time.Minute + time.Second)
		_, err = svc.ValidateAccessToken(pair.AccessToken)
		assert.ErrorIs(t, err, token.ErrInvalidAccessToken)
	})

	t.Run("other signing key", func(t *testing.T) {
		t.Parallel()
		clk := newClock()
		other, err := token.NewService(token.NewMemoryStore(), token.Config{SigningKey: "other", Issuer: "authcore"}, token.WithClock(clk.Now))
		require.NoError(t, err)
		pair, err := other.GenerateTokenPair(context.Background(), testClaims())
		require.NoError(t, err)

		_, err = newService(t, token.NewMemoryStore(), clk).ValidateAccessToken(pair.AccessToken)
		assert.ErrorIs(t, err, token.ErrInvalidAccessToken)
	})

	t.Run("garbage", func(t *testing.T) {
		t.Parallel()
		_, err := newService(t, token.NewMemoryStore(), newClock()).ValidateAccessToken("garbage")
		assert.ErrorIs(t, err, token.ErrInvalidAccessToken)
	})
}

func TestRefreshTokenLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("rotate once", func(t *testing.T) {
		t.Parallel()
		svc := newService(t, token.NewMemoryStore(), newClock())
		c := testClaims()
		pair, err := svc.GenerateTokenPair(ctx, c)
		require.NoError(t, err)

		owner, err := svc.ValidateRefreshToken(ctx, pair.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, c.AccountID, owner)

		owner, err = svc.RotateRefreshToken(ctx, pair.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, c.AccountID, owner)

		_, err = svc.RotateRefreshToken(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, token.ErrInvalidRefreshToken)
		_, err = svc.ValidateRefreshToken(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, token.ErrInvalidRefreshToken)
	})

	t.Run("unknown", func(t *testing.T) {
		t.Parallel()
		svc := newService(t, token.NewMemoryStore(), newClock())
		_, err := svc.ValidateRefreshToken(ctx, "nope")
		assert.ErrorIs(t, err, token.ErrInvalidRefreshToken)
		_, err = svc.RotateRefreshToken(ctx, "")
		assert.ErrorIs(t, err, token.ErrInvalidRefreshToken)
	})

	t.Run("expired is deleted", func(t *testing.T) {
		t.Parallel()
		clk := newClock()
		store := token.NewMemoryStore()
		svc := newService(t, store, clk)
		pair, err := svc.GenerateTokenPair(ctx, testClaims())
		require.NoError(t, err)

		clk.Advance(7*24*time.Hour + time.Second)
		_, err = svc.ValidateRefreshToken(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, token.ErrInvalidRefreshToken)

		_, err = store.FindByToken(ctx, opaque.Hash(pair.RefreshToken))
		assert.ErrorIs(t, err, token.ErrNotFound)
	})

	t.Run("revoked is kept", func(t *testing.T) {
		t.Parallel()
		store := token.NewMemoryStore()
		svc := newService(t, store, newClock())
		pair, err := svc.GenerateTokenPair(ctx, testClaims())
		require.NoError(t, err)

		require.NoError(t, svc.RevokeRefreshToken(ctx, pair.RefreshToken))
		require.NoError(t, svc.RevokeRefreshToken(ctx, pair.RefreshToken))
		require.NoError(t, svc.RevokeRefreshToken(ctx, "unknown"))

		_, err = svc.ValidateRefreshToken(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, token.ErrInvalidRefreshToken)
		stored, err := store.FindByToken(ctx, opaque.Hash(pair.RefreshToken))
		require.NoError(t, err)
		assert.True(t, stored.Revoked)
	})

	t.Run("revoke all", func(t *testing.T) {
		t.Parallel()
		svc := newService(t, token.NewMemoryStore(), newClock())
		c := testClaims()
		a, err := svc.GenerateTokenPair(ctx, c)
		require.NoError(t, err)
		b, err := svc.GenerateTokenPair(ctx, c)
		require.NoError(t, err)
		other, err := svc.GenerateTokenPair(ctx, testClaims())
		require.NoError(t, err)

		require.NoError(t, svc.RevokeAllUserTokens(ctx, c.AccountID))

		_, err = svc.ValidateRefreshToken(ctx, a.RefreshToken)
		assert.ErrorIs(t, err, token.ErrInvalidRefreshToken)
		_, err = svc.ValidateRefreshToken(ctx, b.RefreshToken)
		assert.ErrorIs(t, err, token.ErrInvalidRefreshToken)
		_, err = svc.ValidateRefreshToken(ctx, other.RefreshToken)
		assert.NoError(t, err)
	})

	t.Run("concurrent rotation has one winner", func(t *testing.T) {
		t.Parallel()
		svc := newService(t, token.NewMemoryStore(), newClock())
		pair, err := svc.GenerateTokenPair(ctx, testClaims())
		require.NoError(t, err)

		var wg sync.WaitGroup
		results := make(chan error, 10)
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.RotateRefreshToken(ctx, pair.RefreshToken)
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var wins int
		for err := range results {
			if err == nil {
				wins++
				continue
			}
			assert.ErrorIs(t, err, token.ErrInvalidRefreshToken)
		}
		assert.Equal(t, 1, wins)
	})
}

func TestGeneratePasswordResetToken(t *testing.T) {
	t.Parallel()
	svc := newService(t, token.NewMemoryStore(), newClock())
	a, err := svc.GeneratePasswordResetToken()
	require.NoError(t, err)
	b, err := svc.GeneratePasswordResetToken()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 43)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Create(ctx context.Context, t *token.RefreshToken) error {
	return m.Called(ctx, t).Error(0)
}

func (m *mockStore) FindByToken(ctx context.Context, hash string) (*token.RefreshToken, error) {
	args := m.Called(ctx, hash)
	rt, _ := args.Get(0).(*token.RefreshToken)
	return rt, args.Error(1)
}

func (m *mockStore) Delete(ctx context.Context, hash string) error {
	return m.Called(ctx, hash).Error(0)
}

func (m *mockStore) Revoke(ctx context.Context, hash string, now time.Time) (bool, error) {
	args := m.Called(ctx, hash, now)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) RevokeAllForUser(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func TestService_StoreFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	boom := errors.New("connection refused")

	t.Run("create", func(t *testing.T) {
		t.Parallel()
		store := &mockStore{}
		store.On("Create", mock.Anything, mock.Anything).Return(boom)
		_, err := newService(t, store, newClock()).GenerateTokenPair(ctx, testClaims())
		assert.ErrorIs(t, err, boom)
		store.AssertExpectations(t)
	})

	t.Run("find is not reported as invalid token", func(t *testing.T) {
		t.Parallel()
		store := &mockStore{}
		store.On("FindByToken", mock.Anything, mock.Anything).Return(nil, boom)
		_, err := newService(t, store, newClock()).RotateRefreshToken(ctx, "raw")
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, token.ErrInvalidRefreshToken)
	})

	t.Run("revoke", func(t *testing.T) {
		t.Parallel()
		clk := newClock()
		store := &mockStore{}
		store.On("FindByToken", mock.Anything, opaque.Hash("raw")).Return(&token.RefreshToken{
			TokenHash: opaque.Hash("raw"),
			AccountID: uuid.New(),
			ExpiresAt: clk.Now().Add(time.Hour),
		}, nil)
		store.On("Revoke", mock.Anything, opaque.Hash("raw"), clk.Now()).Return(false, boom)
		_, err := newService(t, store, clk).RotateRefreshToken(ctx, "raw")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("lost race", func(t *testing.T) {
		t.Parallel()
		clk := newClock()
		store := &mockStore{}
		store.On("FindByToken", mock.Anything, mock.Anything).Return(&token.RefreshToken{
			TokenHash: opaque.Hash("raw"),
			AccountID: uuid.New(),
			ExpiresAt: clk.Now().Add(time.Hour),
		}, nil)
		store.On("Revoke", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
		_, err := newService(t, store, clk).RotateRefreshToken(ctx, "raw")
		assert.ErrorIs(t, err, token.ErrInvalidRefreshToken)
	})

	t.Run("revoke all", func(t *testing.T) {
		t.Parallel()
		store := &mockStore{}
		store.On("RevokeAllForUser", mock.Anything, mock.Anything).Return(boom)
		err := newService(t, store, newClock()).RevokeAllUserTokens(ctx, uuid.New())
		assert.ErrorIs(t, err, boom)
	})
}
