package auth_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authcore/pkg/federated"
	"github.com/dmitrymomot/authcore/pkg/password"
	"github.com/dmitrymomot/authcore/svc/account"
	"github.com/dmitrymomot/authcore/svc/auth"
)

func TestRegister(t *testing.T) {
	t.Parallel()

	t.Run("creates account and signs in", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		ctx := context.Background()

		res, err := h.svc.Register(ctx, "  Jane@Example.COM ", "  Jane   Doe ", strongPassword)
		require.NoError(t, err)
		assert.Equal(t, "jane@example.com", res.User.Email)
		assert.Equal(t, "Jane Doe", res.User.Name)
		assert.Equal(t, account.ProviderPassword, res.User.Provider)
		require.NotNil(t, res.Tokens)
		assert.NotEmpty(t, res.Tokens.AccessToken)
		assert.NotEmpty(t, res.Tokens.RefreshToken)

		stored, err := h.accounts.FindByEmail(ctx, "jane@example.com")
		require.NoError(t, err)
		assert.NotEqual(t, strongPassword, stored.PasswordHash)
		assert.Equal(t, res.User.ID, stored.ID)

		assert.Equal(t, []string{auth.EventRegistered}, h.events.Names())
		ev := h.events.Filter(auth.EventRegistered)[0].(auth.Registered)
		assert.Equal(t, res.User.ID, ev.AccountID)
		assert.Equal(t, "password", ev.Provider)
		assert.Equal(t, res.User.ID.String(), ev.EventKey())
	})

	t.Run("then login", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		reg := h.register(t, "login@example.com")

		res, err := h.svc.Login(context.Background(), "LOGIN@example.com", strongPassword)
		require.NoError(t, err)
		assert.Equal(t, reg.User.ID, res.User.ID)
		assert.NotEqual(t, reg.Tokens.RefreshToken, res.Tokens.RefreshToken)
		assert.Equal(t, []string{auth.EventRegistered, auth.EventLoggedIn}, h.events.Names())
	})

	t.Run("duplicate email", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.register(t, "dup@example.com")

		_, err := h.svc.Register(context.Background(), "Dup@Example.com", "Other", strongPassword)
		assert.ErrorIs(t, err, auth.ErrAlreadyExists)
		assert.Len(t, h.events.Filter(auth.EventRegistered), 1)
	})

	t.Run("weak password", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)

		_, err := h.svc.Register(context.Background(), "weak@example.com", "Weak", "alllowercase1")
		require.ErrorIs(t, err, auth.ErrWeakPassword)
		var se *password.StrengthError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, password.RuleUppercase, se.Rule)

		_, err = h.accounts.FindByEmail(context.Background(), "weak@example.com")
		assert.ErrorIs(t, err, account.ErrNotFound)
		assert.Empty(t, h.events.Records())
	})

	t.Run("password longer than bcrypt accepts", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		_, err := h.svc.Register(context.Background(), "long@example.com", "", "Aa1"+strings.Repeat("x", 80))
		assert.ErrorIs(t, err, auth.ErrWeakPassword)
	})

	t.Run("invalid email", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		for _, email := range []string{"", "not-an-email", "Jane <jane@example.com>"} {
			_, err := h.svc.Register(context.Background(), email, "", strongPassword)
			assert.ErrorIs(t, err, auth.ErrInvalidEmail, email)
		}
	})

	t.Run("name falls back to email local part", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		res, err := h.svc.Register(context.Background(), "no.name@example.com", "   ", strongPassword)
		require.NoError(t, err)
		assert.Equal(t, "no.name", res.User.Name)
	})

	t.Run("name is NFC normalized", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		res, err := h.svc.Register(context.Background(), "nfc@example.com", "Jose\u0301", strongPassword)
		require.NoError(t, err)
		assert.Equal(t, "Jos\u00e9", res.User.Name)
	})

	t.Run("event sink failure does not fail registration", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.events.FailWith(assert.AnError)
		res, err := h.svc.Register(context.Background(), "sinkdown@example.com", "", strongPassword)
		require.NoError(t, err)
		assert.NotNil(t, res.Tokens)
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()

	t.Run("unknown email and wrong password look the same", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.register(t, "known@example.com")
		ctx := context.Background()

		_, unknownErr := h.svc.Login(ctx, "unknown@example.com", strongPassword)
		_, wrongErr := h.svc.Login(ctx, "known@example.com", "Wrong123")

		require.ErrorIs(t, unknownErr, auth.ErrInvalidCredentials)
		require.ErrorIs(t, wrongErr, auth.ErrInvalidCredentials)
		assert.Equal(t, unknownErr.Error(), wrongErr.Error())
		assert.Empty(t, h.events.Filter(auth.EventLoggedIn))
	})

	t.Run("federated account", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.google.Add("g-token", googleInfo("g-1", "fed@example.com"))
		_, err := h.svc.FederatedAuth(context.Background(), account.ProviderGoogle, "g-token", auth.Profile{})
		require.NoError(t, err)

		_, err = h.svc.Login(context.Background(), "fed@example.com", strongPassword)
		assert.ErrorIs(t, err, auth.ErrWrongProvider)
	})
}

func TestPasswordReset(t *testing.T) {
	t.Parallel()

	t.Run("revokes every session", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		ctx := context.Background()
		reg := h.register(t, "reset@example.com")
		login, err := h.svc.Login(ctx, "reset@example.com", strongPassword)
		require.NoError(t, err)

		require.NoError(t, h.svc.ForgotPassword(ctx, "Reset@Example.com"))
		raw := h.resetToken(t)
		assert.NotEmpty(t, raw)

		stored, err := h.accounts.FindByEmail(ctx, "reset@example.com")
		require.NoError(t, err)
		assert.NotEqual(t, raw, stored.ResetTokenHash, "reset token is stored hashed")
		require.NotNil(t, stored.ResetExpiresAt)
		assert.Equal(t, h.clock.Now().Add(time.Hour), *stored.ResetExpiresAt)

		require.NoError(t, h.svc.ResetPassword(ctx, raw, "NewPassword456"))

		for _, rt := range []string{reg.Tokens.RefreshToken, login.Tokens.RefreshToken} {
			_, err := h.svc.RefreshToken(ctx, rt)
			assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
		}

		_, err = h.svc.Login(ctx, "reset@example.com", strongPassword)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		_, err = h.svc.Login(ctx, "reset@example.com", "NewPassword456")
		require.NoError(t, err)

		stored, err = h.accounts.FindByEmail(ctx, "reset@example.com")
		require.NoError(t, err)
		assert.Empty(t, stored.ResetTokenHash)
		assert.Nil(t, stored.ResetExpiresAt)

		assert.ErrorIs(t, h.svc.ResetPassword(ctx, raw, "Another789"), auth.ErrInvalidOrExpiredToken, "token is single use")
		assert.Equal(t, []string{
			auth.EventRegistered,
			auth.EventLoggedIn,
			auth.EventPasswordResetRequested,
			auth.EventPasswordResetCompleted,
			auth.EventLoggedIn,
		}, h.events.Names())
	})

	t.Run("expired token", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		ctx := context.Background()
		h.register(t, "late@example.com")
		require.NoError(t, h.svc.ForgotPassword(ctx, "late@example.com"))
		raw := h.resetToken(t)

		h.clock.Advance(time.Hour + time.Second)
		assert.ErrorIs(t, h.svc.ResetPassword(ctx, raw, "NewPassword456"), auth.ErrInvalidOrExpiredToken)
	})

	t.Run("custom ttl", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, auth.WithConfig(auth.Config{ResetTTL: 10 * time.Minute}))
		ctx := context.Background()
		h.register(t, "ttl@example.com")
		require.NoError(t, h.svc.ForgotPassword(ctx, "ttl@example.com"))
		ev := h.events.Filter(auth.EventPasswordResetRequested)[0].(auth.PasswordResetRequested)
		assert.Equal(t, h.clock.Now().Add(10*time.Minute), ev.ExpiresAt)
	})

	t.Run("unknown token and weak password", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		ctx := context.Background()
		assert.ErrorIs(t, h.svc.ResetPassword(ctx, "", "NewPassword456"), auth.ErrInvalidOrExpiredToken)
		assert.ErrorIs(t, h.svc.ResetPassword(ctx, "nope", "NewPassword456"), auth.ErrInvalidOrExpiredToken)

		h.register(t, "weakreset@example.com")
		require.NoError(t, h.svc.ForgotPassword(ctx, "weakreset@example.com"))
		raw := h.resetToken(t)
		assert.ErrorIs(t, h.svc.ResetPassword(ctx, raw, "short1"), auth.ErrWeakPassword)
		require.NoError(t, h.svc.ResetPassword(ctx, raw, "NewPassword456"), "failed attempt keeps the token")
	})

	t.Run("concurrent resets with one token", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		ctx := context.Background()
		h.register(t, "race-reset@example.com")
		require.NoError(t, h.svc.ForgotPassword(ctx, "race-reset@example.com"))
		raw := h.resetToken(t)

		const workers = 8
		errs := make([]error, workers)
		var wg sync.WaitGroup
		for i := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = h.svc.ResetPassword(ctx, raw, fmt.Sprintf("NewPassword%d", 100+i))
			}()
		}
		wg.Wait()

		winner := -1
		for i, err := range errs {
			if err == nil {
				require.Equal(t, -1, winner, "more than one reset succeeded")
				winner = i
				continue
			}
			assert.ErrorIs(t, err, auth.ErrInvalidOrExpiredToken)
		}
		require.NotEqual(t, -1, winner)
		assert.Len(t, h.events.Filter(auth.EventPasswordResetCompleted), 1)

		_, err := h.svc.Login(ctx, "race-reset@example.com", fmt.Sprintf("NewPassword%d", 100+winner))
		require.NoError(t, err)
	})

	t.Run("forgot password is silent for unknown and federated accounts", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		ctx := context.Background()
		h.apple.Add("a-token", federated.UserInfo{Subject: "apple-1", Email: "apple@example.com", EmailVerified: true})
		_, err := h.svc.FederatedAuth(ctx, account.ProviderApple, "a-token", auth.Profile{})
		require.NoError(t, err)

		assert.NoError(t, h.svc.ForgotPassword(ctx, "ghost@example.com"))
		assert.NoError(t, h.svc.ForgotPassword(ctx, "apple@example.com"))
		assert.Empty(t, h.events.Filter(auth.EventPasswordResetRequested))
	})
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	reg := h.register(t, "change@example.com")
	id := reg.User.ID

	assert.ErrorIs(t, h.svc.ChangePassword(ctx, uuid.New(), strongPassword, "NewPassword456"), auth.ErrNotFound)
	assert.ErrorIs(t, h.svc.ChangePassword(ctx, id, "Wrong1234", "NewPassword456"), auth.ErrCurrentPasswordIncorrect)
	assert.ErrorIs(t, h.svc.ChangePassword(ctx, id, strongPassword, "NoDigitsHere"), auth.ErrWeakPassword)

	require.NoError(t, h.svc.ChangePassword(ctx, id, strongPassword, "NewPassword456"))

	_, err := h.svc.RefreshToken(ctx, reg.Tokens.RefreshToken)
	assert.NoError(t, err, "existing sessions survive a password change")

	_, err = h.svc.Login(ctx, "change@example.com", strongPassword)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = h.svc.Login(ctx, "change@example.com", "NewPassword456")
	require.NoError(t, err)

	changed := h.events.Filter(auth.EventPasswordChanged)
	require.Len(t, changed, 1)
	assert.Equal(t, id, changed[0].(auth.PasswordChanged).AccountID)

	h.google.Add("g", googleInfo("g-2", "gchange@example.com"))
	fed, err := h.svc.FederatedAuth(ctx, account.ProviderGoogle, "g", auth.Profile{})
	require.NoError(t, err)
	assert.ErrorIs(t, h.svc.ChangePassword(ctx, fed.User.ID, "", "NewPassword456"), auth.ErrNotAvailableForProvider)
}
