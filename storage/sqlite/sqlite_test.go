package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authcore/storage/sqlite"
	"github.com/dmitrymomot/authcore/svc/account"
	"github.com/dmitrymomot/authcore/svc/account/accounttest"
	"github.com/dmitrymomot/authcore/svc/token"
	"github.com/dmitrymomot/authcore/svc/token/tokentest"
)

func openTemp(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(context.Background(), sqlite.Config{Path: filepath.Join(t.TempDir(), "authcore.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestAccountRepository(t *testing.T) {
	t.Parallel()
	accounttest.Run(t, func(t *testing.T) account.Repository {
		return openTemp(t).Accounts()
	})
}

func TestTokenStore(t *testing.T) {
	t.Parallel()
	tokentest.Run(t, func(t *testing.T) token.Store {
		return openTemp(t).Tokens()
	})
	tokentest.RunDeleteExpired(t, func(t *testing.T) token.Store {
		return openTemp(t).Tokens()
	})
}

func TestOpen_Memory(t *testing.T) {
	t.Parallel()

	db, err := sqlite.Open(context.Background(), sqlite.Config{Path: sqlite.MemoryPath}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := db.Tokens()
	rt := &token.RefreshToken{TokenHash: "mem", AccountID: accounttest.NewPasswordIdentity("m@example.com").ID}
	rt.ExpiresAt = time.Now().Add(time.Hour)
	require.NoError(t, store.Create(context.Background(), rt))
	_, err = store.FindByToken(context.Background(), "mem")
	assert.NoError(t, err)
}

func TestOpen(t *testing.T) {
	t.Parallel()

	_, err := sqlite.Open(context.Background(), sqlite.Config{Path: "  "}, nil)
	assert.ErrorIs(t, err, sqlite.ErrEmptyPath)

	path := filepath.Join(t.TempDir(), "auth.db")
	db, err := sqlite.Open(context.Background(), sqlite.Config{Path: path}, nil)
	require.NoError(t, err)
	require.NoError(t, db.Healthcheck(context.Background()))

	id := accounttest.NewPasswordIdentity("file@example.com")
	require.NoError(t, db.Accounts().Create(context.Background(), id))
	require.NoError(t, db.Close())

	// reopening an up-to-date database is a no-op migration
	db, err = sqlite.Open(context.Background(), sqlite.Config{Path: path}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	found, err := db.Accounts().FindByEmail(context.Background(), "file@example.com")
	require.NoError(t, err)
	assert.Equal(t, id.ID, found.ID)
}
