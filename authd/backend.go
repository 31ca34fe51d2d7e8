package authd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/authcore/pkg/pg"
	"github.com/dmitrymomot/authcore/storage/postgres"
	redisstore "github.com/dmitrymomot/authcore/storage/redis"
	"github.com/dmitrymomot/authcore/storage/sqlite"
	"github.com/dmitrymomot/authcore/svc/account"
	"github.com/dmitrymomot/authcore/svc/token"
)

// openStorage opens the account store named by cfg.Backend. When rdb is
// set the refresh tokens live in Redis whatever the account backend.
func (a *App) openStorage(ctx context.Context, cfg Config, rdb goredis.UniversalClient, log *slog.Logger) (account.Repository, token.Store, error) {
	var (
		accounts account.Repository
		tokens   token.Store
	)

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendMemory, "":
		accounts = account.NewMemoryRepository()
		tokens = token.NewMemoryStore()
		log.WarnContext(ctx, "using in-memory storage; data is lost on restart")

	case BackendSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLite, log)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, db.Close)
		a.checks["sqlite"] = db.Healthcheck
		accounts, tokens = db.Accounts(), db.Tokens()
		log.InfoContext(ctx, "using sqlite storage", slog.String("path", cfg.SQLite.Path))

	case BackendPostgres:
		pool, err := pg.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		if err := postgres.Migrate(ctx, pool, cfg.Postgres, log); err != nil {
			return nil, nil, err
		}
		a.checks["postgres"] = pg.Healthcheck(pool)
		accounts, tokens = postgres.NewAccountRepository(pool), postgres.NewTokenStore(pool)
		log.InfoContext(ctx, "using postgres storage")

	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}

	if rdb != nil {
		tokens = redisstore.NewTokenStore(rdb, redisstore.WithKeyPrefix(cfg.Redis.KeyPrefix))
		log.InfoContext(ctx, "refresh tokens stored in redis")
	}
	return accounts, tokens, nil
}
