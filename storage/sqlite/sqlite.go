package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/dmitrymomot/authcore/pkg/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Config selects the database file.
type Config struct {
	Path        string        `env:"SQLITE_PATH" envDefault:"authcore.db"`
	BusyTimeout time.Duration `env:"SQLITE_BUSY_TIMEOUT" envDefault:"5s"`
}

// DB is a migrated SQLite database holding accounts and refresh tokens.
type DB struct {
	db *sql.DB
}

// Open opens the database at cfg.Path and applies the bundled migrations.
func Open(ctx context.Context, cfg Config, log *slog.Logger) (*DB, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, ErrEmptyPath
	}
	if log == nil {
		log = logger.Noop()
	}
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}

	memory := path == MemoryPath
	if !memory {
		path = filepath.Clean(path)
	}
	dsn := fmt.Sprintf("%s?_txlock=immediate&_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)", path, busy.Milliseconds())
	if !memory {
		dsn += "&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if memory {
		// every connection to :memory: is a separate database
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	if err := migrate(ctx, sqlDB, log); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return &DB{db: sqlDB}, nil
}

func migrate(ctx context.Context, db *sql.DB, log *slog.Logger) error {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return errors.Join(ErrMigrate, err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return errors.Join(ErrMigrate, err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return errors.Join(ErrMigrate, err)
	}
	for _, r := range results {
		log.DebugContext(ctx, "sqlite migration applied",
			slog.String("source", r.Source.Path),
			logger.Duration(r.Duration),
		)
	}
	return nil
}

// Accounts returns the account repository backed by d.
func (d *DB) Accounts() *AccountRepository {
	return &AccountRepository{db: d.db, now: time.Now}
}

// Tokens returns the refresh token store backed by d.
func (d *DB) Tokens() *TokenStore {
	return &TokenStore{db: d.db}
}

// Healthcheck pings the database.
func (d *DB) Healthcheck(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return errors.Join(ErrHealthcheckFailed, err)
	}
	return nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
