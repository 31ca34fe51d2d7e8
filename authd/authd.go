package authd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/authcore/pkg/events"
	"github.com/dmitrymomot/authcore/pkg/federated"
	"github.com/dmitrymomot/authcore/pkg/httpserver"
	"github.com/dmitrymomot/authcore/pkg/logger"
	"github.com/dmitrymomot/authcore/pkg/password"
	"github.com/dmitrymomot/authcore/pkg/redis"
	"github.com/dmitrymomot/authcore/svc/account"
	"github.com/dmitrymomot/authcore/svc/auth"
	"github.com/dmitrymomot/authcore/svc/token"
)

// App is a wired auth core. Close releases its connections.
type App struct {
	// Service is the orchestrator behind every auth operation.
	Service *auth.Service

	tokens    token.Store
	checks    map[string]httpserver.Check
	closers   []func() error
	closeOnce sync.Once
	closeErr  error
}

var _ io.Closer = (*App)(nil)

type options struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
	redis      goredis.UniversalClient
}

// Option configures New.
type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRegisterer registers the event delivery counters with reg.
// Without it the counters are kept but not exported.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithRedisClient reuses an existing client instead of dialing REDIS_URL.
// The caller keeps ownership of it.
func WithRedisClient(c goredis.UniversalClient) Option {
	return func(o *options) { o.redis = c }
}

// New builds an App from cfg. On error everything opened so far is closed.
func New(ctx context.Context, cfg Config, opts ...Option) (_ *App, err error) {
	o := options{logger: logger.Noop()}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger

	a := &App{checks: make(map[string]httpserver.Check)}
	defer func() {
		if err != nil {
			err = errors.Join(err, a.Close())
		}
	}()

	rdb := o.redis
	if rdb == nil && cfg.Redis.Enabled() {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		rdb = client
	}
	if rdb != nil {
		a.checks["redis"] = redis.Healthcheck(rdb)
	}

	accounts, tokens, err := a.openStorage(ctx, cfg, rdb, log)
	if err != nil {
		return nil, err
	}
	a.tokens = tokens

	sink, err := a.eventSink(cfg, rdb, o.registerer, log)
	if err != nil {
		return nil, err
	}

	svc, err := newService(cfg, accounts, tokens, sink, log)
	if err != nil {
		return nil, err
	}
	a.Service = svc
	return a, nil
}

// newService builds the orchestrator. Federated providers are enabled by
// their client ids.
func newService(cfg Config, accounts account.Repository, store token.Store, sink events.Sink, log *slog.Logger) (*auth.Service, error) {
	tokens, err := token.NewService(store, cfg.Token, token.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("token service: %w", err)
	}

	opts := []auth.Option{auth.WithConfig(cfg.Auth), auth.WithLogger(log)}
	fedOpts := []federated.Option{federated.WithLogger(log)}
	if cfg.Google.ClientID != "" {
		v, err := federated.NewGoogleVerifier(cfg.Google, fedOpts...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, auth.WithVerifier(account.ProviderGoogle, v))
	}
	if cfg.Apple.ClientID != "" {
		v, err := federated.NewAppleVerifier(cfg.Apple, fedOpts...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, auth.WithVerifier(account.ProviderApple, v))
	}

	return auth.NewService(accounts, tokens, password.NewHasher(cfg.Password), sink, opts...), nil
}

// Checks returns one readiness check per external dependency. An App on
// in-memory storage without Redis has none.
func (a *App) Checks() map[string]httpserver.Check {
	return maps.Clone(a.checks)
}

// Sweeper returns a sweeper over the refresh token store.
func (a *App) Sweeper(opts ...token.SweeperOption) *token.Sweeper {
	return token.NewSweeper(a.tokens, opts...)
}

// Close releases connections in reverse order of opening. Repeated calls
// return the first result.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		var errs []error
		for i := len(a.closers) - 1; i >= 0; i-- {
			errs = append(errs, a.closers[i]())
		}
		a.closeErr = errors.Join(errs...)
	})
	return a.closeErr
}
