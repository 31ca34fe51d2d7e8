package token

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/authcore/pkg/logger"
)

// DefaultSweepInterval is how often Sweeper removes expired tokens.
const DefaultSweepInterval = time.Hour

// Sweeper periodically deletes expired refresh tokens from a Store.
type Sweeper struct {
	store    Store
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

func WithSweepInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithSweeperClock(now func() time.Time) SweeperOption {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

func WithSweeperLogger(l *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewSweeper(store Store, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		store:    store,
		interval: DefaultSweepInterval,
		now:      time.Now,
		logger:   logger.Noop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep deletes tokens expired at the current time once.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	return s.store.DeleteExpired(ctx, s.now())
}

// Run sweeps every interval until ctx is cancelled. Failed sweeps are
// logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "refresh token sweep failed", logger.Error(err))
				continue
			}
			if n > 0 {
				s.logger.InfoContext(ctx, "expired refresh tokens removed", logger.Count(n))
			}
		}
	}
}
