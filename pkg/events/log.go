package events

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/authcore/pkg/logger"
)

// Log writes every event to a structured logger. Payloads are not logged:
// reset events carry raw tokens.
type Log struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLog returns a Log sink writing at level. A nil logger discards.
func NewLog(l *slog.Logger, level slog.Level) *Log {
	if l == nil {
		l = logger.Noop()
	}
	return &Log{logger: l.With(logger.Component("events")), level: level}
}

func (s *Log) Emit(ctx context.Context, name string, payload any) error {
	if name == "" {
		return ErrEmptyName
	}
	attrs := []slog.Attr{logger.Event(name)}
	if key := Key(payload); key != "" {
		attrs = append(attrs, slog.String("key", key))
	}
	s.logger.LogAttrs(ctx, s.level, "event emitted", attrs...)
	return nil
}
