package events

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultStreamMaxLen caps a Redis stream approximately.
const DefaultStreamMaxLen = 100_000

// RedisStream appends JSON envelopes to a Redis stream with XADD.
type RedisStream struct {
	client redis.UniversalClient
	stream string
	maxLen int64
	now    func() time.Time
}

type RedisStreamOption func(*RedisStream)

// WithStreamMaxLen trims the stream to about n entries. Zero disables trimming.
func WithStreamMaxLen(n int64) RedisStreamOption {
	return func(s *RedisStream) {
		if n >= 0 {
			s.maxLen = n
		}
	}
}

func WithStreamClock(now func() time.Time) RedisStreamOption {
	return func(s *RedisStream) {
		if now != nil {
			s.now = now
		}
	}
}

func NewRedisStream(client redis.UniversalClient, stream string, opts ...RedisStreamOption) (*RedisStream, error) {
	if client == nil {
		return nil, ErrNilRedisClient
	}
	if stream == "" {
		return nil, ErrMissingStream
	}
	s := &RedisStream{client: client, stream: stream, maxLen: DefaultStreamMaxLen, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *RedisStream) Emit(ctx context.Context, name string, payload any) error {
	env, value, err := encode(name, payload, s.now())
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"name":     env.Name,
			"key":      env.Key,
			"envelope": string(value),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("%w: redis stream %s: %w", ErrPublish, name, err)
	}
	return nil
}
