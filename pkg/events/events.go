package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Sink receives named domain events.
type Sink interface {
	Emit(ctx context.Context, name string, payload any) error
}

// Keyed payloads supply a partition key, usually the account id.
type Keyed interface {
	EventKey() string
}

// Envelope is the wire form written by the Kafka and Redis stream sinks.
type Envelope struct {
	Name       string          `json:"name"`
	OccurredAt time.Time       `json:"occurred_at"`
	Key        string          `json:"key,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, name string, payload any) error

func (f SinkFunc) Emit(ctx context.Context, name string, payload any) error {
	return f(ctx, name, payload)
}

// Key returns the partition key of payload, or "" when it has none.
func Key(payload any) string {
	if k, ok := payload.(Keyed); ok {
		return k.EventKey()
	}
	return ""
}

// NewEnvelope marshals payload into an Envelope stamped with now.
func NewEnvelope(name string, payload any, now time.Time) (Envelope, error) {
	if name == "" {
		return Envelope{}, ErrEmptyName
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: %s: %w", ErrEncode, name, err)
	}
	return Envelope{
		Name:       name,
		OccurredAt: now.UTC(),
		Key:        Key(payload),
		Payload:    raw,
	}, nil
}

func encode(name string, payload any, now time.Time) (Envelope, []byte, error) {
	env, err := NewEnvelope(name, payload, now)
	if err != nil {
		return Envelope{}, nil, err
	}
	b, err := json.Marshal(env)
	if err != nil {
		return Envelope{}, nil, fmt.Errorf("%w: %s: %w", ErrEncode, name, err)
	}
	return env, b, nil
}
