package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/authcore/pkg/logger"
)

// KafkaConfig configures the Kafka sink. No brokers disables it.
type KafkaConfig struct {
	Brokers      []string      `env:"KAFKA_BROKERS" envSeparator:","`
	Topic        string        `env:"KAFKA_EVENTS_TOPIC" envDefault:"auth.events"`
	WriteTimeout time.Duration `env:"KAFKA_WRITE_TIMEOUT" envDefault:"2s"`
	MaxAttempts  int           `env:"KAFKA_MAX_ATTEMPTS" envDefault:"3"` // kafka-go defaults to 10
}

// Enabled reports whether brokers are configured.
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes JSON envelopes keyed by Keyed.EventKey, so events of one
// account land on one partition in order. Trace context travels in headers.
type Kafka struct {
	w      messageWriter
	topic  string
	now    func() time.Time
	logger *slog.Logger
	tracer trace.Tracer
	props  propagation.TextMapPropagator
}

type KafkaOption func(*Kafka)

func WithKafkaLogger(l *slog.Logger) KafkaOption {
	return func(k *Kafka) {
		if l != nil {
			k.logger = l
		}
	}
}

func WithKafkaClock(now func() time.Time) KafkaOption {
	return func(k *Kafka) {
		if now != nil {
			k.now = now
		}
	}
}

// WithKafkaTracerProvider replaces the global tracer provider.
func WithKafkaTracerProvider(tp trace.TracerProvider) KafkaOption {
	return func(k *Kafka) {
		if tp != nil {
			k.tracer = tp.Tracer("github.com/dmitrymomot/authcore/pkg/events")
		}
	}
}

func withMessageWriter(w messageWriter) KafkaOption {
	return func(k *Kafka) { k.w = w }
}

// NewKafka creates a Kafka sink. Returns ErrNoBrokers or ErrMissingTopic
// for incomplete configuration.
func NewKafka(cfg KafkaConfig, opts ...KafkaOption) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if cfg.Topic == "" {
		return nil, ErrMissingTopic
	}
	k := &Kafka{
		topic:  cfg.Topic,
		now:    time.Now,
		logger: logger.Noop(),
		tracer: otel.Tracer("github.com/dmitrymomot/authcore/pkg/events"),
		props:  otel.GetTextMapPropagator(),
	}
	for _, opt := range opts {
		opt(k)
	}
	if k.w == nil {
		k.w = &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			WriteTimeout:           cfg.WriteTimeout,
			MaxAttempts:            cfg.MaxAttempts,
			RequiredAcks:           kafka.RequireOne,
		}
	}
	k.logger = k.logger.With(logger.Component("events.kafka"), slog.String("topic", k.topic))
	return k, nil
}

func (k *Kafka) Emit(ctx context.Context, name string, payload any) error {
	env, value, err := encode(name, payload, k.now())
	if err != nil {
		return err
	}

	ctx, span := k.tracer.Start(ctx, "kafka.produce "+k.topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", k.topic),
			attribute.String("messaging.operation", "publish"),
			attribute.String("event.name", name),
		),
	)
	defer span.End()

	carrier := propagation.MapCarrier{}
	k.props.Inject(ctx, carrier)

	headers := make([]kafka.Header, 0, len(carrier)+1)
	headers = append(headers, kafka.Header{Key: "event", Value: []byte(name)})
	for key, v := range carrier {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(v)})
	}

	msg := kafka.Message{Value: value, Headers: headers, Time: env.OccurredAt}
	if env.Key != "" {
		msg.Key = []byte(env.Key)
	}

	if err := k.w.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		k.logger.ErrorContext(ctx, "kafka write failed", logger.Event(name), logger.Error(err))
		return fmt.Errorf("%w: kafka %s: %w", ErrPublish, name, err)
	}
	k.logger.DebugContext(ctx, "event published", logger.Event(name), slog.Int("value_len", len(value)))
	return nil
}

// Close flushes pending writes.
func (k *Kafka) Close() error {
	return k.w.Close()
}
