package authd

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/authcore/pkg/events"
)

// eventSink fans events out to the log and, when configured, Kafka and a
// Redis stream. Delivery is counted under the authcore_events_* metrics.
func (a *App) eventSink(cfg Config, rdb goredis.UniversalClient, reg prometheus.Registerer, log *slog.Logger) (events.Sink, error) {
	sinks := []events.Sink{events.NewLog(log, slog.LevelInfo)}

	if cfg.Kafka.Enabled() {
		k, err := events.NewKafka(cfg.Kafka, events.WithKafkaLogger(log))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, k.Close)
		sinks = append(sinks, k)
	}

	if rdb != nil && cfg.EventsStream != "" {
		s, err := events.NewRedisStream(rdb, cfg.EventsStream)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}

	return events.NewMetrics(events.NewMulti(sinks...), reg)
}
