// Package events provides sinks for authentication domain events.
//
// Every sink implements Emit(ctx, name, payload). Payloads that implement
// Keyed are partitioned by their key. Available sinks:
//
//   - Log writes a structured log line per event.
//   - Kafka publishes JSON envelopes with trace context headers.
//   - RedisStream appends JSON envelopes to a Redis stream.
//   - Multi fans out to several sinks.
//   - Metrics counts deliveries and failures for Prometheus.
//   - Recorder keeps events in memory for tests.
//
// Compose them as needed:
//
//	kafkaSink, err := events.NewKafka(cfg)
//	if err != nil {
//	    return err
//	}
//	defer kafkaSink.Close()
//	sink, err := events.NewMetrics(events.NewMulti(events.NewLog(log, slog.LevelInfo), kafkaSink), prometheus.DefaultRegisterer)
package events
