package events

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts emitted and failed events per name around another sink.
type Metrics struct {
	next    Sink
	emitted *prometheus.CounterVec
	failed  *prometheus.CounterVec
}

// NewMetrics registers authcore_events_emitted_total and
// authcore_events_failed_total with reg. A collector that is already
// registered is reused.
func NewMetrics(next Sink, reg prometheus.Registerer) (*Metrics, error) {
	emitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "authcore",
		Subsystem: "events",
		Name:      "emitted_total",
		Help:      "Events delivered to the sink.",
	}, []string{"event"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "authcore",
		Subsystem: "events",
		Name:      "failed_total",
		Help:      "Events the sink failed to deliver.",
	}, []string{"event"})

	var err error
	if emitted, err = register(reg, emitted); err != nil {
		return nil, err
	}
	if failed, err = register(reg, failed); err != nil {
		return nil, err
	}
	return &Metrics{next: next, emitted: emitted, failed: failed}, nil
}

func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if reg == nil {
		return c, nil
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

func (m *Metrics) Emit(ctx context.Context, name string, payload any) error {
	if err := m.next.Emit(ctx, name, payload); err != nil {
		m.failed.WithLabelValues(name).Inc()
		return err
	}
	m.emitted.WithLabelValues(name).Inc()
	return nil
}
