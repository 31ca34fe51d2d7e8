package events_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authcore/pkg/events"
)

func TestMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	rec := events.NewRecorder()
	m, err := events.NewMetrics(rec, reg)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, m.Emit(ctx, "auth.registered", nil))
	require.NoError(t, m.Emit(ctx, "auth.registered", nil))
	rec.FailWith(errors.New("down"))
	require.Error(t, m.Emit(ctx, "auth.logged_in", nil))

	again, err := events.NewMetrics(events.NewRecorder(), reg)
	require.NoError(t, err, "re-registration reuses existing collectors")
	require.NoError(t, again.Emit(ctx, "auth.registered", nil))

	families, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			values[f.GetName()+"/"+metric.GetLabel()[0].GetValue()] = metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(3), values["authcore_events_emitted_total/auth.registered"])
	assert.Equal(t, float64(1), values["authcore_events_failed_total/auth.logged_in"])
}

func TestMetrics_NilRegisterer(t *testing.T) {
	t.Parallel()

	m, err := events.NewMetrics(events.NewRecorder(), nil)
	require.NoError(t, err)
	assert.NoError(t, m.Emit(context.Background(), "x", nil))
}
