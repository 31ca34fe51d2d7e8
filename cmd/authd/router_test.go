package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/authcore/authd"
	"github.com/dmitrymomot/authcore/pkg/httpserver"
	"github.com/dmitrymomot/authcore/pkg/logger"
	"github.com/dmitrymomot/authcore/pkg/password"
	"github.com/dmitrymomot/authcore/svc/token"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestOpsRouter_Healthz(t *testing.T) {
	t.Parallel()

	healthy := newOpsRouter(logger.Noop(), prometheus.NewRegistry(), time.Second, map[string]httpserver.Check{
		"sqlite": func(context.Context) error { return nil },
	})
	rec := get(t, healthy, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready","checks":{"sqlite":"ok"}}`, rec.Body.String())

	broken := newOpsRouter(logger.Noop(), prometheus.NewRegistry(), time.Second, map[string]httpserver.Check{
		"postgres": func(context.Context) error { return errors.New("refused") },
	})
	rec = get(t, broken, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	memory := newOpsRouter(logger.Noop(), prometheus.NewRegistry(), time.Second, nil)
	rec = get(t, memory, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}

func TestOpsRouter_Metrics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	reg := prometheus.NewRegistry()
	app, err := authd.New(ctx, authd.Config{
		Backend:  authd.BackendMemory,
		Token:    token.Config{SigningKey: "ops-test-key"},
		Password: password.Config{Cost: bcrypt.MinCost},
	}, authd.WithRegisterer(reg))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	_, err = app.Service.Register(ctx, "ops@example.com", "Ops", "Password123")
	require.NoError(t, err)

	rec := get(t, newOpsRouter(logger.Noop(), reg, time.Second, app.Checks()), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `authcore_events_emitted_total{event="auth.registered"} 1`)
}

func TestOpsRouter_UnknownRoute(t *testing.T) {
	t.Parallel()

	rec := get(t, newOpsRouter(logger.Noop(), prometheus.NewRegistry(), time.Second, nil), "/login")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
