package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/authcore/pkg/httpserver"
)

// newOpsRouter serves storage readiness on /healthz and Prometheus metrics
// on /metrics.
func newOpsRouter(log *slog.Logger, gatherer prometheus.Gatherer, checkTimeout time.Duration, checks map[string]httpserver.Check) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", httpserver.HealthCheckHandler(log, checkTimeout, checks))
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}
