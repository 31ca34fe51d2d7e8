// Package httpserver runs the operational HTTP server of authd.
//
// Server applies the read, write and idle timeouts from Config and serves
// until its context ends, then drains in-flight requests for at most
// ShutdownTimeout. Signal handling belongs to the caller, typically through
// signal.NotifyContext.
//
// HealthCheckHandler turns a set of named dependency checks into a JSON
// readiness endpoint:
//
//	r := chi.NewRouter()
//	r.Get("/healthz", httpserver.HealthCheckHandler(log, cfg.CheckTimeout, map[string]httpserver.Check{
//		"postgres": pg.Healthcheck(pool),
//	}))
//
//	if err := httpserver.New(cfg, log).Run(ctx, r); err != nil {
//		return err
//	}
package httpserver
