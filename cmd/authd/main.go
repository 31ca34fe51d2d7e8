// Command authd runs the background side of authcore: it wires the core
// from the environment, sweeps expired refresh tokens and serves readiness
// and metrics endpoints. Applications serve the auth operations themselves
// through the authd package.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dmitrymomot/authcore/authd"
	"github.com/dmitrymomot/authcore/pkg/config"
	"github.com/dmitrymomot/authcore/pkg/httpserver"
	"github.com/dmitrymomot/authcore/pkg/logger"
	"github.com/dmitrymomot/authcore/svc/token"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("authd stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}
	log := logger.New(logger.WithEnvironment(cfg.Env, cfg.Service))
	logger.SetAsDefault(log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app, err := authd.New(ctx, cfg.Core, authd.WithLogger(log), authd.WithRegisterer(reg))
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Error("close authd", logger.Error(err))
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sweeper := app.Sweeper(
		token.WithSweepInterval(cfg.SweepInterval),
		token.WithSweeperLogger(log.With(logger.Component("sweeper"))),
	)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()

	srv := httpserver.New(cfg.Ops, log.With(logger.Component("ops")))
	log.InfoContext(ctx, "authd started", slog.String("backend", cfg.Core.Backend))
	err = srv.Run(ctx, newOpsRouter(log, reg, cfg.Ops.CheckTimeout, app.Checks()))
	cancel() // stops the sweeper when Run fails early
	wg.Wait()
	log.Info("authd stopped")
	return err
}
