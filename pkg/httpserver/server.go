package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dmitrymomot/authcore/pkg/logger"
)

const (
	defaultAddr            = ":9090"
	defaultShutdownTimeout = 5 * time.Second
)

// Server serves the ops endpoints until its context ends.
type Server struct {
	cfg Config
	log *slog.Logger
}

// New returns a Server for cfg. Zero Addr and ShutdownTimeout fall back to
// :9090 and 5s; zero read, write and idle timeouts stay unlimited.
func New(cfg Config, log *slog.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Server{cfg: cfg, log: log}
}

// Run listens on the configured address and calls Serve.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrListen, err)
	}
	return s.Serve(ctx, ln, handler)
}

// Serve handles requests on ln until ctx is done, then drains in-flight
// requests for at most ShutdownTimeout. A clean shutdown returns nil.
func (s *Server) Serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	if handler == nil {
		handler = http.NotFoundHandler()
	}
	base := context.WithoutCancel(ctx)
	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return base },
		ErrorLog:     slog.NewLogLogger(s.log.Handler(), slog.LevelWarn),
	}

	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()
	s.log.InfoContext(ctx, "ops server listening", slog.String("addr", ln.Addr().String()))

	select {
	case err := <-served:
		return fmt.Errorf("%w: %w", ErrServe, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(base, s.cfg.ShutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	// Serve returns ErrServerClosed as soon as Shutdown starts.
	if serveErr := <-served; !errors.Is(serveErr, http.ErrServerClosed) {
		err = errors.Join(err, serveErr)
	}
	if err != nil {
		_ = srv.Close()
		return fmt.Errorf("%w: %w", ErrShutdown, err)
	}
	s.log.InfoContext(base, "ops server stopped")
	return nil
}
