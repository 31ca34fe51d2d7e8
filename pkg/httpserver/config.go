package httpserver

import "time"

// Config describes the operations HTTP server.
type Config struct {
	Addr            string        `env:"OPS_HTTP_ADDR" envDefault:":9090"`          // listen address
	ReadTimeout     time.Duration `env:"OPS_HTTP_READ_TIMEOUT" envDefault:"10s"`    // whole-request read limit
	WriteTimeout    time.Duration `env:"OPS_HTTP_WRITE_TIMEOUT" envDefault:"30s"`   // response write limit
	IdleTimeout     time.Duration `env:"OPS_HTTP_IDLE_TIMEOUT" envDefault:"120s"`   // keep-alive idle limit
	ShutdownTimeout time.Duration `env:"OPS_HTTP_SHUTDOWN_TIMEOUT" envDefault:"5s"` // graceful shutdown deadline
	CheckTimeout    time.Duration `env:"OPS_HTTP_CHECK_TIMEOUT" envDefault:"2s"`    // deadline for all readiness checks of one request
}
