package auth

import "time"

const (
	// DefaultResetTTL is how long a password reset token stays valid.
	DefaultResetTTL = time.Hour
	// DefaultEventTimeout bounds one event emission.
	DefaultEventTimeout = 2 * time.Second
)

// Config holds orchestrator settings.
type Config struct {
	ResetTTL     time.Duration `env:"AUTH_RESET_TOKEN_TTL" envDefault:"1h"`
	EventTimeout time.Duration `env:"AUTH_EVENT_TIMEOUT" envDefault:"2s"`
}
