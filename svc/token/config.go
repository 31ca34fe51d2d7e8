package token

import "time"

// Config holds token lifetimes and the access-token signing key.
type Config struct {
	SigningKey string        `env:"TOKEN_SIGNING_KEY,required"`
	Issuer     string        `env:"TOKEN_ISSUER" envDefault:"authcore"`
	AccessTTL  time.Duration `env:"TOKEN_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL time.Duration `env:"TOKEN_REFRESH_TTL" envDefault:"168h"`
}

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

func (c Config) withDefaults() Config {
	if c.AccessTTL <= 0 {
		c.AccessTTL = DefaultAccessTTL
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = DefaultRefreshTTL
	}
	return c
}
