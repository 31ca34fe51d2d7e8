package main

import (
	"time"

	"github.com/dmitrymomot/authcore/authd"
	"github.com/dmitrymomot/authcore/pkg/httpserver"
)

type appConfig struct {
	Env           string        `env:"APP_ENV" envDefault:"development"`
	Service       string        `env:"APP_NAME" envDefault:"authd"`
	SweepInterval time.Duration `env:"AUTH_SWEEP_INTERVAL" envDefault:"1h"` // expired refresh token cleanup cadence

	Core authd.Config
	Ops  httpserver.Config
}
