package authd

import (
	"github.com/dmitrymomot/authcore/pkg/events"
	"github.com/dmitrymomot/authcore/pkg/federated"
	"github.com/dmitrymomot/authcore/pkg/password"
	"github.com/dmitrymomot/authcore/pkg/pg"
	"github.com/dmitrymomot/authcore/pkg/redis"
	"github.com/dmitrymomot/authcore/storage/sqlite"
	"github.com/dmitrymomot/authcore/svc/auth"
	"github.com/dmitrymomot/authcore/svc/token"
)

// Storage backends selectable through AUTH_BACKEND.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config gathers the settings of every component New wires. Nested
// structs keep their own env tags.
type Config struct {
	Backend      string `env:"AUTH_BACKEND" envDefault:"memory"`             // memory, sqlite or postgres
	EventsStream string `env:"REDIS_EVENTS_STREAM" envDefault:"auth:events"` // empty disables the stream sink

	SQLite   sqlite.Config
	Postgres pg.Config
	Redis    redis.Config // REDIS_URL moves refresh tokens to Redis
	Kafka    events.KafkaConfig
	Token    token.Config
	Password password.Config
	Auth     auth.Config
	Google   federated.GoogleConfig // GOOGLE_CLIENT_ID enables Google sign-in
	Apple    federated.AppleConfig  // APPLE_CLIENT_ID enables Apple sign-in
}
