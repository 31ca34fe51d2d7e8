// Package config loads typed configuration from environment variables.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11. Every
// authcore package exposes a Config struct annotated with env tags; the
// binary loads each one once at startup:
//
//	var cfg token.Config
//	config.MustLoad(&cfg)
//
// Parsed values are cached per type, so repeated Load calls are cheap.
// ForceReloadConfig and ResetCache exist for tests that mutate the
// environment. LoadEnv reads explicit .env files; without it Load reads
// ./.env once if present.
package config
