package sqlite

import "errors"

var (
	ErrEmptyPath         = errors.New("sqlite: empty database path")
	ErrMigrate           = errors.New("sqlite: apply migrations")
	ErrHealthcheckFailed = errors.New("sqlite: healthcheck failed")
)
