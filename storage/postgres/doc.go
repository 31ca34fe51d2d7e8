// Package postgres stores accounts and refresh tokens in PostgreSQL through
// a pgx connection pool. Schema migrations are embedded and applied with
// goose via Migrate.
package postgres
