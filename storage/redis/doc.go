// Package redis keeps refresh tokens in Redis. Token records expire with
// the token itself; revocation uses Lua scripts so the usability check and
// the write happen atomically on the server.
package redis
