package redis

import "errors"

var (
	ErrEmptyURL   = errors.New("redis: REDIS_URL is empty")
	ErrInvalidURL = errors.New("redis: invalid connection url")
	ErrNotReady   = errors.New("redis: server not reachable")
	ErrUnhealthy  = errors.New("redis: ping failed")
)
