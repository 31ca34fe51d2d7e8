package httpserver

import "errors"

var (
	ErrListen   = errors.New("httpserver: listen failed")
	ErrServe    = errors.New("httpserver: serve stopped unexpectedly")
	ErrShutdown = errors.New("httpserver: graceful shutdown failed")
)
