package authd

import "errors"

var ErrUnknownBackend = errors.New("authd: unknown storage backend")
