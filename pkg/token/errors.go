package token

import "errors"

var (
	ErrInvalidSize = errors.New("token: size must be positive")
	ErrGenerate    = errors.New("token: failed to read random bytes")
)
