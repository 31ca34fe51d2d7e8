package password

import "errors"

var (
	ErrWeakPassword = errors.New("password: too weak")
	ErrTooLong      = errors.New("password: exceeds 72 bytes")
	ErrHashFailed   = errors.New("password: hashing failed")
)
