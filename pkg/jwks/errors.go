package jwks

import "errors"

var (
	// ErrFetch marks infrastructure failures: network, HTTP status or an
	// unreadable document. Callers fail closed.
	ErrFetch        = errors.New("jwks: fetch failed")
	ErrKeyNotFound  = errors.New("jwks: key not found")
	ErrNoKeys       = errors.New("jwks: no usable keys")
	ErrMalformedKey = errors.New("jwks: malformed key")
)
