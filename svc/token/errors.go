package token

import "errors"

var (
	ErrInvalidAccessToken  = errors.New("token: invalid access token")
	ErrInvalidRefreshToken = errors.New("token: invalid refresh token")

	// ErrNotFound is returned by stores for unknown digests.
	ErrNotFound      = errors.New("token: not found")
	ErrInvalidRecord = errors.New("token: refresh token record requires a digest")

	ErrMissingSigningKey = errors.New("token: signing key is required")
	ErrSigning           = errors.New("token: failed to sign access token")
)
