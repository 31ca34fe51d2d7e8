package auth

import (
	"errors"
	"fmt"
)

// Domain errors. Transport layers map these to client-facing responses.
var (
	ErrAlreadyExists            = errors.New("auth: account already exists")
	ErrInvalidEmail             = errors.New("auth: invalid email address")
	ErrInvalidCredentials       = errors.New("auth: invalid email or password")
	ErrWrongProvider            = errors.New("auth: account uses a different sign-in method")
	ErrUnsupportedProvider      = errors.New("auth: unsupported provider")
	ErrInvalidProviderToken     = errors.New("auth: invalid provider token")
	ErrEmailNotVerified         = errors.New("auth: email not verified by provider")
	ErrProviderConflict         = errors.New("auth: email already registered with another provider")
	ErrInvalidRefreshToken      = errors.New("auth: invalid refresh token")
	ErrNotFound                 = errors.New("auth: account not found")
	ErrInvalidOrExpiredToken    = errors.New("auth: invalid or expired reset token")
	ErrWeakPassword             = errors.New("auth: password too weak")
	ErrNotAvailableForProvider  = errors.New("auth: operation not available for this provider")
	ErrCurrentPasswordIncorrect = errors.New("auth: current password is incorrect")
)

// Infrastructure errors. They always wrap the underlying cause.
var (
	ErrStoreUnavailable    = errors.New("auth: store unavailable")
	ErrProviderUnavailable = errors.New("auth: identity provider unavailable")
)

var domainErrors = []error{
	ErrAlreadyExists,
	ErrInvalidEmail,
	ErrInvalidCredentials,
	ErrWrongProvider,
	ErrUnsupportedProvider,
	ErrInvalidProviderToken,
	ErrEmailNotVerified,
	ErrProviderConflict,
	ErrInvalidRefreshToken,
	ErrNotFound,
	ErrInvalidOrExpiredToken,
	ErrWeakPassword,
	ErrNotAvailableForProvider,
	ErrCurrentPasswordIncorrect,
}

// IsDomainError reports whether err is an expected business outcome rather
// than an infrastructure failure.
func IsDomainError(err error) bool {
	if err == nil {
		return false
	}
	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return true
		}
	}
	return false
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

func providerError(provider string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrProviderUnavailable, provider, err)
}

func weakPassword(err error) error {
	return fmt.Errorf("%w: %w", ErrWeakPassword, err)
}
