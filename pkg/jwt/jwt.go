package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// SigningMethod is the only algorithm this service signs with or accepts.
var SigningMethod = gojwt.SigningMethodHS256

// RegisteredClaims re-exports the RFC 7519 registered claim set so callers
// can embed it without importing golang-jwt directly.
type RegisteredClaims = gojwt.RegisteredClaims

// NewNumericDate converts t to a JWT NumericDate.
func NewNumericDate(t time.Time) *gojwt.NumericDate {
	return gojwt.NewNumericDate(t)
}

// Service signs and verifies HS256 tokens.
type Service struct {
	signingKey []byte
	issuer     string
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithIssuer sets the expected "iss" claim on parse.
// Generate does not stamp it; callers set it in their claims.
func WithIssuer(iss string) Option {
	return func(s *Service) {
		s.issuer = iss
	}
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Service with the provided signing key.
func New(signingKey []byte, opts ...Option) (*Service, error) {
	if len(signingKey) == 0 {
		return nil, ErrMissingSigningKey
	}
	s := &Service{
		signingKey: signingKey,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewFromString is New for string keys read from configuration.
func NewFromString(signingKey string, opts ...Option) (*Service, error) {
	return New([]byte(signingKey), opts...)
}

// Generate signs claims with HS256.
func (s *Service) Generate(claims gojwt.Claims) (string, error) {
	if claims == nil {
		return "", ErrMissingClaims
	}
	signed, err := gojwt.NewWithClaims(SigningMethod, claims).SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}
	return signed, nil
}

// Parse verifies tokenString and decodes it into claims.
// An expiry claim is required. Returned errors wrap ErrExpiredToken,
// ErrInvalidSignature (bad signature or a non-HS256 algorithm) or
// ErrInvalidToken.
func (s *Service) Parse(tokenString string, claims gojwt.Claims) error {
	if claims == nil {
		return ErrMissingClaims
	}

	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{SigningMethod.Alg()}),
		gojwt.WithExpirationRequired(),
		gojwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, gojwt.WithIssuer(s.issuer))
	}

	_, err := gojwt.ParseWithClaims(tokenString, claims, func(*gojwt.Token) (any, error) {
		return s.signingKey, nil
	}, opts...)
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gojwt.ErrTokenExpired):
		return errors.Join(ErrExpiredToken, err)
	case errors.Is(err, gojwt.ErrTokenSignatureInvalid):
		return errors.Join(ErrInvalidSignature, err)
	default:
		return errors.Join(ErrInvalidToken, err)
	}
}
