package federated

import (
	"context"
	"fmt"

	gojwt "github.com/golang-jwt/jwt/v5"
)

const (
	// ProviderApple names the Apple verifier in logs.
	ProviderApple = "apple"

	AppleIssuer  = "https://appleid.apple.com"
	AppleJWKSURL = "https://appleid.apple.com/auth/keys"
)

// AppleConfig configures Sign in with Apple identity token verification.
type AppleConfig struct {
	ClientID string `env:"APPLE_CLIENT_ID"`
	JWKSURL  string `env:"APPLE_JWKS_URL" envDefault:"https://appleid.apple.com/auth/keys"`
}

type appleClaims struct {
	gojwt.RegisteredClaims
	Email string `json:"email"`
}

// AppleVerifier verifies Sign in with Apple identity tokens.
// Apple omits the email after the first authorization, so Email may be empty.
type AppleVerifier struct {
	v idTokenVerifier
}

var _ Verifier = (*AppleVerifier)(nil)

// NewAppleVerifier returns a verifier accepting tokens issued to cfg.ClientID.
func NewAppleVerifier(cfg AppleConfig, opts ...Option) (*AppleVerifier, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: apple", ErrMissingClientID)
	}
	if cfg.JWKSURL == "" {
		cfg.JWKSURL = AppleJWKSURL
	}
	o := buildOptions(opts)
	return &AppleVerifier{v: idTokenVerifier{
		provider: ProviderApple,
		audience: cfg.ClientID,
		issuers:  []string{AppleIssuer},
		keys:     o.keySet(cfg.JWKSURL),
		now:      o.now,
		logger:   o.logger,
	}}, nil
}

// Verify checks signature, issuer, audience and expiry of rawToken.
// EmailVerified is always true: Apple only relays addresses it has verified.
func (a *AppleVerifier) Verify(ctx context.Context, rawToken string) (*UserInfo, error) {
	var claims appleClaims
	if err := a.v.parse(ctx, rawToken, &claims); err != nil {
		return nil, err
	}
	return &UserInfo{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: true,
	}, nil
}
