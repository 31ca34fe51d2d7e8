package federated

import (
	"context"
	"fmt"

	gojwt "github.com/golang-jwt/jwt/v5"
)

const (
	// ProviderGoogle names the Google verifier in logs.
	ProviderGoogle = "google"

	GoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
)

var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

// GoogleConfig configures Google ID token verification.
type GoogleConfig struct {
	ClientID string `env:"GOOGLE_CLIENT_ID"`
	JWKSURL  string `env:"GOOGLE_JWKS_URL" envDefault:"https://www.googleapis.com/oauth2/v3/certs"`
}

type googleClaims struct {
	gojwt.RegisteredClaims
	Email         string   `json:"email"`
	EmailVerified flexBool `json:"email_verified"`
}

// GoogleVerifier verifies Google Sign-In ID tokens.
type GoogleVerifier struct {
	v idTokenVerifier
}

var _ Verifier = (*GoogleVerifier)(nil)

// NewGoogleVerifier returns a verifier accepting tokens issued to cfg.ClientID.
func NewGoogleVerifier(cfg GoogleConfig, opts ...Option) (*GoogleVerifier, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: google", ErrMissingClientID)
	}
	if cfg.JWKSURL == "" {
		cfg.JWKSURL = GoogleJWKSURL
	}
	o := buildOptions(opts)
	return &GoogleVerifier{v: idTokenVerifier{
		provider: ProviderGoogle,
		audience: cfg.ClientID,
		issuers:  googleIssuers,
		keys:     o.keySet(cfg.JWKSURL),
		now:      o.now,
		logger:   o.logger,
	}}, nil
}

// Verify checks signature, issuer, audience and expiry of rawToken.
// A token without an email claim is rejected.
func (g *GoogleVerifier) Verify(ctx context.Context, rawToken string) (*UserInfo, error) {
	var claims googleClaims
	if err := g.v.parse(ctx, rawToken, &claims); err != nil {
		return nil, err
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("%w: missing email", ErrInvalidToken)
	}
	return &UserInfo{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: bool(claims.EmailVerified),
	}, nil
}
