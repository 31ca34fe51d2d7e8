package federated

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/dmitrymomot/authcore/pkg/jwks"
	"github.com/dmitrymomot/authcore/pkg/logger"
)

// UserInfo is the identity asserted by a verified provider token.
type UserInfo struct {
	Subject       string
	Email         string
	EmailVerified bool
}

// Verifier checks a provider-issued identity token.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*UserInfo, error)
}

type keySource interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// Option configures a verifier.
type Option func(*options)

type options struct {
	httpClient *http.Client
	keyCache   *jwks.Cache
	now        func() time.Time
	logger     *slog.Logger
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithKeyCache replaces jwks.DefaultCache.
func WithKeyCache(c *jwks.Cache) Option {
	return func(o *options) { o.keyCache = c }
}

// WithClock overrides the time source for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, logger: logger.Noop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) keySet(url string) *jwks.KeySet {
	return jwks.New(url,
		jwks.WithHTTPClient(o.httpClient),
		jwks.WithCache(o.keyCache),
		jwks.WithLogger(o.logger),
	)
}

// idTokenVerifier holds the checks shared by RS256 OpenID providers.
type idTokenVerifier struct {
	provider string
	audience string
	issuers  []string
	keys     keySource
	now      func() time.Time
	logger   *slog.Logger
}

func (v *idTokenVerifier) parse(ctx context.Context, raw string, claims gojwt.Claims) error {
	keyfunc := func(t *gojwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errMissingKeyID
		}
		return v.keys.Key(ctx, kid)
	}

	_, err := gojwt.ParseWithClaims(raw, claims, keyfunc,
		gojwt.WithValidMethods([]string{gojwt.SigningMethodRS256.Alg()}),
		gojwt.WithAudience(v.audience),
		gojwt.WithExpirationRequired(),
		gojwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwks.ErrFetch) {
			return fmt.Errorf("federated: %s keys: %w", v.provider, err)
		}
		v.logger.DebugContext(ctx, "identity token rejected",
			logger.Provider(v.provider),
			logger.Error(err),
		)
		return errors.Join(ErrInvalidToken, err)
	}

	iss, err := claims.GetIssuer()
	if err != nil || !slices.Contains(v.issuers, iss) {
		return fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, iss)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return nil
}

// flexBool accepts JSON booleans and their string forms.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		*b = false
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("federated: invalid boolean %q", string(data))
	}
	*b = flexBool(v)
	return nil
}
