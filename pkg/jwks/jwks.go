package jwks

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/MicahParks/jwkset"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/authcore/pkg/cache"
	"github.com/dmitrymomot/authcore/pkg/logger"
)

const (
	// DefaultTTL is how long a fetched key set is trusted.
	DefaultTTL = 24 * time.Hour
	// DefaultTimeout bounds a single key-set fetch.
	DefaultTimeout = 10 * time.Second

	maxDocumentSize = 1 << 20
)

// Cache stores parsed key sets by URL.
type Cache = cache.LRU[string, jwkset.Storage]

// NewCache returns a key-set cache holding up to capacity URLs for ttl.
func NewCache(capacity int, ttl time.Duration) *Cache {
	return cache.New(capacity, cache.WithTTL[string, jwkset.Storage](ttl))
}

// DefaultCache is shared by every KeySet that is not given its own cache.
var DefaultCache = NewCache(16, DefaultTTL)

// KeySet resolves signing keys published at a JWKS URL.
type KeySet struct {
	url    string
	client *http.Client
	cache  *Cache
	group  singleflight.Group
	logger *slog.Logger
}

// Option configures a KeySet.
type Option func(*KeySet)

func WithHTTPClient(c *http.Client) Option {
	return func(k *KeySet) {
		if c != nil {
			k.client = c
		}
	}
}

// WithCache replaces DefaultCache.
func WithCache(c *Cache) Option {
	return func(k *KeySet) {
		if c != nil {
			k.cache = c
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(k *KeySet) {
		if l != nil {
			k.logger = l
		}
	}
}

// New creates a KeySet for url.
func New(url string, opts ...Option) *KeySet {
	k := &KeySet{
		url:    url,
		client: &http.Client{Timeout: DefaultTimeout},
		cache:  DefaultCache,
		logger: logger.Noop(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// URL returns the JWKS endpoint.
func (k *KeySet) URL() string {
	return k.url
}

// Key returns the RSA key with id kid. It fetches the key set on a cache
// miss; an unknown kid in a cached set is not refetched.
// Returns ErrKeyNotFound for unknown ids and an error wrapping ErrFetch
// when the set cannot be retrieved.
func (k *KeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	keys, err := k.keys(ctx)
	if err != nil {
		return nil, err
	}
	jwk, err := keys.KeyRead(ctx, kid)
	if err != nil {
		if errors.Is(err, jwkset.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, kid)
		}
		return nil, err
	}
	pub, ok := jwk.Key().(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, kid)
	}
	return pub, nil
}

func (k *KeySet) keys(ctx context.Context) (jwkset.Storage, error) {
	if keys, ok := k.cache.Get(k.url); ok {
		return keys, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	ch := k.group.DoChan(k.url, func() (any, error) {
		if keys, ok := k.cache.Get(k.url); ok {
			return keys, nil
		}
		// shared by all waiters; the client timeout bounds it
		keys, count, err := k.fetch(context.WithoutCancel(ctx))
		if err != nil {
			k.logger.WarnContext(ctx, "jwks fetch failed",
				slog.String("url", k.url),
				logger.Error(err),
			)
			return nil, err
		}
		k.cache.Put(k.url, keys)
		k.logger.DebugContext(ctx, "jwks fetched",
			slog.String("url", k.url),
			logger.Count(int64(count)),
		)
		return keys, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrFetch, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(jwkset.Storage), nil
	}
}

func (k *KeySet) fetch(ctx context.Context) (jwkset.Storage, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("%w: unexpected status %d", ErrFetch, resp.StatusCode)
	}

	var doc jwkset.JWKSMarshal
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDocumentSize)).Decode(&doc); err != nil {
		return nil, 0, fmt.Errorf("%w: decode: %w", ErrFetch, err)
	}

	return signingKeys(ctx, doc.Keys)
}

// signingKeys keeps the RSA signature keys that carry a kid. Malformed
// entries are skipped unless nothing usable remains.
func signingKeys(ctx context.Context, raw []jwkset.JWKMarshal) (jwkset.Storage, int, error) {
	store := jwkset.NewMemoryStorage()
	var (
		count int
		errs  []error
	)
	for _, m := range raw {
		if m.KTY != jwkset.KtyRSA || m.KID == "" {
			continue
		}
		if m.USE != "" && m.USE != jwkset.UseSig {
			continue
		}
		jwk, err := jwkset.NewJWKFromMarshal(m, jwkset.JWKMarshalOptions{}, jwkset.JWKValidateOptions{})
		if err != nil {
			errs = append(errs, fmt.Errorf("%w %q: %w", ErrMalformedKey, m.KID, err))
			continue
		}
		if pub, ok := jwk.Key().(*rsa.PublicKey); !ok || pub.E < 3 || pub.N.Sign() <= 0 {
			errs = append(errs, fmt.Errorf("%w %q", ErrMalformedKey, m.KID))
			continue
		}
		if err := store.KeyWrite(ctx, jwk); err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrFetch, err)
		}
		count++
	}
	if count == 0 {
		return nil, 0, errors.Join(append([]error{ErrFetch, ErrNoKeys}, errs...)...)
	}
	return store, count, nil
}
