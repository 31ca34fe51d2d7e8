package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/authcore/svc/token"
)

// DefaultKeyPrefix namespaces every key written by TokenStore.
const DefaultKeyPrefix = "authcore:"

const (
	fieldAccount = "account_id"
	fieldExpires = "expires_at"
	fieldRevoked = "revoked"
	fieldCreated = "created_at"
)

// revokeScript flips the revoked flag of a usable token.
// KEYS[1] token key; ARGV[1] now in unix ms. Returns 1 when it changed the token.
var revokeScript = redis.NewScript(`
local exp = redis.call('HGET', KEYS[1], 'expires_at')
if not exp then return 0 end
if redis.call('HGET', KEYS[1], 'revoked') == '1' then return 0 end
if tonumber(exp) <= tonumber(ARGV[1]) then return 0 end
redis.call('HSET', KEYS[1], 'revoked', '1')
return 1
`)

// revokeAllScript revokes every live token in a user index and prunes
// entries whose token key has already expired.
// KEYS[1] user index; ARGV[1] token key prefix.
var revokeAllScript = redis.NewScript(`
local hashes = redis.call('SMEMBERS', KEYS[1])
local n = 0
for _, h in ipairs(hashes) do
  local k = ARGV[1] .. h
  if redis.call('EXISTS', k) == 1 then
    redis.call('HSET', k, 'revoked', '1')
    n = n + 1
  else
    redis.call('SREM', KEYS[1], h)
  end
end
return n
`)

// TokenStore implements token.Store on Redis. Each token is a hash that
// expires with the token, so DeleteExpired has nothing to do and tokens
// created already expired are not stored. A set per
// account indexes its tokens for RevokeAllForUser.
//
// The scripts touch keys they compute at run time, so the store expects a
// single node or a cluster where the prefix pins keys to one slot.
type TokenStore struct {
	client redis.UniversalClient
	prefix string
}

var _ token.Store = (*TokenStore)(nil)

type Option func(*TokenStore)

// WithKeyPrefix replaces DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *TokenStore) {
		s.prefix = prefix
	}
}

func NewTokenStore(client redis.UniversalClient, opts ...Option) *TokenStore {
	s := &TokenStore{client: client, prefix: DefaultKeyPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TokenStore) tokenPrefix() string {
	return s.prefix + "rt:"
}

func (s *TokenStore) tokenKey(hash string) string {
	return s.tokenPrefix() + hash
}

func (s *TokenStore) userKey(accountID uuid.UUID) string {
	return s.prefix + "rt:user:" + accountID.String()
}

func (s *TokenStore) Create(ctx context.Context, t *token.RefreshToken) error {
	if t == nil || t.TokenHash == "" {
		return token.ErrInvalidRecord
	}
	ttl := lifetime(t)
	if ttl <= 0 {
		// nothing to keep; make sure a stale record does not linger
		if err := s.client.Del(ctx, s.tokenKey(t.TokenHash)).Err(); err != nil {
			return fmt.Errorf("redis: create refresh token: %w", err)
		}
		return nil
	}
	key := s.tokenKey(t.TokenHash)
	userKey := s.userKey(t.AccountID)

	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key,
			fieldAccount, t.AccountID.String(),
			fieldExpires, t.ExpiresAt.UnixMilli(),
			fieldRevoked, boolFlag(t.Revoked),
			fieldCreated, t.CreatedAt.UnixMilli(),
		)
		p.PExpireAt(ctx, key, t.ExpiresAt)
		p.SAdd(ctx, userKey, t.TokenHash)
		// the index outlives its longest-lived token (Redis 7+)
		p.ExpireNX(ctx, userKey, ttl)
		p.ExpireGT(ctx, userKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: create refresh token: %w", err)
	}
	return nil
}

// lifetime is the span the caller's clock gave the token. It bounds the
// user index TTL; the token key itself expires at ExpiresAt.
func lifetime(t *token.RefreshToken) time.Duration {
	return t.ExpiresAt.Sub(t.CreatedAt)
}

func (s *TokenStore) FindByToken(ctx context.Context, tokenHash string) (*token.RefreshToken, error) {
	fields, err := s.client.HGetAll(ctx, s.tokenKey(tokenHash)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: find refresh token: %w", err)
	}
	if len(fields) == 0 {
		return nil, token.ErrNotFound
	}
	t, err := decode(tokenHash, fields)
	if err != nil {
		return nil, fmt.Errorf("redis: decode refresh token %s: %w", tokenHash, err)
	}
	return t, nil
}

func (s *TokenStore) Delete(ctx context.Context, tokenHash string) error {
	key := s.tokenKey(tokenHash)
	owner, err := s.client.HGet(ctx, key, fieldAccount).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis: delete refresh token: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		if id, perr := uuid.Parse(owner); perr == nil {
			p.SRem(ctx, s.userKey(id), tokenHash)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: delete refresh token: %w", err)
	}
	return nil
}

func (s *TokenStore) Revoke(ctx context.Context, tokenHash string, now time.Time) (bool, error) {
	n, err := revokeScript.Run(ctx, s.client, []string{s.tokenKey(tokenHash)}, now.UnixMilli()).Int()
	if err != nil {
		return false, fmt.Errorf("redis: revoke refresh token: %w", err)
	}
	return n == 1, nil
}

func (s *TokenStore) RevokeAllForUser(ctx context.Context, accountID uuid.UUID) error {
	if err := revokeAllScript.Run(ctx, s.client, []string{s.userKey(accountID)}, s.tokenPrefix()).Err(); err != nil {
		return fmt.Errorf("redis: revoke refresh tokens: %w", err)
	}
	return nil
}

// DeleteExpired always reports zero: Redis drops token keys on expiry.
func (s *TokenStore) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func decode(hash string, fields map[string]string) (*token.RefreshToken, error) {
	id, err := uuid.Parse(fields[fieldAccount])
	if err != nil {
		return nil, err
	}
	expires, err := strconv.ParseInt(fields[fieldExpires], 10, 64)
	if err != nil {
		return nil, err
	}
	created, err := strconv.ParseInt(fields[fieldCreated], 10, 64)
	if err != nil {
		return nil, err
	}
	return &token.RefreshToken{
		TokenHash: hash,
		AccountID: id,
		ExpiresAt: time.UnixMilli(expires).UTC(),
		Revoked:   fields[fieldRevoked] == "1",
		CreatedAt: time.UnixMilli(created).UTC(),
	}, nil
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
