package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authcore/pkg/jwt"
	"github.com/dmitrymomot/authcore/pkg/logger"
	opaque "github.com/dmitrymomot/authcore/pkg/token"
)

type accessClaims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// Service issues, validates, rotates and revokes credentials.
type Service struct {
	store  Store
	signer *jwt.Service
	cfg    Config
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a token Service. Zero lifetimes fall back to
// 15 minutes for access tokens and 7 days for refresh tokens.
func NewService(store Store, cfg Config, opts ...Option) (*Service, error) {
	if cfg.SigningKey == "" {
		return nil, ErrMissingSigningKey
	}
	s := &Service{
		store:  store,
		cfg:    cfg.withDefaults(),
		now:    time.Now,
		logger: logger.Noop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	signer, err := jwt.NewFromString(cfg.SigningKey,
		jwt.WithClock(s.now),
		jwt.WithIssuer(s.cfg.Issuer),
	)
	if err != nil {
		return nil, errors.Join(ErrMissingSigningKey, err)
	}
	s.signer = signer
	return s, nil
}

// GenerateTokenPair signs an access token for c and persists a new refresh token.
func (s *Service) GenerateTokenPair(ctx context.Context, c Claims) (*Pair, error) {
	now := s.now()

	access, err := s.signer.Generate(&accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   c.AccountID.String(),
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
		},
		Email:    c.Email,
		Name:     c.Name,
		Provider: c.Provider,
	})
	if err != nil {
		return nil, errors.Join(ErrSigning, err)
	}

	refresh, err := opaque.Generate()
	if err != nil {
		return nil, fmt.Errorf("token: generate refresh token: %w", err)
	}
	if err := s.store.Create(ctx, &RefreshToken{
		TokenHash: opaque.Hash(refresh),
		AccountID: c.AccountID,
		ExpiresAt: now.Add(s.cfg.RefreshTTL),
		CreatedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("token: store refresh token: %w", err)
	}

	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.cfg.AccessTTL / time.Second),
		TokenType:    "Bearer",
	}, nil
}

// ValidateAccessToken verifies signature and expiry. Every failure is
// reported as ErrInvalidAccessToken.
func (s *Service) ValidateAccessToken(raw string) (*Claims, error) {
	var ac accessClaims
	if err := s.signer.Parse(raw, &ac); err != nil {
		return nil, errors.Join(ErrInvalidAccessToken, err)
	}
	id, err := uuid.Parse(ac.Subject)
	if err != nil {
		return nil, errors.Join(ErrInvalidAccessToken, err)
	}
	c := &Claims{
		AccountID: id,
		Email:     ac.Email,
		Name:      ac.Name,
		Provider:  ac.Provider,
	}
	if ac.IssuedAt != nil {
		c.IssuedAt = ac.IssuedAt.Time
	}
	if ac.ExpiresAt != nil {
		c.ExpiresAt = ac.ExpiresAt.Time
	}
	return c, nil
}

// ValidateRefreshToken returns the owner of a usable refresh token.
// Expired tokens are deleted; revoked tokens are kept.
func (s *Service) ValidateRefreshToken(ctx context.Context, raw string) (uuid.UUID, error) {
	rt, err := s.lookup(ctx, raw)
	if err != nil {
		return uuid.Nil, err
	}
	return rt.AccountID, nil
}

// RotateRefreshToken validates raw and revokes it in one conditional store
// write. Of several concurrent rotations of the same token exactly one
// succeeds; the others get ErrInvalidRefreshToken.
func (s *Service) RotateRefreshToken(ctx context.Context, raw string) (uuid.UUID, error) {
	rt, err := s.lookup(ctx, raw)
	if err != nil {
		return uuid.Nil, err
	}
	revoked, err := s.store.Revoke(ctx, rt.TokenHash, s.now())
	if err != nil {
		return uuid.Nil, fmt.Errorf("token: revoke refresh token: %w", err)
	}
	if !revoked {
		return uuid.Nil, ErrInvalidRefreshToken
	}
	return rt.AccountID, nil
}

// RevokeRefreshToken revokes raw. Unknown, expired or already revoked
// tokens are not an error.
func (s *Service) RevokeRefreshToken(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	if _, err := s.store.Revoke(ctx, opaque.Hash(raw), s.now()); err != nil {
		return fmt.Errorf("token: revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAllUserTokens revokes every refresh token of accountID.
func (s *Service) RevokeAllUserTokens(ctx context.Context, accountID uuid.UUID) error {
	if err := s.store.RevokeAllForUser(ctx, accountID); err != nil {
		return fmt.Errorf("token: revoke all refresh tokens: %w", err)
	}
	return nil
}

// GeneratePasswordResetToken returns a new opaque reset token.
func (s *Service) GeneratePasswordResetToken() (string, error) {
	raw, err := opaque.Generate()
	if err != nil {
		return "", fmt.Errorf("token: generate reset token: %w", err)
	}
	return raw, nil
}

func (s *Service) lookup(ctx context.Context, raw string) (*RefreshToken, error) {
	if raw == "" {
		return nil, ErrInvalidRefreshToken
	}
	hash := opaque.Hash(raw)
	rt, err := s.store.FindByToken(ctx, hash)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, fmt.Errorf("token: find refresh token: %w", err)
	}

	now := s.now()
	if !now.Before(rt.ExpiresAt) {
		if err := s.store.Delete(ctx, hash); err != nil {
			s.logger.WarnContext(ctx, "failed to delete expired refresh token",
				logger.AccountID(rt.AccountID),
				logger.Error(err),
			)
		}
		return nil, ErrInvalidRefreshToken
	}
	if rt.Revoked {
		return nil, ErrInvalidRefreshToken
	}
	return rt, nil
}
