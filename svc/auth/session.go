package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authcore/svc/account"
	"github.com/dmitrymomot/authcore/svc/token"
)

// RefreshToken exchanges a refresh token for a new pair. The presented
// token is revoked; replaying it fails with ErrInvalidRefreshToken.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (pair *token.Pair, err error) {
	ctx, end := s.trace(ctx, "RefreshToken")
	defer func() { end(err) }()

	accountID, err := s.tokens.RotateRefreshToken(ctx, refreshToken)
	if errors.Is(err, token.ErrInvalidRefreshToken) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, storeError("rotate refresh token", err)
	}

	identity, err := s.accounts.FindByID(ctx, accountID)
	if errors.Is(err, account.ErrNotFound) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, storeError("find account", err)
	}

	res, err := s.issue(ctx, identity)
	if err != nil {
		return nil, err
	}
	return res.Tokens, nil
}

// ValidateToken checks an access token and loads its account. Invalid
// tokens and deleted accounts yield Valid=false with a nil error.
func (s *Service) ValidateToken(ctx context.Context, accessToken string) (v *Validation, err error) {
	ctx, end := s.trace(ctx, "ValidateToken")
	defer func() { end(err) }()

	claims, err := s.tokens.ValidateAccessToken(accessToken)
	if err != nil {
		return &Validation{Valid: false}, nil
	}

	identity, err := s.accounts.FindByID(ctx, claims.AccountID)
	if errors.Is(err, account.ErrNotFound) {
		return &Validation{Valid: false}, nil
	}
	if err != nil {
		return nil, storeError("find account", err)
	}
	return &Validation{Valid: true, User: newUser(identity)}, nil
}

// Logout revokes refreshToken. Unknown or already revoked tokens succeed.
func (s *Service) Logout(ctx context.Context, refreshToken string) (err error) {
	ctx, end := s.trace(ctx, "Logout")
	defer func() { end(err) }()

	if err := s.tokens.RevokeRefreshToken(ctx, refreshToken); err != nil {
		return storeError("revoke refresh token", err)
	}
	return nil
}

// LogoutAll revokes every refresh token of accountID.
func (s *Service) LogoutAll(ctx context.Context, accountID uuid.UUID) (err error) {
	ctx, end := s.trace(ctx, "LogoutAll")
	defer func() { end(err) }()

	if err := s.tokens.RevokeAllUserTokens(ctx, accountID); err != nil {
		return storeError("revoke sessions", err)
	}
	return nil
}

// GetProfile returns the current account record.
func (s *Service) GetProfile(ctx context.Context, accountID uuid.UUID) (u *User, err error) {
	ctx, end := s.trace(ctx, "GetProfile")
	defer func() { end(err) }()

	identity, err := s.accounts.FindByID(ctx, accountID)
	if errors.Is(err, account.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeError("find account", err)
	}
	return newUser(identity), nil
}
