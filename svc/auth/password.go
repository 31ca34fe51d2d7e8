package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dmitrymomot/authcore/pkg/logger"
	"github.com/dmitrymomot/authcore/pkg/password"
	opaque "github.com/dmitrymomot/authcore/pkg/token"
	"github.com/dmitrymomot/authcore/svc/account"
)

// Register creates a password account and signs it in.
func (s *Service) Register(ctx context.Context, email, name, password string) (res *Result, err error) {
	ctx, end := s.trace(ctx, "Register")
	defer func() { end(err) }()

	email, err = normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	existing, err := findOptional(s.accounts.FindByEmail(ctx, email))
	if err != nil {
		return nil, storeError("find account by email", err)
	}
	if existing != nil {
		return nil, ErrAlreadyExists
	}
	if err := s.hasher.ValidateStrength(password); err != nil {
		return nil, weakPassword(err)
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, err
	}

	identity := &account.Identity{
		ID:           uuid.New(),
		Email:        email,
		Name:         displayName(name, email),
		PasswordHash: hash,
		Provider:     account.ProviderPassword,
	}
	if err := s.accounts.Create(ctx, identity); err != nil {
		if errors.Is(err, account.ErrAlreadyExists) {
			return nil, ErrAlreadyExists
		}
		return nil, storeError("create account", err)
	}

	s.logger.InfoContext(ctx, "account registered",
		logger.AccountID(identity.ID),
		logger.Provider(identity.Provider.String()),
	)
	s.emit(ctx, EventRegistered, Registered{
		AccountID:  identity.ID,
		Email:      identity.Email,
		Name:       identity.Name,
		Provider:   identity.Provider.String(),
		OccurredAt: s.now().UTC(),
	})

	return s.issue(ctx, identity)
}

// Login authenticates a password account. Unknown emails and wrong
// passwords return the same ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (res *Result, err error) {
	ctx, end := s.trace(ctx, "Login")
	defer func() { end(err) }()

	identity, err := findOptional(s.accounts.FindByEmail(ctx, account.NormalizeEmail(email)))
	if err != nil {
		return nil, storeError("find account by email", err)
	}
	if identity == nil {
		s.hasher.Compare(password, s.dummy())
		return nil, ErrInvalidCredentials
	}
	if identity.Provider != account.ProviderPassword {
		return nil, ErrWrongProvider
	}
	if !s.hasher.Compare(password, identity.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	s.loggedIn(ctx, identity)
	return s.issue(ctx, identity)
}

// ForgotPassword starts a password reset for email. It succeeds whether
// or not the account exists; only password accounts receive a token.
func (s *Service) ForgotPassword(ctx context.Context, email string) (err error) {
	ctx, end := s.trace(ctx, "ForgotPassword")
	defer func() { end(err) }()

	identity, err := findOptional(s.accounts.FindByEmail(ctx, account.NormalizeEmail(email)))
	if err != nil {
		return storeError("find account by email", err)
	}
	if identity == nil || identity.Provider != account.ProviderPassword {
		return nil
	}

	raw, err := s.tokens.GeneratePasswordResetToken()
	if err != nil {
		return fmt.Errorf("auth: generate reset token: %w", err)
	}
	hash := opaque.Hash(raw)
	expires := s.now().UTC().Add(s.resetTTL)

	if _, err := s.accounts.Update(ctx, identity.ID, account.Patch{
		ResetTokenHash: &hash,
		ResetExpiresAt: &expires,
	}); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil
		}
		return storeError("store reset token", err)
	}

	s.emit(ctx, EventPasswordResetRequested, PasswordResetRequested{
		AccountID:  identity.ID,
		Email:      identity.Email,
		Name:       identity.Name,
		Token:      raw,
		ExpiresAt:  expires,
		OccurredAt: s.now().UTC(),
	})
	return nil
}

// ResetPassword sets a new password using a reset token, then revokes every
// refresh token of the account.
func (s *Service) ResetPassword(ctx context.Context, resetToken, newPassword string) (err error) {
	ctx, end := s.trace(ctx, "ResetPassword")
	defer func() { end(err) }()

	if resetToken == "" {
		return ErrInvalidOrExpiredToken
	}
	hash := opaque.Hash(resetToken)
	identity, err := findOptional(s.accounts.FindByResetToken(ctx, hash))
	if err != nil {
		return storeError("find account by reset token", err)
	}
	if identity == nil || !identity.ResetTokenValid(hash, s.now()) {
		return ErrInvalidOrExpiredToken
	}
	if err := s.hasher.ValidateStrength(newPassword); err != nil {
		return weakPassword(err)
	}

	newHash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}
	// the lookup above only orders the errors; this write decides which
	// concurrent reset wins the token
	identity, err = s.accounts.ConsumeResetToken(ctx, hash, newHash, s.now())
	if errors.Is(err, account.ErrNotFound) {
		return ErrInvalidOrExpiredToken
	}
	if err != nil {
		return storeError("consume reset token", err)
	}
	if err := s.tokens.RevokeAllUserTokens(ctx, identity.ID); err != nil {
		return storeError("revoke sessions", err)
	}

	s.logger.InfoContext(ctx, "password reset", logger.AccountID(identity.ID))
	s.emit(ctx, EventPasswordResetCompleted, PasswordResetCompleted{
		AccountID:  identity.ID,
		Email:      identity.Email,
		OccurredAt: s.now().UTC(),
	})
	return nil
}

// ChangePassword replaces the password of a signed-in password account.
// Existing sessions stay valid, unlike ResetPassword.
func (s *Service) ChangePassword(ctx context.Context, accountID uuid.UUID, currentPassword, newPassword string) (err error) {
	ctx, end := s.trace(ctx, "ChangePassword", attribute.String("account.id", accountID.String()))
	defer func() { end(err) }()

	identity, err := s.accounts.FindByID(ctx, accountID)
	if errors.Is(err, account.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return storeError("find account", err)
	}
	if identity.Provider != account.ProviderPassword {
		return ErrNotAvailableForProvider
	}
	if !s.hasher.Compare(currentPassword, identity.PasswordHash) {
		return ErrCurrentPasswordIncorrect
	}
	if err := s.hasher.ValidateStrength(newPassword); err != nil {
		return weakPassword(err)
	}

	newHash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}
	if _, err := s.accounts.Update(ctx, identity.ID, account.Patch{PasswordHash: &newHash}); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ErrNotFound
		}
		return storeError("update password", err)
	}

	s.emit(ctx, EventPasswordChanged, PasswordChanged{
		AccountID:  identity.ID,
		Email:      identity.Email,
		OccurredAt: s.now().UTC(),
	})
	return nil
}

func (s *Service) hashPassword(plaintext string) (string, error) {
	hash, err := s.hasher.Hash(plaintext)
	if errors.Is(err, password.ErrTooLong) {
		return "", weakPassword(err)
	}
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return hash, nil
}
