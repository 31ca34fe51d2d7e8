package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dmitrymomot/authcore/pkg/federated"
	"github.com/dmitrymomot/authcore/pkg/logger"
	"github.com/dmitrymomot/authcore/svc/account"
)

// appleRelayDomain hosts placeholder addresses for Apple users who did not share an email.
const appleRelayDomain = "privaterelay.appleid.com"

// FederatedAuth signs in with a provider identity token, creating the
// account on first use. An email already owned by another identity is a
// conflict; accounts are never merged.
func (s *Service) FederatedAuth(ctx context.Context, provider account.Provider, rawToken string, profile Profile) (res *Result, err error) {
	ctx, end := s.trace(ctx, "FederatedAuth", attribute.String("auth.provider", provider.String()))
	defer func() { end(err) }()

	verifier, ok := s.verifiers[provider]
	if !ok {
		return nil, ErrUnsupportedProvider
	}

	info, err := verifier.Verify(ctx, rawToken)
	if err != nil {
		if errors.Is(err, federated.ErrInvalidToken) {
			return nil, ErrInvalidProviderToken
		}
		s.logger.ErrorContext(ctx, "provider token verification failed",
			logger.Provider(provider.String()),
			logger.Error(err),
		)
		return nil, providerError(provider.String(), err)
	}
	if info.Subject == "" {
		return nil, ErrInvalidProviderToken
	}
	if provider == account.ProviderGoogle && !info.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	email := account.NormalizeEmail(info.Email)
	if email == "" {
		if provider != account.ProviderApple {
			return nil, ErrInvalidProviderToken
		}
		email = strings.ToLower(info.Subject) + "@" + appleRelayDomain
	}

	identity, err := findOptional(s.accounts.FindByProvider(ctx, provider, info.Subject))
	if err != nil {
		return nil, storeError("find account by provider", err)
	}

	if identity == nil {
		identity, err = s.createFederated(ctx, provider, info.Subject, email, profile)
		if err != nil {
			return nil, err
		}
	}

	s.loggedIn(ctx, identity)
	return s.issue(ctx, identity)
}

func (s *Service) createFederated(ctx context.Context, provider account.Provider, subject, email string, profile Profile) (*account.Identity, error) {
	taken, err := findOptional(s.accounts.FindByEmail(ctx, email))
	if err != nil {
		return nil, storeError("find account by email", err)
	}
	if taken != nil && taken.Provider == provider && taken.ProviderID == subject {
		// created by a concurrent sign-in since the provider lookup
		return taken, nil
	}
	if taken != nil {
		s.logger.InfoContext(ctx, "federated sign-in conflicts with existing account",
			logger.Provider(provider.String()),
			logger.AccountID(taken.ID),
		)
		return nil, ErrProviderConflict
	}

	identity := &account.Identity{
		ID:         uuid.New(),
		Email:      email,
		Name:       displayName(profile.FirstName+" "+profile.LastName, email),
		Provider:   provider,
		ProviderID: subject,
	}
	if err := s.accounts.Create(ctx, identity); err != nil {
		if !errors.Is(err, account.ErrAlreadyExists) {
			return nil, storeError("create account", err)
		}
		// a concurrent sign-in with the same subject may have won the insert
		existing, ferr := findOptional(s.accounts.FindByProvider(ctx, provider, subject))
		if ferr != nil {
			return nil, storeError("find account by provider", ferr)
		}
		if existing == nil {
			return nil, ErrProviderConflict
		}
		return existing, nil
	}

	s.logger.InfoContext(ctx, "account registered",
		logger.AccountID(identity.ID),
		logger.Provider(provider.String()),
	)
	s.emit(ctx, EventRegistered, Registered{
		AccountID:  identity.ID,
		Email:      identity.Email,
		Name:       identity.Name,
		Provider:   provider.String(),
		OccurredAt: s.now().UTC(),
	})
	return identity, nil
}
