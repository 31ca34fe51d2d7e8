package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"

	"github.com/dmitrymomot/authcore/pkg/federated"
	"github.com/dmitrymomot/authcore/pkg/logger"
	"github.com/dmitrymomot/authcore/svc/account"
	"github.com/dmitrymomot/authcore/svc/token"
)

const tracerName = "github.com/dmitrymomot/authcore/svc/auth"

// TokenService issues and manages credentials.
type TokenService interface {
	GenerateTokenPair(ctx context.Context, c token.Claims) (*token.Pair, error)
	ValidateAccessToken(raw string) (*token.Claims, error)
	RotateRefreshToken(ctx context.Context, raw string) (uuid.UUID, error)
	RevokeRefreshToken(ctx context.Context, raw string) error
	RevokeAllUserTokens(ctx context.Context, accountID uuid.UUID) error
	GeneratePasswordResetToken() (string, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Compare(plaintext, hash string) bool
	ValidateStrength(plaintext string) error
}

var _ TokenService = (*token.Service)(nil)

// Service orchestrates registration, sign-in and credential management
// across password and federated providers.
type Service struct {
	accounts  account.Repository
	tokens    TokenService
	hasher    PasswordHasher
	events    EventSink
	verifiers map[account.Provider]federated.Verifier

	resetTTL     time.Duration
	eventTimeout time.Duration
	now          func() time.Time
	logger       *slog.Logger
	tracer       trace.Tracer

	dummyOnce sync.Once
	dummyHash string
}

// Option configures a Service.
type Option func(*Service)

// WithVerifier enables FederatedAuth for provider.
func WithVerifier(provider account.Provider, v federated.Verifier) Option {
	return func(s *Service) {
		if v != nil && provider.Federated() {
			s.verifiers[provider] = v
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

// WithResetTTL sets the password reset token lifetime.
func WithResetTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.resetTTL = ttl
		}
	}
}

// WithEventTimeout bounds how long an operation waits on the event sink.
func WithEventTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.eventTimeout = d
		}
	}
}

// WithConfig applies cfg.
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		WithResetTTL(cfg.ResetTTL)(s)
		WithEventTimeout(cfg.EventTimeout)(s)
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewService wires the orchestrator. A nil sink discards events.
func NewService(accounts account.Repository, tokens TokenService, hasher PasswordHasher, sink EventSink, opts ...Option) *Service {
	if sink == nil {
		sink = discardSink{}
	}
	s := &Service{
		accounts:     accounts,
		tokens:       tokens,
		hasher:       hasher,
		events:       sink,
		verifiers:    make(map[account.Provider]federated.Verifier),
		resetTTL:     DefaultResetTTL,
		eventTimeout: DefaultEventTimeout,
		now:          time.Now,
		logger:       logger.Noop(),
		tracer:       otel.GetTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("auth"))
	return s
}

// trace starts a span for op; the returned func ends it and records err.
func (s *Service) trace(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := s.tracer.Start(ctx, "auth."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			if !IsDomainError(err) {
				span.SetStatus(codes.Error, err.Error())
			}
		}
		span.End()
	}
}

// emit delivers an event without failing the operation. The sink gets the
// caller's values but its own deadline, so a cancelled request still emits
// and a stalled broker delays the operation by eventTimeout at most.
func (s *Service) emit(ctx context.Context, name string, payload any) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.eventTimeout)
	defer cancel()
	if err := s.events.Emit(ctx, name, payload); err != nil {
		s.logger.WarnContext(ctx, "event emission failed",
			logger.Event(name),
			logger.Error(err),
		)
	}
}

// issue creates a token pair for identity.
func (s *Service) issue(ctx context.Context, identity *account.Identity) (*Result, error) {
	pair, err := s.tokens.GenerateTokenPair(ctx, token.Claims{
		AccountID: identity.ID,
		Email:     identity.Email,
		Name:      identity.Name,
		Provider:  identity.Provider.String(),
	})
	if err != nil {
		return nil, storeError("issue tokens", err)
	}
	return &Result{User: newUser(identity), Tokens: pair}, nil
}

func (s *Service) loggedIn(ctx context.Context, identity *account.Identity) {
	s.emit(ctx, EventLoggedIn, LoggedIn{
		AccountID:  identity.ID,
		Email:      identity.Email,
		Provider:   identity.Provider.String(),
		OccurredAt: s.now().UTC(),
	})
}

// dummy returns a hash compared against on unknown emails so that Login
// costs one bcrypt comparison whether or not the account exists.
func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash(uuid.NewString())
		if err != nil {
			s.logger.Error("failed to prepare dummy password hash", logger.Error(err))
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

// findOptional maps account.ErrNotFound to (nil, nil).
func findOptional(identity *account.Identity, err error) (*account.Identity, error) {
	if errors.Is(err, account.ErrNotFound) {
		return nil, nil
	}
	return identity, err
}

func normalizeEmail(raw string) (string, error) {
	email := account.NormalizeEmail(raw)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// displayName returns NFC-normalized name, falling back to the email
// local part and finally to "User".
func displayName(name, email string) string {
	name = norm.NFC.String(strings.Join(strings.Fields(name), " "))
	if name != "" {
		return name
	}
	if local, _, ok := strings.Cut(email, "@"); ok && local != "" {
		return local
	}
	return "User"
}
