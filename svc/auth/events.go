package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event names passed to EventSink.Emit.
const (
	EventRegistered             = "auth.registered"
	EventLoggedIn               = "auth.logged_in"
	EventPasswordResetRequested = "auth.password_reset_requested"
	EventPasswordResetCompleted = "auth.password_reset_completed"
	EventPasswordChanged        = "auth.password_changed"
)

// EventSink receives domain events. Emission failures are logged and
// never fail the operation that produced the event.
type EventSink interface {
	Emit(ctx context.Context, name string, payload any) error
}

type Registered struct {
	AccountID  uuid.UUID `json:"account_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Provider   string    `json:"provider"`
	OccurredAt time.Time `json:"occurred_at"`
}

type LoggedIn struct {
	AccountID  uuid.UUID `json:"account_id"`
	Email      string    `json:"email"`
	Provider   string    `json:"provider"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PasswordResetRequested carries the raw reset token for delivery by email.
// It is the only place the raw token leaves the service.
type PasswordResetRequested struct {
	AccountID  uuid.UUID `json:"account_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
	OccurredAt time.Time `json:"occurred_at"`
}

type PasswordResetCompleted struct {
	AccountID  uuid.UUID `json:"account_id"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurred_at"`
}

type PasswordChanged struct {
	AccountID  uuid.UUID `json:"account_id"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventKey partitions events by account.
func (e Registered) EventKey() string             { return e.AccountID.String() }
func (e LoggedIn) EventKey() string               { return e.AccountID.String() }
func (e PasswordResetRequested) EventKey() string { return e.AccountID.String() }
func (e PasswordResetCompleted) EventKey() string { return e.AccountID.String() }
func (e PasswordChanged) EventKey() string        { return e.AccountID.String() }

type discardSink struct{}

func (discardSink) Emit(context.Context, string, any) error { return nil }
