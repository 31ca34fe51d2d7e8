package auth_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/authcore/pkg/events"
	"github.com/dmitrymomot/authcore/pkg/federated"
	"github.com/dmitrymomot/authcore/pkg/password"
	"github.com/dmitrymomot/authcore/svc/account"
	"github.com/dmitrymomot/authcore/svc/auth"
	"github.com/dmitrymomot/authcore/svc/token"
)

const strongPassword = "Password123"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeVerifier resolves tokens from a fixed table. Unknown tokens are invalid.
type fakeVerifier struct {
	mu     sync.Mutex
	tokens map[string]federated.UserInfo
	err    error
}

func newFakeVerifier() *fakeVerifier {
	return &fakeVerifier{tokens: make(map[string]federated.UserInfo)}
}

func (v *fakeVerifier) Add(raw string, info federated.UserInfo) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tokens[raw] = info
}

func (v *fakeVerifier) FailWith(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.err = err
}

func (v *fakeVerifier) Verify(_ context.Context, raw string) (*federated.UserInfo, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err != nil {
		return nil, v.err
	}
	info, ok := v.tokens[raw]
	if !ok {
		return nil, fmt.Errorf("%w: unknown token", federated.ErrInvalidToken)
	}
	return &info, nil
}

type harness struct {
	svc      *auth.Service
	accounts *account.MemoryRepository
	store    *token.MemoryStore
	tokens   *token.Service
	events   *events.Recorder
	clock    *clock
	google   *fakeVerifier
	apple    *fakeVerifier
}

func newHarness(t *testing.T, opts ...auth.Option) *harness {
	t.Helper()

	h := &harness{
		accounts: nil,
		store:    token.NewMemoryStore(),
		events:   events.NewRecorder(),
		clock:    &clock{now: time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)},
		google:   newFakeVerifier(),
		apple:    newFakeVerifier(),
	}
	h.accounts = account.NewMemoryRepository(account.WithMemoryClock(h.clock.Now))

	tokens, err := token.NewService(h.store, token.Config{SigningKey: "auth-test-key"}, token.WithClock(h.clock.Now))
	require.NoError(t, err)
	h.tokens = tokens

	base := []auth.Option{
		auth.WithClock(h.clock.Now),
		auth.WithVerifier(account.ProviderGoogle, h.google),
		auth.WithVerifier(account.ProviderApple, h.apple),
	}
	h.svc = auth.NewService(
		h.accounts,
		tokens,
		password.NewHasher(password.Config{Cost: bcrypt.MinCost}),
		h.events,
		append(base, opts...)...,
	)
	return h
}

func (h *harness) register(t *testing.T, email string) *auth.Result {
	t.Helper()
	res, err := h.svc.Register(context.Background(), email, "Test User", strongPassword)
	require.NoError(t, err)
	return res
}

// resetToken returns the raw token carried by the last reset request event.
func (h *harness) resetToken(t *testing.T) string {
	t.Helper()
	payloads := h.events.Filter(auth.EventPasswordResetRequested)
	require.NotEmpty(t, payloads)
	ev, ok := payloads[len(payloads)-1].(auth.PasswordResetRequested)
	require.True(t, ok)
	return ev.Token
}

func TestEmit_StalledSink(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		causes []error
	)
	stalled := events.SinkFunc(func(ctx context.Context, _ string, _ any) error {
		<-ctx.Done()
		mu.Lock()
		causes = append(causes, ctx.Err())
		mu.Unlock()
		return ctx.Err()
	})

	tokens, err := token.NewService(token.NewMemoryStore(), token.Config{SigningKey: "auth-test-key"})
	require.NoError(t, err)
	svc := auth.NewService(
		account.NewMemoryRepository(),
		tokens,
		password.NewHasher(password.Config{Cost: bcrypt.MinCost}),
		stalled,
		auth.WithConfig(auth.Config{EventTimeout: 20 * time.Millisecond}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	res, err := svc.Register(ctx, "stalled@example.com", "Stalled", strongPassword)
	cancel()
	require.NoError(t, err, "a stalled sink does not fail the operation")
	require.NotNil(t, res)
	require.Less(t, time.Since(start), time.Second)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, causes, 1)
	for _, cause := range causes {
		require.ErrorIs(t, cause, context.DeadlineExceeded)
	}
}
