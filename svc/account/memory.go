package account

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type providerKey struct {
	provider Provider
	id       string
}

// MemoryRepository is a Repository backed by maps.
// It is safe for concurrent use and intended for tests and single-process setups.
type MemoryRepository struct {
	mu         sync.RWMutex
	byID       map[uuid.UUID]*Identity
	byEmail    map[string]uuid.UUID
	byProvider map[providerKey]uuid.UUID
	now        func() time.Time
}

var _ Repository = (*MemoryRepository)(nil)

// MemoryOption configures a MemoryRepository.
type MemoryOption func(*MemoryRepository)

// WithMemoryClock overrides the time source for timestamps.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(r *MemoryRepository) {
		if now != nil {
			r.now = now
		}
	}
}

func NewMemoryRepository(opts ...MemoryOption) *MemoryRepository {
	r := &MemoryRepository{
		byID:       make(map[uuid.UUID]*Identity),
		byEmail:    make(map[string]uuid.UUID),
		byProvider: make(map[providerKey]uuid.UUID),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *MemoryRepository) Create(_ context.Context, identity *Identity) error {
	if err := identity.Validate(); err != nil {
		return err
	}

	stored := identity.Clone()
	stored.Email = NormalizeEmail(stored.Email)
	now := r.now().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[stored.ID]; ok {
		return ErrAlreadyExists
	}
	if _, ok := r.byEmail[stored.Email]; ok {
		return ErrAlreadyExists
	}
	pk := providerKey{stored.Provider, stored.ProviderID}
	if stored.ProviderID != "" {
		if _, ok := r.byProvider[pk]; ok {
			return ErrAlreadyExists
		}
		r.byProvider[pk] = stored.ID
	}
	r.byID[stored.ID] = stored
	r.byEmail[stored.Email] = stored.ID

	identity.Email = stored.Email
	identity.CreatedAt = stored.CreatedAt
	identity.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id uuid.UUID) (*Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(id)
}

func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (*Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return r.get(id)
}

func (r *MemoryRepository) FindByProvider(_ context.Context, provider Provider, providerID string) (*Identity, error) {
	if providerID == "" {
		return nil, ErrNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byProvider[providerKey{provider, providerID}]
	if !ok {
		return nil, ErrNotFound
	}
	return r.get(id)
}

func (r *MemoryRepository) FindByResetToken(_ context.Context, tokenHash string) (*Identity, error) {
	if tokenHash == "" {
		return nil, ErrNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, identity := range r.byID {
		if identity.ResetTokenHash == tokenHash {
			return identity.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) Update(_ context.Context, id uuid.UUID, patch Patch) (*Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}

	next := current.Clone()
	patch.Apply(next, r.now().UTC())

	if next.Email != current.Email {
		if next.Email == "" {
			return nil, invalid("email is required")
		}
		if _, taken := r.byEmail[next.Email]; taken {
			return nil, ErrAlreadyExists
		}
		delete(r.byEmail, current.Email)
		r.byEmail[next.Email] = id
	}
	r.byID[id] = next
	return next.Clone(), nil
}

func (r *MemoryRepository) ConsumeResetToken(_ context.Context, tokenHash, passwordHash string, now time.Time) (*Identity, error) {
	if tokenHash == "" {
		return nil, ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, identity := range r.byID {
		if !identity.ResetTokenValid(tokenHash, now) {
			continue
		}
		next := identity.Clone()
		Patch{PasswordHash: &passwordHash, ClearResetToken: true}.Apply(next, r.now().UTC())
		r.byID[id] = next
		return next.Clone(), nil
	}
	return nil, ErrNotFound
}

// Must be called with lock held.
func (r *MemoryRepository) get(id uuid.UUID) (*Identity, error) {
	identity, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return identity.Clone(), nil
}
