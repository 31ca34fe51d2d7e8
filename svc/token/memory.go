package token

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a Store backed by a map guarded by a mutex.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]*RefreshToken
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]*RefreshToken)}
}

func (m *MemoryStore) Create(_ context.Context, t *RefreshToken) error {
	if t == nil || t.TokenHash == "" {
		return ErrInvalidRecord
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tokens[t.TokenHash] = &cp
	return nil
}

func (m *MemoryStore) FindByToken(_ context.Context, tokenHash string) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[tokenHash]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryStore) Delete(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, tokenHash)
	return nil
}

func (m *MemoryStore) Revoke(_ context.Context, tokenHash string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[tokenHash]
	if !ok || !t.Usable(now) {
		return false, nil
	}
	t.Revoked = true
	return true, nil
}

func (m *MemoryStore) RevokeAllForUser(_ context.Context, accountID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.AccountID == accountID {
			t.Revoked = true
		}
	}
	return nil
}

func (m *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for hash, t := range m.tokens {
		if t.ExpiresAt.Before(now) {
			delete(m.tokens, hash)
			n++
		}
	}
	return n, nil
}
