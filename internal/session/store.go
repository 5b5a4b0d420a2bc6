// Package session owns the gateway's client-side session: the persisted
// token, role and principal id behind each session cookie.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"healthcare-portal/internal/models"
)

// ErrNotFound is returned by stores for an unknown session id.
var ErrNotFound = errors.New("session not found")

// Store persists sessions by opaque id. Save must write all fields of the
// session at once.
type Store interface {
	Load(ctx context.Context, id string) (models.Session, error)
	Save(ctx context.Context, id string, s models.Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	session   models.Session
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryStore) Load(_ context.Context, id string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return models.Session{}, ErrNotFound
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, id)
		return models.Session{}, ErrNotFound
	}
	return e.session, nil
}

func (m *MemoryStore) Save(_ context.Context, id string, s models.Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memoryEntry{session: s}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[id] = e
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}
