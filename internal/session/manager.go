package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"healthcare-portal/internal/models"
)

// ErrIncompletePrincipal is returned by Set when token, role or id is missing.
var ErrIncompletePrincipal = errors.New("principal requires token, role and id")

// InvalidateFunc is called after a session has been cleared. reason is nil
// for an explicit logout.
type InvalidateFunc func(ctx context.Context, id string, reason error)

// Manager is the single access point for session state.
type Manager struct {
	store Store
	ttl   time.Duration
	log   zerolog.Logger

	mu          sync.RWMutex
	subscribers []InvalidateFunc
}

// NewManager creates a Manager over store. A zero ttl keeps sessions until
// they are cleared.
func NewManager(store Store, ttl time.Duration, log zerolog.Logger) *Manager {
	return &Manager{store: store, ttl: ttl, log: log.With().Str("component", "session").Logger()}
}

// NewID returns a fresh opaque session identifier.
func (m *Manager) NewID() string {
	return uuid.NewString()
}

// Get returns the persisted session. Unknown ids yield the empty session.
func (m *Manager) Get(ctx context.Context, id string) (models.Session, error) {
	if id == "" {
		return models.Session{}, nil
	}
	s, err := m.store.Load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return models.Session{}, nil
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("load session: %w", err)
	}
	return s, nil
}

// Set stores p under id. Either all three fields are written or none.
func (m *Manager) Set(ctx context.Context, id string, p models.Principal) error {
	if id == "" || !p.Complete() {
		return ErrIncompletePrincipal
	}
	if err := m.store.Save(ctx, id, models.SessionFromPrincipal(p), m.ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	m.log.Info().Str("role", string(p.Role)).Int64("principal_id", p.ID).Msg("session established")
	return nil
}

// Clear removes every field of the session and notifies subscribers.
func (m *Manager) Clear(ctx context.Context, id string, reason error) error {
	if id == "" {
		return nil
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	if reason != nil {
		m.log.Warn().AnErr("reason", reason).Msg("session invalidated")
	} else {
		m.log.Info().Str("state", string(models.StateLoggedOut)).Msg("session cleared")
	}

	m.mu.RLock()
	subs := append([]InvalidateFunc(nil), m.subscribers...)
	m.mu.RUnlock()
	for _, fn := range subs {
		fn(ctx, id, reason)
	}
	return nil
}

// Subscribe registers fn to run after every Clear.
func (m *Manager) Subscribe(fn InvalidateFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

type contextKey struct{}

// WithID returns a context carrying the session id of the current request.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IDFromContext returns the session id stored by WithID.
func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}
