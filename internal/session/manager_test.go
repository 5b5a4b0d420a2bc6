package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthcare-portal/internal/models"
)

func newTestManager() (*Manager, *MemoryStore) {
	store := NewMemoryStore()
	return NewManager(store, time.Hour, zerolog.Nop()), store
}

func TestManagerSetGetClear(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()
	id := m.NewID()

	s, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, s.Authenticated())

	p := models.Principal{Token: "tok", Role: models.RolePatient, ID: 3}
	require.NoError(t, m.Set(ctx, id, p))

	s, err = m.Get(ctx, id)
	require.NoError(t, err)
	got, ok := s.Principal()
	require.True(t, ok)
	assert.Equal(t, p, got)

	var notified []error
	m.Subscribe(func(_ context.Context, sid string, reason error) {
		assert.Equal(t, id, sid)
		notified = append(notified, reason)
	})
	require.NoError(t, m.Clear(ctx, id, nil))

	s, err = m.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.Session{}, s)
	assert.Equal(t, []error{nil}, notified)
}

func TestManagerSetIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager()

	incomplete := []models.Principal{
		{Role: models.RoleDoctor, ID: 1},
		{Token: "tok", Role: "NURSE", ID: 1},
		{Token: "tok", Role: models.RoleDoctor},
	}
	for _, p := range incomplete {
		assert.ErrorIs(t, m.Set(ctx, "sid", p), ErrIncompletePrincipal)
	}
	_, err := store.Load(ctx, "sid")
	assert.ErrorIs(t, err, ErrNotFound)
}

type failingStore struct{ MemoryStore }

func (f *failingStore) Load(context.Context, string) (models.Session, error) {
	return models.Session{}, errors.New("connection refused")
}

func TestManagerSurfacesStoreErrors(t *testing.T) {
	m := NewManager(&failingStore{}, 0, zerolog.Nop())
	_, err := m.Get(context.Background(), "sid")
	assert.ErrorContains(t, err, "connection refused")
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, "sid", models.Session{Token: "t", Role: "ADMIN", PrincipalID: 1}, time.Minute))
	_, err := store.Load(ctx, "sid")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = store.Load(ctx, "sid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContextID(t *testing.T) {
	_, ok := IDFromContext(context.Background())
	assert.False(t, ok)
	id, ok := IDFromContext(WithID(context.Background(), "abc"))
	assert.True(t, ok)
	assert.Equal(t, "abc", id)
}
