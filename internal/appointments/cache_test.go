package appointments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthcare-portal/internal/models"
)

func TestPatchVisibleFromEveryScope(t *testing.T) {
	c := NewCache(0)
	a := models.Appointment{ID: 42, DoctorID: 7, PatientID: 3, Status: models.StatusPending}
	c.ReplaceScope(DoctorScope(7), []models.Appointment{a})
	c.ReplaceScope(PatientScope(3), []models.Appointment{a})

	require.True(t, c.ApplyPatch(42, Patch{Status: models.StatusCancelled}))

	for _, scope := range []string{DoctorScope(7), PatientScope(3)} {
		list, ok := c.Scope(scope)
		require.True(t, ok, scope)
		require.Len(t, list, 1)
		assert.Equal(t, models.StatusCancelled, list[0].Status, scope)
	}
}

func TestApplyPatchIsIdempotent(t *testing.T) {
	c := NewCache(0)
	c.Put(models.Appointment{ID: 1, Status: models.StatusPending, Description: "checkup"})

	c.ApplyPatch(1, Patch{Status: models.StatusCompleted})
	once, _ := c.Get(1)
	c.ApplyPatch(1, Patch{Status: models.StatusCompleted})
	twice, _ := c.Get(1)

	assert.Equal(t, once, twice)
	assert.Equal(t, "checkup", twice.Description)
	assert.False(t, c.ApplyPatch(99, Patch{Status: models.StatusCompleted}))
}

func TestInvalidateHidesRecordUntilStoredAgain(t *testing.T) {
	c := NewCache(0)
	a := models.Appointment{ID: 5, DoctorID: 7, PatientID: 3, Status: models.StatusPending}
	c.ReplaceScope(DoctorScope(7), []models.Appointment{a})

	c.Invalidate(5)
	_, ok := c.Get(5)
	assert.False(t, ok)
	list, _ := c.Scope(DoctorScope(7))
	assert.Empty(t, list)

	a.Status = models.StatusCompleted
	c.Put(a)
	list, _ = c.Scope(DoctorScope(7))
	require.Len(t, list, 1)
	assert.Equal(t, models.StatusCompleted, list[0].Status)
}

func TestPutExtendsCachedScopesOnly(t *testing.T) {
	c := NewCache(0)
	c.ReplaceScope(PatientScope(3), nil)

	c.Put(models.Appointment{ID: 8, DoctorID: 7, PatientID: 3})

	list, ok := c.Scope(PatientScope(3))
	require.True(t, ok)
	assert.Len(t, list, 1)
	_, ok = c.Scope(DoctorScope(7))
	assert.False(t, ok)

	c.DropScope(PatientScope(3))
	_, ok = c.Scope(PatientScope(3))
	assert.False(t, ok)
}

func TestExpiredEntriesAreSwept(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	c := NewCache(time.Minute)
	c.now = func() time.Time { return now }

	c.ReplaceScope(DoctorScope(7), []models.Appointment{{ID: 1, DoctorID: 7, PatientID: 3}, {ID: 2, DoctorID: 7, PatientID: 4}})
	c.Put(models.Appointment{ID: 3, DoctorID: 8, PatientID: 3})

	now = now.Add(30 * time.Second)
	_, ok := c.Get(1)
	assert.True(t, ok)

	now = now.Add(30 * time.Second)
	_, ok = c.Get(1)
	assert.False(t, ok)
	_, ok = c.Scope(DoctorScope(7))
	assert.False(t, ok)
	assert.False(t, c.ApplyPatch(3, Patch{Status: models.StatusCancelled}))

	// The next write reclaims everything that expired.
	c.Put(models.Appointment{ID: 9, DoctorID: 8, PatientID: 5})
	c.mu.RLock()
	defer c.mu.RUnlock()
	assert.Len(t, c.byID, 1)
	assert.Empty(t, c.scopes)
}
