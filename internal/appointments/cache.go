package appointments

import (
	"fmt"
	"sync"
	"time"

	"healthcare-portal/internal/models"
)

// DefaultCacheTTL bounds how long a fetched appointment or list is trusted.
const DefaultCacheTTL = 5 * time.Minute

// Patch is a partial update applied to a cached appointment after the
// backend confirmed it. Only the status may be patched.
type Patch struct {
	Status models.AppointmentStatus
}

// DoctorScope names the cached list of a doctor's appointments.
func DoctorScope(doctorID int64) string { return fmt.Sprintf("doctor:%d", doctorID) }

// PatientScope names the cached list of a patient's appointments.
func PatientScope(patientID int64) string { return fmt.Sprintf("patient:%d", patientID) }

type cachedAppointment struct {
	appt     models.Appointment
	storedAt time.Time
}

type cachedScope struct {
	ids      []int64
	storedAt time.Time
}

// Cache holds the locally known appointments. Records are stored once by
// id; scopes hold ordered id lists so that a patch is visible from every
// list the appointment appears in. Entries older than the ttl read as
// missing and are swept on the next write.
type Cache struct {
	mu        sync.RWMutex
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
	byID      map[int64]cachedAppointment
	scopes    map[string]cachedScope
}

// NewCache creates an empty Cache. A non-positive ttl uses DefaultCacheTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		ttl:    ttl,
		now:    time.Now,
		byID:   make(map[int64]cachedAppointment),
		scopes: make(map[string]cachedScope),
	}
}

// Get returns the cached appointment with id.
func (c *Cache) Get(id int64) (models.Appointment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byID[id]
	if !ok || c.expired(e.storedAt) {
		return models.Appointment{}, false
	}
	return e.appt, true
}

// Put stores a and adds it to the scopes of its doctor and patient when
// those scopes are already cached.
func (c *Cache) Put(a models.Appointment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.sweep(now)

	_, known := c.byID[a.ID]
	c.byID[a.ID] = cachedAppointment{appt: a, storedAt: now}
	if known {
		return
	}
	for _, scope := range []string{DoctorScope(a.DoctorID), PatientScope(a.PatientID)} {
		if s, ok := c.scopes[scope]; ok {
			s.ids = append(s.ids, a.ID)
			c.scopes[scope] = s
		}
	}
}

// ReplaceScope stores list as the authoritative content of scope.
func (c *Cache) ReplaceScope(scope string, list []models.Appointment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.sweep(now)

	ids := make([]int64, 0, len(list))
	for _, a := range list {
		c.byID[a.ID] = cachedAppointment{appt: a, storedAt: now}
		ids = append(ids, a.ID)
	}
	c.scopes[scope] = cachedScope{ids: ids, storedAt: now}
}

// Scope returns the cached list for scope, in backend order.
func (c *Cache) Scope(scope string) ([]models.Appointment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.scopes[scope]
	if !ok || c.expired(s.storedAt) {
		return nil, false
	}
	out := make([]models.Appointment, 0, len(s.ids))
	for _, id := range s.ids {
		if e, ok := c.byID[id]; ok && !c.expired(e.storedAt) {
			out = append(out, e.appt)
		}
	}
	return out, true
}

// ApplyPatch updates the cached appointment in place. It reports false when
// the appointment is not cached. Applying the same patch twice is a no-op.
func (c *Cache) ApplyPatch(id int64, p Patch) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.byID[id]
	if !ok || c.expired(e.storedAt) {
		return false
	}
	if p.Status != "" {
		e.appt.Status = p.Status
	}
	c.byID[id] = e
	return true
}

// Invalidate drops the cached record. Scopes keep the id and skip it until
// the record is stored again.
func (c *Cache) Invalidate(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byID, id)
}

// DropScope forgets a cached list, forcing the next read to hit the backend.
func (c *Cache) DropScope(scope string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.scopes, scope)
}

func (c *Cache) expired(storedAt time.Time) bool {
	return c.now().Sub(storedAt) >= c.ttl
}

// sweep removes expired entries, at most once per ttl. c.mu must be held.
func (c *Cache) sweep(now time.Time) {
	if now.Sub(c.lastSweep) < c.ttl {
		return
	}
	c.lastSweep = now
	for id, e := range c.byID {
		if now.Sub(e.storedAt) >= c.ttl {
			delete(c.byID, id)
		}
	}
	for name, s := range c.scopes {
		if now.Sub(s.storedAt) >= c.ttl {
			delete(c.scopes, name)
		}
	}
}
