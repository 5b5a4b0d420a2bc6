// Package appointments drives the appointment lifecycle against the backend
// and keeps the gateway's cached view of appointments consistent with it.
package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"healthcare-portal/internal/apiclient"
	"healthcare-portal/internal/models"
	"healthcare-portal/internal/utils"
)

var (
	// ErrValidation means the request was rejected before reaching the backend.
	ErrValidation = errors.New("validation error")
	// ErrNotPermitted means the principal's role or identity may not perform the operation.
	ErrNotPermitted = errors.New("not permitted")
	// ErrBookingRejected means the backend declined a booking.
	ErrBookingRejected = errors.New("booking rejected")
	// ErrTransitionRejected means the appointment could not move to the requested status.
	ErrTransitionRejected = errors.New("transition rejected")
	// ErrSubmissionFailed means a prescription was not saved.
	ErrSubmissionFailed = errors.New("submission failed")
	// ErrNetworkFailure means the backend could not be reached.
	ErrNetworkFailure = apiclient.ErrNetworkFailure
)

// Backend is the part of the backend API the lifecycle needs.
type Backend interface {
	BookAppointment(ctx context.Context, req models.BookRequest) (*models.Appointment, error)
	AppointmentsByDoctor(ctx context.Context, doctorID int64) ([]models.Appointment, error)
	AppointmentsByPatient(ctx context.Context, patientID int64) ([]models.Appointment, error)
	Appointment(ctx context.Context, id int64) (*models.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id int64, status models.AppointmentStatus) error
	CreatePrescription(ctx context.Context, appointmentID int64, p *models.Prescription) error
}

// Controller owns the appointment state machine.
type Controller struct {
	backend  Backend
	cache    *Cache
	cacheTTL time.Duration
	log      zerolog.Logger
	now      func() time.Time
	loc      *time.Location
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithLocation sets the clinic time zone used to decide what "today" is.
func WithLocation(loc *time.Location) Option {
	return func(c *Controller) { c.loc = loc }
}

// WithCacheTTL sets how long fetched appointments are trusted before the
// backend is asked again.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Controller) { c.cacheTTL = ttl }
}

// NewController creates a Controller over backend with an empty cache.
func NewController(backend Backend, log zerolog.Logger, opts ...Option) *Controller {
	c := &Controller{
		backend: backend,
		log:     log.With().Str("component", "appointments").Logger(),
		now:     time.Now,
		loc:     time.UTC,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cache = NewCache(c.cacheTTL)
	c.cache.now = c.now
	return c
}

// Listing returns the principal's own appointment list as last fetched,
// with every confirmed patch applied since. It reports false when the list
// is not cached, or for admins, who have no list of their own.
func (c *Controller) Listing(p models.Principal) ([]models.Appointment, bool) {
	switch p.Role {
	case models.RoleDoctor:
		return c.cache.Scope(DoctorScope(p.ID))
	case models.RolePatient:
		return c.cache.Scope(PatientScope(p.ID))
	}
	return nil, false
}

// Book creates a PENDING appointment for the calling patient.
func (c *Controller) Book(ctx context.Context, p models.Principal, req models.BookRequest) (models.Appointment, error) {
	if p.Role != models.RolePatient || req.PatientID != p.ID {
		return models.Appointment{}, fmt.Errorf("%w: patients book only for themselves", ErrNotPermitted)
	}
	if err := utils.Validate(req); err != nil {
		return models.Appointment{}, fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationError(err))
	}

	created, err := c.backend.BookAppointment(apiclient.WithToken(ctx, p.Token), req)
	if err != nil {
		if unreachable(err) {
			return models.Appointment{}, err
		}
		return models.Appointment{}, fmt.Errorf("%w: %s", ErrBookingRejected, backendMessage(err))
	}

	if created == nil {
		// The backend confirmed without returning the record; the lists
		// that would contain it are stale until fetched again.
		c.cache.DropScope(PatientScope(req.PatientID))
		c.cache.DropScope(DoctorScope(req.DoctorID))
		return models.Appointment{
			DoctorID:        req.DoctorID,
			PatientID:       req.PatientID,
			AppointmentDate: req.AppointmentDate,
			AppointmentTime: req.AppointmentTime,
			Description:     req.Description,
			Status:          models.StatusPending,
		}, nil
	}

	appt := *created
	if appt.Status == "" {
		appt.Status = models.StatusPending
	}
	c.cache.Put(appt)
	c.log.Info().Int64("appointment_id", appt.ID).Int64("doctor_id", appt.DoctorID).Msg("appointment booked")
	return appt, nil
}

// Transition moves a PENDING appointment of the calling doctor to COMPLETED
// or CANCELLED. Terminal appointments are rejected without contacting the
// backend. A backend rejection invalidates and re-fetches the cached record.
func (c *Controller) Transition(ctx context.Context, p models.Principal, id int64, target models.AppointmentStatus) (models.Appointment, error) {
	if p.Role != models.RoleDoctor {
		return models.Appointment{}, fmt.Errorf("%w: only doctors change appointment status", ErrNotPermitted)
	}
	if !target.IsTerminal() {
		return models.Appointment{}, fmt.Errorf("%w: cannot move an appointment to %q", ErrValidation, target)
	}
	ctx = apiclient.WithToken(ctx, p.Token)

	current, err := c.lookup(ctx, id)
	if err != nil {
		if unreachable(err) {
			return models.Appointment{}, err
		}
		return models.Appointment{}, fmt.Errorf("%w: %w", ErrTransitionRejected, err)
	}
	if current.DoctorID != p.ID {
		return models.Appointment{}, fmt.Errorf("%w: appointment %d belongs to another doctor", ErrNotPermitted, id)
	}
	if !models.CanTransition(current.Status, target) {
		return current, fmt.Errorf("%w: appointment %d is %s", ErrTransitionRejected, id, current.Status)
	}

	if err := c.backend.UpdateAppointmentStatus(ctx, id, target); err != nil {
		if unreachable(err) {
			return current, err
		}
		c.log.Warn().Err(err).Int64("appointment_id", id).Msg("transition rejected, resynchronising")
		c.cache.Invalidate(id)
		fresh := c.resync(ctx, id)
		return fresh, fmt.Errorf("%w: %s", ErrTransitionRejected, backendMessage(err))
	}

	c.cache.ApplyPatch(id, Patch{Status: target})
	updated, _ := c.cache.Get(id)
	c.log.Info().Int64("appointment_id", id).Str("status", string(target)).Msg("appointment transitioned")
	return updated, nil
}

// CreatePrescription submits a prescription for a PENDING appointment of the
// calling doctor. The payload is validated before any backend call. On
// success the cached appointment is refreshed from the backend, which owns
// the move to COMPLETED.
func (c *Controller) CreatePrescription(ctx context.Context, p models.Principal, id int64, payload *models.Prescription) (models.Appointment, error) {
	if p.Role != models.RoleDoctor {
		return models.Appointment{}, fmt.Errorf("%w: only doctors write prescriptions", ErrNotPermitted)
	}
	if payload == nil {
		return models.Appointment{}, fmt.Errorf("%w: prescription is empty", ErrValidation)
	}
	if err := utils.Validate(payload); err != nil {
		return models.Appointment{}, fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationError(err))
	}
	ctx = apiclient.WithToken(ctx, p.Token)

	current, err := c.lookup(ctx, id)
	if err != nil {
		if unreachable(err) {
			return models.Appointment{}, err
		}
		return models.Appointment{}, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}
	if current.DoctorID != p.ID {
		return models.Appointment{}, fmt.Errorf("%w: appointment %d belongs to another doctor", ErrNotPermitted, id)
	}
	if current.Status != models.StatusPending {
		return current, fmt.Errorf("%w: appointment %d is %s", ErrSubmissionFailed, id, current.Status)
	}

	body := *payload
	body.AppointmentID = id
	if err := c.backend.CreatePrescription(ctx, id, &body); err != nil {
		if unreachable(err) {
			return current, err
		}
		c.cache.Invalidate(id)
		c.resync(ctx, id)
		return current, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}

	c.log.Info().Int64("appointment_id", id).Int("medicines", len(body.Medicines)).Msg("prescription created")
	c.cache.Invalidate(id)
	return c.resync(ctx, id), nil
}

// FetchByDoctor loads every appointment of doctorID. Doctors may only read
// their own list; admins may read any.
func (c *Controller) FetchByDoctor(ctx context.Context, p models.Principal, doctorID int64) ([]models.Appointment, error) {
	if !(p.Role == models.RoleAdmin || (p.Role == models.RoleDoctor && p.ID == doctorID)) {
		return nil, fmt.Errorf("%w: appointments of doctor %d", ErrNotPermitted, doctorID)
	}
	list, err := c.backend.AppointmentsByDoctor(apiclient.WithToken(ctx, p.Token), doctorID)
	if err != nil {
		return nil, err
	}
	c.cache.ReplaceScope(DoctorScope(doctorID), list)
	return list, nil
}

// FetchByPatient loads every appointment of patientID. Patients may only
// read their own list; admins may read any.
func (c *Controller) FetchByPatient(ctx context.Context, p models.Principal, patientID int64) ([]models.Appointment, error) {
	if !(p.Role == models.RoleAdmin || (p.Role == models.RolePatient && p.ID == patientID)) {
		return nil, fmt.Errorf("%w: appointments of patient %d", ErrNotPermitted, patientID)
	}
	list, err := c.backend.AppointmentsByPatient(apiclient.WithToken(ctx, p.Token), patientID)
	if err != nil {
		return nil, err
	}
	c.cache.ReplaceScope(PatientScope(patientID), list)
	return list, nil
}

// Today returns the doctor's appointments dated today in the clinic time zone.
func (c *Controller) Today(ctx context.Context, p models.Principal, doctorID int64) ([]models.Appointment, error) {
	list, err := c.FetchByDoctor(ctx, p, doctorID)
	if err != nil {
		return nil, err
	}
	return c.FilterToday(list), nil
}

// FilterToday keeps the appointments of list dated today in the clinic time zone.
func (c *Controller) FilterToday(list []models.Appointment) []models.Appointment {
	now := c.now()
	today := make([]models.Appointment, 0, len(list))
	for _, a := range list {
		if OnDay(a.AppointmentDate, now, c.loc) {
			today = append(today, a)
		}
	}
	return today
}

// Get returns one appointment the principal takes part in.
func (c *Controller) Get(ctx context.Context, p models.Principal, id int64) (models.Appointment, error) {
	a, err := c.lookup(apiclient.WithToken(ctx, p.Token), id)
	if err != nil {
		return models.Appointment{}, err
	}
	switch {
	case p.Role == models.RoleAdmin,
		p.Role == models.RoleDoctor && a.DoctorID == p.ID,
		p.Role == models.RolePatient && a.PatientID == p.ID:
		return a, nil
	}
	return models.Appointment{}, fmt.Errorf("%w: appointment %d", ErrNotPermitted, id)
}

// OnDay reports whether the calendar date string falls on the same day as
// now, both read in loc. Dates carrying a time suffix are cut to the date.
func OnDay(date string, now time.Time, loc *time.Location) bool {
	if len(date) > len(time.DateOnly) {
		date = date[:len(time.DateOnly)]
	}
	d, err := time.ParseInLocation(time.DateOnly, date, loc)
	if err != nil {
		return false
	}
	y1, m1, d1 := d.Date()
	y2, m2, d2 := now.In(loc).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func (c *Controller) lookup(ctx context.Context, id int64) (models.Appointment, error) {
	if a, ok := c.cache.Get(id); ok {
		return a, nil
	}
	fetched, err := c.backend.Appointment(ctx, id)
	if err != nil {
		return models.Appointment{}, err
	}
	c.cache.Put(*fetched)
	return *fetched, nil
}

// resync re-reads an appointment after the cache was found stale. A failed
// re-read leaves the record uncached so the next lookup tries again.
func (c *Controller) resync(ctx context.Context, id int64) models.Appointment {
	fetched, err := c.backend.Appointment(ctx, id)
	if err != nil {
		c.log.Warn().Err(err).Int64("appointment_id", id).Msg("resync failed")
		return models.Appointment{}
	}
	c.cache.Put(*fetched)
	return *fetched
}

// unreachable reports errors that say nothing about the appointment: the
// backend was not reached, or it no longer accepts the caller's credential.
// Neither is a rejection, and neither warrants a resync.
func unreachable(err error) bool {
	return errors.Is(err, ErrNetworkFailure) || errors.Is(err, apiclient.ErrUnauthorized)
}

func backendMessage(err error) string {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
