package appointments

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthcare-portal/internal/apiclient"
	"healthcare-portal/internal/models"
)

// fakeBackend keeps appointments in memory and records every call.
type fakeBackend struct {
	mu           sync.Mutex
	appointments map[int64]models.Appointment
	calls        []string
	tokens       []string

	bookResult   *models.Appointment
	bookErr      error
	getErr       error
	updateErr    error
	prescribeErr error
	prescribed   []*models.Prescription
}

func newFakeBackend(list ...models.Appointment) *fakeBackend {
	f := &fakeBackend{appointments: make(map[int64]models.Appointment)}
	for _, a := range list {
		f.appointments[a.ID] = a
	}
	return f
}

func (f *fakeBackend) record(ctx context.Context, call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	f.tokens = append(f.tokens, apiclient.TokenFromContext(ctx))
}

func (f *fakeBackend) BookAppointment(ctx context.Context, req models.BookRequest) (*models.Appointment, error) {
	f.record(ctx, "book")
	return f.bookResult, f.bookErr
}

func (f *fakeBackend) AppointmentsByDoctor(ctx context.Context, doctorID int64) ([]models.Appointment, error) {
	f.record(ctx, fmt.Sprintf("doctor %d", doctorID))
	var out []models.Appointment
	for _, a := range f.appointments {
		if a.DoctorID == doctorID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeBackend) AppointmentsByPatient(ctx context.Context, patientID int64) ([]models.Appointment, error) {
	f.record(ctx, fmt.Sprintf("patient %d", patientID))
	var out []models.Appointment
	for _, a := range f.appointments {
		if a.PatientID == patientID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeBackend) Appointment(ctx context.Context, id int64) (*models.Appointment, error) {
	f.record(ctx, fmt.Sprintf("get %d", id))
	if f.getErr != nil {
		return nil, f.getErr
	}
	a, ok := f.appointments[id]
	if !ok {
		return nil, &apiclient.APIError{StatusCode: 404, Message: "Appointment not found"}
	}
	return &a, nil
}

func (f *fakeBackend) UpdateAppointmentStatus(ctx context.Context, id int64, status models.AppointmentStatus) error {
	f.record(ctx, fmt.Sprintf("update %d %s", id, status))
	if f.updateErr != nil {
		return f.updateErr
	}
	a := f.appointments[id]
	a.Status = status
	f.appointments[id] = a
	return nil
}

func (f *fakeBackend) CreatePrescription(ctx context.Context, id int64, p *models.Prescription) error {
	f.record(ctx, fmt.Sprintf("prescribe %d", id))
	if f.prescribeErr != nil {
		return f.prescribeErr
	}
	f.prescribed = append(f.prescribed, p)
	a := f.appointments[id]
	a.Status = models.StatusCompleted
	f.appointments[id] = a
	return nil
}

var (
	doctor  = models.Principal{Token: "doc-token", Role: models.RoleDoctor, ID: 7}
	patient = models.Principal{Token: "pat-token", Role: models.RolePatient, ID: 3}
	admin   = models.Principal{Token: "adm-token", Role: models.RoleAdmin, ID: 1}
)

func pending(id int64) models.Appointment {
	return models.Appointment{ID: id, DoctorID: 7, PatientID: 3, AppointmentDate: "2025-06-01", AppointmentTime: "10:00", Status: models.StatusPending}
}

func validPrescription() *models.Prescription {
	return &models.Prescription{
		Diagnosis: "Flu",
		Symptoms:  "Fever",
		Advice:    "Rest",
		Medicines: []models.MedicineLine{{Medicine: "Paracetamol", Schedule: "1-0-1", Route: "Oral", Instruction: "After food", Days: "5"}},
	}
}

func TestBookingCreatesPendingAppointment(t *testing.T) {
	backend := newFakeBackend()
	created := pending(42)
	created.Status = ""
	backend.bookResult = &created
	ctrl := NewController(backend, zerolog.Nop())

	appt, err := ctrl.Book(context.Background(), patient, models.BookRequest{
		DoctorID: 7, PatientID: 3, AppointmentDate: "2025-06-01", AppointmentTime: "10:00", Description: "checkup",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, appt.Status)
	cached, ok := ctrl.cache.Get(42)
	require.True(t, ok)
	assert.Equal(t, models.StatusPending, cached.Status)
	assert.Equal(t, []string{"pat-token"}, backend.tokens)
}

func TestBookingWithoutRecordSynthesizesPending(t *testing.T) {
	backend := newFakeBackend()
	ctrl := NewController(backend, zerolog.Nop())
	ctrl.cache.ReplaceScope(PatientScope(3), nil)

	appt, err := ctrl.Book(context.Background(), patient, models.BookRequest{
		DoctorID: 7, PatientID: 3, AppointmentDate: "2025-06-01", AppointmentTime: "10:00",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, appt.Status)
	assert.Equal(t, int64(7), appt.DoctorID)
	_, ok := ctrl.cache.Scope(PatientScope(3))
	assert.False(t, ok)
}

func TestBookingRejections(t *testing.T) {
	valid := models.BookRequest{DoctorID: 7, PatientID: 3, AppointmentDate: "2025-06-01", AppointmentTime: "10:00"}

	tests := []struct {
		name      string
		principal models.Principal
		req       models.BookRequest
		bookErr   error
		want      error
		calls     int
	}{
		{"doctor cannot book", doctor, valid, nil, ErrNotPermitted, 0},
		{"other patient", patient, models.BookRequest{DoctorID: 7, PatientID: 4, AppointmentDate: "2025-06-01", AppointmentTime: "10:00"}, nil, ErrNotPermitted, 0},
		{"bad date", patient, models.BookRequest{DoctorID: 7, PatientID: 3, AppointmentDate: "June 1", AppointmentTime: "10:00"}, nil, ErrValidation, 0},
		{"backend declines", patient, valid, &apiclient.APIError{StatusCode: 400, Message: "Doctor not found"}, ErrBookingRejected, 1},
		{"network down", patient, valid, fmt.Errorf("%w: dial tcp", apiclient.ErrNetworkFailure), ErrNetworkFailure, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			backend.bookErr = tt.bookErr
			ctrl := NewController(backend, zerolog.Nop())

			_, err := ctrl.Book(context.Background(), tt.principal, tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.Len(t, backend.calls, tt.calls)
		})
	}
}

func TestBookingRejectionCarriesBackendMessage(t *testing.T) {
	backend := newFakeBackend()
	backend.bookErr = &apiclient.APIError{StatusCode: 409, Message: "Slot already taken"}
	ctrl := NewController(backend, zerolog.Nop())

	_, err := ctrl.Book(context.Background(), patient, models.BookRequest{
		DoctorID: 7, PatientID: 3, AppointmentDate: "2025-06-01", AppointmentTime: "10:00",
	})
	assert.ErrorContains(t, err, "Slot already taken")
}

func TestCancelPendingAppointment(t *testing.T) {
	backend := newFakeBackend(pending(42))
	ctrl := NewController(backend, zerolog.Nop())
	_, err := ctrl.FetchByDoctor(context.Background(), doctor, 7)
	require.NoError(t, err)

	appt, err := ctrl.Transition(context.Background(), doctor, 42, models.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, appt.Status)

	list, _ := ctrl.cache.Scope(DoctorScope(7))
	require.Len(t, list, 1)
	assert.Equal(t, models.StatusCancelled, list[0].Status)
	assert.Equal(t, []string{"doctor 7", "update 42 CANCELLED"}, backend.calls)
}

func TestTerminalAppointmentsNeverLeave(t *testing.T) {
	for _, from := range []models.AppointmentStatus{models.StatusCompleted, models.StatusCancelled} {
		for _, to := range []models.AppointmentStatus{models.StatusCompleted, models.StatusCancelled} {
			t.Run(fmt.Sprintf("%s to %s", from, to), func(t *testing.T) {
				a := pending(9)
				a.Status = from
				backend := newFakeBackend(a)
				ctrl := NewController(backend, zerolog.Nop())
				ctrl.cache.Put(a)

				got, err := ctrl.Transition(context.Background(), doctor, 9, to)
				assert.ErrorIs(t, err, ErrTransitionRejected)
				assert.Equal(t, from, got.Status)
				assert.Empty(t, backend.calls)
			})
		}
	}
}

func TestTransitionOnlyToTerminalStatus(t *testing.T) {
	ctrl := NewController(newFakeBackend(pending(1)), zerolog.Nop())
	_, err := ctrl.Transition(context.Background(), doctor, 1, models.StatusPending)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTransitionRequiresOwningDoctor(t *testing.T) {
	other := models.Principal{Token: "t", Role: models.RoleDoctor, ID: 8}
	backend := newFakeBackend(pending(1))
	ctrl := NewController(backend, zerolog.Nop())

	_, err := ctrl.Transition(context.Background(), other, 1, models.StatusCompleted)
	assert.ErrorIs(t, err, ErrNotPermitted)
	_, err = ctrl.Transition(context.Background(), patient, 1, models.StatusCancelled)
	assert.ErrorIs(t, err, ErrNotPermitted)
	assert.Equal(t, []string{"get 1"}, backend.calls)
}

func TestRejectedTransitionResynchronises(t *testing.T) {
	stale := pending(42)
	backend := newFakeBackend(stale)
	ctrl := NewController(backend, zerolog.Nop())
	ctrl.cache.Put(stale)

	// Another session already completed it.
	done := stale
	done.Status = models.StatusCompleted
	backend.appointments[42] = done
	backend.updateErr = &apiclient.APIError{StatusCode: 400, Message: "Appointment already completed"}

	got, err := ctrl.Transition(context.Background(), doctor, 42, models.StatusCancelled)
	assert.ErrorIs(t, err, ErrTransitionRejected)
	assert.ErrorContains(t, err, "Appointment already completed")
	assert.Equal(t, models.StatusCompleted, got.Status)
	cached, ok := ctrl.cache.Get(42)
	require.True(t, ok)
	assert.Equal(t, models.StatusCompleted, cached.Status)
}

func TestTransitionNetworkFailureKeepsState(t *testing.T) {
	backend := newFakeBackend(pending(42))
	backend.updateErr = fmt.Errorf("%w: timeout", apiclient.ErrNetworkFailure)
	ctrl := NewController(backend, zerolog.Nop())

	got, err := ctrl.Transition(context.Background(), doctor, 42, models.StatusCompleted)
	assert.ErrorIs(t, err, ErrNetworkFailure)
	assert.NotErrorIs(t, err, ErrTransitionRejected)
	assert.Equal(t, models.StatusPending, got.Status)
	cached, _ := ctrl.cache.Get(42)
	assert.Equal(t, models.StatusPending, cached.Status)
}

func TestPrescriptionCompletesAppointment(t *testing.T) {
	backend := newFakeBackend(pending(42))
	ctrl := NewController(backend, zerolog.Nop())

	got, err := ctrl.CreatePrescription(context.Background(), doctor, 42, validPrescription())
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	require.Len(t, backend.prescribed, 1)
	assert.Equal(t, int64(42), backend.prescribed[0].AppointmentID)
	assert.Equal(t, []string{"get 42", "prescribe 42", "get 42"}, backend.calls)
}

func TestInvalidPrescriptionNeverReachesBackend(t *testing.T) {
	backend := newFakeBackend(pending(42))
	ctrl := NewController(backend, zerolog.Nop())

	p := validPrescription()
	p.Medicines[0].Medicine = ""
	_, err := ctrl.CreatePrescription(context.Background(), doctor, 42, p)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorContains(t, err, "Medicines[0].Medicine is required")

	_, err = ctrl.CreatePrescription(context.Background(), doctor, 42, &models.Prescription{Diagnosis: "Flu", Symptoms: "x", Advice: "y"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ctrl.CreatePrescription(context.Background(), patient, 42, validPrescription())
	assert.ErrorIs(t, err, ErrNotPermitted)

	assert.Empty(t, backend.calls)
}

func TestPrescriptionFailureSurfaces(t *testing.T) {
	backend := newFakeBackend(pending(42))
	backend.prescribeErr = &apiclient.APIError{StatusCode: 500, Message: "boom"}
	ctrl := NewController(backend, zerolog.Nop())

	got, err := ctrl.CreatePrescription(context.Background(), doctor, 42, validPrescription())
	assert.ErrorIs(t, err, ErrSubmissionFailed)
	assert.ErrorIs(t, err, apiclient.ErrRejected)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestPrescriptionForResolvedAppointment(t *testing.T) {
	a := pending(42)
	a.Status = models.StatusCancelled
	backend := newFakeBackend(a)
	ctrl := NewController(backend, zerolog.Nop())

	_, err := ctrl.CreatePrescription(context.Background(), doctor, 42, validPrescription())
	assert.ErrorIs(t, err, ErrSubmissionFailed)
	assert.Equal(t, []string{"get 42"}, backend.calls)
}

func TestFetchPermissions(t *testing.T) {
	backend := newFakeBackend(pending(1))
	ctrl := NewController(backend, zerolog.Nop())
	ctx := context.Background()

	_, err := ctrl.FetchByDoctor(ctx, patient, 7)
	assert.ErrorIs(t, err, ErrNotPermitted)
	_, err = ctrl.FetchByDoctor(ctx, models.Principal{Role: models.RoleDoctor, ID: 8}, 7)
	assert.ErrorIs(t, err, ErrNotPermitted)
	_, err = ctrl.FetchByPatient(ctx, doctor, 3)
	assert.ErrorIs(t, err, ErrNotPermitted)

	list, err := ctrl.FetchByPatient(ctx, patient, 3)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	list, err = ctrl.FetchByDoctor(ctx, admin, 7)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestTodayUsesClinicTimeZone(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)
	today := pending(1)
	today.AppointmentDate = "2025-06-02"
	yesterday := pending(2)
	yesterday.AppointmentDate = "2025-06-01"
	timestamped := pending(3)
	timestamped.AppointmentDate = "2025-06-02T00:00:00"
	backend := newFakeBackend(today, yesterday, timestamped)

	// 20:00 UTC on June 1st is already June 2nd in the clinic.
	now := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	ctrl := NewController(backend, zerolog.Nop(), WithClock(func() time.Time { return now }), WithLocation(kolkata))

	list, err := ctrl.Today(context.Background(), doctor, 7)
	require.NoError(t, err)
	ids := make([]int64, 0, len(list))
	for _, a := range list {
		ids = append(ids, a.ID)
	}
	assert.ElementsMatch(t, []int64{1, 3}, ids)

	utc := NewController(backend, zerolog.Nop(), WithClock(func() time.Time { return now }))
	list, err = utc.Today(context.Background(), doctor, 7)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(2), list[0].ID)
}

func TestGetChecksParticipation(t *testing.T) {
	backend := newFakeBackend(pending(1))
	ctrl := NewController(backend, zerolog.Nop())
	ctx := context.Background()

	for _, p := range []models.Principal{doctor, patient, admin} {
		a, err := ctrl.Get(ctx, p, 1)
		require.NoError(t, err, p.Role)
		assert.Equal(t, int64(1), a.ID)
	}
	_, err := ctrl.Get(ctx, models.Principal{Role: models.RolePatient, ID: 4}, 1)
	assert.ErrorIs(t, err, ErrNotPermitted)
}

func TestOnDay(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.True(t, OnDay("2025-06-01", now, time.UTC))
	assert.False(t, OnDay("2025-06-02", now, time.UTC))
	assert.False(t, OnDay("", now, time.UTC))
	assert.False(t, OnDay("01/06/2025", now, time.UTC))
}

func TestExpiredCredentialIsNotARejection(t *testing.T) {
	expired := fmt.Errorf("update: %w", &apiclient.APIError{StatusCode: 401})
	ctx := context.Background()
	req := models.BookRequest{DoctorID: 7, PatientID: 3, AppointmentDate: "2025-06-01", AppointmentTime: "10:00"}

	backend := newFakeBackend(pending(42))
	backend.bookErr = expired
	backend.updateErr = expired
	backend.prescribeErr = expired
	ctrl := NewController(backend, zerolog.Nop())

	_, err := ctrl.Book(ctx, patient, req)
	assert.ErrorIs(t, err, apiclient.ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrBookingRejected)

	got, err := ctrl.Transition(ctx, doctor, 42, models.StatusCancelled)
	assert.ErrorIs(t, err, apiclient.ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrTransitionRejected)
	assert.Equal(t, models.StatusPending, got.Status)

	_, err = ctrl.CreatePrescription(ctx, doctor, 42, validPrescription())
	assert.ErrorIs(t, err, apiclient.ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrSubmissionFailed)

	// No resync is attempted with a credential the backend refuses.
	assert.Equal(t, []string{"book", "get 42", "update 42 CANCELLED", "prescribe 42"}, backend.calls)
	cached, ok := ctrl.cache.Get(42)
	require.True(t, ok)
	assert.Equal(t, models.StatusPending, cached.Status)
}

func TestPrescriptionLookupNetworkFailure(t *testing.T) {
	backend := newFakeBackend(pending(42))
	backend.getErr = fmt.Errorf("%w: connection reset", apiclient.ErrNetworkFailure)
	ctrl := NewController(backend, zerolog.Nop())

	_, err := ctrl.CreatePrescription(context.Background(), doctor, 42, validPrescription())
	assert.ErrorIs(t, err, ErrNetworkFailure)
	assert.NotErrorIs(t, err, ErrSubmissionFailed)

	backend.getErr = nil
	backend.prescribeErr = fmt.Errorf("%w: connection reset", apiclient.ErrNetworkFailure)
	_, err = ctrl.CreatePrescription(context.Background(), doctor, 42, validPrescription())
	assert.ErrorIs(t, err, ErrNetworkFailure)
	assert.NotErrorIs(t, err, ErrSubmissionFailed)
	assert.Equal(t, []string{"get 42", "get 42", "prescribe 42"}, backend.calls)
}

func TestListingReflectsTransitions(t *testing.T) {
	other := pending(43)
	backend := newFakeBackend(pending(42), other)
	ctrl := NewController(backend, zerolog.Nop())
	ctx := context.Background()

	_, ok := ctrl.Listing(doctor)
	assert.False(t, ok)

	_, err := ctrl.FetchByDoctor(ctx, doctor, 7)
	require.NoError(t, err)
	_, err = ctrl.FetchByPatient(ctx, patient, 3)
	require.NoError(t, err)
	_, err = ctrl.Transition(ctx, doctor, 42, models.StatusCompleted)
	require.NoError(t, err)

	for _, p := range []models.Principal{doctor, patient} {
		list, ok := ctrl.Listing(p)
		require.True(t, ok, p.Role)
		statuses := map[int64]models.AppointmentStatus{}
		for _, a := range list {
			statuses[a.ID] = a.Status
		}
		assert.Equal(t, map[int64]models.AppointmentStatus{42: models.StatusCompleted, 43: models.StatusPending}, statuses, p.Role)
	}

	_, ok = ctrl.Listing(admin)
	assert.False(t, ok)
}

func TestCachedAppointmentsExpire(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	backend := newFakeBackend(pending(42))
	ctrl := NewController(backend, zerolog.Nop(), WithClock(func() time.Time { return now }), WithCacheTTL(time.Minute))
	ctx := context.Background()

	_, err := ctrl.Get(ctx, doctor, 42)
	require.NoError(t, err)
	_, err = ctrl.Get(ctx, doctor, 42)
	require.NoError(t, err)
	assert.Equal(t, []string{"get 42"}, backend.calls)

	now = now.Add(time.Minute)
	_, err = ctrl.Get(ctx, doctor, 42)
	require.NoError(t, err)
	assert.Equal(t, []string{"get 42", "get 42"}, backend.calls)
}
