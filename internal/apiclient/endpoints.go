package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"healthcare-portal/internal/models"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignupRequest is the body of POST /auth/signup. Doctor and patient
// specific fields are optional and only sent when set.
type SignupRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=PATIENT DOCTOR"`
	Phone    string `json:"phone" validate:"required"`
	Age      int    `json:"age,omitempty" validate:"omitempty,gt=0,lt=150"`
	Gender   string `json:"gender,omitempty"`
	Address  string `json:"address,omitempty"`

	Specialty       string  `json:"specialty,omitempty" validate:"required_if=Role DOCTOR"`
	Fee             float64 `json:"fee,omitempty"`
	Qualification   string  `json:"qualification,omitempty"`
	ExperienceYears int     `json:"experienceYears,omitempty"`
	LicenseNumber   string  `json:"licenseNumber,omitempty" validate:"required_if=Role DOCTOR"`
	Availability    string  `json:"availability,omitempty"`

	BloodGroup            string `json:"bloodGroup,omitempty"`
	EmergencyContactName  string `json:"emergencyContactName,omitempty"`
	EmergencyContactPhone string `json:"emergencyContactPhone,omitempty"`
	MedicalHistory        string `json:"medicalHistory,omitempty"`
	Allergies             string `json:"allergies,omitempty"`
	InsuranceProvider     string `json:"insuranceProvider,omitempty"`
	InsuranceNumber       string `json:"insuranceNumber,omitempty"`
}

// AuthResponse is the backend's answer to login and signup.
type AuthResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
	ID    int64  `json:"id"`
	Name  string `json:"name,omitempty"`
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", req, &out); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &out, nil
}

// Signup registers a new patient or doctor. The backend usually answers
// with the created account rather than a token, in which case the result
// is nil and the user logs in separately.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/auth/signup", req, &raw); err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}
	var out AuthResponse
	if len(raw) == 0 || json.Unmarshal(raw, &out) != nil || out.Token == "" {
		return nil, nil
	}
	return &out, nil
}

// Doctors lists the doctors patients may book with.
func (c *Client) Doctors(ctx context.Context) ([]models.Doctor, error) {
	var out []models.Doctor
	if err := c.do(ctx, http.MethodGet, "/users/doctors", nil, &out); err != nil {
		return nil, fmt.Errorf("doctors: %w", err)
	}
	return out, nil
}

// BookAppointment creates an appointment. The backend may answer with an
// empty body or a bare confirmation string, in which case the returned
// appointment is nil.
func (c *Client) BookAppointment(ctx context.Context, req models.BookRequest) (*models.Appointment, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/appointments/book", req, &raw); err != nil {
		return nil, fmt.Errorf("book appointment: %w", err)
	}
	var out models.Appointment
	if len(raw) == 0 || json.Unmarshal(raw, &out) != nil || out.ID == 0 {
		return nil, nil
	}
	return &out, nil
}

// AppointmentsByDoctor lists every appointment of a doctor.
func (c *Client) AppointmentsByDoctor(ctx context.Context, doctorID int64) ([]models.Appointment, error) {
	var out []models.Appointment
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/appointments/doctor/%d", doctorID), nil, &out); err != nil {
		return nil, fmt.Errorf("appointments of doctor %d: %w", doctorID, err)
	}
	return out, nil
}

// AppointmentsByPatient lists every appointment of a patient.
func (c *Client) AppointmentsByPatient(ctx context.Context, patientID int64) ([]models.Appointment, error) {
	var out []models.Appointment
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/appointments/patient/%d", patientID), nil, &out); err != nil {
		return nil, fmt.Errorf("appointments of patient %d: %w", patientID, err)
	}
	return out, nil
}

// Appointment fetches one appointment. A success answer without a record
// is reported as not found.
func (c *Client) Appointment(ctx context.Context, id int64) (*models.Appointment, error) {
	var out models.Appointment
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/appointments/%d", id), nil, &out); err != nil {
		return nil, fmt.Errorf("appointment %d: %w", id, err)
	}
	if out.ID == 0 {
		return nil, fmt.Errorf("appointment %d: %w", id, &APIError{StatusCode: http.StatusNotFound, Message: "Appointment not found"})
	}
	return &out, nil
}

// UpdateAppointmentStatus asks the backend to move an appointment to status.
func (c *Client) UpdateAppointmentStatus(ctx context.Context, id int64, status models.AppointmentStatus) error {
	path := fmt.Sprintf("/appointments/%d/status?status=%s", id, url.QueryEscape(status.Wire(c.statusCase)))
	if err := c.do(ctx, http.MethodPut, path, nil, nil); err != nil {
		return fmt.Errorf("update status of appointment %d: %w", id, err)
	}
	return nil
}

// CreatePrescription submits the prescription resolving an appointment.
func (c *Client) CreatePrescription(ctx context.Context, appointmentID int64, p *models.Prescription) error {
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/prescriptions/create/%d", appointmentID), p, nil); err != nil {
		return fmt.Errorf("create prescription for appointment %d: %w", appointmentID, err)
	}
	return nil
}

// AllDoctors lists every doctor, approved or not.
func (c *Client) AllDoctors(ctx context.Context) ([]models.Doctor, error) {
	var out []models.Doctor
	if err := c.do(ctx, http.MethodGet, "/admin/all-doctors", nil, &out); err != nil {
		return nil, fmt.Errorf("all doctors: %w", err)
	}
	return out, nil
}

// PendingDoctors lists doctors awaiting approval.
func (c *Client) PendingDoctors(ctx context.Context) ([]models.Doctor, error) {
	var out []models.Doctor
	if err := c.do(ctx, http.MethodGet, "/admin/pending-doctors", nil, &out); err != nil {
		return nil, fmt.Errorf("pending doctors: %w", err)
	}
	return out, nil
}

// AllPatients lists every registered patient.
func (c *Client) AllPatients(ctx context.Context) ([]models.Patient, error) {
	var out []models.Patient
	if err := c.do(ctx, http.MethodGet, "/admin/all-patients", nil, &out); err != nil {
		return nil, fmt.Errorf("all patients: %w", err)
	}
	return out, nil
}

// ApproveDoctor approves a pending doctor.
func (c *Client) ApproveDoctor(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/admin/approve/%d", id), nil, nil); err != nil {
		return fmt.Errorf("approve doctor %d: %w", id, err)
	}
	return nil
}

// RejectDoctor rejects a pending doctor.
func (c *Client) RejectDoctor(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/admin/reject/%d", id), nil, nil); err != nil {
		return fmt.Errorf("reject doctor %d: %w", id, err)
	}
	return nil
}

// Doctor fetches a doctor's profile.
func (c *Client) Doctor(ctx context.Context, id int64) (*models.Doctor, error) {
	var out models.Doctor
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/doctors/%d", id), nil, &out); err != nil {
		return nil, fmt.Errorf("doctor %d: %w", id, err)
	}
	return &out, nil
}

// UpdateDoctor replaces the editable part of a doctor's profile. The result
// is nil when the backend answers without the updated record.
func (c *Client) UpdateDoctor(ctx context.Context, id int64, update models.DoctorProfileUpdate) (*models.Doctor, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/doctors/%d", id), update, &raw); err != nil {
		return nil, fmt.Errorf("update doctor %d: %w", id, err)
	}
	var out models.Doctor
	if len(raw) == 0 || json.Unmarshal(raw, &out) != nil || out.ID == 0 {
		return nil, nil
	}
	return &out, nil
}
