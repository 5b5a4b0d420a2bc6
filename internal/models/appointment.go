package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "PENDING"
	StatusCompleted AppointmentStatus = "COMPLETED"
	StatusCancelled AppointmentStatus = "CANCELLED"
)

// ParseAppointmentStatus maps any casing of a known status ("Completed",
// "completed", "COMPLETED") onto the canonical value.
func ParseAppointmentStatus(s string) (AppointmentStatus, error) {
	switch AppointmentStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusCompleted:
		return StatusCompleted, nil
	case StatusCancelled:
		return StatusCancelled, nil
	}
	return "", fmt.Errorf("unknown appointment status %q", s)
}

// IsTerminal reports whether no transition may leave s.
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether the client may move an appointment from one
// status to another. Only PENDING has outgoing edges.
func CanTransition(from, to AppointmentStatus) bool {
	return from == StatusPending && to.IsTerminal()
}

// Wire renders s for the backend's status query parameter. "title" yields
// "Completed", anything else the canonical upper-case form.
func (s AppointmentStatus) Wire(casing string) string {
	if casing == "title" && s != "" {
		lower := strings.ToLower(string(s))
		return strings.ToUpper(lower[:1]) + lower[1:]
	}
	return string(s)
}

// UnmarshalJSON normalises the casing used by the backend.
func (s *AppointmentStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*s = ""
		return nil
	}
	parsed, err := ParseAppointmentStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Appointment is a scheduled visit jointly scoped to one doctor and one patient.
type Appointment struct {
	ID              int64             `json:"id"`
	DoctorID        int64             `json:"doctorId"`
	PatientID       int64             `json:"patientId"`
	DoctorName      string            `json:"doctorName,omitempty"`
	PatientName     string            `json:"patientName,omitempty"`
	AppointmentDate string            `json:"appointmentDate"`
	AppointmentTime string            `json:"appointmentTime"`
	Description     string            `json:"description"`
	Status          AppointmentStatus `json:"status"`
	CreatedAt       *time.Time        `json:"createdAt,omitempty"`
}

// BookRequest is the payload of POST /appointments/book.
type BookRequest struct {
	DoctorID        int64  `json:"doctorId" validate:"required,gt=0"`
	PatientID       int64  `json:"patientId" validate:"required,gt=0"`
	AppointmentDate string `json:"appointmentDate" validate:"required,datetime=2006-01-02"`
	AppointmentTime string `json:"appointmentTime" validate:"required,datetime=15:04"`
	Description     string `json:"description" validate:"max=1000"`
}
