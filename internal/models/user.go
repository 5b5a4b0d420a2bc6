package models

import (
	"encoding/json"
	"strings"
)

// Role enum
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleDoctor  Role = "DOCTOR"
	RolePatient Role = "PATIENT"
)

// Roles lists every role the portal knows about.
var Roles = []Role{RolePatient, RoleDoctor, RoleAdmin}

// ParseRole returns the role named by s. Matching is exact: the backend
// issues upper-case role names and anything else is treated as unknown.
func ParseRole(s string) (Role, bool) {
	for _, r := range Roles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// PathPrefix is the route segment owning this role's views, e.g. "/patient".
func (r Role) PathPrefix() string {
	return "/" + strings.ToLower(string(r))
}

// DashboardPath is the role's default landing path.
func (r Role) DashboardPath() string {
	return r.PathPrefix() + "/dashboard"
}

// Doctor is a doctor record as served by the backend directory.
type Doctor struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Email           string  `json:"email,omitempty"`
	Phone           string  `json:"phone,omitempty"`
	Specialization  string  `json:"specialization"`
	Qualification   string  `json:"qualification,omitempty"`
	ExperienceYears int     `json:"experienceYears,omitempty"`
	Fee             float64 `json:"fee,omitempty"`
	Availability    string  `json:"availability,omitempty"`
	Approved        bool    `json:"approved"`
}

// UnmarshalJSON accepts both "specialization" and "specialty", since
// backend endpoints disagree on the field name.
func (d *Doctor) UnmarshalJSON(data []byte) error {
	type plain Doctor
	aux := struct {
		*plain
		Specialty  string `json:"specialty"`
		Experience *int   `json:"experience"`
	}{plain: (*plain)(d)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if d.Specialization == "" {
		d.Specialization = aux.Specialty
	}
	if d.ExperienceYears == 0 && aux.Experience != nil {
		d.ExperienceYears = *aux.Experience
	}
	return nil
}

// DoctorProfileUpdate is the editable part of a doctor's own profile.
type DoctorProfileUpdate struct {
	Name           string `json:"name" validate:"required,min=2"`
	Email          string `json:"email" validate:"required,email"`
	Specialization string `json:"specialization" validate:"required"`
	Experience     int    `json:"experience" validate:"gte=0,lte=80"`
	Phone          string `json:"phone" validate:"omitempty,numeric,len=10"`
}

// Patient is a patient record as served by the admin endpoints.
type Patient struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Age         int    `json:"age,omitempty"`
	Gender      string `json:"gender,omitempty"`
	BloodGroup  string `json:"bloodGroup,omitempty"`
	Address     string `json:"address,omitempty"`
	Allergies   string `json:"allergies,omitempty"`
	Insurance   string `json:"insuranceProvider,omitempty"`
	MedicalNote string `json:"medicalHistory,omitempty"`
}
