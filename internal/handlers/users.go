package handlers

import (
	"context"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"healthcare-portal/internal/models"
	"healthcare-portal/internal/session"
	"healthcare-portal/internal/utils"
)

// DirectoryAPI is the part of the backend serving doctor and patient records.
type DirectoryAPI interface {
	Doctors(ctx context.Context) ([]models.Doctor, error)
	Doctor(ctx context.Context, id int64) (*models.Doctor, error)
	UpdateDoctor(ctx context.Context, id int64, update models.DoctorProfileUpdate) (*models.Doctor, error)
	AllDoctors(ctx context.Context) ([]models.Doctor, error)
	PendingDoctors(ctx context.Context) ([]models.Doctor, error)
	AllPatients(ctx context.Context) ([]models.Patient, error)
	ApproveDoctor(ctx context.Context, id int64) error
	RejectDoctor(ctx context.Context, id int64) error
}

// UserHandler serves the doctor directory, doctor profiles and admin views.
type UserHandler struct {
	base
	API DirectoryAPI
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(api DirectoryAPI, sessions *session.Manager, loginPath string, log zerolog.Logger) *UserHandler {
	return &UserHandler{
		base: base{Sessions: sessions, LoginPath: loginPath, Log: log},
		API:  api,
	}
}

// DirectoryResponse is the booking view's doctor list.
type DirectoryResponse struct {
	Doctors     []models.Doctor `json:"doctors"`
	Specialties []string        `json:"specialties"`
}

// GetDoctors lists bookable doctors, filtered by ?specialty= and a free
// text ?q= matched against name and specialization.
func (h *UserHandler) GetDoctors(c *gin.Context) {
	doctors, err := h.API.Doctors(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "Doctors retrieved successfully", DirectoryResponse{
		Doctors:     filterDoctors(doctors, c.Query("specialty"), c.Query("q")),
		Specialties: specialties(doctors),
	})
}

func filterDoctors(doctors []models.Doctor, specialty, query string) []models.Doctor {
	query = strings.ToLower(strings.TrimSpace(query))
	specialty = strings.TrimSpace(specialty)
	out := make([]models.Doctor, 0, len(doctors))
	for _, d := range doctors {
		if specialty != "" && !strings.EqualFold(d.Specialization, specialty) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(d.Name), query) &&
			!strings.Contains(strings.ToLower(d.Specialization), query) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func specialties(doctors []models.Doctor) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, d := range doctors {
		if d.Specialization == "" || seen[strings.ToLower(d.Specialization)] {
			continue
		}
		seen[strings.ToLower(d.Specialization)] = true
		out = append(out, d.Specialization)
	}
	sort.Strings(out)
	return out
}

// GetProfile returns the calling doctor's profile.
func (h *UserHandler) GetProfile(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	doctor, err := h.API.Doctor(c.Request.Context(), p.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "Profile retrieved successfully", doctor)
}

// UpdateProfile edits the calling doctor's own profile.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req models.DoctorProfileUpdate
	if !utils.BindAndValidate(c, &req) {
		return
	}

	ctx := c.Request.Context()
	doctor, err := h.API.UpdateDoctor(ctx, p.ID, req)
	if err == nil && doctor == nil {
		doctor, err = h.API.Doctor(ctx, p.ID)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "Profile updated successfully", doctor)
}

// AllDoctors lists every doctor for the admin.
func (h *UserHandler) AllDoctors(c *gin.Context) {
	doctors, err := h.API.AllDoctors(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "Doctors retrieved successfully", doctors)
}

// PendingDoctors lists doctors awaiting approval.
func (h *UserHandler) PendingDoctors(c *gin.Context) {
	doctors, err := h.API.PendingDoctors(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "Pending doctors retrieved successfully", doctors)
}

// AllPatients lists every patient for the admin.
func (h *UserHandler) AllPatients(c *gin.Context) {
	patients, err := h.API.AllPatients(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "Patients retrieved successfully", patients)
}

// ApproveDoctor approves a pending doctor.
func (h *UserHandler) ApproveDoctor(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.API.ApproveDoctor(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	h.Log.Info().Int64("doctor_id", id).Msg("doctor approved")
	utils.Success(c, "Doctor approved successfully", nil)
}

// RejectDoctor rejects a pending doctor.
func (h *UserHandler) RejectDoctor(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.API.RejectDoctor(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	h.Log.Info().Int64("doctor_id", id).Msg("doctor rejected")
	utils.Success(c, "Doctor rejected successfully", nil)
}
