package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"healthcare-portal/internal/appointments"
	"healthcare-portal/internal/models"
	"healthcare-portal/internal/session"
	"healthcare-portal/internal/utils"
)

const recentLimit = 5

// DashboardHandler serves each role's landing view and navigation menu.
type DashboardHandler struct {
	base
	Appointments *appointments.Controller
	API          DirectoryAPI
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(ctrl *appointments.Controller, api DirectoryAPI, sessions *session.Manager, loginPath string, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		base:         base{Sessions: sessions, LoginPath: loginPath, Log: log},
		Appointments: ctrl,
		API:          api,
	}
}

// AppointmentStats counts appointments by status.
type AppointmentStats struct {
	Total     int `json:"total"`
	Today     int `json:"today"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

func countAppointments(list []models.Appointment) AppointmentStats {
	stats := AppointmentStats{Total: len(list)}
	for _, a := range list {
		switch a.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusCompleted:
			stats.Completed++
		case models.StatusCancelled:
			stats.Cancelled++
		}
	}
	return stats
}

func recent(list []models.Appointment) []models.Appointment {
	if len(list) > recentLimit {
		return list[:recentLimit]
	}
	return list
}

// Menu returns the navigation entries of the calling principal's role.
func (h *DashboardHandler) Menu(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	utils.Success(c, "Menu retrieved successfully", models.MenuFor(p.Role))
}

// Patient is the patient landing view.
func (h *DashboardHandler) Patient(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	list, err := h.Appointments.FetchByPatient(c.Request.Context(), p, p.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	stats := countAppointments(list)
	stats.Today = len(h.Appointments.FilterToday(list))

	upcoming := make([]models.Appointment, 0, stats.Pending)
	for _, a := range list {
		if a.Status == models.StatusPending {
			upcoming = append(upcoming, a)
		}
	}
	utils.Success(c, "Dashboard retrieved successfully", gin.H{
		"stats":    stats,
		"upcoming": recent(upcoming),
	})
}

// Doctor is the doctor landing view.
func (h *DashboardHandler) Doctor(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	list, err := h.Appointments.FetchByDoctor(c.Request.Context(), p, p.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	today := h.Appointments.FilterToday(list)
	stats := countAppointments(list)
	stats.Today = len(today)

	utils.Success(c, "Dashboard retrieved successfully", gin.H{
		"stats":  stats,
		"today":  today,
		"recent": recent(list),
	})
}

// AdminStats summarises the admin's directory views.
type AdminStats struct {
	TotalDoctors   int `json:"totalDoctors"`
	PendingDoctors int `json:"pendingDoctors"`
	TotalPatients  int `json:"totalPatients"`
}

// Admin is the admin landing view.
func (h *DashboardHandler) Admin(c *gin.Context) {
	ctx := c.Request.Context()
	doctors, err := h.API.AllDoctors(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	pending, err := h.API.PendingDoctors(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	patients, err := h.API.AllPatients(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "Dashboard retrieved successfully", AdminStats{
		TotalDoctors:   len(doctors),
		PendingDoctors: len(pending),
		TotalPatients:  len(patients),
	})
}
