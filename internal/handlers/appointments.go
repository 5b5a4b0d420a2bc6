package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"healthcare-portal/internal/appointments"
	"healthcare-portal/internal/models"
	"healthcare-portal/internal/session"
	"healthcare-portal/internal/utils"
)

// AppointmentHandler exposes the appointment lifecycle to patients and doctors.
type AppointmentHandler struct {
	base
	Appointments *appointments.Controller
}

// AppointmentResult is an appointment returned by a mutation, together with
// the caller's own list as it stands after the change. Appointments is
// omitted when the list has not been loaded yet.
type AppointmentResult struct {
	models.Appointment
	Appointments []models.Appointment `json:"appointments,omitempty"`
}

func (h *AppointmentHandler) result(p models.Principal, appt models.Appointment) AppointmentResult {
	list, _ := h.Appointments.Listing(p)
	return AppointmentResult{Appointment: appt, Appointments: list}
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(ctrl *appointments.Controller, sessions *session.Manager, loginPath string, log zerolog.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		base:         base{Sessions: sessions, LoginPath: loginPath, Log: log},
		Appointments: ctrl,
	}
}

// PatientAppointments lists the calling patient's appointments, optionally
// filtered by ?status=.
func (h *AppointmentHandler) PatientAppointments(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	list, err := h.Appointments.FetchByPatient(c.Request.Context(), p, p.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	list, ok = filterByStatus(c, list)
	if !ok {
		return
	}
	utils.Success(c, "Appointments retrieved successfully", list)
}

// Book creates an appointment for the calling patient.
func (h *AppointmentHandler) Book(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req models.BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if req.PatientID == 0 {
		req.PatientID = p.ID
	}

	appt, err := h.Appointments.Book(c.Request.Context(), p, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Created(c, "Appointment booked successfully", h.result(p, appt))
}

// DoctorAppointments lists the calling doctor's appointments, optionally
// filtered by ?status=.
func (h *AppointmentHandler) DoctorAppointments(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	list, err := h.Appointments.FetchByDoctor(c.Request.Context(), p, p.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	list, ok = filterByStatus(c, list)
	if !ok {
		return
	}
	utils.Success(c, "Appointments retrieved successfully", list)
}

// Today lists the calling doctor's appointments for today.
func (h *AppointmentHandler) Today(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	list, err := h.Appointments.Today(c.Request.Context(), p, p.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "Today's appointments retrieved successfully", list)
}

// UpdateStatus completes or cancels a pending appointment.
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	target, err := models.ParseAppointmentStatus(c.Query("status"))
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	appt, err := h.Appointments.Transition(c.Request.Context(), p, id, target)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "Appointment status updated successfully", h.result(p, appt))
}

// Checkup returns an appointment together with a blank prescription draft.
func (h *AppointmentHandler) Checkup(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	appt, err := h.Appointments.Get(c.Request.Context(), p, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "Checkup loaded", gin.H{
		"appointment":  appt,
		"prescription": models.NewPrescriptionDraft(id),
		"editable":     appt.Status == models.StatusPending,
	})
}

// CreatePrescription submits the prescription of a pending appointment.
func (h *AppointmentHandler) CreatePrescription(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var payload models.Prescription
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	appt, err := h.Appointments.CreatePrescription(c.Request.Context(), p, id, &payload)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Created(c, "Prescription created successfully", appt)
}
