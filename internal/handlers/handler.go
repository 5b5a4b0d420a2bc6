// Package handlers implements the gateway's HTTP views for each role.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"healthcare-portal/internal/apiclient"
	"healthcare-portal/internal/appointments"
	"healthcare-portal/internal/middleware"
	"healthcare-portal/internal/models"
	"healthcare-portal/internal/session"
	"healthcare-portal/internal/utils"
)

// base carries what every handler needs to answer failures consistently.
type base struct {
	Sessions  *session.Manager
	LoginPath string
	Log       zerolog.Logger
}

// principal returns the admitted principal. Guarded routes always have one;
// a missing principal means the route was mounted without the guard.
func (b *base) principal(c *gin.Context) (models.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		utils.Redirect(c, b.LoginPath)
	}
	return p, ok
}

// fail maps a lifecycle or backend error onto the response envelope.
func (b *base) fail(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, apiclient.ErrUnauthorized):
		b.unauthorized(c)
	case errors.Is(err, apiclient.ErrNetworkFailure):
		utils.BadGateway(c, "Backend unavailable")
	case errors.Is(err, appointments.ErrValidation):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, appointments.ErrNotPermitted):
		utils.Forbidden(c, err.Error())
	case errors.Is(err, appointments.ErrTransitionRejected):
		utils.Conflict(c, err.Error())
	case errors.Is(err, appointments.ErrBookingRejected), errors.Is(err, appointments.ErrSubmissionFailed):
		utils.Unprocessable(c, err.Error())
	case errors.Is(err, apiclient.ErrRejected):
		b.rejected(c, err)
	default:
		b.Log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("unexpected error")
		utils.InternalServerError(c, "Internal server error")
	}
}

// unauthorized answers a backend 401. When the session was cleared by the
// unauthorized hook the user is sent back to login.
func (b *base) unauthorized(c *gin.Context) {
	s, err := b.Sessions.Get(c.Request.Context(), middleware.GetSessionID(c))
	if err == nil && !s.Authenticated() {
		utils.Redirect(c, b.LoginPath)
		return
	}
	utils.Unauthorized(c, "Your session is no longer accepted by the backend")
}

func (b *base) rejected(c *gin.Context, err error) {
	var apiErr *apiclient.APIError
	if !errors.As(err, &apiErr) {
		utils.BadGateway(c, err.Error())
		return
	}
	msg := apiErr.Message
	if msg == "" {
		msg = http.StatusText(apiErr.StatusCode)
	}
	switch apiErr.StatusCode {
	case http.StatusNotFound:
		utils.NotFound(c, msg)
	case http.StatusForbidden:
		utils.Forbidden(c, msg)
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		utils.Unprocessable(c, msg)
	default:
		utils.BadGateway(c, msg)
	}
}

// pathID parses a positive numeric path parameter.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		utils.BadRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// filterByStatus keeps the appointments matching the optional ?status= query.
func filterByStatus(c *gin.Context, list []models.Appointment) ([]models.Appointment, bool) {
	raw := c.Query("status")
	if raw == "" {
		return list, true
	}
	status, err := models.ParseAppointmentStatus(raw)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return nil, false
	}
	out := make([]models.Appointment, 0, len(list))
	for _, a := range list {
		if a.Status == status {
			out = append(out, a)
		}
	}
	return out, true
}
