package handlers

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"healthcare-portal/internal/apiclient"
	"healthcare-portal/internal/config"
	"healthcare-portal/internal/middleware"
	"healthcare-portal/internal/models"
	"healthcare-portal/internal/session"
	"healthcare-portal/internal/utils"
)

// AuthAPI is the part of the backend that issues credentials.
type AuthAPI interface {
	Login(ctx context.Context, req apiclient.LoginRequest) (*apiclient.AuthResponse, error)
	Signup(ctx context.Context, req apiclient.SignupRequest) (*apiclient.AuthResponse, error)
}

// AuthHandler handles login, signup and logout.
type AuthHandler struct {
	base
	API AuthAPI
	Cfg *config.Config
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(api AuthAPI, sessions *session.Manager, cfg *config.Config, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		base: base{Sessions: sessions, LoginPath: cfg.LoginPath, Log: log},
		API:  api,
		Cfg:  cfg,
	}
}

// LoginResponse tells the browser who logged in and where to go next.
type LoginResponse struct {
	Role    models.Role `json:"role"`
	ID      int64       `json:"id"`
	Name    string      `json:"name,omitempty"`
	Landing string      `json:"landing"`
}

// LoginView is the public entry point. Authenticated users are sent to
// their dashboard.
func (h *AuthHandler) LoginView(c *gin.Context) {
	if p, ok := middleware.GetSession(c).Principal(); ok {
		utils.Redirect(c, p.Role.DashboardPath())
		return
	}
	utils.Success(c, "Login", gin.H{
		"loginAction":  "/auth/login",
		"signupAction": "/auth/signup",
		"roles":        []models.Role{models.RolePatient, models.RoleDoctor},
	})
}

// Login exchanges credentials with the backend and establishes a session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req apiclient.LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	resp, err := h.API.Login(c.Request.Context(), req)
	if err != nil {
		h.credentialFailure(c, err, "Invalid email or password")
		return
	}
	if resp == nil {
		utils.Unauthorized(c, "Login response was incomplete")
		return
	}
	h.establish(c, resp, "Login successful")
}

// Signup registers a patient or doctor. When the backend answers with a
// credential the new user is logged in; otherwise they are sent to login.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req apiclient.SignupRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	resp, err := h.API.Signup(c.Request.Context(), req)
	if err != nil {
		h.credentialFailure(c, err, "Signup failed")
		return
	}
	if resp == nil {
		utils.Created(c, "Account created successfully", gin.H{"landing": h.LoginPath})
		return
	}
	h.establish(c, resp, "Account created successfully")
}

// Logout clears the session and returns the user to the login view.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.Sessions.Clear(c.Request.Context(), middleware.GetSessionID(c), nil); err != nil {
		h.Log.Error().Err(err).Msg("failed to clear session on logout")
		utils.InternalServerError(c, "Failed to log out")
		return
	}
	h.setCookie(c, "", -1)
	utils.Redirect(c, h.LoginPath)
}

// establish persists the principal of resp under a fresh session id. An
// incomplete response persists nothing.
func (h *AuthHandler) establish(c *gin.Context, resp *apiclient.AuthResponse, message string) {
	role, ok := models.ParseRole(resp.Role)
	p := models.Principal{Token: resp.Token, Role: role, ID: resp.ID}
	if !ok || !p.Complete() {
		h.Log.Warn().Str("role", resp.Role).Int64("id", resp.ID).Msg("backend returned an incomplete principal")
		utils.Unauthorized(c, "Login response was incomplete")
		return
	}

	ctx := c.Request.Context()
	if old := middleware.GetSessionID(c); old != "" {
		if err := h.Sessions.Clear(ctx, old, nil); err != nil {
			h.Log.Warn().Err(err).Msg("failed to clear previous session")
		}
	}
	sid := h.Sessions.NewID()
	if err := h.Sessions.Set(ctx, sid, p); err != nil {
		h.Log.Error().Err(err).Msg("failed to persist session")
		utils.InternalServerError(c, "Failed to start session")
		return
	}
	h.setCookie(c, sid, int(h.Cfg.Session.TTL.Seconds()))

	utils.Success(c, message, LoginResponse{
		Role:    role,
		ID:      p.ID,
		Name:    resp.Name,
		Landing: role.DashboardPath(),
	})
}

func (h *AuthHandler) credentialFailure(c *gin.Context, err error, fallback string) {
	if !errors.Is(err, apiclient.ErrRejected) {
		h.fail(c, err)
		return
	}
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		fallback = apiErr.Message
	}
	utils.Unauthorized(c, fallback)
}

func (h *AuthHandler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetCookie(
		h.Cfg.Session.CookieName,
		value,
		maxAge,
		"/",
		"",
		!h.Cfg.IsDevelopment(),
		true,
	)
}
