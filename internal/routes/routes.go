package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"healthcare-portal/internal/apiclient"
	"healthcare-portal/internal/appointments"
	"healthcare-portal/internal/config"
	"healthcare-portal/internal/handlers"
	"healthcare-portal/internal/middleware"
	"healthcare-portal/internal/session"
)

// Deps are the services the route table is built from.
type Deps struct {
	Config       *config.Config
	Sessions     *session.Manager
	API          *apiclient.Client
	Appointments *appointments.Controller
	Log          zerolog.Logger
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, d Deps) {
	cfg := d.Config
	authHandler := handlers.NewAuthHandler(d.API, d.Sessions, cfg, d.Log)
	userHandler := handlers.NewUserHandler(d.API, d.Sessions, cfg.LoginPath, d.Log)
	appointmentHandler := handlers.NewAppointmentHandler(d.Appointments, d.Sessions, cfg.LoginPath, d.Log)
	dashboardHandler := handlers.NewDashboardHandler(d.Appointments, d.API, d.Sessions, cfg.LoginPath, d.Log)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})

	// Every route below knows its session, guarded or not.
	portal := router.Group("")
	portal.Use(middleware.SessionMiddleware(d.Sessions, cfg.Session.CookieName, d.Log))

	// Public routes
	portal.GET(cfg.LoginPath, authHandler.LoginView)
	authRoutes := portal.Group("/auth")
	{
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.POST("/signup", authHandler.Signup)
	}
	portal.POST("/logout", authHandler.Logout)

	guard := middleware.GuardMiddleware(d.Sessions, middleware.GuardConfig{
		LoginPath:    cfg.LoginPath,
		ExpireTokens: cfg.ExpireSessions,
	}, d.Log)

	patientRoutes := portal.Group("/patient", guard)
	{
		patientRoutes.GET("/dashboard", dashboardHandler.Patient)
		patientRoutes.GET("/menu", dashboardHandler.Menu)
		patientRoutes.GET("/doctors", userHandler.GetDoctors)
		patientRoutes.GET("/appointments", appointmentHandler.PatientAppointments)
		patientRoutes.POST("/appointments", appointmentHandler.Book)
	}

	doctorRoutes := portal.Group("/doctor", guard)
	{
		doctorRoutes.GET("/dashboard", dashboardHandler.Doctor)
		doctorRoutes.GET("/menu", dashboardHandler.Menu)
		doctorRoutes.GET("/appointments", appointmentHandler.DoctorAppointments)
		doctorRoutes.GET("/appointments/today", appointmentHandler.Today)
		doctorRoutes.GET("/appointments/:id/checkup", appointmentHandler.Checkup)
		doctorRoutes.PUT("/appointments/:id/status", appointmentHandler.UpdateStatus)
		doctorRoutes.POST("/appointments/:id/prescription", appointmentHandler.CreatePrescription)
		doctorRoutes.GET("/profile", userHandler.GetProfile)
		doctorRoutes.PUT("/profile", userHandler.UpdateProfile)
	}

	adminRoutes := portal.Group("/admin", guard)
	{
		adminRoutes.GET("/dashboard", dashboardHandler.Admin)
		adminRoutes.GET("/menu", dashboardHandler.Menu)
		adminRoutes.GET("/doctors", userHandler.AllDoctors)
		adminRoutes.GET("/pending", userHandler.PendingDoctors)
		adminRoutes.GET("/patients", userHandler.AllPatients)
		adminRoutes.PUT("/pending/:id/approve", userHandler.ApproveDoctor)
		adminRoutes.PUT("/pending/:id/reject", userHandler.RejectDoctor)
	}

	// Unknown paths inside a role's subtree still go through the guard, so
	// a patient probing /doctor/anything lands on their own dashboard.
	router.NoRoute(middleware.SessionMiddleware(d.Sessions, cfg.Session.CookieName, d.Log), guard, func(c *gin.Context) {
		p, _ := middleware.GetPrincipal(c)
		c.Redirect(http.StatusFound, p.Role.DashboardPath())
	})
}
