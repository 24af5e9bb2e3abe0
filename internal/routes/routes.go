package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"healthcare-booking-server/internal/config"
	"healthcare-booking-server/internal/handlers"
	"healthcare-booking-server/internal/middleware"
	"healthcare-booking-server/internal/models"
)

// Handlers bundles what SetupRoutes mounts.
type Handlers struct {
	Appointments *handlers.AppointmentHandler
	Doctors      *handlers.DoctorHandler
	Users        *handlers.UserHandler
	// Metrics is served on /metrics when set.
	Metrics prometheus.Gatherer
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, h Handlers, cfg *config.Config) {
	// Simple health check endpoint
	health := func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	}
	router.GET("/health", health)
	router.GET("/api/v1/health", health)
	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.Metrics, promhttp.HandlerOpts{})))
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg)) // Apply JWT authentication middleware
	{
		private.GET("/auth/profile", h.Users.GetProfile)

		doctorRoutes := private.Group("/doctors")
		{
			doctorRoutes.GET("", h.Doctors.GetDoctors)
			doctorRoutes.GET("/:id", h.Doctors.GetDoctorByID)
			// Doctors edit their own profile; ownership is checked in the handler
			doctorRoutes.PUT("/:id", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), h.Doctors.UpdateDoctor)
		}

		userRoutes := private.Group("/users")
		{
			userRoutes.GET("/patients", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), h.Users.GetDoctorPatients)

			// Admin-only routes
			adminRoutes := userRoutes.Group("")
			adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
			{
				adminRoutes.POST("", h.Users.CreateUser)
				adminRoutes.GET("", h.Users.GetUsers)
				adminRoutes.GET("/:id", h.Users.GetUserByID)
				adminRoutes.PATCH("/:id/active", h.Users.SetUserActive)
			}
		}

		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", h.Appointments.CreateAppointment)
			appointmentRoutes.GET("", h.Appointments.GetAppointmentsForUser)
			appointmentRoutes.GET("/availability", h.Appointments.CheckAvailability)
			// Per-appointment authorization happens in the booking service
			appointmentRoutes.GET("/:id", h.Appointments.GetAppointmentByID)
			appointmentRoutes.PATCH("/:id", h.Appointments.UpdateAppointment)
			appointmentRoutes.POST("/:id/cancel", h.Appointments.CancelAppointment)
			appointmentRoutes.POST("/:id/review", h.Appointments.AddReview)
		}
	}
}
