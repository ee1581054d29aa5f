package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/panchayat-portal/internal/api/http/handlers"
	"github.com/spec-kit/panchayat-portal/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Applications   *handlers.ApplicationsHandler
	Complaints     *handlers.ComplaintsHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/otp/verify", cfg.Auth.VerifyOTP)
	authGroup.Post("/otp/resend", cfg.Auth.ResendOTP)
	authGroup.Get("/otp/status", cfg.Auth.OTPStatus)

	app.Get("/track/:number", cfg.Applications.Track)

	applications := app.Group("/applications", cfg.AuthMiddleware.Handle)
	applications.Post("", cfg.Applications.Create)
	applications.Get("", cfg.Applications.ListMine)
	applications.Get("/:id", cfg.Applications.Get)

	complaints := app.Group("/complaints", cfg.AuthMiddleware.Handle)
	complaints.Post("", cfg.Complaints.Create)
	complaints.Get("", cfg.Complaints.ListMine)
	complaints.Get("/:id", cfg.Complaints.Get)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireStaff())
	admin.Get("/applications", cfg.Applications.AdminList)
	admin.Post("/applications/:id/review", cfg.Applications.Review)
	admin.Post("/applications/:id/payment", cfg.Applications.RecordPayment)
	admin.Get("/complaints", cfg.Complaints.AdminList)
	admin.Post("/complaints/:id/update", cfg.Complaints.Update)
	admin.Get("/stats", cfg.Admin.Stats)

	admin.Get("/users", auth.RequireAdmin(), cfg.Admin.PendingUsers)
	admin.Post("/users/:id/approve", auth.RequireAdmin(), cfg.Admin.ApproveUser)
}
