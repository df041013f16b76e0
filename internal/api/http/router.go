package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/service-crm/internal/api/http/handlers"
	"github.com/spec-kit/service-crm/internal/auth"
	"github.com/spec-kit/service-crm/internal/domain"
	"github.com/spec-kit/service-crm/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Portal         *handlers.PortalHandler
	Staff          *handlers.StaffHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	api.Get("/me", cfg.Portal.Profile)
	api.Get("/catalog", cfg.Portal.Catalog)
	api.Get("/products", cfg.Portal.ListProducts)
	api.Post("/products", auth.RequireRole(domain.RoleCustomer, domain.RoleAgent, domain.RoleManager), cfg.Portal.RegisterProduct)

	portal := api.Group("/cases", auth.RequireRole(domain.RoleCustomer))
	portal.Get("/", cfg.Portal.ListCases)
	portal.Post("/", cfg.Portal.SubmitCase)
	portal.Get("/:id", cfg.Portal.GetCase)
	portal.Get("/:id/history", cfg.Portal.CaseHistory)
	portal.Post("/:id/feedback", cfg.Portal.SubmitFeedback)

	staff := api.Group("/staff", auth.RequireStaff())
	staff.Get("/cases/:id", cfg.Staff.GetCase)
	staff.Get("/cases/:id/history", cfg.Portal.CaseHistory)
	staff.Post("/cases/:id/status", cfg.Staff.ChangeStatus)

	// group middleware matches by prefix, so desk-only routes carry the guard per route
	desk := auth.RequireRole(domain.RoleAgent, domain.RoleManager)
	staff.Get("/cases", desk, cfg.Staff.RecentCases)
	staff.Get("/feedback", desk, cfg.Staff.RecentFeedback)
	staff.Post("/cases/:id/dispatch", desk, cfg.Staff.Dispatch)
	staff.Get("/dashboard/agent", desk, cfg.Staff.AgentDashboard)
	staff.Get("/dashboard/manager", auth.RequireRole(domain.RoleManager), cfg.Staff.ManagerDashboard)

	engineer := staff.Group("/engineer", auth.RequireRole(domain.RoleEngineer))
	engineer.Get("/dashboard", cfg.Staff.EngineerDashboard)
	engineer.Get("/jobs", cfg.Staff.EngineerJobs)
	engineer.Get("/dispatches", cfg.Staff.EngineerDispatches)
}
