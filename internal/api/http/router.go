package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-service/internal/api/http/handlers"
	"github.com/spec-kit/maintenance-service/internal/auth"
	"github.com/spec-kit/maintenance-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Accounts       *handlers.AccountsHandler
	Requests       *handlers.RequestsHandler
	Landlord       *handlers.LandlordHandler
	Caretaker      *handlers.CaretakerHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Accounts.Register)
	authGroup.Post("/login", cfg.Accounts.Login)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())

	api.Get("/me", cfg.Accounts.Me)
	api.Post("/me/password", cfg.Accounts.ChangePassword)
	api.Get("/categories", cfg.Requests.ListCategories)

	requests := api.Group("/requests")
	requests.Get("/", cfg.Requests.ListRequests)
	requests.Get("/:id", cfg.Requests.GetRequest)
	requests.Get("/:id/history", cfg.Requests.GetHistory)
	requests.Post("/", auth.RequireRole(domain.RoleTenant), cfg.Requests.CreateRequest)

	// Ownership is enforced again inside the engine; the role gates here
	// only keep obviously-wrong callers out.
	landlordSide := auth.RequireRole(domain.RoleLandlord, domain.RoleSuperAdmin)
	requests.Post("/:id/start-review", landlordSide, cfg.Landlord.StartReview)
	requests.Post("/:id/approve", landlordSide, cfg.Landlord.Approve)
	requests.Post("/:id/reject", landlordSide, cfg.Landlord.Reject)
	requests.Post("/:id/assign", landlordSide, cfg.Landlord.Assign)

	requests.Post("/:id/accept", auth.RequireRole(domain.RoleCaretaker), cfg.Caretaker.Accept)
	requests.Post("/:id/decline", auth.RequireRole(domain.RoleCaretaker), cfg.Caretaker.Decline)
	requests.Post("/:id/complete", auth.RequireRole(domain.RoleCaretaker), cfg.Caretaker.CompleteWork)

	requests.Post("/:id/review", auth.RequireRole(domain.RoleTenant, domain.RoleLandlord, domain.RoleSuperAdmin), cfg.Requests.ReviewCompletion)
	requests.Post("/:id/close", auth.RequireRole(domain.RoleTenant), cfg.Requests.CloseRequest)
	requests.Post("/:id/reopen", auth.RequireRole(domain.RoleTenant), cfg.Requests.ReopenRequest)

	landlord := api.Group("", auth.RequireRole(domain.RoleLandlord, domain.RoleSuperAdmin))
	landlord.Post("/properties", cfg.Landlord.CreateProperty)
	landlord.Get("/properties", cfg.Landlord.ListProperties)
	landlord.Get("/caretakers", cfg.Landlord.ListCaretakers)

	admin := api.Group("/admin", auth.RequireRole(domain.RoleSuperAdmin))
	admin.Get("/requests/:id/replay", cfg.Admin.ReplayRequest)
}
