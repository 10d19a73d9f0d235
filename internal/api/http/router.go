package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/tickettally/ticket-engine/internal/api/http/handlers"
	"github.com/tickettally/ticket-engine/internal/auth"
	"github.com/tickettally/ticket-engine/internal/observability"
	apperrors "github.com/tickettally/ticket-engine/pkg/errorutil"
)

const (
	contactRateLimit  = 5
	contactRateWindow = time.Hour
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	StaffTickets   *handlers.StaffTicketsHandler
	Notifications  *handlers.NotificationsHandler
	Analytics      *handlers.AnalyticsHandler
	Admin          *handlers.AdminHandler
	Projects       *handlers.ProjectsHandler
	Account        *handlers.AccountHandler
	Contact        *handlers.ContactHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)

	authenticated := authGroup.Group("", cfg.AuthMiddleware.Handle)
	authenticated.Get("/me", cfg.Auth.Me)
	authenticated.Patch("/me", cfg.Account.UpdateProfile)
	authenticated.Get("/me/export", cfg.Account.ExportData)
	authenticated.Post("/password/change", cfg.Auth.ChangePassword)

	app.Post("/contact", limiter.New(limiter.Config{
		Max:        contactRateLimit,
		Expiration: contactRateWindow,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return apperrors.NewDomainError("RATE_LIMITED", "too many contact messages, try again later", fiber.StatusTooManyRequests, nil)
		},
	}), cfg.Contact.Submit)

	api := app.Group("/api", cfg.AuthMiddleware.Handle)

	tickets := api.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/duplicate", cfg.Tickets.FindDuplicate)
	tickets.Get("/export.xlsx", cfg.Tickets.ExportXLSX)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Post("/:id/withdraw", cfg.Tickets.WithdrawTicket)
	tickets.Post("/:id/claim", auth.RequireStaff(), cfg.Tickets.ClaimTicket)
	tickets.Get("/:id/comments", cfg.Tickets.ListComments)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Get("/:id/history", cfg.Tickets.ListHistory)
	tickets.Get("/:id/sla", cfg.Tickets.SLAStatus)
	tickets.Get("/:id/summary.pdf", cfg.Tickets.SummaryPDF)

	staff := api.Group("/staff", auth.RequireStaff())
	staff.Get("/tickets/assigned", cfg.StaffTickets.ListAssigned)
	staff.Get("/tickets/team", cfg.StaffTickets.ListTeam)

	notifications := api.Group("/notifications")
	notifications.Get("/", cfg.Notifications.List)
	notifications.Get("/unread-count", cfg.Notifications.UnreadCount)
	notifications.Post("/read-all", cfg.Notifications.MarkAllRead)
	notifications.Post("/:id/read", cfg.Notifications.MarkRead)
	notifications.Delete("/", cfg.Notifications.ClearAll)

	analytics := api.Group("/analytics")
	analytics.Get("/dashboard", cfg.Analytics.Dashboard)
	analytics.Get("/it-dashboard", auth.RequireStaff(), cfg.Analytics.ITDashboard)

	api.Get("/teams", cfg.Admin.ListTeams)

	projects := api.Group("/projects")
	projects.Get("/", cfg.Projects.List)
	projects.Get("/:id", cfg.Projects.Get)
	projects.Post("/", auth.RequireAdmin(), cfg.Projects.Create)
	projects.Patch("/:id", auth.RequireAdmin(), cfg.Projects.Update)
	projects.Delete("/:id", auth.RequireAdmin(), cfg.Projects.Delete)

	admin := api.Group("/admin", auth.RequireAdmin())
	admin.Get("/sla", cfg.Admin.ListSLA)
	admin.Put("/sla/:priority", cfg.Admin.UpsertSLA)
	admin.Post("/teams", cfg.Admin.CreateTeam)
	admin.Get("/users", cfg.Admin.ListUsers)
	admin.Post("/users", cfg.Admin.CreateUser)
	admin.Patch("/users/:id", cfg.Admin.UpdateUser)
	admin.Post("/auto-close", cfg.Admin.RunAutoClose)
	admin.Get("/messages", cfg.Contact.ListMessages)
	admin.Post("/messages/:id/read", cfg.Contact.MarkRead)
}
