package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/intern-service/internal/api/http/handlers"
	"github.com/spec-kit/intern-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tasks          *handlers.TasksHandler
	Assignments    *handlers.AssignmentsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/", cfg.Health.Welcome)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	api := app.Group("/api")
	api.Post("/register", cfg.Users.Register)
	api.Post("/login", cfg.Users.Login)
	api.Get("/get-user", cfg.Users.GetUser)

	authed := cfg.AuthMiddleware.Handle
	api.Post("/logout", authed, cfg.Users.Logout)

	own := auth.Require(auth.CapOwnAssignments)
	api.Patch("/select-domain", authed, own, cfg.Users.SelectDomain)
	api.Post("/assign-tasks", authed, own, cfg.Assignments.AssignTasks)
	api.Post("/submit-task", authed, own, cfg.Assignments.SubmitTask)
	api.Get("/domain-tasks", authed, auth.Require(auth.CapOwnAssignments, auth.CapViewAnyAssignments), cfg.Assignments.DomainTasks)

	catalog := auth.Require(auth.CapManageCatalog)
	api.Post("/add-task", authed, catalog, cfg.Tasks.AddTask)
	api.Get("/all-tasks", authed, catalog, cfg.Tasks.AllTasks)
	api.Delete("/delete-task/:id", authed, catalog, cfg.Tasks.DeleteTask)

	grading := auth.Require(auth.CapGradeSubmissions)
	api.Get("/submissions", authed, grading, cfg.Assignments.Submissions)
	api.Post("/submissions/feedback", authed, grading, cfg.Assignments.Feedback)
}
