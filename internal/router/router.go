package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gradeflow-api/internal/config"
	"github.com/noah-isme/gradeflow-api/internal/handler"
	"github.com/noah-isme/gradeflow-api/internal/middleware"
	"github.com/noah-isme/gradeflow-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AssignmentHandler *handler.AssignmentHandler
	QuestionHandler   *handler.QuestionHandler
	SubmissionHandler *handler.SubmissionHandler
	GradingHandler    *handler.GradingHandler
	OverrideHandler   *handler.OverrideHandler
	AppealHandler     *handler.AppealHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	authed := api.Group("", jwtMiddleware)
	staff := authed.Group("", middleware.RequireRole("admin", "teacher"))

	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.Register(authed.Group("/assignments"))
		deps.AssignmentHandler.RegisterStaff(staff.Group("/assignments"))
	}

	if deps.QuestionHandler != nil {
		deps.QuestionHandler.Register(staff.Group("/assignments"))
	}

	if deps.OverrideHandler != nil {
		deps.OverrideHandler.Register(staff.Group("/assignments"))
	}

	if deps.SubmissionHandler != nil {
		submissions := authed.Group("/submissions", middleware.RateLimit("submissions", 60, time.Minute))
		deps.SubmissionHandler.Register(submissions)
	}

	if deps.GradingHandler != nil {
		deps.GradingHandler.Register(staff.Group("/grading"))
	}

	if deps.AppealHandler != nil {
		deps.AppealHandler.Register(authed.Group(""))
		deps.AppealHandler.RegisterStaff(staff.Group("/review"))
	}
}
