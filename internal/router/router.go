package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/minisource/heartbeat/internal/handler"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	Target   *handler.TargetHandler
	Schedule *handler.ScheduleHandler
	Run      *handler.RunHandler
	Metrics  *handler.MetricsHandler
	Health   *handler.HealthHandler
}

// SetupRouter configures the Fiber router
func SetupRouter(app *fiber.App, h *Handlers) {
	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} - ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-Request-ID",
	}))

	// Swagger route
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Health check routes (no prefix)
	app.Get("/health", h.Health.Health)
	app.Get("/ready", h.Health.Ready)
	app.Get("/live", h.Health.Live)

	// API v1 routes
	v1 := app.Group("/api/v1")

	// Target routes
	targets := v1.Group("/targets")
	targets.Get("/", h.Target.List)
	targets.Post("/", h.Target.Create)
	targets.Get("/:id", h.Target.Get)
	targets.Put("/:id", h.Target.Update)
	targets.Delete("/:id", h.Target.Delete)

	// Schedule routes
	schedules := v1.Group("/schedules")
	schedules.Get("/", h.Schedule.List)
	schedules.Post("/", h.Schedule.Create)
	schedules.Get("/:id", h.Schedule.Get)
	schedules.Put("/:id", h.Schedule.Update)
	schedules.Delete("/:id", h.Schedule.Delete)
	schedules.Post("/:id/pause", h.Schedule.Pause)
	schedules.Post("/:id/resume", h.Schedule.Resume)
	schedules.Post("/:id/stop", h.Schedule.Stop)

	// Run routes (read-only ledger)
	runs := v1.Group("/runs")
	runs.Get("/", h.Run.List)
	runs.Get("/:id", h.Run.Get)

	// Metrics routes
	metrics := v1.Group("/metrics")
	metrics.Get("/", h.Metrics.System)
	metrics.Get("/schedules", h.Metrics.Schedules)
}
