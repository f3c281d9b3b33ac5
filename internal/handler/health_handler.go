package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/minisource/heartbeat/internal/scheduler"
	"gorm.io/gorm"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db        *gorm.DB
	scheduler *scheduler.Scheduler
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *gorm.DB, sched *scheduler.Scheduler) *HealthHandler {
	return &HealthHandler{
		db:        db,
		scheduler: sched,
	}
}

// Health returns the service health status
// @Summary Health check
// @Description Check database connectivity and scheduler state
// @Tags health
// @Produce json
// @Success 200 {object} Response
// @Failure 503 {object} Response
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	status := map[string]interface{}{
		"status":    "healthy",
		"scheduler": h.scheduler.IsRunning(),
		"database":  "connected",
	}

	if err := h.pingDatabase(c); err != nil {
		status["status"] = "unhealthy"
		status["database"] = "disconnected"
		return c.Status(fiber.StatusServiceUnavailable).JSON(Response{
			Success: false,
			Data:    status,
		})
	}

	return Success(c, status)
}

// Ready returns the service readiness status
// @Summary Readiness check
// @Description Check if the service is ready to accept traffic
// @Tags health
// @Produce json
// @Success 200 {object} Response
// @Failure 503 {object} Response
// @Router /ready [get]
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	if !h.scheduler.IsRunning() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(Response{
			Success: false,
			Error: &ErrorInfo{
				Code:    "NOT_READY",
				Message: "Scheduler is not running",
			},
		})
	}

	if err := h.pingDatabase(c); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(Response{
			Success: false,
			Error: &ErrorInfo{
				Code:    "NOT_READY",
				Message: "Database ping failed",
			},
		})
	}

	return Success(c, map[string]string{"status": "ready"})
}

// Live returns the liveness status
// @Summary Liveness check
// @Description Check if the service is alive
// @Tags health
// @Produce json
// @Success 200 {object} Response
// @Router /live [get]
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return Success(c, map[string]string{"status": "alive"})
}

func (h *HealthHandler) pingDatabase(c *fiber.Ctx) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(c.Context())
}
