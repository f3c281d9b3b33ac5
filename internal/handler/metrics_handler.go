package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/minisource/heartbeat/internal/service"
)

// MetricsHandler handles metrics HTTP requests
type MetricsHandler struct {
	metricsService *service.MetricsService
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(metricsService *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{
		metricsService: metricsService,
	}
}

// System returns system-wide run metrics
// @Summary System metrics
// @Description Run totals by status, success rate, average latency, last-hour volume and active schedule count
// @Tags metrics
// @Produce json
// @Success 200 {object} Response{data=models.SystemMetrics}
// @Failure 500 {object} Response
// @Router /api/v1/metrics [get]
func (h *MetricsHandler) System(c *fiber.Ctx) error {
	metrics, err := h.metricsService.System(c.Context())
	if err != nil {
		return ServiceError(c, err)
	}

	return Success(c, metrics)
}

// Schedules returns per-schedule metrics
// @Summary Per-schedule metrics
// @Description Run counts and last firing instant for every schedule
// @Tags metrics
// @Produce json
// @Success 200 {object} Response{data=[]models.ScheduleMetrics}
// @Failure 500 {object} Response
// @Router /api/v1/metrics/schedules [get]
func (h *MetricsHandler) Schedules(c *fiber.Ctx) error {
	metrics, err := h.metricsService.Schedules(c.Context())
	if err != nil {
		return ServiceError(c, err)
	}

	return Success(c, metrics)
}
