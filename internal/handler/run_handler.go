package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/minisource/heartbeat/internal/models"
	"github.com/minisource/heartbeat/internal/service"
)

// RunHandler handles run-related HTTP requests
type RunHandler struct {
	runService *service.RunService
}

// NewRunHandler creates a new run handler
func NewRunHandler(runService *service.RunService) *RunHandler {
	return &RunHandler{
		runService: runService,
	}
}

// List lists runs
// @Summary List runs
// @Description List runs newest first, with optional filters
// @Tags runs
// @Produce json
// @Param schedule_id query int false "Filter by schedule"
// @Param status query string false "Filter by status (SUCCESS, FAILED, TIMEOUT, DNS_ERROR, CONNECTION_ERROR)"
// @Param start_time query string false "Runs started at or after (RFC 3339)"
// @Param end_time query string false "Runs started at or before (RFC 3339)"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} Response{data=[]models.Run}
// @Failure 400 {object} Response
// @Failure 500 {object} Response
// @Router /api/v1/runs [get]
func (h *RunHandler) List(c *fiber.Ctx) error {
	filter := models.RunFilter{
		Status:   models.RunStatus(c.Query("status")),
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 20),
	}

	if raw := c.QueryInt("schedule_id", 0); raw > 0 {
		scheduleID := uint(raw)
		filter.ScheduleID = &scheduleID
	}

	if raw := c.Query("start_time"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return BadRequest(c, "Invalid start_time, expected RFC 3339")
		}
		filter.StartTime = &t
	}
	if raw := c.Query("end_time"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return BadRequest(c, "Invalid end_time, expected RFC 3339")
		}
		filter.EndTime = &t
	}

	result, err := h.runService.List(c.Context(), filter)
	if err != nil {
		return ServiceError(c, err)
	}

	return SuccessWithMeta(c, result.Runs, &Meta{
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalCount: result.TotalCount,
		HasMore:    result.HasMore,
	})
}

// Get retrieves a run with its attempts
// @Summary Get a run
// @Description Get a run by ID with its attempts
// @Tags runs
// @Produce json
// @Param id path int true "Run ID"
// @Success 200 {object} Response{data=models.Run}
// @Failure 404 {object} Response
// @Failure 500 {object} Response
// @Router /api/v1/runs/{id} [get]
func (h *RunHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return BadRequest(c, "Invalid run ID")
	}

	run, err := h.runService.GetWithAttempts(c.Context(), uint(id))
	if err != nil {
		return ServiceError(c, err)
	}

	return Success(c, run)
}
