package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/minisource/heartbeat/internal/models"
	"github.com/minisource/heartbeat/internal/service"
)

// ScheduleHandler handles schedule-related HTTP requests
type ScheduleHandler struct {
	scheduleService *service.ScheduleService
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(scheduleService *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{
		scheduleService: scheduleService,
	}
}

// Create creates a new schedule
// @Summary Create a schedule
// @Description Create an ACTIVE schedule bound to a target and start firing it
// @Tags schedules
// @Accept json
// @Produce json
// @Param request body models.CreateScheduleRequest true "Schedule creation request"
// @Success 201 {object} Response{data=models.Schedule}
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Failure 409 {object} Response
// @Failure 500 {object} Response
// @Router /api/v1/schedules [post]
func (h *ScheduleHandler) Create(c *fiber.Ctx) error {
	var req models.CreateScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return BadRequest(c, "Invalid request body")
	}

	schedule, err := h.scheduleService.Create(c.Context(), &req)
	if err != nil {
		return ServiceError(c, err)
	}

	return Created(c, schedule)
}

// Get retrieves a schedule by ID
// @Summary Get a schedule
// @Description Get a schedule by ID
// @Tags schedules
// @Produce json
// @Param id path int true "Schedule ID"
// @Success 200 {object} Response{data=models.Schedule}
// @Failure 404 {object} Response
// @Failure 500 {object} Response
// @Router /api/v1/schedules/{id} [get]
func (h *ScheduleHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return BadRequest(c, "Invalid schedule ID")
	}

	schedule, err := h.scheduleService.GetByID(c.Context(), uint(id))
	if err != nil {
		return ServiceError(c, err)
	}

	return Success(c, schedule)
}

// List lists schedules
// @Summary List schedules
// @Description List schedules with optional status filter and paging
// @Tags schedules
// @Produce json
// @Param status query string false "Filter by status (ACTIVE, PAUSED, STOPPED)"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} Response{data=[]models.Schedule}
// @Failure 400 {object} Response
// @Failure 500 {object} Response
// @Router /api/v1/schedules [get]
func (h *ScheduleHandler) List(c *fiber.Ctx) error {
	result, err := h.scheduleService.List(
		c.Context(),
		models.ScheduleStatus(c.Query("status")),
		c.QueryInt("page", 1),
		c.QueryInt("page_size", 20),
	)
	if err != nil {
		return ServiceError(c, err)
	}

	return SuccessWithMeta(c, result.Schedules, &Meta{
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalCount: result.TotalCount,
		HasMore:    result.HasMore,
	})
}

// Update updates a schedule
// @Summary Update a schedule
// @Description Update name, interval or duration; an ACTIVE schedule's timer is re-installed
// @Tags schedules
// @Accept json
// @Produce json
// @Param id path int true "Schedule ID"
// @Param request body models.UpdateScheduleRequest true "Schedule update request"
// @Success 200 {object} Response{data=models.Schedule}
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Failure 409 {object} Response
// @Failure 500 {object} Response
// @Router /api/v1/schedules/{id} [put]
func (h *ScheduleHandler) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return BadRequest(c, "Invalid schedule ID")
	}

	var req models.UpdateScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return BadRequest(c, "Invalid request body")
	}

	schedule, err := h.scheduleService.Update(c.Context(), uint(id), &req)
	if err != nil {
		return ServiceError(c, err)
	}

	return Success(c, schedule)
}

// Delete deletes a schedule
// @Summary Delete a schedule
// @Description Drop the schedule's timer and delete it; runs and attempts cascade
// @Tags schedules
// @Param id path int true "Schedule ID"
// @Success 204 "No Content"
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Failure 500 {object} Response
// @Router /api/v1/schedules/{id} [delete]
func (h *ScheduleHandler) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return BadRequest(c, "Invalid schedule ID")
	}

	if err := h.scheduleService.Delete(c.Context(), uint(id)); err != nil {
		return ServiceError(c, err)
	}

	return NoContent(c)
}

// Pause pauses a schedule
// @Summary Pause a schedule
// @Description Pause an ACTIVE schedule; firing stops until resumed
// @Tags schedules
// @Produce json
// @Param id path int true "Schedule ID"
// @Success 200 {object} Response{data=models.Schedule}
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Failure 500 {object} Response
// @Router /api/v1/schedules/{id}/pause [post]
func (h *ScheduleHandler) Pause(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return BadRequest(c, "Invalid schedule ID")
	}

	schedule, err := h.scheduleService.Pause(c.Context(), uint(id))
	if err != nil {
		return ServiceError(c, err)
	}

	return Success(c, schedule)
}

// Resume resumes a paused schedule
// @Summary Resume a schedule
// @Description Resume a PAUSED schedule; firing picks up on a fresh interval
// @Tags schedules
// @Produce json
// @Param id path int true "Schedule ID"
// @Success 200 {object} Response{data=models.Schedule}
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Failure 500 {object} Response
// @Router /api/v1/schedules/{id}/resume [post]
func (h *ScheduleHandler) Resume(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return BadRequest(c, "Invalid schedule ID")
	}

	schedule, err := h.scheduleService.Resume(c.Context(), uint(id))
	if err != nil {
		return ServiceError(c, err)
	}

	return Success(c, schedule)
}

// Stop stops a schedule permanently
// @Summary Stop a schedule
// @Description Transition a schedule to its terminal STOPPED state
// @Tags schedules
// @Produce json
// @Param id path int true "Schedule ID"
// @Success 200 {object} Response{data=models.Schedule}
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Failure 500 {object} Response
// @Router /api/v1/schedules/{id}/stop [post]
func (h *ScheduleHandler) Stop(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return BadRequest(c, "Invalid schedule ID")
	}

	schedule, err := h.scheduleService.Stop(c.Context(), uint(id))
	if err != nil {
		return ServiceError(c, err)
	}

	return Success(c, schedule)
}
