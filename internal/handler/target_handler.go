package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/minisource/heartbeat/internal/models"
	"github.com/minisource/heartbeat/internal/service"
)

// TargetHandler handles target-related HTTP requests
type TargetHandler struct {
	targetService *service.TargetService
}

// NewTargetHandler creates a new target handler
func NewTargetHandler(targetService *service.TargetService) *TargetHandler {
	return &TargetHandler{
		targetService: targetService,
	}
}

// Create creates a new target
// @Summary Create a target
// @Description Register an HTTP endpoint to be invoked by schedules
// @Tags targets
// @Accept json
// @Produce json
// @Param request body models.CreateTargetRequest true "Target creation request"
// @Success 201 {object} Response{data=models.Target}
// @Failure 400 {object} Response
// @Failure 409 {object} Response
// @Failure 500 {object} Response
// @Router /api/v1/targets [post]
func (h *TargetHandler) Create(c *fiber.Ctx) error {
	var req models.CreateTargetRequest
	if err := c.BodyParser(&req); err != nil {
		return BadRequest(c, "Invalid request body")
	}

	target, err := h.targetService.Create(c.Context(), &req)
	if err != nil {
		return ServiceError(c, err)
	}

	return Created(c, target)
}

// Get retrieves a target by ID
// @Summary Get a target
// @Description Get a target by ID
// @Tags targets
// @Produce json
// @Param id path int true "Target ID"
// @Success 200 {object} Response{data=models.Target}
// @Failure 404 {object} Response
// @Failure 500 {object} Response
// @Router /api/v1/targets/{id} [get]
func (h *TargetHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return BadRequest(c, "Invalid target ID")
	}

	target, err := h.targetService.GetByID(c.Context(), uint(id))
	if err != nil {
		return ServiceError(c, err)
	}

	return Success(c, target)
}

// List lists targets
// @Summary List targets
// @Description List targets with paging
// @Tags targets
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} Response{data=[]models.Target}
// @Failure 500 {object} Response
// @Router /api/v1/targets [get]
func (h *TargetHandler) List(c *fiber.Ctx) error {
	result, err := h.targetService.List(c.Context(), c.QueryInt("page", 1), c.QueryInt("page_size", 20))
	if err != nil {
		return ServiceError(c, err)
	}

	return SuccessWithMeta(c, result.Targets, &Meta{
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalCount: result.TotalCount,
		HasMore:    result.HasMore,
	})
}

// Update updates a target
// @Summary Update a target
// @Description Apply a partial update to a target
// @Tags targets
// @Accept json
// @Produce json
// @Param id path int true "Target ID"
// @Param request body models.UpdateTargetRequest true "Target update request"
// @Success 200 {object} Response{data=models.Target}
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Failure 409 {object} Response
// @Failure 500 {object} Response
// @Router /api/v1/targets/{id} [put]
func (h *TargetHandler) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return BadRequest(c, "Invalid target ID")
	}

	var req models.UpdateTargetRequest
	if err := c.BodyParser(&req); err != nil {
		return BadRequest(c, "Invalid request body")
	}

	target, err := h.targetService.Update(c.Context(), uint(id), &req)
	if err != nil {
		return ServiceError(c, err)
	}

	return Success(c, target)
}

// Delete deletes a target and its dependent schedules
// @Summary Delete a target
// @Description Delete a target; dependent schedules, runs and attempts cascade
// @Tags targets
// @Param id path int true "Target ID"
// @Success 204 "No Content"
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Failure 500 {object} Response
// @Router /api/v1/targets/{id} [delete]
func (h *TargetHandler) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return BadRequest(c, "Invalid target ID")
	}

	if err := h.targetService.Delete(c.Context(), uint(id)); err != nil {
		return ServiceError(c, err)
	}

	return NoContent(c)
}
