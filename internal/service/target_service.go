package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/minisource/heartbeat/internal/models"
	"github.com/minisource/heartbeat/internal/repository"
	"github.com/minisource/heartbeat/internal/scheduler"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TargetService handles target business logic
type TargetService struct {
	targetRepo   *repository.TargetRepository
	scheduleRepo *repository.ScheduleRepository
	scheduler    *scheduler.Scheduler
	logger       *zap.SugaredLogger
}

// NewTargetService creates a new target service
func NewTargetService(
	targetRepo *repository.TargetRepository,
	scheduleRepo *repository.ScheduleRepository,
	sched *scheduler.Scheduler,
	logger *zap.SugaredLogger,
) *TargetService {
	return &TargetService{
		targetRepo:   targetRepo,
		scheduleRepo: scheduleRepo,
		scheduler:    sched,
		logger:       logger,
	}
}

// Create creates a new target
func (s *TargetService) Create(ctx context.Context, req *models.CreateTargetRequest) (*models.Target, error) {
	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	if err := validateURL(req.URL); err != nil {
		return nil, err
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = "GET"
	}
	if !models.ValidHTTPMethod(method) {
		return nil, validationError("unsupported method %q", req.Method)
	}

	target := &models.Target{
		Name:    req.Name,
		URL:     req.URL,
		Method:  method,
		Headers: models.HeaderMap(req.Headers),
		Body:    req.Body,
	}

	if err := s.targetRepo.Create(ctx, target); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: target %q", ErrNameTaken, req.Name)
		}
		return nil, fmt.Errorf("failed to create target: %w", err)
	}

	return target, nil
}

// GetByID retrieves a target by ID
func (s *TargetService) GetByID(ctx context.Context, id uint) (*models.Target, error) {
	target, err := s.targetRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTargetNotFound
		}
		return nil, err
	}
	return target, nil
}

// List lists targets with paging
func (s *TargetService) List(ctx context.Context, page, pageSize int) (*models.TargetListResult, error) {
	return s.targetRepo.List(ctx, page, pageSize)
}

// Update applies a partial update to a target
func (s *TargetService) Update(ctx context.Context, id uint, req *models.UpdateTargetRequest) (*models.Target, error) {
	target, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		if err := validateName(*req.Name); err != nil {
			return nil, err
		}
		updates["name"] = *req.Name
	}
	if req.URL != nil {
		if err := validateURL(*req.URL); err != nil {
			return nil, err
		}
		updates["url"] = *req.URL
	}
	if req.Method != nil {
		method := strings.ToUpper(*req.Method)
		if !models.ValidHTTPMethod(method) {
			return nil, validationError("unsupported method %q", *req.Method)
		}
		updates["method"] = method
	}
	if req.Headers != nil {
		updates["headers"] = models.HeaderMap(*req.Headers)
	}
	if req.Body != nil {
		updates["body"] = req.Body
	}

	if len(updates) == 0 {
		return target, nil
	}

	if err := s.targetRepo.Update(ctx, id, updates); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: target %q", ErrNameTaken, *req.Name)
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTargetNotFound
		}
		return nil, fmt.Errorf("failed to update target: %w", err)
	}

	return s.GetByID(ctx, id)
}

// Delete removes a target. Timers of dependent schedules are dropped first;
// the row delete then cascades schedules, runs and attempts.
func (s *TargetService) Delete(ctx context.Context, id uint) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}

	schedules, err := s.scheduleRepo.ListByTarget(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load dependent schedules: %w", err)
	}
	for i := range schedules {
		s.scheduler.RemoveJob(&schedules[i])
	}

	if err := s.targetRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete target: %w", err)
	}

	s.logger.Infow("deleted target", "target_id", id, "schedules_removed", len(schedules))
	return nil
}

// validateName checks the shared name constraints
func validateName(name string) error {
	if name == "" {
		return validationError("name must not be empty")
	}
	if len(name) > 255 {
		return validationError("name must be at most 255 characters")
	}
	return nil
}

// validateURL requires an absolute http or https URL
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return validationError("invalid url: %v", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return validationError("url must be absolute http or https")
	}
	return nil
}
