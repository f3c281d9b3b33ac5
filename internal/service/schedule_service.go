package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minisource/heartbeat/internal/models"
	"github.com/minisource/heartbeat/internal/repository"
	"github.com/minisource/heartbeat/internal/scheduler"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ScheduleService handles schedule business logic. Every mutation commits
// the row first, then notifies the scheduler; the row is authoritative.
type ScheduleService struct {
	scheduleRepo *repository.ScheduleRepository
	targetRepo   *repository.TargetRepository
	scheduler    *scheduler.Scheduler
	logger       *zap.SugaredLogger
}

// NewScheduleService creates a new schedule service
func NewScheduleService(
	scheduleRepo *repository.ScheduleRepository,
	targetRepo *repository.TargetRepository,
	sched *scheduler.Scheduler,
	logger *zap.SugaredLogger,
) *ScheduleService {
	return &ScheduleService{
		scheduleRepo: scheduleRepo,
		targetRepo:   targetRepo,
		scheduler:    sched,
		logger:       logger,
	}
}

// Create creates a new ACTIVE schedule and installs its timer
func (s *ScheduleService) Create(ctx context.Context, req *models.CreateScheduleRequest) (*models.Schedule, error) {
	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	if !req.ScheduleType.Valid() {
		return nil, validationError("schedule_type must be INTERVAL or WINDOW")
	}
	if req.IntervalSeconds < 1 {
		return nil, validationError("interval_seconds must be positive")
	}

	var duration *int
	if req.ScheduleType == models.ScheduleTypeWindow {
		if req.DurationSeconds == nil || *req.DurationSeconds < 1 {
			return nil, validationError("window schedules require a positive duration_seconds")
		}
		duration = req.DurationSeconds
	}
	// INTERVAL schedules never carry a duration; a supplied one is dropped.

	if _, err := s.targetRepo.FindByID(ctx, req.TargetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrTargetNotFound, req.TargetID)
		}
		return nil, fmt.Errorf("failed to load target: %w", err)
	}

	schedule := &models.Schedule{
		Name:            req.Name,
		TargetID:        req.TargetID,
		ScheduleType:    req.ScheduleType,
		IntervalSeconds: req.IntervalSeconds,
		DurationSeconds: duration,
		Status:          models.ScheduleStatusActive,
	}

	if err := s.scheduleRepo.Create(ctx, schedule); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: schedule %q", ErrNameTaken, req.Name)
		}
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, fmt.Errorf("%w: id %d", ErrTargetNotFound, req.TargetID)
		}
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}

	if err := s.scheduler.AddJob(ctx, schedule); err != nil {
		s.logger.Errorw("schedule committed but timer installation failed",
			"schedule_id", schedule.ID, "error", err)
		return nil, fmt.Errorf("failed to install schedule timer: %w", err)
	}

	// AddJob may have opened the window or stopped an elapsed one.
	return s.GetByID(ctx, schedule.ID)
}

// GetByID retrieves a schedule by ID
func (s *ScheduleService) GetByID(ctx context.Context, id uint) (*models.Schedule, error) {
	schedule, err := s.scheduleRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	return schedule, nil
}

// List lists schedules with an optional status filter
func (s *ScheduleService) List(ctx context.Context, status models.ScheduleStatus, page, pageSize int) (*models.ScheduleListResult, error) {
	if status != "" {
		switch status {
		case models.ScheduleStatusActive, models.ScheduleStatusPaused, models.ScheduleStatusStopped:
		default:
			return nil, validationError("unknown status %q", status)
		}
	}
	return s.scheduleRepo.List(ctx, status, page, pageSize)
}

// Update applies a partial update. An ACTIVE schedule gets its timer
// re-installed so the new interval takes effect.
func (s *ScheduleService) Update(ctx context.Context, id uint, req *models.UpdateScheduleRequest) (*models.Schedule, error) {
	schedule, err := s.GetByID(ctx, id)
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
	if req.IntervalSeconds != nil {
		if *req.IntervalSeconds < 1 {
			return nil, validationError("interval_seconds must be positive")
		}
		updates["interval_seconds"] = *req.IntervalSeconds
	}
	if req.DurationSeconds != nil && schedule.ScheduleType == models.ScheduleTypeWindow {
		if *req.DurationSeconds < 1 {
			return nil, validationError("duration_seconds must be positive")
		}
		updates["duration_seconds"] = *req.DurationSeconds
	}

	if len(updates) == 0 {
		return schedule, nil
	}

	if err := s.scheduleRepo.Update(ctx, id, updates); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: schedule %q", ErrNameTaken, *req.Name)
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("failed to update schedule: %w", err)
	}

	fresh, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if fresh.Status == models.ScheduleStatusActive {
		if err := s.scheduler.AddJob(ctx, fresh); err != nil {
			s.logger.Errorw("schedule updated but timer re-installation failed",
				"schedule_id", id, "error", err)
			return nil, fmt.Errorf("failed to re-install schedule timer: %w", err)
		}
		// Re-installation can stop an elapsed window.
		return s.GetByID(ctx, id)
	}

	return fresh, nil
}

// Pause transitions ACTIVE → PAUSED and detaches the timer
func (s *ScheduleService) Pause(ctx context.Context, id uint) (*models.Schedule, error) {
	schedule, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if schedule.Status != models.ScheduleStatusActive {
		return nil, fmt.Errorf("%w: status is %s", ErrNotActive, schedule.Status)
	}

	err = s.scheduleRepo.Transition(ctx, id, models.ScheduleStatusActive, models.ScheduleStatusPaused)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: status changed concurrently", ErrNotActive)
		}
		return nil, fmt.Errorf("failed to pause schedule: %w", err)
	}

	s.scheduler.PauseJob(schedule)
	s.logger.Infow("paused schedule", "schedule_id", id)

	return s.GetByID(ctx, id)
}

// Resume transitions PAUSED → ACTIVE and re-attaches the timer
func (s *ScheduleService) Resume(ctx context.Context, id uint) (*models.Schedule, error) {
	schedule, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if schedule.Status != models.ScheduleStatusPaused {
		return nil, fmt.Errorf("%w: status is %s", ErrNotPaused, schedule.Status)
	}

	err = s.scheduleRepo.Transition(ctx, id, models.ScheduleStatusPaused, models.ScheduleStatusActive)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: status changed concurrently", ErrNotPaused)
		}
		return nil, fmt.Errorf("failed to resume schedule: %w", err)
	}

	fresh, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.scheduler.ResumeJob(ctx, fresh); err != nil {
		s.logger.Errorw("schedule resumed but timer re-attachment failed",
			"schedule_id", id, "error", err)
		return nil, fmt.Errorf("failed to re-attach schedule timer: %w", err)
	}

	s.logger.Infow("resumed schedule", "schedule_id", id)
	return s.GetByID(ctx, id)
}

// Stop transitions a schedule to its terminal STOPPED state and drops its
// timer
func (s *ScheduleService) Stop(ctx context.Context, id uint) (*models.Schedule, error) {
	schedule, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if schedule.Status == models.ScheduleStatusStopped {
		return nil, ErrAlreadyStopped
	}

	if err := s.scheduleRepo.MarkStopped(ctx, id, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to stop schedule: %w", err)
	}

	s.scheduler.RemoveJob(schedule)
	s.logger.Infow("stopped schedule", "schedule_id", id)

	return s.GetByID(ctx, id)
}

// Delete drops the schedule's timer and removes the row; runs and attempts
// cascade
func (s *ScheduleService) Delete(ctx context.Context, id uint) error {
	schedule, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	s.scheduler.RemoveJob(schedule)

	if err := s.scheduleRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}

	s.logger.Infow("deleted schedule", "schedule_id", id)
	return nil
}
