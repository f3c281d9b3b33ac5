package service

import (
	"context"
	"errors"

	"github.com/minisource/heartbeat/internal/models"
	"github.com/minisource/heartbeat/internal/repository"
	"gorm.io/gorm"
)

// RunService exposes the read-only run ledger
type RunService struct {
	runRepo *repository.RunRepository
}

// NewRunService creates a new run service
func NewRunService(runRepo *repository.RunRepository) *RunService {
	return &RunService{runRepo: runRepo}
}

// List queries runs, newest first
func (s *RunService) List(ctx context.Context, filter models.RunFilter) (*models.RunListResult, error) {
	if filter.Status != "" {
		switch filter.Status {
		case models.RunStatusSuccess, models.RunStatusFailed, models.RunStatusTimeout,
			models.RunStatusDNSError, models.RunStatusConnectionError:
		default:
			return nil, validationError("unknown status %q", filter.Status)
		}
	}
	return s.runRepo.Query(ctx, filter)
}

// GetWithAttempts retrieves one run with its attempts
func (s *RunService) GetWithAttempts(ctx context.Context, id uint) (*models.Run, error) {
	run, err := s.runRepo.FindWithAttempts(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return run, nil
}
