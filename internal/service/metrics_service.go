package service

import (
	"context"
	"fmt"
	"time"

	"github.com/minisource/heartbeat/internal/models"
	"github.com/minisource/heartbeat/internal/repository"
)

// MetricsService aggregates the run ledger into operator-facing metrics
type MetricsService struct {
	runRepo      *repository.RunRepository
	scheduleRepo *repository.ScheduleRepository
}

// NewMetricsService creates a new metrics service
func NewMetricsService(runRepo *repository.RunRepository, scheduleRepo *repository.ScheduleRepository) *MetricsService {
	return &MetricsService{
		runRepo:      runRepo,
		scheduleRepo: scheduleRepo,
	}
}

// System returns system-wide run metrics
func (s *MetricsService) System(ctx context.Context) (*models.SystemMetrics, error) {
	total, err := s.runRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count runs: %w", err)
	}

	counts, err := s.runRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count runs by status: %w", err)
	}

	// Report every status so the contract is stable when a status has no
	// runs yet.
	byStatus := map[models.RunStatus]int64{
		models.RunStatusSuccess:         0,
		models.RunStatusFailed:          0,
		models.RunStatusTimeout:         0,
		models.RunStatusDNSError:        0,
		models.RunStatusConnectionError: 0,
	}
	for status, count := range counts {
		byStatus[status] = count
	}

	successRate := 0.0
	if total > 0 {
		successRate = float64(byStatus[models.RunStatusSuccess]) / float64(total) * 100
	}

	avgLatency, err := s.runRepo.AverageLatencyMS(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to average latency: %w", err)
	}

	lastHour, err := s.runRepo.CountSince(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to count recent runs: %w", err)
	}

	active, err := s.scheduleRepo.CountByStatus(ctx, models.ScheduleStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to count active schedules: %w", err)
	}

	return &models.SystemMetrics{
		TotalRuns:        total,
		RunsByStatus:     byStatus,
		SuccessRate:      successRate,
		AverageLatencyMS: avgLatency,
		RunsLastHour:     lastHour,
		ActiveSchedules:  active,
	}, nil
}

// Schedules returns per-schedule run counts and last firing instants
func (s *MetricsService) Schedules(ctx context.Context) ([]models.ScheduleMetrics, error) {
	schedules, err := s.scheduleRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}

	metrics := make([]models.ScheduleMetrics, 0, len(schedules))
	for i := range schedules {
		schedule := &schedules[i]

		total, successful, err := s.runRepo.ScheduleRunCounts(ctx, schedule.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count runs for schedule %d: %w", schedule.ID, err)
		}

		lastRun, err := s.runRepo.LastRunAt(ctx, schedule.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to find last run for schedule %d: %w", schedule.ID, err)
		}

		metrics = append(metrics, models.ScheduleMetrics{
			ScheduleID:     schedule.ID,
			Name:           schedule.Name,
			Status:         schedule.Status,
			TotalRuns:      total,
			SuccessfulRuns: successful,
			FailedRuns:     total - successful,
			LastRunAt:      lastRun,
		})
	}

	return metrics, nil
}
