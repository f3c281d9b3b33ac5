package scheduler

import (
	"context"
	"time"

	"github.com/minisource/heartbeat/internal/models"
	"github.com/minisource/heartbeat/internal/repository"
)

// Recorder persists the run ledger around each firing. The write is
// two-phase: a provisional row goes in before the request so an in-flight
// firing is observable, and the final fields land together with the attempt
// row once the outcome is known.
type Recorder struct {
	runs *repository.RunRepository
}

// NewRecorder creates a new recorder
func NewRecorder(runs *repository.RunRepository) *Recorder {
	return &Recorder{runs: runs}
}

// Begin inserts the provisional run row with the request snapshot. The row
// stays FAILED until Finish overwrites it, so a crash mid-firing leaves a
// terminal record.
func (r *Recorder) Begin(ctx context.Context, schedule *models.Schedule, target *models.Target, startedAt time.Time) (*models.Run, error) {
	run := &models.Run{
		ScheduleID:     schedule.ID,
		Status:         models.RunStatusFailed,
		StartedAt:      startedAt,
		RequestURL:     target.URL,
		RequestMethod:  target.Method,
		RequestHeaders: target.Headers,
		RequestBody:    target.Body,
	}
	if err := r.runs.Create(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// Finish writes the outcome onto the run and inserts its attempt row in one
// transaction.
func (r *Recorder) Finish(ctx context.Context, run *models.Run, result *ExecutionResult, completedAt time.Time) error {
	updates := map[string]interface{}{
		"status":              result.Status,
		"completed_at":        completedAt,
		"status_code":         result.StatusCode,
		"latency_ms":          result.LatencyMS,
		"response_size_bytes": result.ResponseSizeBytes,
		"error_message":       result.ErrorMessage,
		"error_type":          result.ErrorType,
		"response_headers":    result.ResponseHeaders,
		"response_body":       result.ResponseBody,
	}

	latency := result.LatencyMS
	attempt := &models.Attempt{
		RunID:         run.ID,
		AttemptNumber: 1,
		Status:        result.Status,
		StartedAt:     run.StartedAt,
		CompletedAt:   &completedAt,
		StatusCode:    result.StatusCode,
		LatencyMS:     &latency,
		ErrorMessage:  result.ErrorMessage,
		ErrorType:     result.ErrorType,
	}

	return r.runs.Finish(ctx, run.ID, updates, attempt)
}

// RecordSynthetic writes an immediately-terminal FAILED run with no request
// snapshot, for firings that could not reach the request stage.
func (r *Recorder) RecordSynthetic(ctx context.Context, scheduleID uint, message string) error {
	now := time.Now()
	errType := models.ErrorTypeUnknown
	latency := 0.0

	run := &models.Run{
		ScheduleID:   scheduleID,
		Status:       models.RunStatusFailed,
		StartedAt:    now,
		CompletedAt:  &now,
		LatencyMS:    &latency,
		ErrorMessage: &message,
		ErrorType:    &errType,
	}
	attempt := &models.Attempt{
		AttemptNumber: 1,
		Status:        models.RunStatusFailed,
		StartedAt:     now,
		CompletedAt:   &now,
		LatencyMS:     &latency,
		ErrorMessage:  &message,
		ErrorType:     &errType,
	}

	return r.runs.CreateWithAttempt(ctx, run, attempt)
}

// ForceFail stamps a provisional run terminal after the normal finish path
// failed.
func (r *Recorder) ForceFail(ctx context.Context, runID uint, message string) error {
	now := time.Now()
	errType := models.ErrorTypeUnknown
	return r.runs.Update(ctx, runID, map[string]interface{}{
		"status":        models.RunStatusFailed,
		"completed_at":  now,
		"error_message": message,
		"error_type":    errType,
	})
}
