package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/minisource/heartbeat/internal/models"
	"gorm.io/gorm"
)

// RunRepository handles run and attempt persistence
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a run row and fills in its ID
func (r *RunRepository) Create(ctx context.Context, run *models.Run) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Update applies the given column updates to a run
func (r *RunRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.Run{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Finish writes a run's final fields and its attempt row in one transaction
func (r *RunRepository) Finish(ctx context.Context, id uint, updates map[string]interface{}, attempt *models.Attempt) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Run{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// Run vanished mid-firing (cascade delete); nothing to attach
			// the attempt to.
			return gorm.ErrRecordNotFound
		}
		return tx.Create(attempt).Error
	})
}

// CreateWithAttempt inserts an already-terminal run together with its attempt
// in one transaction
func (r *RunRepository) CreateWithAttempt(ctx context.Context, run *models.Run, attempt *models.Attempt) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return err
		}
		attempt.RunID = run.ID
		return tx.Create(attempt).Error
	})
}

// FindWithAttempts retrieves a run and its attempts
func (r *RunRepository) FindWithAttempts(ctx context.Context, id uint) (*models.Run, error) {
	var run models.Run
	err := r.db.WithContext(ctx).
		Preload("Attempts", func(db *gorm.DB) *gorm.DB {
			return db.Order("attempt_number ASC")
		}).
		First(&run, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Query finds runs matching the filter, newest first
func (r *RunRepository) Query(ctx context.Context, filter models.RunFilter) (*models.RunListResult, error) {
	var runs []models.Run
	var total int64

	query := r.buildRunQuery(filter).WithContext(ctx)

	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	offset := (page - 1) * pageSize
	err := query.Order("started_at DESC").Offset(offset).Limit(pageSize).Find(&runs).Error
	if err != nil {
		return nil, err
	}

	return &models.RunListResult{
		Runs:       runs,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		HasMore:    int64(page*pageSize) < total,
	}, nil
}

// buildRunQuery creates the GORM query from filter
func (r *RunRepository) buildRunQuery(filter models.RunFilter) *gorm.DB {
	query := r.db.Model(&models.Run{})

	if filter.ScheduleID != nil {
		query = query.Where("schedule_id = ?", *filter.ScheduleID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.StartTime != nil {
		query = query.Where("started_at >= ?", *filter.StartTime)
	}
	if filter.EndTime != nil {
		query = query.Where("started_at <= ?", *filter.EndTime)
	}

	return query
}

// Count returns the total number of runs
func (r *RunRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Run{}).Count(&count).Error
	return count, err
}

// CountByStatus returns run counts grouped by status
func (r *RunRepository) CountByStatus(ctx context.Context) (map[models.RunStatus]int64, error) {
	var results []struct {
		Status models.RunStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Run{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.RunStatus]int64, len(results))
	for _, res := range results {
		counts[res.Status] = res.Count
	}
	return counts, nil
}

// CountSince counts runs started at or after the given instant
func (r *RunRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Run{}).
		Where("started_at >= ?", since).
		Count(&count).Error
	return count, err
}

// AverageLatencyMS returns the mean latency over all completed runs, or nil
// when no run has a latency yet
func (r *RunRepository) AverageLatencyMS(ctx context.Context) (*float64, error) {
	row := r.db.WithContext(ctx).
		Model(&models.Run{}).
		Select("AVG(latency_ms)").
		Where("latency_ms IS NOT NULL").
		Row()

	var avg sql.NullFloat64
	if err := row.Scan(&avg); err != nil {
		return nil, err
	}
	if !avg.Valid {
		return nil, nil
	}
	return &avg.Float64, nil
}

// ScheduleRunCounts returns the total and successful run counts for one
// schedule
func (r *RunRepository) ScheduleRunCounts(ctx context.Context, scheduleID uint) (total, successful int64, err error) {
	row := r.db.WithContext(ctx).
		Model(&models.Run{}).
		Select("COUNT(*), SUM(CASE WHEN status = ? THEN 1 ELSE 0 END)", models.RunStatusSuccess).
		Where("schedule_id = ?", scheduleID).
		Row()

	var success sql.NullInt64
	if err = row.Scan(&total, &success); err != nil {
		return 0, 0, err
	}
	return total, success.Int64, nil
}

// LastRunAt returns the most recent firing instant for a schedule, or nil
// when it has never fired
func (r *RunRepository) LastRunAt(ctx context.Context, scheduleID uint) (*time.Time, error) {
	var run models.Run
	err := r.db.WithContext(ctx).
		Where("schedule_id = ?", scheduleID).
		Order("started_at DESC").
		First(&run).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &run.StartedAt, nil
}
