package repository

import (
	"context"
	"time"

	"github.com/minisource/heartbeat/internal/models"
	"gorm.io/gorm"
)

// ScheduleRepository handles schedule persistence
type ScheduleRepository struct {
	db *gorm.DB
}

// NewScheduleRepository creates a new schedule repository
func NewScheduleRepository(db *gorm.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Create creates a new schedule
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.Schedule) error {
	return r.db.WithContext(ctx).Create(schedule).Error
}

// Update applies the given column updates to a schedule
func (r *ScheduleRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.Schedule{}).
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

// Delete removes a schedule; its runs and attempts cascade with it
func (r *ScheduleRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Schedule{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindByID retrieves a schedule by ID
func (r *ScheduleRepository) FindByID(ctx context.Context, id uint) (*models.Schedule, error) {
	var schedule models.Schedule
	err := r.db.WithContext(ctx).First(&schedule, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

// FindByName retrieves a schedule by its unique name
func (r *ScheduleRepository) FindByName(ctx context.Context, name string) (*models.Schedule, error) {
	var schedule models.Schedule
	err := r.db.WithContext(ctx).First(&schedule, "name = ?", name).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

// List returns a page of schedules, optionally filtered by status
func (r *ScheduleRepository) List(ctx context.Context, status models.ScheduleStatus, page, pageSize int) (*models.ScheduleListResult, error) {
	var schedules []models.Schedule
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Schedule{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&schedules).Error
	if err != nil {
		return nil, err
	}

	return &models.ScheduleListResult{
		Schedules:  schedules,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		HasMore:    int64(page*pageSize) < total,
	}, nil
}

// ListByTarget returns all schedules bound to a target
func (r *ScheduleRepository) ListByTarget(ctx context.Context, targetID uint) ([]models.Schedule, error) {
	var schedules []models.Schedule
	err := r.db.WithContext(ctx).
		Where("target_id = ?", targetID).
		Find(&schedules).Error
	return schedules, err
}

// ListActive returns every ACTIVE schedule; used on startup to rehydrate the
// job registry.
func (r *ScheduleRepository) ListActive(ctx context.Context) ([]models.Schedule, error) {
	var schedules []models.Schedule
	err := r.db.WithContext(ctx).
		Where("status = ?", models.ScheduleStatusActive).
		Find(&schedules).Error
	return schedules, err
}

// Transition moves a schedule between statuses in a single compare-and-swap
// UPDATE. ErrRecordNotFound means the row is gone or no longer in the
// expected status; callers that read the row first treat it as a lost race.
func (r *ScheduleRepository) Transition(ctx context.Context, id uint, from, to models.ScheduleStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.Schedule{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkStopped transitions a schedule to its terminal STOPPED state.
// Idempotent: a schedule that is already stopped (or gone) is left untouched,
// so the first stop instant wins.
func (r *ScheduleRepository) MarkStopped(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Schedule{}).
		Where("id = ? AND status <> ?", id, models.ScheduleStatusStopped).
		Updates(map[string]interface{}{
			"status":     models.ScheduleStatusStopped,
			"stopped_at": at,
		}).Error
}

// SetStarted records the first activation instant. First write wins: a
// schedule that already has started_at keeps it.
func (r *ScheduleRepository) SetStarted(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Schedule{}).
		Where("id = ? AND started_at IS NULL", id).
		Update("started_at", at).Error
}

// SetJobHandle records the derived timer registration name
func (r *ScheduleRepository) SetJobHandle(ctx context.Context, id uint, handle *string) error {
	return r.db.WithContext(ctx).
		Model(&models.Schedule{}).
		Where("id = ?", id).
		Update("job_handle", handle).Error
}

// CountByStatus counts schedules in the given status
func (r *ScheduleRepository) CountByStatus(ctx context.Context, status models.ScheduleStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Schedule{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

// ListAll returns every schedule; used by the per-schedule metrics view
func (r *ScheduleRepository) ListAll(ctx context.Context) ([]models.Schedule, error) {
	var schedules []models.Schedule
	err := r.db.WithContext(ctx).Order("id ASC").Find(&schedules).Error
	return schedules, err
}
