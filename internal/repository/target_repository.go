package repository

import (
	"context"

	"github.com/minisource/heartbeat/internal/models"
	"gorm.io/gorm"
)

// TargetRepository handles target persistence
type TargetRepository struct {
	db *gorm.DB
}

// NewTargetRepository creates a new target repository
func NewTargetRepository(db *gorm.DB) *TargetRepository {
	return &TargetRepository{db: db}
}

// Create creates a new target
func (r *TargetRepository) Create(ctx context.Context, target *models.Target) error {
	return r.db.WithContext(ctx).Create(target).Error
}

// Update applies the given column updates to a target
func (r *TargetRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.Target{}).
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

// Delete removes a target; dependent schedules, runs and attempts go with it
// through the FK cascade chain.
func (r *TargetRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Target{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindByID retrieves a target by ID
func (r *TargetRepository) FindByID(ctx context.Context, id uint) (*models.Target, error) {
	var target models.Target
	err := r.db.WithContext(ctx).First(&target, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &target, nil
}

// FindByName retrieves a target by its unique name
func (r *TargetRepository) FindByName(ctx context.Context, name string) (*models.Target, error) {
	var target models.Target
	err := r.db.WithContext(ctx).First(&target, "name = ?", name).Error
	if err != nil {
		return nil, err
	}
	return &target, nil
}

// List returns a page of targets with the total count
func (r *TargetRepository) List(ctx context.Context, page, pageSize int) (*models.TargetListResult, error) {
	var targets []models.Target
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Target{})
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
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&targets).Error
	if err != nil {
		return nil, err
	}

	return &models.TargetListResult{
		Targets:    targets,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		HasMore:    int64(page*pageSize) < total,
	}, nil
}
