package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/gradeflow-api/internal/models"
)

// OverrideRepository defines data operations for per-student overrides.
type OverrideRepository interface {
	Create(ctx context.Context, override *models.Override) error
	Update(ctx context.Context, override *models.Override) error
	GetByID(ctx context.Context, id uint) (models.Override, error)
	FindActive(ctx context.Context, assignmentID, studentID uint, overrideType models.OverrideType, ref time.Time) (models.Override, error)
	ListActiveForStudent(ctx context.Context, assignmentID, studentID uint, ref time.Time) ([]models.Override, error)
	ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Override, error)
}

type overrideRepository struct {
	db *gorm.DB
}

// NewOverrideRepository constructs the override repository.
func NewOverrideRepository(db *gorm.DB) OverrideRepository {
	return &overrideRepository{db: db}
}

func (r *overrideRepository) Create(ctx context.Context, override *models.Override) error {
	return r.db.WithContext(ctx).Create(override).Error
}

func (r *overrideRepository) Update(ctx context.Context, override *models.Override) error {
	return r.db.WithContext(ctx).Save(override).Error
}

func (r *overrideRepository) GetByID(ctx context.Context, id uint) (models.Override, error) {
	var override models.Override
	if err := r.db.WithContext(ctx).First(&override, id).Error; err != nil {
		return models.Override{}, err
	}

	return override, nil
}

func (r *overrideRepository) activeQuery(ctx context.Context, assignmentID, studentID uint, ref time.Time) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Override{}).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		Where("expires_at IS NULL OR expires_at > ?", ref)
}

func (r *overrideRepository) FindActive(ctx context.Context, assignmentID, studentID uint, overrideType models.OverrideType, ref time.Time) (models.Override, error) {
	var override models.Override
	if err := r.activeQuery(ctx, assignmentID, studentID, ref).
		Where("type = ?", overrideType).
		Order("created_at DESC").
		First(&override).Error; err != nil {
		return models.Override{}, err
	}

	return override, nil
}

func (r *overrideRepository) ListActiveForStudent(ctx context.Context, assignmentID, studentID uint, ref time.Time) ([]models.Override, error) {
	var overrides []models.Override
	if err := r.activeQuery(ctx, assignmentID, studentID, ref).
		Order("created_at DESC").
		Find(&overrides).Error; err != nil {
		return nil, err
	}

	return overrides, nil
}

func (r *overrideRepository) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Override, error) {
	var overrides []models.Override
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("created_at DESC").
		Find(&overrides).Error; err != nil {
		return nil, err
	}

	return overrides, nil
}
