package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gradeflow-api/internal/models"
)

// GradeRepository defines data operations for grade records.
type GradeRepository interface {
	Create(ctx context.Context, grade *models.Grade) error
	Update(ctx context.Context, grade *models.Grade) error
	GetBySubmission(ctx context.Context, submissionID uint) (models.Grade, error)
	ListBySubmissions(ctx context.Context, submissionIDs []uint) ([]models.Grade, error)
	ListDraftsByGrader(ctx context.Context, graderID uint) ([]models.Grade, error)
}

type gradeRepository struct {
	db *gorm.DB
}

// NewGradeRepository constructs the grade repository.
func NewGradeRepository(db *gorm.DB) GradeRepository {
	return &gradeRepository{db: db}
}

func (r *gradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	return r.db.WithContext(ctx).Create(grade).Error
}

func (r *gradeRepository) Update(ctx context.Context, grade *models.Grade) error {
	return r.db.WithContext(ctx).Save(grade).Error
}

func (r *gradeRepository) GetBySubmission(ctx context.Context, submissionID uint) (models.Grade, error) {
	var grade models.Grade
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		First(&grade).Error; err != nil {
		return models.Grade{}, err
	}

	return grade, nil
}

func (r *gradeRepository) ListBySubmissions(ctx context.Context, submissionIDs []uint) ([]models.Grade, error) {
	if len(submissionIDs) == 0 {
		return nil, nil
	}

	var grades []models.Grade
	if err := r.db.WithContext(ctx).
		Where("submission_id IN ?", submissionIDs).
		Find(&grades).Error; err != nil {
		return nil, err
	}

	return grades, nil
}

func (r *gradeRepository) ListDraftsByGrader(ctx context.Context, graderID uint) ([]models.Grade, error) {
	var grades []models.Grade
	if err := r.db.WithContext(ctx).
		Where("graded_by = ? AND is_draft = ?", graderID, true).
		Order("updated_at DESC").
		Find(&grades).Error; err != nil {
		return nil, err
	}

	return grades, nil
}
