package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gradeflow-api/internal/models"
)

// EnrollmentRepository defines read operations for course enrollments.
type EnrollmentRepository interface {
	IsEnrolled(ctx context.Context, userID, courseID uint) (bool, error)
	ListStudentIDs(ctx context.Context, courseID uint) ([]uint, error)
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository constructs the enrollment repository.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) IsEnrolled(ctx context.Context, userID, courseID uint) (bool, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ? AND status = ?", userID, courseID, models.EnrollmentStatusActive).
		Count(&total).Error; err != nil {
		return false, err
	}

	return total > 0, nil
}

func (r *enrollmentRepository) ListStudentIDs(ctx context.Context, courseID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("course_id = ? AND status = ?", courseID, models.EnrollmentStatusActive).
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}

	return ids, nil
}
