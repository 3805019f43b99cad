package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gradeflow-api/internal/models"
)

// SubmissionFilter narrows submission queries.
type SubmissionFilter struct {
	AssignmentID *uint
	UserID       *uint
	State        *models.SubmissionState
	Page         int
	PageSize     int
}

// SubmissionRepository defines data operations for submission attempts.
// Attempt rows are immutable history: a retake creates a new row instead
// of overwriting the previous one.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	Update(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, int64, error)
	ListAttempts(ctx context.Context, assignmentID, userID uint) ([]models.Submission, error)
	GetLatestAttempt(ctx context.Context, assignmentID, userID uint) (models.Submission, error)
	GetInProgress(ctx context.Context, assignmentID, userID uint) (models.Submission, error)
	CountCommitted(ctx context.Context, assignmentID, userID uint) (int64, error)
	HighestScore(ctx context.Context, assignmentID, userID uint) (float64, error)
	MarkHighestAttempt(ctx context.Context, assignmentID, userID uint) error
	ListByAssignmentAndState(ctx context.Context, assignmentID uint, state models.SubmissionState) ([]models.Submission, error)
	ListIDsByAssignment(ctx context.Context, assignmentID uint) ([]uint, error)
	Transaction(ctx context.Context, fn func(tx SubmissionRepository) error) error
}

type submissionRepository struct {
	db      *gorm.DB
	locking bool
}

// NewSubmissionRepository constructs the submission repository. When
// rowLocking is true, attempt counting inside a transaction takes
// SELECT ... FOR UPDATE row locks to serialize concurrent retakes.
func NewSubmissionRepository(db *gorm.DB, rowLocking bool) SubmissionRepository {
	return &submissionRepository{db: db, locking: rowLocking}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Answers")
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{})

	if filter.AssignmentID != nil {
		query = query.Where("assignment_id = ?", *filter.AssignmentID)
	}

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}

	if filter.State != nil {
		query = query.Where("state = ?", *filter.State)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var submissions []models.Submission
	if err := query.Order("created_at DESC").Find(&submissions).Error; err != nil {
		return nil, 0, err
	}

	return submissions, total, nil
}

func (r *submissionRepository) ListAttempts(ctx context.Context, assignmentID, userID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND user_id = ?", assignmentID, userID).
		Order("attempt_number ASC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetLatestAttempt(ctx context.Context, assignmentID, userID uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).
		Where("assignment_id = ? AND user_id = ?", assignmentID, userID).
		Order("attempt_number DESC").
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) GetInProgress(ctx context.Context, assignmentID, userID uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).
		Where("assignment_id = ? AND user_id = ? AND state = ?", assignmentID, userID, models.StateInProgress).
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) CountCommitted(ctx context.Context, assignmentID, userID uint) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("assignment_id = ? AND user_id = ? AND state <> ?", assignmentID, userID, models.StateInProgress)

	if r.locking {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}

	return total, nil
}

// HighestScore returns the student's best score among their committed attempts
// on the assignment, or zero when none is scored yet.
func (r *submissionRepository) HighestScore(ctx context.Context, assignmentID, userID uint) (float64, error) {
	var highest *float64
	if err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("assignment_id = ? AND user_id = ? AND state <> ? AND score IS NOT NULL", assignmentID, userID, models.StateInProgress).
		Select("MAX(score)").
		Scan(&highest).Error; err != nil {
		return 0, err
	}

	if highest == nil {
		return 0, nil
	}

	return *highest, nil
}

// MarkHighestAttempt re-derives the is_highest flag for a student's attempts
// on the assignment, leaving it set only on the best scored committed row.
func (r *submissionRepository) MarkHighestAttempt(ctx context.Context, assignmentID, userID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var best models.Submission
		err := tx.
			Where("assignment_id = ? AND user_id = ? AND state <> ? AND score IS NOT NULL", assignmentID, userID, models.StateInProgress).
			Order("score DESC, attempt_number DESC").
			First(&best).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := tx.
			Model(&models.Submission{}).
			Where("assignment_id = ? AND user_id = ? AND is_highest = ? AND id <> ?", assignmentID, userID, true, best.ID).
			Update("is_highest", false).Error; err != nil {
			return err
		}

		return tx.
			Model(&models.Submission{}).
			Where("id = ?", best.ID).
			Update("is_highest", true).Error
	})
}

func (r *submissionRepository) ListByAssignmentAndState(ctx context.Context, assignmentID uint, state models.SubmissionState) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.baseQuery(ctx).
		Where("assignment_id = ? AND state = ?", assignmentID, state).
		Order("submitted_at ASC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) ListIDsByAssignment(ctx context.Context, assignmentID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("assignment_id = ?", assignmentID).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *submissionRepository) Transaction(ctx context.Context, fn func(tx SubmissionRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&submissionRepository{db: tx, locking: r.locking})
	})
}
