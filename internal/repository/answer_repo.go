package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/gradeflow-api/internal/models"
)

// AnswerRepository defines data operations for per-question answers.
type AnswerRepository interface {
	Create(ctx context.Context, answer *models.Answer) error
	Update(ctx context.Context, answer *models.Answer) error
	UpdateBatch(ctx context.Context, answers []models.Answer) error
	GetByID(ctx context.Context, id uint) (models.Answer, error)
	GetBySubmissionAndQuestion(ctx context.Context, submissionID, questionID uint) (models.Answer, error)
	ListBySubmission(ctx context.Context, submissionID uint) ([]models.Answer, error)
	ListWithExpiredFiles(ctx context.Context, olderThan time.Time, limit int) ([]models.Answer, error)
}

type answerRepository struct {
	db *gorm.DB
}

// NewAnswerRepository constructs the answer repository.
func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

func (r *answerRepository) Create(ctx context.Context, answer *models.Answer) error {
	return r.db.WithContext(ctx).Create(answer).Error
}

func (r *answerRepository) Update(ctx context.Context, answer *models.Answer) error {
	return r.db.WithContext(ctx).Save(answer).Error
}

func (r *answerRepository) UpdateBatch(ctx context.Context, answers []models.Answer) error {
	if len(answers) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range answers {
			if err := tx.Save(&answers[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *answerRepository) GetByID(ctx context.Context, id uint) (models.Answer, error) {
	var answer models.Answer
	if err := r.db.WithContext(ctx).First(&answer, id).Error; err != nil {
		return models.Answer{}, err
	}

	return answer, nil
}

func (r *answerRepository) GetBySubmissionAndQuestion(ctx context.Context, submissionID, questionID uint) (models.Answer, error) {
	var answer models.Answer
	if err := r.db.WithContext(ctx).
		Where("submission_id = ? AND question_id = ?", submissionID, questionID).
		First(&answer).Error; err != nil {
		return models.Answer{}, err
	}

	return answer, nil
}

func (r *answerRepository) ListBySubmission(ctx context.Context, submissionID uint) ([]models.Answer, error) {
	var answers []models.Answer
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("question_id ASC").
		Find(&answers).Error; err != nil {
		return nil, err
	}

	return answers, nil
}

func (r *answerRepository) ListWithExpiredFiles(ctx context.Context, olderThan time.Time, limit int) ([]models.Answer, error) {
	query := r.db.WithContext(ctx).
		Where("file_paths IS NOT NULL AND file_paths NOT IN ('null', '[]')").
		Where("files_expired_at IS NULL").
		Where("created_at < ?", olderThan).
		Order("created_at ASC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	var answers []models.Answer
	if err := query.Find(&answers).Error; err != nil {
		return nil, err
	}

	return answers, nil
}
