package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gradeflow-api/internal/models"
)

// AppealFilter narrows appeal queries.
type AppealFilter struct {
	Status   *models.AppealStatus
	Page     int
	PageSize int
}

// AppealRepository defines data operations for grade appeals.
type AppealRepository interface {
	Create(ctx context.Context, appeal *models.Appeal) error
	Update(ctx context.Context, appeal *models.Appeal) error
	GetByID(ctx context.Context, id uint) (models.Appeal, error)
	GetBySubmission(ctx context.Context, submissionID uint) (models.Appeal, error)
	List(ctx context.Context, filter AppealFilter) ([]models.Appeal, int64, error)
}

type appealRepository struct {
	db *gorm.DB
}

// NewAppealRepository constructs the appeal repository.
func NewAppealRepository(db *gorm.DB) AppealRepository {
	return &appealRepository{db: db}
}

func (r *appealRepository) Create(ctx context.Context, appeal *models.Appeal) error {
	return r.db.WithContext(ctx).Create(appeal).Error
}

func (r *appealRepository) Update(ctx context.Context, appeal *models.Appeal) error {
	return r.db.WithContext(ctx).Save(appeal).Error
}

func (r *appealRepository) GetByID(ctx context.Context, id uint) (models.Appeal, error) {
	var appeal models.Appeal
	if err := r.db.WithContext(ctx).First(&appeal, id).Error; err != nil {
		return models.Appeal{}, err
	}

	return appeal, nil
}

func (r *appealRepository) GetBySubmission(ctx context.Context, submissionID uint) (models.Appeal, error) {
	var appeal models.Appeal
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		First(&appeal).Error; err != nil {
		return models.Appeal{}, err
	}

	return appeal, nil
}

func (r *appealRepository) List(ctx context.Context, filter AppealFilter) ([]models.Appeal, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Appeal{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
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

	var appeals []models.Appeal
	if err := query.Order("created_at ASC").Find(&appeals).Error; err != nil {
		return nil, 0, err
	}

	return appeals, total, nil
}
