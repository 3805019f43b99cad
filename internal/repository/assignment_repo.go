package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gradeflow-api/internal/models"
)

// AssignmentFilter narrows assignment queries.
type AssignmentFilter struct {
	ScopeKind *models.ScopeKind
	ScopeID   *uint
	Status    *models.AssignmentStatus
	Page      int
	PageSize  int
}

// PrerequisiteEdge is one directed dependency between two assignments.
type PrerequisiteEdge struct {
	AssignmentID   uint
	PrerequisiteID uint
}

// AssignmentRepository defines data operations for assignments and their
// prerequisite graph.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (models.Assignment, error)
	List(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, int64, error)
	ListByScope(ctx context.Context, scope models.Scope) ([]models.Assignment, error)
	AddPrerequisite(ctx context.Context, assignmentID, prerequisiteID uint) error
	RemovePrerequisite(ctx context.Context, assignmentID, prerequisiteID uint) error
	ListPrerequisiteEdges(ctx context.Context) ([]PrerequisiteEdge, error)
	ListPrerequisites(ctx context.Context, assignmentID uint) ([]*models.Assignment, error)
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository constructs the assignment repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *assignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Save(assignment).Error
}

func (r *assignmentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Assignment{}, id).Error
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("display_order ASC") }).
		Preload("Prerequisites").
		First(&assignment, id).Error; err != nil {
		return models.Assignment{}, err
	}

	return assignment, nil
}

func (r *assignmentRepository) List(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Assignment{})

	if filter.ScopeKind != nil {
		query = query.Where("scope_kind = ?", *filter.ScopeKind)
	}

	if filter.ScopeID != nil {
		query = query.Where("scope_id = ?", *filter.ScopeID)
	}

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

	var assignments []models.Assignment
	if err := query.Order("created_at DESC").Find(&assignments).Error; err != nil {
		return nil, 0, err
	}

	return assignments, total, nil
}

func (r *assignmentRepository) ListByScope(ctx context.Context, scope models.Scope) ([]models.Assignment, error) {
	var assignments []models.Assignment
	if err := r.db.WithContext(ctx).
		Where("scope_kind = ? AND scope_id = ?", scope.Kind, scope.ID).
		Order("created_at ASC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *assignmentRepository) AddPrerequisite(ctx context.Context, assignmentID, prerequisiteID uint) error {
	return r.db.WithContext(ctx).Exec(
		"INSERT INTO assignment_prerequisites (assignment_id, prerequisite_id) VALUES (?, ?)",
		assignmentID, prerequisiteID,
	).Error
}

func (r *assignmentRepository) RemovePrerequisite(ctx context.Context, assignmentID, prerequisiteID uint) error {
	return r.db.WithContext(ctx).Exec(
		"DELETE FROM assignment_prerequisites WHERE assignment_id = ? AND prerequisite_id = ?",
		assignmentID, prerequisiteID,
	).Error
}

func (r *assignmentRepository) ListPrerequisiteEdges(ctx context.Context) ([]PrerequisiteEdge, error) {
	var edges []PrerequisiteEdge
	if err := r.db.WithContext(ctx).
		Table("assignment_prerequisites").
		Select("assignment_id, prerequisite_id").
		Scan(&edges).Error; err != nil {
		return nil, err
	}

	return edges, nil
}

func (r *assignmentRepository) ListPrerequisites(ctx context.Context, assignmentID uint) ([]*models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).
		Preload("Prerequisites").
		First(&assignment, assignmentID).Error; err != nil {
		return nil, err
	}

	return assignment.Prerequisites, nil
}
