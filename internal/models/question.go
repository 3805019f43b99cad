package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/gradeflow-api/internal/domainerr"
)

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeCheckbox       QuestionType = "checkbox"
	QuestionTypeEssay          QuestionType = "essay"
	QuestionTypeFileUpload     QuestionType = "file_upload"
)

// CanAutoGrade reports whether answers of this type are scored automatically.
func (t QuestionType) CanAutoGrade() bool {
	return t == QuestionTypeMultipleChoice || t == QuestionTypeCheckbox
}

// RequiresOptions reports whether the type needs selectable choices.
func (t QuestionType) RequiresOptions() bool {
	return t == QuestionTypeMultipleChoice || t == QuestionTypeCheckbox
}

// Question belongs to one assignment and defines a single gradeable item.
type Question struct {
	ID                 uint                           `gorm:"primaryKey" json:"id"`
	AssignmentID       uint                           `gorm:"not null;index" json:"assignment_id"`
	Type               QuestionType                   `gorm:"size:32;not null" json:"type"`
	Content            string                         `gorm:"type:text;not null" json:"content"`
	Options            datatypes.JSONSlice[string]    `json:"options,omitempty"`
	AnswerKey          datatypes.JSONSlice[string]    `json:"answer_key,omitempty"`
	Weight             float64                        `gorm:"not null;default:1" json:"weight"`
	MaxScore           float64                        `gorm:"not null;default:100" json:"max_score"`
	Order              int                            `gorm:"column:display_order;not null;default:0" json:"order"`
	MaxFileSize        *int64                         `json:"max_file_size,omitempty"`
	AllowedFileTypes   datatypes.JSONSlice[string]    `json:"allowed_file_types,omitempty"`
	AllowMultipleFiles bool                           `gorm:"not null;default:false" json:"allow_multiple_files"`
	CreatedAt          time.Time                      `json:"created_at"`
	UpdatedAt          time.Time                      `json:"updated_at"`
}

// Validate enforces the structural rules for a question definition.
func (q Question) Validate() error {
	if q.Content == "" {
		return domainerr.Validation("question content is required")
	}
	if q.Weight <= 0 {
		return domainerr.Validation("question weight must be a positive number")
	}
	if q.MaxScore <= 0 {
		return domainerr.Validation("question max score must be a positive number")
	}
	if q.Type.RequiresOptions() && len(q.Options) == 0 {
		return domainerr.Validationf("options are required for %s questions", q.Type)
	}
	if q.Type.CanAutoGrade() && len(q.AnswerKey) == 0 {
		return domainerr.Validationf("answer key is required for %s questions", q.Type)
	}
	return nil
}
