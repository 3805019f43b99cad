package dto

import (
	"time"

	"github.com/noah-isme/gradeflow-api/internal/models"
)

// QuestionCreateRequest describes the payload for adding a question.
type QuestionCreateRequest struct {
	Type               string   `json:"type" validate:"required,oneof=multiple_choice checkbox essay file_upload"`
	Content            string   `json:"content" validate:"required"`
	Options            []string `json:"options" validate:"omitempty,min=2,dive,required"`
	AnswerKey          []string `json:"answer_key"`
	Weight             float64  `json:"weight" validate:"required,gt=0"`
	MaxScore           float64  `json:"max_score" validate:"required,gt=0"`
	Order              int      `json:"order" validate:"gte=0"`
	MaxFileSize        *int64   `json:"max_file_size" validate:"omitempty,gt=0"`
	AllowedFileTypes   []string `json:"allowed_file_types"`
	AllowMultipleFiles bool     `json:"allow_multiple_files"`
}

// QuestionUpdateRequest describes the payload for editing a question.
type QuestionUpdateRequest struct {
	Content            *string  `json:"content" validate:"omitempty,min=1"`
	Options            []string `json:"options" validate:"omitempty,min=2,dive,required"`
	Weight             *float64 `json:"weight" validate:"omitempty,gt=0"`
	MaxScore           *float64 `json:"max_score" validate:"omitempty,gt=0"`
	Order              *int     `json:"order" validate:"omitempty,gte=0"`
	MaxFileSize        *int64   `json:"max_file_size" validate:"omitempty,gt=0"`
	AllowedFileTypes   []string `json:"allowed_file_types"`
	AllowMultipleFiles *bool    `json:"allow_multiple_files"`
}

// QuestionReorderRequest replaces the display order of an assignment's
// questions. Every question must be listed exactly once.
type QuestionReorderRequest struct {
	QuestionIDs []uint `json:"question_ids" validate:"required,min=1,dive,required"`
}

// AnswerKeyUpdateRequest replaces the answer key of an auto-gradable question.
type AnswerKeyUpdateRequest struct {
	AnswerKey []string `json:"answer_key" validate:"required,min=1,dive,required"`
}

// QuestionResponse is the serialized representation of a question. The answer
// key field is omitted unless the caller is staff.
type QuestionResponse struct {
	ID                 uint      `json:"id"`
	AssignmentID       uint      `json:"assignment_id"`
	Type               string    `json:"type"`
	Content            string    `json:"content"`
	Options            []string  `json:"options,omitempty"`
	AnswerKey          []string  `json:"answer_key,omitempty"`
	Weight             float64   `json:"weight"`
	MaxScore           float64   `json:"max_score"`
	Order              int       `json:"order"`
	MaxFileSize        *int64    `json:"max_file_size,omitempty"`
	AllowedFileTypes   []string  `json:"allowed_file_types,omitempty"`
	AllowMultipleFiles bool      `json:"allow_multiple_files"`
	CreatedAt          time.Time `json:"created_at"`
}

// NewQuestionResponse converts a model into a DTO.
func NewQuestionResponse(model models.Question, includeKey bool) QuestionResponse {
	resp := QuestionResponse{
		ID:                 model.ID,
		AssignmentID:       model.AssignmentID,
		Type:               string(model.Type),
		Content:            model.Content,
		Options:            model.Options,
		Weight:             model.Weight,
		MaxScore:           model.MaxScore,
		Order:              model.Order,
		MaxFileSize:        model.MaxFileSize,
		AllowedFileTypes:   model.AllowedFileTypes,
		AllowMultipleFiles: model.AllowMultipleFiles,
		CreatedAt:          model.CreatedAt,
	}

	if includeKey {
		resp.AnswerKey = model.AnswerKey
	}

	return resp
}

// NewQuestionResponseSlice converts a slice of models into DTOs.
func NewQuestionResponseSlice(questions []models.Question, includeKey bool) []QuestionResponse {
	responses := make([]QuestionResponse, 0, len(questions))
	for _, question := range questions {
		responses = append(responses, NewQuestionResponse(question, includeKey))
	}

	return responses
}
