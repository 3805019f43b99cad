package dto

import (
	"time"

	"github.com/noah-isme/gradeflow-api/internal/models"
)

// AnswerInput is one question response inside a submit payload.
type AnswerInput struct {
	QuestionID      uint     `json:"question_id" validate:"required"`
	Content         string   `json:"content"`
	SelectedOptions []string `json:"selected_options"`
}

// SubmitAnswersRequest commits the answers of an in-progress submission.
type SubmitAnswersRequest struct {
	Answers []AnswerInput `json:"answers" validate:"required,min=1,dive"`
}

// LegacySubmitRequest is the single-shot create-elsewhere-and-submit payload
// kept for clients that predate per-question attempts.
type LegacySubmitRequest struct {
	AssignmentID uint   `json:"assignment_id" validate:"required"`
	AnswerText   string `json:"answer_text"`
}

// LegacyUpdateRequest corrects a legacy submission's free-text answer while it
// is still ungraded.
type LegacyUpdateRequest struct {
	AnswerText string `json:"answer_text" validate:"required"`
}

// LegacyGradeRequest scores a legacy submission in a single call.
type LegacyGradeRequest struct {
	Score    float64 `json:"score" validate:"gte=0"`
	Feedback string  `json:"feedback"`
}

// SubmissionListFilter narrows submission listing.
type SubmissionListFilter struct {
	AssignmentID *uint   `query:"assignment_id"`
	UserID       *uint   `query:"user_id"`
	State        *string `query:"state" validate:"omitempty,oneof=in_progress submitted auto_graded pending_manual_grading graded released"`
	Page         int     `query:"page" validate:"gte=0"`
	PageSize     int     `query:"page_size" validate:"gte=0,lte=100"`
}

// AnswerResponse is the serialized representation of one answer.
type AnswerResponse struct {
	ID              uint              `json:"id"`
	QuestionID      uint              `json:"question_id"`
	Content         string            `json:"content,omitempty"`
	SelectedOptions []string          `json:"selected_options,omitempty"`
	FilePaths       []string          `json:"file_paths,omitempty"`
	FileMetadata    []models.FileMeta `json:"file_metadata,omitempty"`
	FilesExpired    bool              `json:"files_expired"`
	Score           *float64          `json:"score,omitempty"`
	IsAutoGraded    bool              `json:"is_auto_graded"`
	Feedback        string            `json:"feedback,omitempty"`
}

// NewAnswerResponse converts a model into a DTO. Scores and feedback are
// stripped when the caller may not see results yet.
func NewAnswerResponse(model models.Answer, showResults bool) AnswerResponse {
	resp := AnswerResponse{
		ID:              model.ID,
		QuestionID:      model.QuestionID,
		Content:         model.Content,
		SelectedOptions: model.SelectedOptions,
		FilePaths:       model.FilePaths,
		FileMetadata:    model.FileMetadata,
		FilesExpired:    model.FilesExpiredAt != nil,
	}

	if showResults {
		resp.Score = model.Score
		resp.IsAutoGraded = model.IsAutoGraded
		resp.Feedback = model.Feedback
	}

	return resp
}

// SubmissionResponse is the serialized representation returned to API clients.
// Status is derived from the state machine for backward compatibility.
type SubmissionResponse struct {
	ID                   uint             `json:"id"`
	AssignmentID         uint             `json:"assignment_id"`
	UserID               uint             `json:"user_id"`
	State                string           `json:"state"`
	Status               string           `json:"status"`
	Score                *float64         `json:"score,omitempty"`
	AnswerText           string           `json:"answer_text,omitempty"`
	QuestionSet          []uint           `json:"question_set,omitempty"`
	AttemptNumber        int              `json:"attempt_number"`
	IsLate               bool             `json:"is_late"`
	IsHighest            bool             `json:"is_highest"`
	IsResubmission       bool             `json:"is_resubmission"`
	PreviousSubmissionID *uint            `json:"previous_submission_id,omitempty"`
	SubmittedAt          *time.Time       `json:"submitted_at,omitempty"`
	Answers              []AnswerResponse `json:"answers,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// NewSubmissionResponse converts a model into a DTO.
func NewSubmissionResponse(model models.Submission, showResults bool) SubmissionResponse {
	resp := SubmissionResponse{
		ID:                   model.ID,
		AssignmentID:         model.AssignmentID,
		UserID:               model.UserID,
		State:                string(model.State),
		Status:               model.LegacyStatus(),
		AnswerText:           model.AnswerText,
		QuestionSet:          model.QuestionSet,
		AttemptNumber:        model.AttemptNumber,
		IsLate:               model.IsLate,
		IsHighest:            model.IsHighest,
		IsResubmission:       model.IsResubmission,
		PreviousSubmissionID: model.PreviousSubmissionID,
		SubmittedAt:          model.SubmittedAt,
		CreatedAt:            model.CreatedAt,
		UpdatedAt:            model.UpdatedAt,
	}

	if showResults {
		resp.Score = model.Score
	}

	for _, answer := range model.Answers {
		resp.Answers = append(resp.Answers, NewAnswerResponse(answer, showResults))
	}

	return resp
}

// NewSubmissionResponseSlice converts a slice of models into DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission, showResults bool) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission, showResults))
	}

	return responses
}

// StartSubmissionResponse pairs a fresh attempt with its materialized
// question set, in presentation order and without answer keys.
type StartSubmissionResponse struct {
	Submission SubmissionResponse `json:"submission"`
	Questions  []QuestionResponse `json:"questions"`
}
