package dto

import (
	"time"

	"github.com/noah-isme/gradeflow-api/internal/models"
)

// AnswerScoreInput assigns a score to one answer during manual grading.
type AnswerScoreInput struct {
	AnswerID uint    `json:"answer_id" validate:"required"`
	Score    float64 `json:"score" validate:"gte=0"`
	Feedback string  `json:"feedback"`
}

// ManualGradeRequest finalizes manual grading of a submission.
type ManualGradeRequest struct {
	Scores   []AnswerScoreInput `json:"scores" validate:"required,min=1,dive"`
	Feedback string             `json:"feedback"`
}

// DraftGradeRequest persists grading progress without finalizing.
type DraftGradeRequest struct {
	Scores   []AnswerScoreInput `json:"scores" validate:"omitempty,dive"`
	Feedback string             `json:"feedback"`
}

// OverrideGradeRequest replaces a computed score with a manual decision.
type OverrideGradeRequest struct {
	Score  float64 `json:"score" validate:"gte=0"`
	Reason string  `json:"reason" validate:"required,min=3"`
}

// GradeResponse is the serialized representation of a grade record.
type GradeResponse struct {
	ID             uint       `json:"id"`
	SubmissionID   uint       `json:"submission_id"`
	UserID         uint       `json:"user_id"`
	GradedBy       *uint      `json:"graded_by,omitempty"`
	Score          *float64   `json:"score,omitempty"`
	MaxScore       float64    `json:"max_score"`
	Feedback       string     `json:"feedback,omitempty"`
	IsDraft        bool       `json:"is_draft"`
	IsOverride     bool       `json:"is_override"`
	OriginalScore  *float64   `json:"original_score,omitempty"`
	OverrideReason string     `json:"override_reason,omitempty"`
	GradedAt       *time.Time `json:"graded_at,omitempty"`
	ReleasedAt     *time.Time `json:"released_at,omitempty"`
}

// NewGradeResponse converts a model into a DTO.
func NewGradeResponse(model models.Grade) GradeResponse {
	return GradeResponse{
		ID:             model.ID,
		SubmissionID:   model.SubmissionID,
		UserID:         model.UserID,
		GradedBy:       model.GradedBy,
		Score:          model.Score,
		MaxScore:       model.MaxScore,
		Feedback:       model.Feedback,
		IsDraft:        model.IsDraft,
		IsOverride:     model.IsOverride,
		OriginalScore:  model.OriginalScore,
		OverrideReason: model.OverrideReason,
		GradedAt:       model.GradedAt,
		ReleasedAt:     model.ReleasedAt,
	}
}

// GradingQueueItem is one submission awaiting manual grading.
type GradingQueueItem struct {
	SubmissionID  uint       `json:"submission_id"`
	AssignmentID  uint       `json:"assignment_id"`
	UserID        uint       `json:"user_id"`
	StudentName   string     `json:"student_name,omitempty"`
	AttemptNumber int        `json:"attempt_number"`
	IsLate        bool       `json:"is_late"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
}

// BulkRequest targets a set of submissions for a bulk operation.
type BulkRequest struct {
	SubmissionIDs []uint `json:"submission_ids" validate:"required,min=1,dive,required"`
}

// BulkFeedbackRequest appends feedback to many submissions at once.
type BulkFeedbackRequest struct {
	SubmissionIDs []uint `json:"submission_ids" validate:"required,min=1,dive,required"`
	Feedback      string `json:"feedback" validate:"required,min=1"`
}

// BulkFailure reports one per-item failure inside a bulk operation.
type BulkFailure struct {
	SubmissionID uint   `json:"submission_id"`
	Reason       string `json:"reason"`
}

// BulkResult reports per-item outcomes of a synchronous bulk operation.
type BulkResult struct {
	Succeeded []uint        `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

// AsyncAck acknowledges acceptance of an asynchronous bulk operation.
type AsyncAck struct {
	JobID    string `json:"job_id"`
	Accepted int    `json:"accepted"`
}
