package dto

import (
	"time"

	"github.com/noah-isme/gradeflow-api/internal/models"
)

// AppealCreateRequest opens an appeal against a late-rejected submission.
type AppealCreateRequest struct {
	Reason string `json:"reason" validate:"required,min=10"`
}

// AppealDecisionRequest resolves a pending appeal. Reason is mandatory for
// denials and optional for approvals.
type AppealDecisionRequest struct {
	Reason string `json:"reason"`
}

// AppealDocumentResponse describes one supporting document.
type AppealDocumentResponse struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
}

// AppealResponse is the serialized representation of an appeal.
type AppealResponse struct {
	ID             uint                     `json:"id"`
	SubmissionID   uint                     `json:"submission_id"`
	StudentID      uint                     `json:"student_id"`
	ReviewerID     *uint                    `json:"reviewer_id,omitempty"`
	Reason         string                   `json:"reason"`
	Documents      []AppealDocumentResponse `json:"documents,omitempty"`
	Status         string                   `json:"status"`
	DecisionReason string                   `json:"decision_reason,omitempty"`
	SubmittedAt    time.Time                `json:"submitted_at"`
	DecidedAt      *time.Time               `json:"decided_at,omitempty"`
}

// NewAppealResponse converts a model into a DTO.
func NewAppealResponse(model models.Appeal) AppealResponse {
	resp := AppealResponse{
		ID:             model.ID,
		SubmissionID:   model.SubmissionID,
		StudentID:      model.StudentID,
		ReviewerID:     model.ReviewerID,
		Reason:         model.Reason,
		Status:         string(model.Status),
		DecisionReason: model.DecisionReason,
		SubmittedAt:    model.SubmittedAt,
		DecidedAt:      model.DecidedAt,
	}

	for _, doc := range model.Documents {
		resp.Documents = append(resp.Documents, AppealDocumentResponse{
			Name:     doc.Name,
			MimeType: doc.MimeType,
			Size:     doc.Size,
			URL:      doc.URL,
		})
	}

	return resp
}

// NewAppealResponseSlice converts a slice of models into DTOs.
func NewAppealResponseSlice(appeals []models.Appeal) []AppealResponse {
	responses := make([]AppealResponse, 0, len(appeals))
	for _, appeal := range appeals {
		responses = append(responses, NewAppealResponse(appeal))
	}

	return responses
}
