package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/gradeflow-api/internal/domainerr"
	"github.com/noah-isme/gradeflow-api/internal/events"
)

// AppealStatus enumerates the appeal lifecycle. Approved and denied are
// terminal.
type AppealStatus string

const (
	AppealPending  AppealStatus = "pending"
	AppealApproved AppealStatus = "approved"
	AppealDenied   AppealStatus = "denied"
)

// IsDecided reports whether the appeal reached a terminal status.
func (s AppealStatus) IsDecided() bool {
	return s == AppealApproved || s == AppealDenied
}

// AppealDocument records an uploaded supporting document.
type AppealDocument struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
}

// Appeal lets a student contest a late-rejected submission.
type Appeal struct {
	ID             uint                                `gorm:"primaryKey" json:"id"`
	SubmissionID   uint                                `gorm:"not null;uniqueIndex" json:"submission_id"`
	StudentID      uint                                `gorm:"not null;index" json:"student_id"`
	ReviewerID     *uint                               `json:"reviewer_id"`
	Reason         string                              `gorm:"type:text;not null" json:"reason"`
	Documents      datatypes.JSONSlice[AppealDocument] `json:"documents,omitempty"`
	Status         AppealStatus                        `gorm:"size:16;not null;default:pending" json:"status"`
	DecisionReason string                              `gorm:"type:text" json:"decision_reason"`
	SubmittedAt    time.Time                           `json:"submitted_at"`
	DecidedAt      *time.Time                          `json:"decided_at"`
	CreatedAt      time.Time                           `json:"created_at"`
	UpdatedAt      time.Time                           `json:"updated_at"`
}

// Approve marks the appeal approved, returning the event to dispatch.
func (a *Appeal) Approve(reviewerID uint, now time.Time) (events.AppealDecided, error) {
	if a.Status.IsDecided() {
		return events.AppealDecided{}, domainerr.Validation("appeal has already been decided")
	}

	a.Status = AppealApproved
	a.ReviewerID = &reviewerID
	a.DecidedAt = &now

	return events.AppealDecided{
		AppealID:     a.ID,
		SubmissionID: a.SubmissionID,
		ReviewerID:   reviewerID,
		Decision:     string(AppealApproved),
	}, nil
}

// Deny marks the appeal denied. A non-empty reason is required.
func (a *Appeal) Deny(reviewerID uint, reason string, now time.Time) (events.AppealDecided, error) {
	if a.Status.IsDecided() {
		return events.AppealDecided{}, domainerr.Validation("appeal has already been decided")
	}
	if strings.TrimSpace(reason) == "" {
		return events.AppealDecided{}, domainerr.Validation("decision reason is required when denying an appeal")
	}

	a.Status = AppealDenied
	a.ReviewerID = &reviewerID
	a.DecisionReason = reason
	a.DecidedAt = &now

	return events.AppealDecided{
		AppealID:     a.ID,
		SubmissionID: a.SubmissionID,
		ReviewerID:   reviewerID,
		Decision:     string(AppealDenied),
		Reason:       reason,
	}, nil
}
