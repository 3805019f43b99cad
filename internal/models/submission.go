package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/gradeflow-api/internal/domainerr"
	"github.com/noah-isme/gradeflow-api/internal/events"
)

// SubmissionState is the single source of truth for the submission lifecycle.
// The legacy status enum is derived at the serialization boundary only.
type SubmissionState string

const (
	StateInProgress           SubmissionState = "in_progress"
	StateSubmitted            SubmissionState = "submitted"
	StateAutoGraded           SubmissionState = "auto_graded"
	StatePendingManualGrading SubmissionState = "pending_manual_grading"
	StateGraded               SubmissionState = "graded"
	StateReleased             SubmissionState = "released"
)

// validTransitions is the forward state machine. ReturnToQueue is the single
// sanctioned backward edge (Graded -> PendingManualGrading).
var validTransitions = map[SubmissionState][]SubmissionState{
	StateInProgress:           {StateSubmitted},
	StateSubmitted:            {StateAutoGraded, StatePendingManualGrading},
	StateAutoGraded:           {StateReleased},
	StatePendingManualGrading: {StateGraded},
	StateGraded:               {StateReleased, StatePendingManualGrading},
	StateReleased:             {},
}

// CanTransitionTo reports whether the edge is legal.
func (s SubmissionState) CanTransitionTo(next SubmissionState) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition exists.
func (s SubmissionState) Terminal() bool {
	return len(validTransitions[s]) == 0
}

// Submission is a student's attempt at an assignment. Attempt history is
// preserved as immutable rows; a resubmission supersedes the prior attempt via
// PreviousSubmissionID instead of destroying it.
type Submission struct {
	ID                   uint                      `gorm:"primaryKey" json:"id"`
	AssignmentID         uint                      `gorm:"not null;index:idx_submission_attempt,unique" json:"assignment_id"`
	UserID               uint                      `gorm:"not null;index:idx_submission_attempt,unique" json:"user_id"`
	EnrollmentID         *uint                     `json:"enrollment_id"`
	AnswerText           string                    `gorm:"type:text" json:"answer_text"`
	State                SubmissionState           `gorm:"size:32;not null;default:in_progress;index" json:"state"`
	Score                *float64                  `json:"score"`
	QuestionSet          datatypes.JSONSlice[uint] `json:"question_set,omitempty"`
	Seed                 int64                     `gorm:"not null;default:0" json:"seed"`
	SubmittedAt          *time.Time                `json:"submitted_at"`
	AttemptNumber        int                       `gorm:"not null;default:1;index:idx_submission_attempt,unique" json:"attempt_number"`
	IsLate               bool                      `gorm:"not null;default:false" json:"is_late"`
	IsHighest            bool                      `gorm:"not null;default:false" json:"is_highest"`
	IsResubmission       bool                      `gorm:"not null;default:false" json:"is_resubmission"`
	PreviousSubmissionID *uint                     `json:"previous_submission_id"`
	CreatedAt            time.Time                 `json:"created_at"`
	UpdatedAt            time.Time                 `json:"updated_at"`

	Assignment Assignment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assignment,omitempty"`
	User       User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"user,omitempty"`
	Answers    []Answer   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"answers,omitempty"`
	Grade      *Grade     `json:"grade,omitempty"`
	Appeal     *Appeal    `json:"appeal,omitempty"`
}

// IsCommitted reports whether the submission counts as an attempt.
func (s Submission) IsCommitted() bool {
	return s.State != StateInProgress
}

// IsGradedState reports whether the submission carries a finalized score.
func (s Submission) IsGradedState() bool {
	switch s.State {
	case StateAutoGraded, StateGraded, StateReleased:
		return true
	}
	return false
}

// TransitionTo validates and applies a state change, returning the event to
// dispatch once the row is persisted. It never touches storage itself.
func (s *Submission) TransitionTo(next SubmissionState, actorID uint) (events.SubmissionStateChanged, error) {
	if !s.State.CanTransitionTo(next) {
		return events.SubmissionStateChanged{}, domainerr.InvalidTransition(string(s.State), string(next))
	}

	old := s.State
	s.State = next

	return events.SubmissionStateChanged{
		SubmissionID: s.ID,
		AssignmentID: s.AssignmentID,
		UserID:       s.UserID,
		OldState:     string(old),
		NewState:     string(next),
		ActorID:      actorID,
	}, nil
}

// LegacyStatus derives the historical status enum for backward-compatible
// output. Kept out of storage on purpose.
func (s Submission) LegacyStatus() string {
	switch s.State {
	case StateInProgress:
		return "draft"
	case StateSubmitted, StatePendingManualGrading:
		if s.IsLate {
			return "late"
		}
		return "submitted"
	case StateAutoGraded, StateGraded, StateReleased:
		return "graded"
	}
	return ""
}
