package dto

import (
	"time"

	"github.com/noah-isme/gradeflow-api/internal/models"
)

// AssignmentCreateRequest describes the payload for creating a new assignment.
type AssignmentCreateRequest struct {
	ScopeKind          string     `json:"scope_kind" validate:"required,oneof=lesson unit course"`
	ScopeID            uint       `json:"scope_id" validate:"required"`
	Title              string     `json:"title" validate:"required,min=3"`
	Description        string     `json:"description"`
	SubmissionType     string     `json:"submission_type" validate:"omitempty,oneof=text file mixed"`
	MaxScore           *float64   `json:"max_score" validate:"omitempty,gt=0"`
	AvailableFrom      *time.Time `json:"available_from"`
	DeadlineAt         *time.Time `json:"deadline_at"`
	ToleranceMinutes   int        `json:"tolerance_minutes" validate:"gte=0"`
	MaxAttempts        *int       `json:"max_attempts" validate:"omitempty,gte=1"`
	CooldownMinutes    int        `json:"cooldown_minutes" validate:"gte=0"`
	RetakeEnabled      *bool      `json:"retake_enabled"`
	ReviewMode         string     `json:"review_mode" validate:"omitempty,oneof=immediate deferred hidden"`
	RandomizationType  string     `json:"randomization_type" validate:"omitempty,oneof=static random_order bank"`
	QuestionBankCount  int        `json:"question_bank_count" validate:"gte=0"`
	AllowResubmit      *bool      `json:"allow_resubmit"`
	LatePenaltyPercent *int       `json:"late_penalty_percent" validate:"omitempty,gte=0,lte=100"`
}

// AssignmentUpdateRequest describes the payload for updating an assignment.
type AssignmentUpdateRequest struct {
	Title              *string    `json:"title" validate:"omitempty,min=3"`
	Description        *string    `json:"description"`
	SubmissionType     *string    `json:"submission_type" validate:"omitempty,oneof=text file mixed"`
	MaxScore           *float64   `json:"max_score" validate:"omitempty,gt=0"`
	AvailableFrom      *time.Time `json:"available_from"`
	DeadlineAt         *time.Time `json:"deadline_at"`
	ToleranceMinutes   *int       `json:"tolerance_minutes" validate:"omitempty,gte=0"`
	MaxAttempts        *int       `json:"max_attempts" validate:"omitempty,gte=1"`
	CooldownMinutes    *int       `json:"cooldown_minutes" validate:"omitempty,gte=0"`
	RetakeEnabled      *bool      `json:"retake_enabled"`
	ReviewMode         *string    `json:"review_mode" validate:"omitempty,oneof=immediate deferred hidden"`
	RandomizationType  *string    `json:"randomization_type" validate:"omitempty,oneof=static random_order bank"`
	QuestionBankCount  *int       `json:"question_bank_count" validate:"omitempty,gte=0"`
	AllowResubmit      *bool      `json:"allow_resubmit"`
	LatePenaltyPercent *int       `json:"late_penalty_percent" validate:"omitempty,gte=0,lte=100"`
}

// AssignmentListFilter narrows assignment listing.
type AssignmentListFilter struct {
	ScopeKind *string `query:"scope_kind" validate:"omitempty,oneof=lesson unit course"`
	ScopeID   *uint   `query:"scope_id"`
	Status    *string `query:"status" validate:"omitempty,oneof=draft published"`
	Page      int     `query:"page" validate:"gte=0"`
	PageSize  int     `query:"page_size" validate:"gte=0,lte=100"`
}

// AssignmentResponse is the serialized representation returned to API clients.
type AssignmentResponse struct {
	ID                 uint               `json:"id"`
	ScopeKind          string             `json:"scope_kind"`
	ScopeID            uint               `json:"scope_id"`
	Title              string             `json:"title"`
	Description        string             `json:"description"`
	SubmissionType     string             `json:"submission_type"`
	MaxScore           float64            `json:"max_score"`
	AvailableFrom      *time.Time         `json:"available_from"`
	DeadlineAt         *time.Time         `json:"deadline_at"`
	ToleranceMinutes   int                `json:"tolerance_minutes"`
	MaxAttempts        *int               `json:"max_attempts"`
	CooldownMinutes    int                `json:"cooldown_minutes"`
	RetakeEnabled      bool               `json:"retake_enabled"`
	ReviewMode         string             `json:"review_mode"`
	RandomizationType  string             `json:"randomization_type"`
	QuestionBankCount  int                `json:"question_bank_count"`
	Status             string             `json:"status"`
	AllowResubmit      *bool              `json:"allow_resubmit"`
	LatePenaltyPercent *int               `json:"late_penalty_percent"`
	PrerequisiteIDs    []uint             `json:"prerequisite_ids,omitempty"`
	Questions          []QuestionResponse `json:"questions,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// NewAssignmentResponse converts a model into a DTO. Answer keys are only
// included for staff callers.
func NewAssignmentResponse(model models.Assignment, includeKeys bool) AssignmentResponse {
	resp := AssignmentResponse{
		ID:                 model.ID,
		ScopeKind:          string(model.Scope.Kind),
		ScopeID:            model.Scope.ID,
		Title:              model.Title,
		Description:        model.Description,
		SubmissionType:     string(model.SubmissionType),
		MaxScore:           model.MaxScore,
		AvailableFrom:      model.AvailableFrom,
		DeadlineAt:         model.DeadlineAt,
		ToleranceMinutes:   model.ToleranceMinutes,
		MaxAttempts:        model.MaxAttempts,
		CooldownMinutes:    model.CooldownMinutes,
		RetakeEnabled:      model.RetakeEnabled,
		ReviewMode:         string(model.ReviewMode),
		RandomizationType:  string(model.RandomizationType),
		QuestionBankCount:  model.QuestionBankCount,
		Status:             string(model.Status),
		AllowResubmit:      model.AllowResubmit,
		LatePenaltyPercent: model.LatePenaltyPercent,
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
	}

	for _, prereq := range model.Prerequisites {
		resp.PrerequisiteIDs = append(resp.PrerequisiteIDs, prereq.ID)
	}

	for _, question := range model.Questions {
		resp.Questions = append(resp.Questions, NewQuestionResponse(question, includeKeys))
	}

	return resp
}

// NewAssignmentResponseSlice converts a slice of models into DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment, includeKeys bool) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment, includeKeys))
	}

	return responses
}

// EligibilityResponse reports whether a student may start an assignment and,
// if not, which prerequisites remain.
type EligibilityResponse struct {
	Eligible             bool   `json:"eligible"`
	MissingPrerequisites []uint `json:"missing_prerequisites,omitempty"`
}
