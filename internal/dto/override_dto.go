package dto

import (
	"time"

	"github.com/noah-isme/gradeflow-api/internal/models"
)

// OverrideGrantRequest grants one exception to one student.
type OverrideGrantRequest struct {
	StudentID               uint       `json:"student_id" validate:"required"`
	Type                    string     `json:"type" validate:"required,oneof=prerequisite attempts deadline"`
	Reason                  string     `json:"reason" validate:"required,min=3"`
	ExtendedDeadline        *time.Time `json:"extended_deadline"`
	AdditionalAttempts      *int       `json:"additional_attempts" validate:"omitempty,gte=1"`
	BypassedPrerequisiteIDs []uint     `json:"bypassed_prerequisites"`
	ExpiresAt               *time.Time `json:"expires_at"`
}

// OverrideResponse is the serialized representation of a granted override.
type OverrideResponse struct {
	ID                      uint       `json:"id"`
	AssignmentID            uint       `json:"assignment_id"`
	StudentID               uint       `json:"student_id"`
	GrantorID               uint       `json:"grantor_id"`
	Type                    string     `json:"type"`
	Reason                  string     `json:"reason"`
	ExtendedDeadline        *time.Time `json:"extended_deadline,omitempty"`
	AdditionalAttempts      int        `json:"additional_attempts,omitempty"`
	BypassedPrerequisiteIDs []uint     `json:"bypassed_prerequisites,omitempty"`
	GrantedAt               time.Time  `json:"granted_at"`
	ExpiresAt               *time.Time `json:"expires_at,omitempty"`
}

// NewOverrideResponse converts a model into a DTO.
func NewOverrideResponse(model models.Override) OverrideResponse {
	return OverrideResponse{
		ID:                      model.ID,
		AssignmentID:            model.AssignmentID,
		StudentID:               model.StudentID,
		GrantorID:               model.GrantorID,
		Type:                    string(model.Type),
		Reason:                  model.Reason,
		ExtendedDeadline:        model.ExtendedDeadline(),
		AdditionalAttempts:      model.AdditionalAttempts(),
		BypassedPrerequisiteIDs: model.BypassedPrerequisites(),
		GrantedAt:               model.GrantedAt,
		ExpiresAt:               model.ExpiresAt,
	}
}

// NewOverrideResponseSlice converts a slice of models into DTOs.
func NewOverrideResponseSlice(overrides []models.Override) []OverrideResponse {
	responses := make([]OverrideResponse, 0, len(overrides))
	for _, override := range overrides {
		responses = append(responses, NewOverrideResponse(override))
	}

	return responses
}
