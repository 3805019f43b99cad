package models

import (
	"time"

	"gorm.io/datatypes"
)

// OverrideType enumerates the restrictions an instructor may lift for a
// single student on a single assignment.
type OverrideType string

const (
	OverridePrerequisite OverrideType = "prerequisite"
	OverrideAttempts     OverrideType = "attempts"
	OverrideDeadline     OverrideType = "deadline"
)

// ValidOverrideType reports whether the string names a known override type.
func ValidOverrideType(t string) bool {
	switch OverrideType(t) {
	case OverridePrerequisite, OverrideAttempts, OverrideDeadline:
		return true
	}
	return false
}

// OverrideValue is the type-specific payload of an override. Only the field
// matching the override type is populated.
type OverrideValue struct {
	ExtendedDeadline        *time.Time `json:"extended_deadline,omitempty"`
	AdditionalAttempts      *int       `json:"additional_attempts,omitempty"`
	BypassedPrerequisiteIDs []uint     `json:"bypassed_prerequisites,omitempty"`
}

// Override records an instructor-granted exception. At most one active
// override per (assignment, student, type) is consulted at a time.
type Override struct {
	ID           uint                               `gorm:"primaryKey" json:"id"`
	AssignmentID uint                               `gorm:"not null;index:idx_override_lookup" json:"assignment_id"`
	StudentID    uint                               `gorm:"not null;index:idx_override_lookup" json:"student_id"`
	GrantorID    uint                               `gorm:"not null" json:"grantor_id"`
	Type         OverrideType                       `gorm:"size:32;not null;index:idx_override_lookup" json:"type"`
	Reason       string                             `gorm:"type:text;not null" json:"reason"`
	Value        datatypes.JSONType[OverrideValue]  `json:"value"`
	GrantedAt    time.Time                          `json:"granted_at"`
	ExpiresAt    *time.Time                         `json:"expires_at"`
	CreatedAt    time.Time                          `json:"created_at"`
	UpdatedAt    time.Time                          `json:"updated_at"`
}

// IsActive reports whether the override applies at the reference time.
// A nil ExpiresAt never expires.
func (o Override) IsActive(reference time.Time) bool {
	return o.ExpiresAt == nil || reference.Before(*o.ExpiresAt)
}

// ExtendedDeadline returns the extended deadline for deadline overrides,
// nil otherwise.
func (o Override) ExtendedDeadline() *time.Time {
	if o.Type != OverrideDeadline {
		return nil
	}
	return o.Value.Data().ExtendedDeadline
}

// AdditionalAttempts returns the extra attempts for attempts overrides,
// zero otherwise.
func (o Override) AdditionalAttempts() int {
	if o.Type != OverrideAttempts {
		return 0
	}
	if n := o.Value.Data().AdditionalAttempts; n != nil {
		return *n
	}
	return 0
}

// BypassedPrerequisites returns the specific prerequisite IDs bypassed by a
// prerequisite override. Empty means bypass all.
func (o Override) BypassedPrerequisites() []uint {
	if o.Type != OverridePrerequisite {
		return nil
	}
	return o.Value.Data().BypassedPrerequisiteIDs
}
