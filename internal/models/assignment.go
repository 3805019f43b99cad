package models

import (
	"time"

	"github.com/noah-isme/gradeflow-api/internal/domainerr"
)

// ScopeKind identifies the curriculum level an assignment is attached to.
type ScopeKind string

// Scope kinds. An assignment attaches to exactly one.
const (
	ScopeLesson ScopeKind = "lesson"
	ScopeUnit   ScopeKind = "unit"
	ScopeCourse ScopeKind = "course"
)

// Scope is the single curriculum attachment of an assignment. Constructing it
// only through the New*Scope helpers keeps the "exactly one scope" rule a
// structural property instead of a runtime check.
type Scope struct {
	Kind ScopeKind `gorm:"column:scope_kind;size:16;not null" json:"kind"`
	ID   uint      `gorm:"column:scope_id;not null" json:"id"`
}

// NewLessonScope attaches an assignment to a lesson.
func NewLessonScope(lessonID uint) Scope { return Scope{Kind: ScopeLesson, ID: lessonID} }

// NewUnitScope attaches an assignment to a unit.
func NewUnitScope(unitID uint) Scope { return Scope{Kind: ScopeUnit, ID: unitID} }

// NewCourseScope attaches an assignment to a course.
func NewCourseScope(courseID uint) Scope { return Scope{Kind: ScopeCourse, ID: courseID} }

// ParseScope validates a kind/id pair coming from the transport layer.
func ParseScope(kind string, id uint) (Scope, error) {
	switch ScopeKind(kind) {
	case ScopeLesson, ScopeUnit, ScopeCourse:
	default:
		return Scope{}, domainerr.Validationf("invalid scope kind: %s", kind)
	}
	if id == 0 {
		return Scope{}, domainerr.Validation("scope id is required")
	}
	return Scope{Kind: ScopeKind(kind), ID: id}, nil
}

// Valid reports whether the scope was built through a constructor.
func (s Scope) Valid() bool {
	switch s.Kind {
	case ScopeLesson, ScopeUnit, ScopeCourse:
		return s.ID != 0
	}
	return false
}

// AssignmentStatus enumerates the assignment lifecycle.
type AssignmentStatus string

const (
	AssignmentStatusDraft     AssignmentStatus = "draft"
	AssignmentStatusPublished AssignmentStatus = "published"
)

// ReviewMode controls when students see answers and feedback.
type ReviewMode string

const (
	ReviewModeImmediate ReviewMode = "immediate"
	ReviewModeDeferred  ReviewMode = "deferred"
	ReviewModeHidden    ReviewMode = "hidden"
)

// RandomizationType controls how the per-attempt question set is materialized.
type RandomizationType string

const (
	RandomizationStatic      RandomizationType = "static"
	RandomizationRandomOrder RandomizationType = "random_order"
	RandomizationBank        RandomizationType = "bank"
)

// SubmissionType constrains what kind of answer content an assignment accepts.
type SubmissionType string

const (
	SubmissionTypeText  SubmissionType = "text"
	SubmissionTypeFile  SubmissionType = "file"
	SubmissionTypeMixed SubmissionType = "mixed"
)

// Assignment is a gradeable unit of work attached to exactly one scope.
type Assignment struct {
	ID                 uint              `gorm:"primaryKey" json:"id"`
	Scope              Scope             `gorm:"embedded" json:"scope"`
	CreatedBy          uint              `gorm:"not null" json:"created_by"`
	Title              string            `gorm:"size:255;not null" json:"title"`
	Description        string            `gorm:"type:text" json:"description"`
	SubmissionType     SubmissionType    `gorm:"size:16;not null;default:text" json:"submission_type"`
	MaxScore           float64           `gorm:"not null;default:100" json:"max_score"`
	AvailableFrom      *time.Time        `json:"available_from"`
	DeadlineAt         *time.Time        `json:"deadline_at"`
	ToleranceMinutes   int               `gorm:"not null;default:0" json:"tolerance_minutes"`
	MaxAttempts        *int              `json:"max_attempts"`
	CooldownMinutes    int               `gorm:"not null;default:0" json:"cooldown_minutes"`
	// No default tag: gorm drops zero-value fields that carry one on insert,
	// which would make retake_enabled=false unpersistable.
	RetakeEnabled      bool              `gorm:"not null" json:"retake_enabled"`
	ReviewMode         ReviewMode        `gorm:"size:16;not null;default:immediate" json:"review_mode"`
	RandomizationType  RandomizationType `gorm:"size:16;not null;default:static" json:"randomization_type"`
	QuestionBankCount  int               `gorm:"not null;default:0" json:"question_bank_count"`
	Status             AssignmentStatus  `gorm:"size:16;not null;default:draft" json:"status"`
	AllowResubmit      *bool             `json:"allow_resubmit"`
	LatePenaltyPercent *int              `json:"late_penalty_percent"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`

	Questions     []Question    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"questions,omitempty"`
	Prerequisites []*Assignment `gorm:"many2many:assignment_prerequisites;joinForeignKey:AssignmentID;joinReferences:PrerequisiteID" json:"prerequisites,omitempty"`
}

// IsAvailable reports whether students may submit at the reference time.
func (a Assignment) IsAvailable(reference time.Time) bool {
	if a.Status != AssignmentStatusPublished {
		return false
	}
	if a.AvailableFrom != nil && reference.Before(*a.AvailableFrom) {
		return false
	}
	return true
}

// IsPastDeadline reports whether the nominal deadline has passed. Used for the
// late flag; the hard cutoff additionally honors the tolerance window.
func (a Assignment) IsPastDeadline(reference time.Time) bool {
	if a.DeadlineAt == nil {
		return false
	}
	return reference.After(*a.DeadlineAt)
}

// DeadlineWithTolerance returns the hard submission cutoff, or nil when the
// assignment has no deadline.
func (a Assignment) DeadlineWithTolerance() *time.Time {
	if a.DeadlineAt == nil {
		return nil
	}
	cutoff := a.DeadlineAt.Add(time.Duration(a.ToleranceMinutes) * time.Minute)
	return &cutoff
}

// IsPastTolerance reports whether the hard cutoff has passed.
func (a Assignment) IsPastTolerance(reference time.Time) bool {
	cutoff := a.DeadlineWithTolerance()
	if cutoff == nil {
		return false
	}
	return reference.After(*cutoff)
}

// EffectiveLatePenalty resolves the late penalty percent, falling back to the
// system-wide default when the assignment does not set one.
func (a Assignment) EffectiveLatePenalty(defaultPercent int) int {
	if a.LatePenaltyPercent != nil {
		return *a.LatePenaltyPercent
	}
	return defaultPercent
}

// EffectiveAllowResubmit resolves the resubmission policy, falling back to the
// system-wide default when the assignment does not set one.
func (a Assignment) EffectiveAllowResubmit(defaultAllow bool) bool {
	if a.AllowResubmit != nil {
		return *a.AllowResubmit
	}
	return defaultAllow
}
