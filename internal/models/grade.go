package models

import "time"

// Grade is the one-to-one grading record of a submission. A draft grade
// persists grading progress without finalizing or transitioning state.
type Grade struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	SubmissionID   uint       `gorm:"not null;uniqueIndex" json:"submission_id"`
	UserID         uint       `gorm:"not null;index" json:"user_id"`
	GradedBy       *uint      `json:"graded_by"`
	Score          *float64   `json:"score"`
	MaxScore       float64    `gorm:"not null;default:100" json:"max_score"`
	Feedback       string     `gorm:"type:text" json:"feedback"`
	IsDraft        bool       `gorm:"not null;default:false" json:"is_draft"`
	IsOverride     bool       `gorm:"not null;default:false" json:"is_override"`
	OriginalScore  *float64   `json:"original_score"`
	OverrideReason string     `gorm:"type:text" json:"override_reason"`
	GradedAt       *time.Time `json:"graded_at"`
	ReleasedAt     *time.Time `json:"released_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsReleased reports whether the grade is visible to the student.
func (g Grade) IsReleased() bool {
	return g.ReleasedAt != nil
}

// ApplyOverride replaces the displayed score while preserving the originally
// computed one for audit.
func (g *Grade) ApplyOverride(newScore float64, reason string, actorID uint, now time.Time) {
	if !g.IsOverride {
		g.OriginalScore = g.Score
	}
	g.Score = &newScore
	g.IsOverride = true
	g.OverrideReason = reason
	g.GradedBy = &actorID
	g.GradedAt = &now
}
