package models

import (
	"time"

	"gorm.io/datatypes"
)

// FileMeta describes an uploaded file. It outlives the file itself: when a
// file expires, paths are cleared but metadata is kept permanently.
type FileMeta struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

// Answer holds a student's response to a single question of a submission.
type Answer struct {
	ID              uint                          `gorm:"primaryKey" json:"id"`
	SubmissionID    uint                          `gorm:"not null;index" json:"submission_id"`
	QuestionID      uint                          `gorm:"not null;index" json:"question_id"`
	Content         string                        `gorm:"type:text" json:"content"`
	SelectedOptions datatypes.JSONSlice[string]   `json:"selected_options,omitempty"`
	FilePaths       datatypes.JSONSlice[string]   `json:"file_paths,omitempty"`
	FileMetadata    datatypes.JSONSlice[FileMeta] `json:"file_metadata,omitempty"`
	FilesExpiredAt  *time.Time                    `json:"files_expired_at"`
	Score           *float64                      `json:"score"`
	IsAutoGraded    bool                          `gorm:"not null;default:false" json:"is_auto_graded"`
	Feedback        string                        `gorm:"type:text" json:"feedback"`
	CreatedAt       time.Time                     `json:"created_at"`
	UpdatedAt       time.Time                     `json:"updated_at"`

	Question Question `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"question,omitempty"`
}

// IsGraded reports whether a score has been recorded.
func (a Answer) IsGraded() bool {
	return a.Score != nil
}

// HasFiles reports whether file content is still retrievable.
func (a Answer) HasFiles() bool {
	return len(a.FilePaths) > 0 && a.FilesExpiredAt == nil
}

// ExpireFiles clears retrievable paths while preserving metadata for
// record-keeping. Returns the paths that should be removed from storage.
func (a *Answer) ExpireFiles(now time.Time) []string {
	if len(a.FilePaths) == 0 {
		return nil
	}
	paths := make([]string, len(a.FilePaths))
	copy(paths, a.FilePaths)
	a.FilePaths = nil
	a.FilesExpiredAt = &now
	return paths
}
