package events

import "time"

// Event is a domain occurrence exposed to external subscribers. Payloads carry
// enough data for an audit or notification consumer to act without querying
// back into the service.
type Event interface {
	Subject() string
}

// SubmissionCreated is emitted after a submission row is committed.
type SubmissionCreated struct {
	SubmissionID  uint      `json:"submission_id"`
	AssignmentID  uint      `json:"assignment_id"`
	UserID        uint      `json:"user_id"`
	AttemptNumber int       `json:"attempt_number"`
	IsLate        bool      `json:"is_late"`
	IsResubmit    bool      `json:"is_resubmission"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

func (SubmissionCreated) Subject() string { return "gradeflow.submission.created" }

// SubmissionStateChanged is emitted on every successful state transition.
type SubmissionStateChanged struct {
	SubmissionID uint   `json:"submission_id"`
	AssignmentID uint   `json:"assignment_id"`
	UserID       uint   `json:"user_id"`
	OldState     string `json:"old_state"`
	NewState     string `json:"new_state"`
	ActorID      uint   `json:"actor_id"`
}

func (SubmissionStateChanged) Subject() string { return "gradeflow.submission.state_changed" }

// AssignmentPublished is emitted when an assignment leaves draft.
type AssignmentPublished struct {
	AssignmentID uint       `json:"assignment_id"`
	Title        string     `json:"title"`
	ScopeKind    string     `json:"scope_kind"`
	ScopeID      uint       `json:"scope_id"`
	DeadlineAt   *time.Time `json:"deadline_at,omitempty"`
}

func (AssignmentPublished) Subject() string { return "gradeflow.assignment.published" }

// OverrideGranted is emitted after an instructor override is persisted.
type OverrideGranted struct {
	OverrideID   uint       `json:"override_id"`
	AssignmentID uint       `json:"assignment_id"`
	StudentID    uint       `json:"student_id"`
	GrantorID    uint       `json:"grantor_id"`
	Type         string     `json:"type"`
	Reason       string     `json:"reason"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

func (OverrideGranted) Subject() string { return "gradeflow.override.granted" }

// AnswerKeyChanged is emitted when an instructor replaces a question's answer
// key after submissions may already have been scored against it.
type AnswerKeyChanged struct {
	QuestionID   uint     `json:"question_id"`
	AssignmentID uint     `json:"assignment_id"`
	OldKey       []string `json:"old_key"`
	NewKey       []string `json:"new_key"`
	InstructorID uint     `json:"instructor_id"`
}

func (AnswerKeyChanged) Subject() string { return "gradeflow.question.answer_key_changed" }

// NewHighScoreAchieved is emitted when a committed score beats every prior
// committed score for the same student and assignment.
type NewHighScoreAchieved struct {
	SubmissionID  uint     `json:"submission_id"`
	AssignmentID  uint     `json:"assignment_id"`
	UserID        uint     `json:"user_id"`
	PreviousScore *float64 `json:"previous_score,omitempty"`
	NewScore      float64  `json:"new_score"`
}

func (NewHighScoreAchieved) Subject() string { return "gradeflow.submission.new_high_score" }

// GradeRecalculated is emitted when a background recalculation changes a
// submission's aggregate score.
type GradeRecalculated struct {
	SubmissionID uint    `json:"submission_id"`
	QuestionID   uint    `json:"question_id"`
	OldScore     float64 `json:"old_score"`
	NewScore     float64 `json:"new_score"`
}

func (GradeRecalculated) Subject() string { return "gradeflow.grade.recalculated" }

// GradesReleased is emitted when grades become visible to students.
type GradesReleased struct {
	SubmissionIDs []uint `json:"submission_ids"`
	ReleasedBy    uint   `json:"released_by"`
}

func (GradesReleased) Subject() string { return "gradeflow.grade.released" }

// AppealSubmitted is emitted when a student contests a late-rejected submission.
type AppealSubmitted struct {
	AppealID     uint `json:"appeal_id"`
	SubmissionID uint `json:"submission_id"`
	StudentID    uint `json:"student_id"`
}

func (AppealSubmitted) Subject() string { return "gradeflow.appeal.submitted" }

// AppealDecided is emitted when an instructor approves or denies an appeal.
type AppealDecided struct {
	AppealID     uint   `json:"appeal_id"`
	SubmissionID uint   `json:"submission_id"`
	ReviewerID   uint   `json:"reviewer_id"`
	Decision     string `json:"decision"`
	Reason       string `json:"reason,omitempty"`
}

func (AppealDecided) Subject() string { return "gradeflow.appeal.decided" }
