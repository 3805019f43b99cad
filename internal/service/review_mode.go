package service

import "github.com/noah-isme/gradeflow-api/internal/models"

// ResultsVisible decides whether a student may see scores and feedback for a
// submission, based on the assignment's review mode:
//
//	immediate - visible as soon as the attempt carries a finalized score
//	deferred  - visible only after the grade is released
//	hidden    - never visible to the student
//
// Staff callers bypass this policy entirely.
func ResultsVisible(mode models.ReviewMode, state models.SubmissionState) bool {
	switch mode {
	case models.ReviewModeImmediate:
		switch state {
		case models.StateAutoGraded, models.StateGraded, models.StateReleased:
			return true
		}
		return false
	case models.ReviewModeDeferred:
		return state == models.StateReleased
	case models.ReviewModeHidden:
		return false
	}
	return false
}

// AnswerKeyVisible decides whether the correct answers may be shown to a
// student. Keys follow the same gating as results but are additionally
// withheld until release in immediate mode, so an early finisher cannot leak
// them to students still working.
func AnswerKeyVisible(mode models.ReviewMode, state models.SubmissionState) bool {
	if mode == models.ReviewModeHidden {
		return false
	}
	return state == models.StateReleased
}
