package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/noah-isme/gradeflow-api/internal/domainerr"
	"github.com/noah-isme/gradeflow-api/internal/dto"
	"github.com/noah-isme/gradeflow-api/internal/models"
)

func TestStartCreatesFirstAttempt(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(nil)
	q1 := env.seedMCQ(assignment.ID, 1, 1, "b")
	q2 := env.seedMCQ(assignment.ID, 2, 1, "c")

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{})
	resp, err := svc.Start(context.Background(), assignment.ID, 7)
	require.NoError(t, err)
	require.Equal(t, string(models.StateInProgress), resp.Submission.State)
	require.Equal(t, 1, resp.Submission.AttemptNumber)
	require.ElementsMatch(t, []uint{q1.ID, q2.ID}, resp.Submission.QuestionSet)
	require.Len(t, resp.Questions, 2)

	// answer keys never leak into the attempt payload
	for _, question := range resp.Questions {
		require.Empty(t, question.AnswerKey)
	}
}

func TestStartResumesInProgressAttempt(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(nil)
	env.seedMCQ(assignment.ID, 1, 1, "b")

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{})
	first, err := svc.Start(context.Background(), assignment.ID, 7)
	require.NoError(t, err)

	second, err := svc.Start(context.Background(), assignment.ID, 7)
	require.NoError(t, err)
	require.Equal(t, first.Submission.ID, second.Submission.ID)
}

func TestStartRejectsDraftAssignment(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(func(a *models.Assignment) {
		a.Status = models.AssignmentStatusDraft
	})

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{})
	_, err := svc.Start(context.Background(), assignment.ID, 7)
	require.ErrorIs(t, err, domainerr.ErrValidation)
}

func TestStartEnforcesMaxAttempts(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(func(a *models.Assignment) {
		a.MaxAttempts = ptrInt(1)
	})
	env.seedMCQ(assignment.ID, 1, 1, "b")
	env.seedSubmission(func(s *models.Submission) {
		s.AssignmentID = assignment.ID
		s.UserID = 7
		s.State = models.StateGraded
	})

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{})
	_, err := svc.Start(context.Background(), assignment.ID, 7)
	require.ErrorIs(t, err, domainerr.ErrMaxAttemptsReached)
}

func TestStartAttemptsOverrideGrantsExtraAttempt(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(func(a *models.Assignment) {
		a.MaxAttempts = ptrInt(1)
	})
	env.seedMCQ(assignment.ID, 1, 1, "b")
	submittedAt := time.Now().Add(-time.Hour)
	env.seedSubmission(func(s *models.Submission) {
		s.AssignmentID = assignment.ID
		s.UserID = 7
		s.State = models.StateGraded
		s.SubmittedAt = &submittedAt
	})

	_, err := env.overrideService().Grant(context.Background(), assignment.ID, 1, dto.OverrideGrantRequest{
		StudentID:          7,
		Type:               string(models.OverrideAttempts),
		Reason:             "technical issue during first attempt",
		AdditionalAttempts: ptrInt(1),
	})
	require.NoError(t, err)

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{})
	resp, err := svc.Start(context.Background(), assignment.ID, 7)
	require.NoError(t, err)
	require.Equal(t, 2, resp.Submission.AttemptNumber)

	// the override is per-student: another student is still limited
	env.seedSubmission(func(s *models.Submission) {
		s.AssignmentID = assignment.ID
		s.UserID = 8
		s.State = models.StateGraded
	})
	_, err = svc.Start(context.Background(), assignment.ID, 8)
	require.ErrorIs(t, err, domainerr.ErrMaxAttemptsReached)
}

func TestStartRejectsPastDeadline(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(func(a *models.Assignment) {
		a.DeadlineAt = ptrTime(time.Now().Add(-time.Hour))
	})
	env.seedMCQ(assignment.ID, 1, 1, "b")

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{})
	_, err := svc.Start(context.Background(), assignment.ID, 7)
	require.ErrorIs(t, err, domainerr.ErrDeadlinePassed)
}

func TestStartToleranceKeepsWindowOpen(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(func(a *models.Assignment) {
		a.DeadlineAt = ptrTime(time.Now().Add(-10 * time.Minute))
		a.ToleranceMinutes = 30
	})
	env.seedMCQ(assignment.ID, 1, 1, "b")

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{})
	_, err := svc.Start(context.Background(), assignment.ID, 7)
	require.NoError(t, err)
}

func TestStartDeadlineOverrideExtends(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(func(a *models.Assignment) {
		a.DeadlineAt = ptrTime(time.Now().Add(-time.Hour))
	})
	env.seedMCQ(assignment.ID, 1, 1, "b")

	_, err := env.overrideService().Grant(context.Background(), assignment.ID, 1, dto.OverrideGrantRequest{
		StudentID:        7,
		Type:             string(models.OverrideDeadline),
		Reason:           "documented illness",
		ExtendedDeadline: ptrTime(time.Now().Add(24 * time.Hour)),
	})
	require.NoError(t, err)

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{})
	_, err = svc.Start(context.Background(), assignment.ID, 7)
	require.NoError(t, err)

	// other students still hit the original deadline
	_, err = svc.Start(context.Background(), assignment.ID, 8)
	require.ErrorIs(t, err, domainerr.ErrDeadlinePassed)
}

func TestStartCooldownBlocksQuickRetake(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(func(a *models.Assignment) {
		a.CooldownMinutes = 60
	})
	env.seedMCQ(assignment.ID, 1, 1, "b")
	submittedAt := time.Now().Add(-10 * time.Minute)
	env.seedSubmission(func(s *models.Submission) {
		s.AssignmentID = assignment.ID
		s.UserID = 7
		s.State = models.StateGraded
		s.SubmittedAt = &submittedAt
	})

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{})
	_, err := svc.Start(context.Background(), assignment.ID, 7)
	require.ErrorIs(t, err, domainerr.ErrCooldownActive)
}

func TestStartRetakeDisabled(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(func(a *models.Assignment) {
		a.RetakeEnabled = false
	})
	env.seedMCQ(assignment.ID, 1, 1, "b")
	env.seedSubmission(func(s *models.Submission) {
		s.AssignmentID = assignment.ID
		s.UserID = 7
		s.State = models.StateGraded
	})

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{})
	_, err := svc.Start(context.Background(), assignment.ID, 7)
	require.ErrorIs(t, err, domainerr.ErrRetakeNotAllowed)
}

func TestStartRequiresEnrollmentForCourseScope(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(func(a *models.Assignment) {
		a.Scope = models.NewCourseScope(500)
	})
	env.seedMCQ(assignment.ID, 1, 1, "b")

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{})
	_, err := svc.Start(context.Background(), assignment.ID, 7)
	require.ErrorIs(t, err, domainerr.ErrForbidden)

	env.seedEnrollment(7, 500)
	_, err = svc.Start(context.Background(), assignment.ID, 7)
	require.NoError(t, err)
}

func TestStartBlocksOnUnmetPrerequisite(t *testing.T) {
	env := newTestEnv(t)
	prereq := env.seedAssignment(func(a *models.Assignment) {
		a.Title = "Warm-up quiz"
	})
	assignment := env.seedAssignment(nil)
	env.seedMCQ(assignment.ID, 1, 1, "b")
	require.NoError(t, env.assignments.AddPrerequisite(context.Background(), assignment.ID, prereq.ID))

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{})
	_, err := svc.Start(context.Background(), assignment.ID, 7)
	require.ErrorIs(t, err, domainerr.ErrValidation)

	// a graded attempt on the prerequisite unblocks the student
	env.seedSubmission(func(s *models.Submission) {
		s.AssignmentID = prereq.ID
		s.UserID = 7
		s.State = models.StateGraded
	})
	_, err = svc.Start(context.Background(), assignment.ID, 7)
	require.NoError(t, err)
}

func TestStartPrerequisiteOverrideBypasses(t *testing.T) {
	env := newTestEnv(t)
	prereq := env.seedAssignment(nil)
	assignment := env.seedAssignment(nil)
	env.seedMCQ(assignment.ID, 1, 1, "b")
	require.NoError(t, env.assignments.AddPrerequisite(context.Background(), assignment.ID, prereq.ID))

	_, err := env.overrideService().Grant(context.Background(), assignment.ID, 1, dto.OverrideGrantRequest{
		StudentID: 7,
		Type:      string(models.OverridePrerequisite),
		Reason:    "transfer credit from another section",
	})
	require.NoError(t, err)

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{})
	_, err = svc.Start(context.Background(), assignment.ID, 7)
	require.NoError(t, err)
}

func TestStartBankSeedIsStable(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(func(a *models.Assignment) {
		a.RandomizationType = models.RandomizationBank
		a.QuestionBankCount = 2
	})
	for i := 1; i <= 5; i++ {
		env.seedMCQ(assignment.ID, i, 1, "b")
	}

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{})
	resp, err := svc.Start(context.Background(), assignment.ID, 7)
	require.NoError(t, err)
	require.Len(t, resp.Submission.QuestionSet, 2)

	// resuming replays the same seed and yields the identical set
	resumed, err := svc.Start(context.Background(), assignment.ID, 7)
	require.NoError(t, err)
	require.Equal(t, resp.Submission.QuestionSet, resumed.Submission.QuestionSet)
}

func TestSubmitAnswersAutoGrades(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(nil)
	q1 := env.seedMCQ(assignment.ID, 1, 1, "b")
	q2 := env.seedMCQ(assignment.ID, 2, 1, "c")

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{})
	started, err := svc.Start(context.Background(), assignment.ID, 7)
	require.NoError(t, err)

	resp, err := svc.SubmitAnswers(context.Background(), started.Submission.ID, 7, dto.SubmitAnswersRequest{
		Answers: []dto.AnswerInput{
			{QuestionID: q1.ID, SelectedOptions: []string{"b"}},
			{QuestionID: q2.ID, SelectedOptions: []string{"c"}},
		},
	})
	require.NoError(t, err)
	require.Equal(t, string(models.StateAutoGraded), resp.State)
	require.Equal(t, 100.0, *resp.Score)
	require.False(t, resp.IsLate)
}

func TestSubmitAnswersRejectsQuestionOutsideSet(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(nil)
	q1 := env.seedMCQ(assignment.ID, 1, 1, "b")
	other := env.seedAssignment(nil)
	foreign := env.seedMCQ(other.ID, 1, 1, "b")

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{})
	started, err := svc.Start(context.Background(), assignment.ID, 7)
	require.NoError(t, err)

	_, err = svc.SubmitAnswers(context.Background(), started.Submission.ID, 7, dto.SubmitAnswersRequest{
		Answers: []dto.AnswerInput{
			{QuestionID: q1.ID, SelectedOptions: []string{"b"}},
			{QuestionID: foreign.ID, SelectedOptions: []string{"b"}},
		},
	})
	require.ErrorIs(t, err, domainerr.ErrValidation)
}

func TestSubmitAnswersRejectsForeignOwner(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(nil)
	q1 := env.seedMCQ(assignment.ID, 1, 1, "b")

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{})
	started, err := svc.Start(context.Background(), assignment.ID, 7)
	require.NoError(t, err)

	_, err = svc.SubmitAnswers(context.Background(), started.Submission.ID, 8, dto.SubmitAnswersRequest{
		Answers: []dto.AnswerInput{{QuestionID: q1.ID, SelectedOptions: []string{"b"}}},
	})
	require.ErrorIs(t, err, domainerr.ErrForbidden)
}

func TestSubmitAnswersInToleranceWindowIsLate(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(func(a *models.Assignment) {
		a.DeadlineAt = ptrTime(time.Now().Add(-5 * time.Minute))
		a.ToleranceMinutes = 30
		a.LatePenaltyPercent = ptrInt(50)
	})
	q1 := env.seedMCQ(assignment.ID, 1, 1, "b")

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{})
	started, err := svc.Start(context.Background(), assignment.ID, 7)
	require.NoError(t, err)

	resp, err := svc.SubmitAnswers(context.Background(), started.Submission.ID, 7, dto.SubmitAnswersRequest{
		Answers: []dto.AnswerInput{{QuestionID: q1.ID, SelectedOptions: []string{"b"}}},
	})
	require.NoError(t, err)
	require.True(t, resp.IsLate)
	require.Equal(t, 50.0, *resp.Score)
	require.Equal(t, "graded", resp.Status)
}

func TestSubmitAnswersHardCutoffRejects(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(nil)
	q1 := env.seedMCQ(assignment.ID, 1, 1, "b")

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{})
	started, err := svc.Start(context.Background(), assignment.ID, 7)
	require.NoError(t, err)

	// the deadline closes while the attempt is open
	require.NoError(t, env.db.Model(&models.Assignment{}).
		Where("id = ?", assignment.ID).
		Update("deadline_at", time.Now().Add(-time.Minute)).Error)

	_, err = svc.SubmitAnswers(context.Background(), started.Submission.ID, 7, dto.SubmitAnswersRequest{
		Answers: []dto.AnswerInput{{QuestionID: q1.ID, SelectedOptions: []string{"b"}}},
	})
	require.ErrorIs(t, err, domainerr.ErrDeadlinePassed)
}

func TestGetHidesResultsUntilRelease(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(func(a *models.Assignment) {
		a.ReviewMode = models.ReviewModeDeferred
	})
	submission := env.seedSubmission(func(s *models.Submission) {
		s.AssignmentID = assignment.ID
		s.UserID = 7
		s.State = models.StateGraded
		s.Score = ptrFloat(90)
	})

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{})
	resp, err := svc.Get(context.Background(), submission.ID, 7, false)
	require.NoError(t, err)
	require.Nil(t, resp.Score)

	// staff always see results
	resp, err = svc.Get(context.Background(), submission.ID, 1, true)
	require.NoError(t, err)
	require.Equal(t, 90.0, *resp.Score)

	// release makes them visible to the student
	require.NoError(t, env.db.Model(&models.Submission{}).
		Where("id = ?", submission.ID).
		Update("state", models.StateReleased).Error)
	resp, err = svc.Get(context.Background(), submission.ID, 7, false)
	require.NoError(t, err)
	require.Equal(t, 90.0, *resp.Score)
}

func TestGetRejectsForeignStudent(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(nil)
	submission := env.seedSubmission(func(s *models.Submission) {
		s.AssignmentID = assignment.ID
		s.UserID = 7
	})

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{})
	_, err := svc.Get(context.Background(), submission.ID, 8, false)
	require.ErrorIs(t, err, domainerr.ErrForbidden)
}

func TestLegacySubmitCreatesCommittedAttempt(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(nil)

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{AllowResubmit: true})
	resp, err := svc.LegacySubmit(context.Background(), 7, dto.LegacySubmitRequest{
		AssignmentID: assignment.ID,
		AnswerText:   "my essay",
	})
	require.NoError(t, err)
	require.Equal(t, string(models.StateSubmitted), resp.State)
	require.Equal(t, "submitted", resp.Status)
	require.Equal(t, 1, resp.AttemptNumber)
	require.False(t, resp.IsResubmission)
}

func TestLegacySubmitSupersedesPriorAttempt(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(nil)

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{AllowResubmit: true})
	first, err := svc.LegacySubmit(context.Background(), 7, dto.LegacySubmitRequest{
		AssignmentID: assignment.ID,
		AnswerText:   "draft one",
	})
	require.NoError(t, err)

	second, err := svc.LegacySubmit(context.Background(), 7, dto.LegacySubmitRequest{
		AssignmentID: assignment.ID,
		AnswerText:   "draft two",
	})
	require.NoError(t, err)
	require.True(t, second.IsResubmission)
	require.Equal(t, first.ID, *second.PreviousSubmissionID)
	require.Equal(t, 2, second.AttemptNumber)

	// the superseded attempt survives as history
	kept, err := env.submissions.GetByID(context.Background(), first.ID)
	require.NoError(t, err)
	require.Equal(t, "draft one", kept.AnswerText)
}

func TestLegacySubmitRejectsAfterGrading(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(nil)
	env.seedSubmission(func(s *models.Submission) {
		s.AssignmentID = assignment.ID
		s.UserID = 7
		s.State = models.StateGraded
	})

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{AllowResubmit: true})
	_, err := svc.LegacySubmit(context.Background(), 7, dto.LegacySubmitRequest{
		AssignmentID: assignment.ID,
		AnswerText:   "too late",
	})
	require.ErrorIs(t, err, domainerr.ErrAlreadyGraded)
}

func TestLegacySubmitResubmitPolicyDisabled(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(func(a *models.Assignment) {
		a.AllowResubmit = ptrBool(false)
	})
	submittedAt := time.Now().Add(-time.Hour)
	env.seedSubmission(func(s *models.Submission) {
		s.AssignmentID = assignment.ID
		s.UserID = 7
		s.State = models.StateSubmitted
		s.SubmittedAt = &submittedAt
	})

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{AllowResubmit: true})
	_, err := svc.LegacySubmit(context.Background(), 7, dto.LegacySubmitRequest{
		AssignmentID: assignment.ID,
		AnswerText:   "second try",
	})
	require.ErrorIs(t, err, domainerr.ErrValidation)
}

func TestLegacyUpdateCorrectsAnswerBeforeGrading(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(nil)

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{AllowResubmit: true})
	created, err := svc.LegacySubmit(context.Background(), 7, dto.LegacySubmitRequest{
		AssignmentID: assignment.ID,
		AnswerText:   "first draft",
	})
	require.NoError(t, err)

	updated, err := svc.LegacyUpdate(context.Background(), created.ID, 7, dto.LegacyUpdateRequest{
		AnswerText: "corrected draft",
	})
	require.NoError(t, err)
	require.Equal(t, "corrected draft", updated.AnswerText)

	stored, err := env.submissions.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, "corrected draft", stored.AnswerText)
	require.Equal(t, models.StateSubmitted, stored.State)
}

func TestLegacyUpdateRejectedOnceGraded(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(nil)
	submission := env.seedSubmission(func(s *models.Submission) {
		s.AssignmentID = assignment.ID
		s.UserID = 7
		s.State = models.StateGraded
		s.AnswerText = "final"
	})

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{})
	_, err := svc.LegacyUpdate(context.Background(), submission.ID, 7, dto.LegacyUpdateRequest{
		AnswerText: "too late",
	})
	require.ErrorIs(t, err, domainerr.ErrAlreadyGraded)
}

func TestLegacyUpdateRejectsForeignSubmission(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(nil)
	submission := env.seedSubmission(func(s *models.Submission) {
		s.AssignmentID = assignment.ID
		s.UserID = 7
		s.State = models.StateSubmitted
	})

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{})
	_, err := svc.LegacyUpdate(context.Background(), submission.ID, 8, dto.LegacyUpdateRequest{
		AnswerText: "not mine",
	})
	require.ErrorIs(t, err, domainerr.ErrForbidden)
}

func TestListAttemptsReturnsHistoryInOrder(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(nil)
	for attempt := 1; attempt <= 3; attempt++ {
		n := attempt
		env.seedSubmission(func(s *models.Submission) {
			s.AssignmentID = assignment.ID
			s.UserID = 7
			s.State = models.StateGraded
			s.AttemptNumber = n
			s.QuestionSet = datatypes.NewJSONSlice([]uint{1})
		})
	}

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{})
	attempts, err := svc.ListAttempts(context.Background(), assignment.ID, 7)
	require.NoError(t, err)
	require.Len(t, attempts, 3)
	for i, attempt := range attempts {
		require.Equal(t, i+1, attempt.AttemptNumber)
	}
}
