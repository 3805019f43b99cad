package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradeflow-api/internal/domainerr"
	"github.com/noah-isme/gradeflow-api/internal/dto"
	"github.com/noah-isme/gradeflow-api/internal/events"
	"github.com/noah-isme/gradeflow-api/internal/models"
)

func TestCreateAssignmentRequiresValidScope(t *testing.T) {
	env := newTestEnv(t)
	svc := env.assignmentService()

	_, err := svc.Create(context.Background(), 1, dto.AssignmentCreateRequest{
		ScopeKind: "semester",
		ScopeID:   3,
		Title:     "Final project",
	})
	require.ErrorIs(t, err, domainerr.ErrValidation)

	resp, err := svc.Create(context.Background(), 1, dto.AssignmentCreateRequest{
		ScopeKind: "unit",
		ScopeID:   3,
		Title:     "Final project",
	})
	require.NoError(t, err)
	require.Equal(t, "unit", resp.ScopeKind)
	require.Equal(t, "draft", resp.Status)
}

func TestPublishRequiresQuestions(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(func(a *models.Assignment) {
		a.Status = models.AssignmentStatusDraft
	})

	svc := env.assignmentService()
	_, err := svc.Publish(context.Background(), assignment.ID)
	require.ErrorIs(t, err, domainerr.ErrValidation)

	env.seedMCQ(assignment.ID, 1, 1, "b")
	resp, err := svc.Publish(context.Background(), assignment.ID)
	require.NoError(t, err)
	require.Equal(t, "published", resp.Status)

	published := env.eventsOfSubject(events.AssignmentPublished{}.Subject())
	require.Len(t, published, 1)

	// publishing again is a no-op
	_, err = svc.Publish(context.Background(), assignment.ID)
	require.NoError(t, err)
	require.Len(t, env.eventsOfSubject(events.AssignmentPublished{}.Subject()), 1)
}

func TestDuplicateCopiesQuestionsNotSubmissions(t *testing.T) {
	env := newTestEnv(t)
	prereq := env.seedAssignment(nil)
	assignment := env.seedAssignment(nil)
	env.seedMCQ(assignment.ID, 1, 1, "b")
	env.seedEssay(assignment.ID, 2, 2)
	require.NoError(t, env.assignments.AddPrerequisite(context.Background(), assignment.ID, prereq.ID))
	env.seedSubmission(func(s *models.Submission) {
		s.AssignmentID = assignment.ID
		s.UserID = 7
		s.State = models.StateGraded
	})

	svc := env.assignmentService()
	dup, err := svc.Duplicate(context.Background(), assignment.ID, 2)
	require.NoError(t, err)
	require.NotEqual(t, assignment.ID, dup.ID)
	require.Equal(t, assignment.Title+" (Copy)", dup.Title)
	require.Equal(t, "draft", dup.Status)
	require.Len(t, dup.Questions, 2)
	require.Equal(t, []uint{prereq.ID}, dup.PrerequisiteIDs)

	ids, err := env.submissions.ListIDsByAssignment(context.Background(), dup.ID)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestAddPrerequisiteRejectsSelf(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(nil)

	svc := env.assignmentService()
	err := svc.AddPrerequisite(context.Background(), assignment.ID, assignment.ID)
	require.ErrorIs(t, err, domainerr.ErrCircularDependency)
}

func TestAddPrerequisiteRejectsDirectCycle(t *testing.T) {
	env := newTestEnv(t)
	a := env.seedAssignment(nil)
	b := env.seedAssignment(nil)

	svc := env.assignmentService()
	require.NoError(t, svc.AddPrerequisite(context.Background(), a.ID, b.ID))
	err := svc.AddPrerequisite(context.Background(), b.ID, a.ID)
	require.ErrorIs(t, err, domainerr.ErrCircularDependency)
}

func TestAddPrerequisiteRejectsTransitiveCycle(t *testing.T) {
	env := newTestEnv(t)
	a := env.seedAssignment(nil)
	b := env.seedAssignment(nil)
	c := env.seedAssignment(nil)

	svc := env.assignmentService()
	require.NoError(t, svc.AddPrerequisite(context.Background(), a.ID, b.ID))
	require.NoError(t, svc.AddPrerequisite(context.Background(), b.ID, c.ID))
	err := svc.AddPrerequisite(context.Background(), c.ID, a.ID)
	require.ErrorIs(t, err, domainerr.ErrCircularDependency)

	// an unrelated edge is still fine
	d := env.seedAssignment(nil)
	require.NoError(t, svc.AddPrerequisite(context.Background(), d.ID, a.ID))
}

func TestCheckEligibilityScopeHierarchy(t *testing.T) {
	env := newTestEnv(t)
	lessonPrereq := env.seedAssignment(func(a *models.Assignment) {
		a.Scope = models.NewLessonScope(10)
	})
	unitPrereq := env.seedAssignment(func(a *models.Assignment) {
		a.Scope = models.NewUnitScope(20)
	})

	// a lesson-scoped assignment only enforces lesson prerequisites
	lessonAssignment := env.seedAssignment(func(a *models.Assignment) {
		a.Scope = models.NewLessonScope(10)
	})
	require.NoError(t, env.assignments.AddPrerequisite(context.Background(), lessonAssignment.ID, lessonPrereq.ID))
	require.NoError(t, env.assignments.AddPrerequisite(context.Background(), lessonAssignment.ID, unitPrereq.ID))

	svc := env.assignmentService()
	resp, err := svc.CheckEligibility(context.Background(), lessonAssignment.ID, 7)
	require.NoError(t, err)
	require.False(t, resp.Eligible)
	require.Equal(t, []uint{lessonPrereq.ID}, resp.MissingPrerequisites)

	// a unit-scoped assignment enforces both unit and lesson prerequisites
	unitAssignment := env.seedAssignment(func(a *models.Assignment) {
		a.Scope = models.NewUnitScope(20)
	})
	require.NoError(t, env.assignments.AddPrerequisite(context.Background(), unitAssignment.ID, lessonPrereq.ID))
	require.NoError(t, env.assignments.AddPrerequisite(context.Background(), unitAssignment.ID, unitPrereq.ID))

	resp, err = svc.CheckEligibility(context.Background(), unitAssignment.ID, 7)
	require.NoError(t, err)
	require.False(t, resp.Eligible)
	require.ElementsMatch(t, []uint{lessonPrereq.ID, unitPrereq.ID}, resp.MissingPrerequisites)
}

func TestCheckEligibilityPassesWithGradedAttempts(t *testing.T) {
	env := newTestEnv(t)
	prereq := env.seedAssignment(nil)
	assignment := env.seedAssignment(nil)
	require.NoError(t, env.assignments.AddPrerequisite(context.Background(), assignment.ID, prereq.ID))

	// a merely submitted attempt does not satisfy the prerequisite
	submission := env.seedSubmission(func(s *models.Submission) {
		s.AssignmentID = prereq.ID
		s.UserID = 7
		s.State = models.StateSubmitted
	})

	svc := env.assignmentService()
	resp, err := svc.CheckEligibility(context.Background(), assignment.ID, 7)
	require.NoError(t, err)
	require.False(t, resp.Eligible)

	require.NoError(t, env.db.Model(&models.Submission{}).
		Where("id = ?", submission.ID).
		Update("state", models.StateReleased).Error)

	resp, err = svc.CheckEligibility(context.Background(), assignment.ID, 7)
	require.NoError(t, err)
	require.True(t, resp.Eligible)
}

func TestCheckEligibilityPartialBypass(t *testing.T) {
	env := newTestEnv(t)
	p1 := env.seedAssignment(nil)
	p2 := env.seedAssignment(nil)
	assignment := env.seedAssignment(nil)
	require.NoError(t, env.assignments.AddPrerequisite(context.Background(), assignment.ID, p1.ID))
	require.NoError(t, env.assignments.AddPrerequisite(context.Background(), assignment.ID, p2.ID))

	_, err := env.overrideService().Grant(context.Background(), assignment.ID, 1, dto.OverrideGrantRequest{
		StudentID:               7,
		Type:                    string(models.OverridePrerequisite),
		Reason:                  "already covered in prior term",
		BypassedPrerequisiteIDs: []uint{p1.ID},
	})
	require.NoError(t, err)

	svc := env.assignmentService()
	resp, err := svc.CheckEligibility(context.Background(), assignment.ID, 7)
	require.NoError(t, err)
	require.False(t, resp.Eligible)
	require.Equal(t, []uint{p2.ID}, resp.MissingPrerequisites)
}

func TestDeleteAssignment(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(nil)

	svc := env.assignmentService()
	require.NoError(t, svc.Delete(context.Background(), assignment.ID))

	_, err := svc.Get(context.Background(), assignment.ID, true)
	require.ErrorIs(t, err, domainerr.ErrNotFound)
}

func TestGetStripsAnswerKeysForStudents(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(nil)
	env.seedMCQ(assignment.ID, 1, 1, "b")

	svc := env.assignmentService()
	staff, err := svc.Get(context.Background(), assignment.ID, true)
	require.NoError(t, err)
	require.NotEmpty(t, staff.Questions[0].AnswerKey)

	student, err := svc.Get(context.Background(), assignment.ID, false)
	require.NoError(t, err)
	require.Empty(t, student.Questions[0].AnswerKey)
}
