package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradeflow-api/internal/models"
)

func TestSubmissionRepositoryAttemptHistory(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db, false)
	ctx := context.Background()

	assignment := models.Assignment{Scope: models.NewLessonScope(1), CreatedBy: 1, Title: "Quiz"}
	require.NoError(t, db.Create(&assignment).Error)

	first := models.Submission{AssignmentID: assignment.ID, UserID: 7, State: models.StateReleased, AttemptNumber: 1}
	require.NoError(t, repo.Create(ctx, &first))

	second := models.Submission{
		AssignmentID:         assignment.ID,
		UserID:               7,
		State:                models.StateInProgress,
		AttemptNumber:        2,
		IsResubmission:       true,
		PreviousSubmissionID: &first.ID,
	}
	require.NoError(t, repo.Create(ctx, &second))

	attempts, err := repo.ListAttempts(ctx, assignment.ID, 7)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	require.Equal(t, 1, attempts[0].AttemptNumber)
	require.Equal(t, 2, attempts[1].AttemptNumber)

	latest, err := repo.GetLatestAttempt(ctx, assignment.ID, 7)
	require.NoError(t, err)
	require.Equal(t, second.ID, latest.ID)
	require.NotNil(t, latest.PreviousSubmissionID)
	require.Equal(t, first.ID, *latest.PreviousSubmissionID)
}

func TestSubmissionRepositoryCountCommittedIgnoresInProgress(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db, false)
	ctx := context.Background()

	assignment := models.Assignment{Scope: models.NewUnitScope(2), CreatedBy: 1, Title: "Exam"}
	require.NoError(t, db.Create(&assignment).Error)

	states := []models.SubmissionState{models.StateReleased, models.StateSubmitted, models.StateInProgress}
	for i, state := range states {
		sub := models.Submission{AssignmentID: assignment.ID, UserID: 3, State: state, AttemptNumber: i + 1}
		require.NoError(t, repo.Create(ctx, &sub))
	}

	count, err := repo.CountCommitted(ctx, assignment.ID, 3)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}

func TestSubmissionRepositoryDuplicateAttemptRejected(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db, false)
	ctx := context.Background()

	assignment := models.Assignment{Scope: models.NewCourseScope(5), CreatedBy: 1, Title: "Final"}
	require.NoError(t, db.Create(&assignment).Error)

	first := models.Submission{AssignmentID: assignment.ID, UserID: 9, State: models.StateSubmitted, AttemptNumber: 1}
	require.NoError(t, repo.Create(ctx, &first))

	clash := models.Submission{AssignmentID: assignment.ID, UserID: 9, State: models.StateSubmitted, AttemptNumber: 1}
	require.Error(t, repo.Create(ctx, &clash), "unique attempt index should reject the duplicate")
}

func TestSubmissionRepositoryHighestScore(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db, false)
	ctx := context.Background()

	assignment := models.Assignment{Scope: models.NewLessonScope(3), CreatedBy: 1, Title: "Quiz"}
	require.NoError(t, db.Create(&assignment).Error)

	score := func(v float64) *float64 { return &v }
	subs := []models.Submission{
		{AssignmentID: assignment.ID, UserID: 1, State: models.StateReleased, AttemptNumber: 1, Score: score(81.5)},
		{AssignmentID: assignment.ID, UserID: 1, State: models.StateInProgress, AttemptNumber: 2, Score: score(99)},
		{AssignmentID: assignment.ID, UserID: 2, State: models.StateAutoGraded, AttemptNumber: 1, Score: score(93.25)},
	}
	for i := range subs {
		require.NoError(t, repo.Create(ctx, &subs[i]))
	}

	highest, err := repo.HighestScore(ctx, assignment.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 81.5, highest, "uncommitted attempts must not count")

	highest, err = repo.HighestScore(ctx, assignment.ID, 2)
	require.NoError(t, err)
	require.Equal(t, 93.25, highest, "another student's attempts must not count")

	highest, err = repo.HighestScore(ctx, assignment.ID, 3)
	require.NoError(t, err)
	require.Zero(t, highest)

	submitted := models.StateSubmitted
	listed, total, err := repo.List(ctx, SubmissionFilter{AssignmentID: &assignment.ID, State: &submitted})
	require.NoError(t, err)
	require.Equal(t, int64(0), total)
	require.Empty(t, listed)
}

func TestSubmissionRepositoryMarkHighestAttempt(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db, false)
	ctx := context.Background()

	assignment := models.Assignment{Scope: models.NewLessonScope(4), CreatedBy: 1, Title: "Quiz"}
	require.NoError(t, db.Create(&assignment).Error)

	score := func(v float64) *float64 { return &v }
	first := models.Submission{AssignmentID: assignment.ID, UserID: 7, State: models.StateReleased, AttemptNumber: 1, Score: score(60)}
	require.NoError(t, repo.Create(ctx, &first))

	require.NoError(t, repo.MarkHighestAttempt(ctx, assignment.ID, 7))
	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.True(t, got.IsHighest)

	second := models.Submission{AssignmentID: assignment.ID, UserID: 7, State: models.StateGraded, AttemptNumber: 2, Score: score(85)}
	require.NoError(t, repo.Create(ctx, &second))
	// An in-progress attempt with a leftover score must never win.
	third := models.Submission{AssignmentID: assignment.ID, UserID: 7, State: models.StateInProgress, AttemptNumber: 3, Score: score(100)}
	require.NoError(t, repo.Create(ctx, &third))

	require.NoError(t, repo.MarkHighestAttempt(ctx, assignment.ID, 7))

	got, err = repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.False(t, got.IsHighest, "flag must move off the beaten attempt")

	got, err = repo.GetByID(ctx, second.ID)
	require.NoError(t, err)
	require.True(t, got.IsHighest)

	// No scored committed attempts for another student is a no-op.
	require.NoError(t, repo.MarkHighestAttempt(ctx, assignment.ID, 8))
}
