package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradeflow-api/internal/models"
)

func TestAssignmentRepositoryPrerequisiteEdges(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssignmentRepository(db)
	ctx := context.Background()

	intro := models.Assignment{Scope: models.NewCourseScope(1), CreatedBy: 1, Title: "Intro"}
	advanced := models.Assignment{Scope: models.NewCourseScope(1), CreatedBy: 1, Title: "Advanced"}
	require.NoError(t, repo.Create(ctx, &intro))
	require.NoError(t, repo.Create(ctx, &advanced))

	require.NoError(t, repo.AddPrerequisite(ctx, advanced.ID, intro.ID))

	edges, err := repo.ListPrerequisiteEdges(ctx)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	require.Equal(t, advanced.ID, edges[0].AssignmentID)
	require.Equal(t, intro.ID, edges[0].PrerequisiteID)

	prereqs, err := repo.ListPrerequisites(ctx, advanced.ID)
	require.NoError(t, err)
	require.Len(t, prereqs, 1)
	require.Equal(t, "Intro", prereqs[0].Title)

	require.NoError(t, repo.RemovePrerequisite(ctx, advanced.ID, intro.ID))
	edges, err = repo.ListPrerequisiteEdges(ctx)
	require.NoError(t, err)
	require.Empty(t, edges)
}

func TestAssignmentRepositoryListByScope(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssignmentRepository(db)
	ctx := context.Background()

	inLesson := models.Assignment{Scope: models.NewLessonScope(10), CreatedBy: 1, Title: "Lesson quiz"}
	inUnit := models.Assignment{Scope: models.NewUnitScope(10), CreatedBy: 1, Title: "Unit exam"}
	require.NoError(t, repo.Create(ctx, &inLesson))
	require.NoError(t, repo.Create(ctx, &inUnit))

	assignments, err := repo.ListByScope(ctx, models.NewLessonScope(10))
	require.NoError(t, err)
	require.Len(t, assignments, 1, "same scope id under a different kind must not match")
	require.Equal(t, "Lesson quiz", assignments[0].Title)

	published := models.AssignmentStatusPublished
	_, total, err := repo.List(ctx, AssignmentFilter{Status: &published, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(0), total)
}

func TestAssignmentRepositoryGetByIDOrdersQuestions(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAssignmentRepository(db)
	ctx := context.Background()

	assignment := models.Assignment{Scope: models.NewLessonScope(4), CreatedBy: 1, Title: "Ordered"}
	require.NoError(t, repo.Create(ctx, &assignment))

	second := models.Question{AssignmentID: assignment.ID, Type: models.QuestionTypeEssay, Content: "Second", Weight: 1, MaxScore: 100, Order: 2}
	first := models.Question{AssignmentID: assignment.ID, Type: models.QuestionTypeEssay, Content: "First", Weight: 1, MaxScore: 100, Order: 1}
	require.NoError(t, db.Create(&second).Error)
	require.NoError(t, db.Create(&first).Error)

	got, err := repo.GetByID(ctx, assignment.ID)
	require.NoError(t, err)
	require.Len(t, got.Questions, 2)
	require.Equal(t, "First", got.Questions[0].Content)
}
