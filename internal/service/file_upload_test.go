package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradeflow-api/internal/domainerr"
	"github.com/noah-isme/gradeflow-api/internal/models"
)

func (e *testEnv) seedFileQuestion(assignmentID uint, mutate func(*models.Question)) models.Question {
	question := models.Question{
		AssignmentID: assignmentID,
		Type:         models.QuestionTypeFileUpload,
		Content:      "Upload your report",
		Weight:       1,
		MaxScore:     100,
		Order:        1,
	}
	if mutate != nil {
		mutate(&question)
	}
	require.NoError(e.t, e.db.Create(&question).Error)
	return question
}

func TestUploadAnswerFile(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(nil)
	question := env.seedFileQuestion(assignment.ID, nil)

	uploader := &fakeUploader{}
	svc := env.submissionService(uploader, SubmissionDefaults{})
	started, err := svc.Start(context.Background(), assignment.ID, 7)
	require.NoError(t, err)

	answer, err := svc.UploadAnswerFile(context.Background(), started.Submission.ID, question.ID, 7,
		makeFileHeader(t, "report.txt", []byte("my findings in plain text")))
	require.NoError(t, err)
	require.Len(t, answer.FilePaths, 1)
	require.Len(t, answer.FileMetadata, 1)
	require.Equal(t, "report.txt", answer.FileMetadata[0].Name)
	require.Contains(t, answer.FileMetadata[0].MimeType, "text/plain")
	require.Len(t, uploader.uploads, 1)
}

func TestUploadAnswerFileReplacesSingleSlot(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(nil)
	question := env.seedFileQuestion(assignment.ID, nil) // AllowMultipleFiles defaults to false

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{})
	started, err := svc.Start(context.Background(), assignment.ID, 7)
	require.NoError(t, err)

	_, err = svc.UploadAnswerFile(context.Background(), started.Submission.ID, question.ID, 7,
		makeFileHeader(t, "v1.txt", []byte("first version")))
	require.NoError(t, err)

	answer, err := svc.UploadAnswerFile(context.Background(), started.Submission.ID, question.ID, 7,
		makeFileHeader(t, "v2.txt", []byte("second version")))
	require.NoError(t, err)
	require.Len(t, answer.FilePaths, 1)
	require.Equal(t, "v2.txt", answer.FileMetadata[0].Name)
}

func TestUploadAnswerFileAppendsWhenMultipleAllowed(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(nil)
	question := env.seedFileQuestion(assignment.ID, func(q *models.Question) {
		q.AllowMultipleFiles = true
	})

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{})
	started, err := svc.Start(context.Background(), assignment.ID, 7)
	require.NoError(t, err)

	_, err = svc.UploadAnswerFile(context.Background(), started.Submission.ID, question.ID, 7,
		makeFileHeader(t, "part1.txt", []byte("first part")))
	require.NoError(t, err)

	answer, err := svc.UploadAnswerFile(context.Background(), started.Submission.ID, question.ID, 7,
		makeFileHeader(t, "part2.txt", []byte("second part")))
	require.NoError(t, err)
	require.Len(t, answer.FilePaths, 2)
}

func TestUploadAnswerFileEnforcesSizeLimit(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(nil)
	question := env.seedFileQuestion(assignment.ID, func(q *models.Question) {
		q.MaxFileSize = ptrInt64(16)
	})

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{})
	started, err := svc.Start(context.Background(), assignment.ID, 7)
	require.NoError(t, err)

	_, err = svc.UploadAnswerFile(context.Background(), started.Submission.ID, question.ID, 7,
		makeFileHeader(t, "big.txt", bytes.Repeat([]byte("x"), 64)))
	require.ErrorIs(t, err, domainerr.ErrValidation)
}

func TestUploadAnswerFileChecksDetectedType(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(nil)
	question := env.seedFileQuestion(assignment.ID, func(q *models.Question) {
		q.AllowedFileTypes = []string{"application/pdf"}
	})

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{})
	started, err := svc.Start(context.Background(), assignment.ID, 7)
	require.NoError(t, err)

	// extension says pdf, content says plain text
	_, err = svc.UploadAnswerFile(context.Background(), started.Submission.ID, question.ID, 7,
		makeFileHeader(t, "fake.pdf", []byte("just plain text")))
	require.ErrorIs(t, err, domainerr.ErrValidation)

	// a real pdf magic header passes
	answer, err := svc.UploadAnswerFile(context.Background(), started.Submission.ID, question.ID, 7,
		makeFileHeader(t, "real.pdf", []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj")))
	require.NoError(t, err)
	require.Equal(t, "application/pdf", answer.FileMetadata[0].MimeType)
}

func TestUploadAnswerFileRejectsNonFileQuestion(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(nil)
	essay := env.seedEssay(assignment.ID, 1, 1)

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{})
	started, err := svc.Start(context.Background(), assignment.ID, 7)
	require.NoError(t, err)

	_, err = svc.UploadAnswerFile(context.Background(), started.Submission.ID, essay.ID, 7,
		makeFileHeader(t, "essay.txt", []byte("attached instead of typed")))
	require.ErrorIs(t, err, domainerr.ErrValidation)
}

func TestUploadAnswerFileRejectsForeignSubmission(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(nil)
	question := env.seedFileQuestion(assignment.ID, nil)

	svc := env.submissionService(&fakeUploader{}, SubmissionDefaults{})
	started, err := svc.Start(context.Background(), assignment.ID, 7)
	require.NoError(t, err)

	_, err = svc.UploadAnswerFile(context.Background(), started.Submission.ID, question.ID, 8,
		makeFileHeader(t, "theirs.txt", []byte("not my attempt")))
	require.ErrorIs(t, err, domainerr.ErrForbidden)
}

func TestUploadAnswerFileSurfacesUploaderFailure(t *testing.T) {
	env := newTestEnv(t)
	assignment := env.seedAssignment(nil)
	question := env.seedFileQuestion(assignment.ID, nil)

	uploader := &fakeUploader{failNext: true}
	svc := env.submissionService(uploader, SubmissionDefaults{})
	started, err := svc.Start(context.Background(), assignment.ID, 7)
	require.NoError(t, err)

	_, err = svc.UploadAnswerFile(context.Background(), started.Submission.ID, question.ID, 7,
		makeFileHeader(t, "report.txt", []byte("my findings")))
	require.ErrorIs(t, err, domainerr.ErrStorageUnavailable)
	require.Empty(t, uploader.uploads)
}
