package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gradeflow-api/internal/events"
	"github.com/noah-isme/gradeflow-api/internal/models"
	"github.com/noah-isme/gradeflow-api/internal/repository"
	"github.com/noah-isme/gradeflow-api/pkg/cloudinary"
)

func testLogger() zerolog.Logger { return zerolog.Nop() }

// testEnv wires real repositories over an in-memory database so services are
// exercised against actual query behavior.
type testEnv struct {
	t  *testing.T
	db *gorm.DB

	assignments repository.AssignmentRepository
	questions   repository.QuestionRepository
	submissions repository.SubmissionRepository
	answers     repository.AnswerRepository
	overrides   repository.OverrideRepository
	grades      repository.GradeRepository
	appeals     repository.AppealRepository
	enrollments repository.EnrollmentRepository
	users       repository.UserRepository

	recorder *events.Recorder
	validate *validator.Validate
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Enrollment{},
		&models.Assignment{},
		&models.Question{},
		&models.Submission{},
		&models.Answer{},
		&models.Override{},
		&models.Grade{},
		&models.Appeal{},
	))

	return &testEnv{
		t:           t,
		db:          db,
		assignments: repository.NewAssignmentRepository(db),
		questions:   repository.NewQuestionRepository(db),
		submissions: repository.NewSubmissionRepository(db, false),
		answers:     repository.NewAnswerRepository(db),
		overrides:   repository.NewOverrideRepository(db),
		grades:      repository.NewGradeRepository(db),
		appeals:     repository.NewAppealRepository(db),
		enrollments: repository.NewEnrollmentRepository(db),
		users:       repository.NewUserRepository(db),
		recorder:    events.NewRecorder(),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (e *testEnv) overrideService() OverrideService {
	return NewOverrideService(e.overrides, e.assignments, e.recorder, e.validate, testLogger())
}

func (e *testEnv) assignmentService() AssignmentService {
	return NewAssignmentService(e.assignments, e.questions, e.submissions, e.overrideService(), e.recorder, e.validate, testLogger())
}

func (e *testEnv) questionService(recalc RecalculationEnqueuer) QuestionService {
	return NewQuestionService(e.questions, e.assignments, recalc, e.recorder, e.validate, testLogger())
}

func (e *testEnv) gradingService(defaults GradingDefaults) GradingService {
	return NewGradingService(e.submissions, e.answers, e.questions, e.assignments, e.grades, e.users, NewNoopQueueCache(), e.recorder, e.validate, defaults, testLogger())
}

func (e *testEnv) submissionService(uploader FileUploader, defaults SubmissionDefaults) SubmissionService {
	return NewSubmissionService(
		e.submissions, e.answers, e.assignments, e.enrollments,
		e.questionService(noopEnqueuer{}), e.overrideService(), e.assignmentService(),
		e.gradingService(GradingDefaults{LatePenaltyPercent: 20}),
		uploader, NewNoopIndexer(), e.recorder, e.validate,
		defaults, testLogger(),
	)
}

func (e *testEnv) bulkService(defaults GradingDefaults) BulkService {
	return NewBulkService(
		e.submissions, e.answers, e.questions, e.assignments, e.grades,
		e.gradingService(defaults), defaults, nil, e.recorder, e.validate, testLogger(),
	)
}

type noopEnqueuer struct{}

func (noopEnqueuer) EnqueueRecalculation(context.Context, uint) error { return nil }

type recordingEnqueuer struct {
	questionIDs []uint
}

func (r *recordingEnqueuer) EnqueueRecalculation(_ context.Context, questionID uint) error {
	r.questionIDs = append(r.questionIDs, questionID)
	return nil
}

// fakeUploader records uploads and deletions in memory.
type fakeUploader struct {
	uploads  []string
	deletes  []string
	failNext bool
}

func (f *fakeUploader) Upload(_ context.Context, subfolder, name string, _ io.Reader) (cloudinary.UploadResult, error) {
	if f.failNext {
		f.failNext = false
		return cloudinary.UploadResult{}, fmt.Errorf("upload rejected")
	}
	publicID := fmt.Sprintf("%s/%s", subfolder, name)
	f.uploads = append(f.uploads, publicID)
	return cloudinary.UploadResult{
		URL:      fmt.Sprintf("https://files.test/upload/v1/%s.bin", publicID),
		PublicID: publicID,
		Bytes:    42,
	}, nil
}

func (f *fakeUploader) Delete(_ context.Context, publicID string) error {
	f.deletes = append(f.deletes, publicID)
	return nil
}

func (e *testEnv) seedStudent(id uint) models.User {
	user := models.User{ID: id, Name: fmt.Sprintf("Student %d", id), Email: fmt.Sprintf("student%d@test.dev", id), Role: models.RoleStudent}
	require.NoError(e.t, e.db.Create(&user).Error)
	return user
}

func (e *testEnv) seedEnrollment(userID, courseID uint) {
	require.NoError(e.t, e.db.Create(&models.Enrollment{UserID: userID, CourseID: courseID, Status: models.EnrollmentStatusActive}).Error)
}

// seedAssignment stores a published lesson-scoped assignment. Callers mutate
// the returned value and Save for variations.
func (e *testEnv) seedAssignment(mutate func(*models.Assignment)) models.Assignment {
	assignment := models.Assignment{
		Scope:             models.NewLessonScope(10),
		CreatedBy:         1,
		Title:             "Chapter quiz",
		SubmissionType:    models.SubmissionTypeText,
		MaxScore:          100,
		RetakeEnabled:     true,
		ReviewMode:        models.ReviewModeImmediate,
		RandomizationType: models.RandomizationStatic,
		Status:            models.AssignmentStatusPublished,
	}
	if mutate != nil {
		mutate(&assignment)
	}
	require.NoError(e.t, e.db.Create(&assignment).Error)
	return assignment
}

func (e *testEnv) seedMCQ(assignmentID uint, order int, weight float64, key string) models.Question {
	question := models.Question{
		AssignmentID: assignmentID,
		Type:         models.QuestionTypeMultipleChoice,
		Content:      fmt.Sprintf("Question %d", order),
		Options:      datatypes.NewJSONSlice([]string{"a", "b", "c", key}),
		AnswerKey:    datatypes.NewJSONSlice([]string{key}),
		Weight:       weight,
		MaxScore:     100,
		Order:        order,
	}
	require.NoError(e.t, e.db.Create(&question).Error)
	return question
}

func (e *testEnv) seedCheckbox(assignmentID uint, order int, weight float64, key []string) models.Question {
	question := models.Question{
		AssignmentID: assignmentID,
		Type:         models.QuestionTypeCheckbox,
		Content:      fmt.Sprintf("Question %d", order),
		Options:      datatypes.NewJSONSlice([]string{"w", "x", "y", "z"}),
		AnswerKey:    datatypes.NewJSONSlice(key),
		Weight:       weight,
		MaxScore:     100,
		Order:        order,
	}
	require.NoError(e.t, e.db.Create(&question).Error)
	return question
}

func (e *testEnv) seedEssay(assignmentID uint, order int, weight float64) models.Question {
	question := models.Question{
		AssignmentID: assignmentID,
		Type:         models.QuestionTypeEssay,
		Content:      fmt.Sprintf("Question %d", order),
		Weight:       weight,
		MaxScore:     100,
		Order:        order,
	}
	require.NoError(e.t, e.db.Create(&question).Error)
	return question
}

func (e *testEnv) seedSubmission(mutate func(*models.Submission)) models.Submission {
	submission := models.Submission{
		AssignmentID:  1,
		UserID:        1,
		State:         models.StateInProgress,
		AttemptNumber: 1,
	}
	if mutate != nil {
		mutate(&submission)
	}
	require.NoError(e.t, e.db.Create(&submission).Error)
	return submission
}

func (e *testEnv) seedAnswer(mutate func(*models.Answer)) models.Answer {
	answer := models.Answer{}
	if mutate != nil {
		mutate(&answer)
	}
	require.NoError(e.t, e.db.Create(&answer).Error)
	return answer
}

func (e *testEnv) eventsOfSubject(subject string) []events.Event {
	var matched []events.Event
	for _, evt := range e.recorder.Events() {
		if evt.Subject() == subject {
			matched = append(matched, evt)
		}
	}
	return matched
}

// makeFileHeader builds a real multipart file header so type sniffing sees
// actual content.
func makeFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(&buf, writer.Boundary()).ReadForm(int64(len(content)) + 4096)
	require.NoError(t, err)
	files := form.File["file"]
	require.Len(t, files, 1)
	return files[0]
}

func ptrTime(t time.Time) *time.Time { return &t }
func ptrInt(n int) *int              { return &n }
func ptrInt64(n int64) *int64        { return &n }
func ptrFloat(f float64) *float64    { return &f }
func ptrBool(b bool) *bool           { return &b }
