package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gradeflow-api/internal/domainerr"
	"github.com/noah-isme/gradeflow-api/internal/dto"
	"github.com/noah-isme/gradeflow-api/internal/events"
	"github.com/noah-isme/gradeflow-api/internal/models"
	"github.com/noah-isme/gradeflow-api/internal/repository"
	"github.com/noah-isme/gradeflow-api/pkg/cloudinary"
)

// FileUploader stores and removes answer attachments.
type FileUploader interface {
	Upload(ctx context.Context, subfolder, name string, reader io.Reader) (cloudinary.UploadResult, error)
	Delete(ctx context.Context, publicID string) error
}

// Indexer receives committed submissions for external search indexing. The
// default implementation is a no-op; the NATS event stream doubles as the
// index feed.
type Indexer interface {
	IndexSubmission(ctx context.Context, submission models.Submission)
}

type noopIndexer struct{}

func (noopIndexer) IndexSubmission(context.Context, models.Submission) {}

// NewNoopIndexer returns an indexer that drops everything.
func NewNoopIndexer() Indexer { return noopIndexer{} }

// SubmissionDefaults carries config-resolved submission policy defaults.
type SubmissionDefaults struct {
	AllowResubmit bool
}

// SubmissionService owns the attempt lifecycle from start through commit.
type SubmissionService interface {
	Start(ctx context.Context, assignmentID, studentID uint) (dto.StartSubmissionResponse, error)
	SubmitAnswers(ctx context.Context, submissionID, studentID uint, payload dto.SubmitAnswersRequest) (dto.SubmissionResponse, error)
	UploadAnswerFile(ctx context.Context, submissionID, questionID, studentID uint, file *multipart.FileHeader) (dto.AnswerResponse, error)
	Get(ctx context.Context, submissionID, callerID uint, staff bool) (dto.SubmissionResponse, error)
	List(ctx context.Context, filter dto.SubmissionListFilter) ([]dto.SubmissionResponse, int64, error)
	ListAttempts(ctx context.Context, assignmentID, studentID uint) ([]dto.SubmissionResponse, error)
	LegacySubmit(ctx context.Context, studentID uint, payload dto.LegacySubmitRequest) (dto.SubmissionResponse, error)
	LegacyUpdate(ctx context.Context, submissionID, studentID uint, payload dto.LegacyUpdateRequest) (dto.SubmissionResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	answers     repository.AnswerRepository
	assignments repository.AssignmentRepository
	enrollments repository.EnrollmentRepository
	questionSvc QuestionService
	overrides   OverrideService
	eligibility AssignmentService
	grading     GradingService
	uploader    FileUploader
	indexer     Indexer
	dispatcher  events.Dispatcher
	validator   *validator.Validate
	defaults    SubmissionDefaults
	logger      zerolog.Logger
	now         func() time.Time
	seed        func() int64
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(
	submissionRepo repository.SubmissionRepository,
	answerRepo repository.AnswerRepository,
	assignmentRepo repository.AssignmentRepository,
	enrollmentRepo repository.EnrollmentRepository,
	questionSvc QuestionService,
	overrides OverrideService,
	eligibility AssignmentService,
	grading GradingService,
	uploader FileUploader,
	indexer Indexer,
	dispatcher events.Dispatcher,
	validate *validator.Validate,
	defaults SubmissionDefaults,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionService{
		submissions: submissionRepo,
		answers:     answerRepo,
		assignments: assignmentRepo,
		enrollments: enrollmentRepo,
		questionSvc: questionSvc,
		overrides:   overrides,
		eligibility: eligibility,
		grading:     grading,
		uploader:    uploader,
		indexer:     indexer,
		dispatcher:  dispatcher,
		validator:   validate,
		defaults:    defaults,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
		seed:        func() int64 { return time.Now().UnixNano() },
	}
}

// Start opens a new attempt. Gates run in order: availability, enrollment,
// deadline (override-aware, with tolerance), attempt limit, cooldown, retake
// policy, prerequisites. An existing in-progress attempt is resumed instead of
// duplicated.
func (s *submissionService) Start(ctx context.Context, assignmentID, studentID uint) (dto.StartSubmissionResponse, error) {
	assignment, err := s.getAssignment(ctx, assignmentID)
	if err != nil {
		return dto.StartSubmissionResponse{}, err
	}

	now := s.now()
	if !assignment.IsAvailable(now) {
		return dto.StartSubmissionResponse{}, domainerr.Validation("assignment is not available")
	}

	if assignment.Scope.Kind == models.ScopeCourse {
		enrolled, err := s.enrollments.IsEnrolled(ctx, studentID, assignment.Scope.ID)
		if err != nil {
			return dto.StartSubmissionResponse{}, domainerr.Storage(err)
		}
		if !enrolled {
			return dto.StartSubmissionResponse{}, domainerr.Forbidden("student is not enrolled in this course")
		}
	}

	if existing, err := s.submissions.GetInProgress(ctx, assignmentID, studentID); err == nil {
		return s.startResponse(ctx, assignment, existing)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.StartSubmissionResponse{}, domainerr.Storage(err)
	}

	if err := s.checkDeadline(ctx, assignment, studentID, now); err != nil {
		return dto.StartSubmissionResponse{}, err
	}

	eligibility, err := s.eligibility.CheckEligibility(ctx, assignmentID, studentID)
	if err != nil {
		return dto.StartSubmissionResponse{}, err
	}
	if !eligibility.Eligible {
		return dto.StartSubmissionResponse{}, domainerr.Validationf("prerequisites not met: %v", eligibility.MissingPrerequisites)
	}

	seed := s.seed()
	questions, err := s.questionSvc.MaterializeSet(ctx, assignment, seed)
	if err != nil {
		return dto.StartSubmissionResponse{}, err
	}

	questionIDs := make([]uint, len(questions))
	for i, question := range questions {
		questionIDs[i] = question.ID
	}

	var submission models.Submission

	// Attempt counting and row creation share one transaction; the committed
	// rows are locked so two concurrent starts cannot claim the same
	// attempt_number. The unique index is the final referee.
	err = s.submissions.Transaction(ctx, func(tx repository.SubmissionRepository) error {
		committed, err := tx.CountCommitted(ctx, assignmentID, studentID)
		if err != nil {
			return err
		}

		if limit := s.overrides.EffectiveMaxAttempts(ctx, assignment, studentID); limit != nil && committed >= int64(*limit) {
			return domainerr.ErrMaxAttemptsReached
		}

		if committed > 0 {
			if !assignment.RetakeEnabled {
				return domainerr.ErrRetakeNotAllowed
			}
			if err := s.checkCooldown(ctx, tx, assignment, studentID, now); err != nil {
				return err
			}
		}

		submission = models.Submission{
			AssignmentID:  assignmentID,
			UserID:        studentID,
			State:         models.StateInProgress,
			QuestionSet:   datatypes.NewJSONSlice(questionIDs),
			Seed:          seed,
			AttemptNumber: int(committed) + 1,
		}
		return tx.Create(ctx, &submission)
	})
	if err != nil {
		var typed *domainerr.Error
		if errors.As(err, &typed) {
			return dto.StartSubmissionResponse{}, typed
		}
		return dto.StartSubmissionResponse{}, domainerr.Storage(err)
	}

	s.logger.Info().
		Uint("assignment_id", assignmentID).
		Uint("student_id", studentID).
		Int("attempt", submission.AttemptNumber).
		Msg("attempt started")

	return dto.StartSubmissionResponse{
		Submission: dto.NewSubmissionResponse(submission, false),
		Questions:  dto.NewQuestionResponseSlice(questions, false),
	}, nil
}

func (s *submissionService) startResponse(ctx context.Context, assignment models.Assignment, submission models.Submission) (dto.StartSubmissionResponse, error) {
	questions, err := s.questionSvc.MaterializeSet(ctx, assignment, submission.Seed)
	if err != nil {
		return dto.StartSubmissionResponse{}, err
	}

	return dto.StartSubmissionResponse{
		Submission: dto.NewSubmissionResponse(submission, false),
		Questions:  dto.NewQuestionResponseSlice(questions, false),
	}, nil
}

// checkDeadline enforces the hard cutoff: effective deadline plus tolerance.
func (s *submissionService) checkDeadline(ctx context.Context, assignment models.Assignment, studentID uint, now time.Time) error {
	deadline := s.overrides.EffectiveDeadline(ctx, assignment, studentID)
	if deadline == nil {
		return nil
	}

	cutoff := deadline.Add(time.Duration(assignment.ToleranceMinutes) * time.Minute)
	if now.After(cutoff) {
		return domainerr.ErrDeadlinePassed
	}
	return nil
}

func (s *submissionService) checkCooldown(ctx context.Context, tx repository.SubmissionRepository, assignment models.Assignment, studentID uint, now time.Time) error {
	if assignment.CooldownMinutes <= 0 {
		return nil
	}

	latest, err := tx.GetLatestAttempt(ctx, assignment.ID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if latest.SubmittedAt == nil {
		return nil
	}

	readyAt := latest.SubmittedAt.Add(time.Duration(assignment.CooldownMinutes) * time.Minute)
	if now.Before(readyAt) {
		return domainerr.ErrCooldownActive
	}
	return nil
}

// SubmitAnswers commits an in-progress attempt. The late flag uses the
// effective deadline without tolerance; the hard cutoff still honors it.
func (s *submissionService) SubmitAnswers(ctx context.Context, submissionID, studentID uint, payload dto.SubmitAnswersRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, domainerr.Validation(err.Error())
	}

	submission, err := s.getSubmission(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if submission.UserID != studentID {
		return dto.SubmissionResponse{}, domainerr.Forbidden("submission belongs to another student")
	}
	if submission.State != models.StateInProgress {
		return dto.SubmissionResponse{}, domainerr.InvalidTransition(string(submission.State), string(models.StateSubmitted))
	}

	assignment, err := s.getAssignment(ctx, submission.AssignmentID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	now := s.now()
	if err := s.checkDeadline(ctx, assignment, studentID, now); err != nil {
		return dto.SubmissionResponse{}, err
	}

	inSet := make(map[uint]bool, len(submission.QuestionSet))
	for _, id := range submission.QuestionSet {
		inSet[id] = true
	}

	existing := make(map[uint]models.Answer, len(submission.Answers))
	for _, answer := range submission.Answers {
		existing[answer.QuestionID] = answer
	}

	for _, input := range payload.Answers {
		if !inSet[input.QuestionID] {
			return dto.SubmissionResponse{}, domainerr.Validationf("question %d is not part of this attempt", input.QuestionID)
		}

		if answer, ok := existing[input.QuestionID]; ok {
			answer.Content = input.Content
			answer.SelectedOptions = datatypes.NewJSONSlice(input.SelectedOptions)
			if err := s.answers.Update(ctx, &answer); err != nil {
				return dto.SubmissionResponse{}, domainerr.Storage(err)
			}
		} else {
			answer := models.Answer{
				SubmissionID:    submission.ID,
				QuestionID:      input.QuestionID,
				Content:         input.Content,
				SelectedOptions: datatypes.NewJSONSlice(input.SelectedOptions),
			}
			if err := s.answers.Create(ctx, &answer); err != nil {
				return dto.SubmissionResponse{}, domainerr.Storage(err)
			}
		}
	}

	deadline := s.overrides.EffectiveDeadline(ctx, assignment, studentID)
	submission.IsLate = deadline != nil && now.After(*deadline)
	submission.SubmittedAt = &now

	changed, err := submission.TransitionTo(models.StateSubmitted, studentID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, domainerr.Storage(err)
	}

	s.dispatcher.Dispatch(ctx, events.SubmissionCreated{
		SubmissionID:  submission.ID,
		AssignmentID:  submission.AssignmentID,
		UserID:        submission.UserID,
		AttemptNumber: submission.AttemptNumber,
		IsLate:        submission.IsLate,
		IsResubmit:    submission.IsResubmission,
		SubmittedAt:   now,
	}, changed)
	s.indexer.IndexSubmission(ctx, submission)

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Bool("late", submission.IsLate).
		Msg("answers submitted")

	return s.grading.AutoGrade(ctx, submission.ID, studentID)
}

// UploadAnswerFile attaches a file to a file-upload answer, sniffing the real
// content type and enforcing the question's constraints.
func (s *submissionService) UploadAnswerFile(ctx context.Context, submissionID, questionID, studentID uint, file *multipart.FileHeader) (dto.AnswerResponse, error) {
	if file == nil {
		return dto.AnswerResponse{}, domainerr.Validation("file is required")
	}

	submission, err := s.getSubmission(ctx, submissionID)
	if err != nil {
		return dto.AnswerResponse{}, err
	}
	if submission.UserID != studentID {
		return dto.AnswerResponse{}, domainerr.Forbidden("submission belongs to another student")
	}
	if submission.State != models.StateInProgress {
		return dto.AnswerResponse{}, domainerr.Validation("files can only be attached to an in-progress attempt")
	}

	question, err := s.questionForSubmission(ctx, submission, questionID)
	if err != nil {
		return dto.AnswerResponse{}, err
	}
	if question.Type != models.QuestionTypeFileUpload {
		return dto.AnswerResponse{}, domainerr.Validation("question does not accept file answers")
	}
	if question.MaxFileSize != nil && file.Size > *question.MaxFileSize {
		return dto.AnswerResponse{}, domainerr.Validationf("file exceeds the %d byte limit", *question.MaxFileSize)
	}

	detected, err := sniffMimeType(file)
	if err != nil {
		return dto.AnswerResponse{}, err
	}
	if len(question.AllowedFileTypes) > 0 {
		allowed := false
		for _, mime := range question.AllowedFileTypes {
			if detected.Is(mime) {
				allowed = true
				break
			}
		}
		if !allowed {
			return dto.AnswerResponse{}, domainerr.Validationf("file type %s is not allowed", detected.String())
		}
	}

	reader, err := file.Open()
	if err != nil {
		return dto.AnswerResponse{}, domainerr.Validation("failed to open uploaded file")
	}
	defer reader.Close()

	uploaded, err := s.uploader.Upload(ctx, fmt.Sprintf("submissions/%d", submission.ID), file.Filename, reader)
	if err != nil {
		return dto.AnswerResponse{}, domainerr.Storage(err)
	}

	answer, err := s.answers.GetBySubmissionAndQuestion(ctx, submission.ID, questionID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			// compensate: the row is unreachable, do not leak the file
			if delErr := s.uploader.Delete(ctx, uploaded.PublicID); delErr != nil {
				s.logger.Error().Err(delErr).Str("public_id", uploaded.PublicID).Msg("orphaned upload cleanup failed")
			}
			return dto.AnswerResponse{}, domainerr.Storage(err)
		}
		answer = models.Answer{SubmissionID: submission.ID, QuestionID: questionID}
	}

	if !question.AllowMultipleFiles {
		answer.FilePaths = nil
		answer.FileMetadata = nil
	}
	answer.FilePaths = append(answer.FilePaths, uploaded.URL)
	answer.FileMetadata = append(answer.FileMetadata, models.FileMeta{
		Name:     file.Filename,
		MimeType: detected.String(),
		Size:     file.Size,
	})

	if answer.ID == 0 {
		err = s.answers.Create(ctx, &answer)
	} else {
		err = s.answers.Update(ctx, &answer)
	}
	if err != nil {
		if delErr := s.uploader.Delete(ctx, uploaded.PublicID); delErr != nil {
			s.logger.Error().Err(delErr).Str("public_id", uploaded.PublicID).Msg("orphaned upload cleanup failed")
		}
		return dto.AnswerResponse{}, domainerr.Storage(err)
	}

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("question_id", questionID).
		Str("mime", detected.String()).
		Msg("answer file uploaded")

	return dto.NewAnswerResponse(answer, false), nil
}

func sniffMimeType(file *multipart.FileHeader) (*mimetype.MIME, error) {
	reader, err := file.Open()
	if err != nil {
		return nil, domainerr.Validation("failed to open uploaded file")
	}
	defer reader.Close()

	detected, err := mimetype.DetectReader(reader)
	if err != nil {
		return nil, domainerr.Validation("failed to detect file type")
	}
	return detected, nil
}

func (s *submissionService) Get(ctx context.Context, submissionID, callerID uint, staff bool) (dto.SubmissionResponse, error) {
	submission, err := s.getSubmission(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if !staff && submission.UserID != callerID {
		return dto.SubmissionResponse{}, domainerr.Forbidden("submission belongs to another student")
	}

	showResults := staff
	if !staff {
		assignment, err := s.getAssignment(ctx, submission.AssignmentID)
		if err != nil {
			return dto.SubmissionResponse{}, err
		}
		showResults = ResultsVisible(assignment.ReviewMode, submission.State)
	}

	return dto.NewSubmissionResponse(submission, showResults), nil
}

func (s *submissionService) List(ctx context.Context, filter dto.SubmissionListFilter) ([]dto.SubmissionResponse, int64, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, 0, domainerr.Validation(err.Error())
	}

	repoFilter := repository.SubmissionFilter{
		AssignmentID: filter.AssignmentID,
		UserID:       filter.UserID,
		Page:         filter.Page,
		PageSize:     filter.PageSize,
	}
	if filter.State != nil {
		state := models.SubmissionState(*filter.State)
		repoFilter.State = &state
	}

	submissions, total, err := s.submissions.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, domainerr.Storage(err)
	}

	return dto.NewSubmissionResponseSlice(submissions, true), total, nil
}

func (s *submissionService) ListAttempts(ctx context.Context, assignmentID, studentID uint) ([]dto.SubmissionResponse, error) {
	attempts, err := s.submissions.ListAttempts(ctx, assignmentID, studentID)
	if err != nil {
		return nil, domainerr.Storage(err)
	}

	return dto.NewSubmissionResponseSlice(attempts, true), nil
}

// LegacySubmit is the single-shot text submission path. A resubmission never
// destroys the prior attempt: the old row is kept and the new one links back
// to it.
func (s *submissionService) LegacySubmit(ctx context.Context, studentID uint, payload dto.LegacySubmitRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, domainerr.Validation(err.Error())
	}

	assignment, err := s.getAssignment(ctx, payload.AssignmentID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	now := s.now()
	if !assignment.IsAvailable(now) {
		return dto.SubmissionResponse{}, domainerr.Validation("assignment is not available")
	}

	if assignment.Scope.Kind == models.ScopeCourse {
		enrolled, err := s.enrollments.IsEnrolled(ctx, studentID, assignment.Scope.ID)
		if err != nil {
			return dto.SubmissionResponse{}, domainerr.Storage(err)
		}
		if !enrolled {
			return dto.SubmissionResponse{}, domainerr.Forbidden("student is not enrolled in this course")
		}
	}

	if err := s.checkDeadline(ctx, assignment, studentID, now); err != nil {
		return dto.SubmissionResponse{}, err
	}

	var previous *models.Submission
	if latest, err := s.submissions.GetLatestAttempt(ctx, assignment.ID, studentID); err == nil {
		if latest.IsGradedState() {
			return dto.SubmissionResponse{}, domainerr.ErrAlreadyGraded
		}
		if !assignment.EffectiveAllowResubmit(s.defaults.AllowResubmit) {
			return dto.SubmissionResponse{}, domainerr.Validation("resubmission is not allowed for this assignment")
		}
		previous = &latest
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.SubmissionResponse{}, domainerr.Storage(err)
	}

	deadline := s.overrides.EffectiveDeadline(ctx, assignment, studentID)

	submission := models.Submission{
		AssignmentID: assignment.ID,
		UserID:       studentID,
		AnswerText:   payload.AnswerText,
		State:        models.StateSubmitted,
		SubmittedAt:  &now,
		IsLate:       deadline != nil && now.After(*deadline),
	}

	err = s.submissions.Transaction(ctx, func(tx repository.SubmissionRepository) error {
		committed, err := tx.CountCommitted(ctx, assignment.ID, studentID)
		if err != nil {
			return err
		}
		submission.AttemptNumber = int(committed) + 1
		if previous != nil {
			submission.IsResubmission = true
			submission.PreviousSubmissionID = &previous.ID
		}
		return tx.Create(ctx, &submission)
	})
	if err != nil {
		return dto.SubmissionResponse{}, domainerr.Storage(err)
	}

	s.dispatcher.Dispatch(ctx, events.SubmissionCreated{
		SubmissionID:  submission.ID,
		AssignmentID:  submission.AssignmentID,
		UserID:        studentID,
		AttemptNumber: submission.AttemptNumber,
		IsLate:        submission.IsLate,
		IsResubmit:    submission.IsResubmission,
		SubmittedAt:   now,
	})
	s.indexer.IndexSubmission(ctx, submission)

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Bool("resubmission", submission.IsResubmission).
		Msg("legacy submission created")

	return dto.NewSubmissionResponse(submission, true), nil
}

// LegacyUpdate lets the student correct a legacy submission's free-text answer
// while it is still ungraded.
func (s *submissionService) LegacyUpdate(ctx context.Context, submissionID, studentID uint, payload dto.LegacyUpdateRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, domainerr.Validation(err.Error())
	}

	submission, err := s.getSubmission(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if submission.UserID != studentID {
		return dto.SubmissionResponse{}, domainerr.Forbidden("submission belongs to another student")
	}
	if submission.IsGradedState() {
		return dto.SubmissionResponse{}, domainerr.ErrAlreadyGraded
	}

	submission.AnswerText = payload.AnswerText
	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, domainerr.Storage(err)
	}
	s.indexer.IndexSubmission(ctx, submission)

	s.logger.Info().Uint("submission_id", submission.ID).Msg("legacy submission updated")

	return dto.NewSubmissionResponse(submission, true), nil
}

func (s *submissionService) questionForSubmission(ctx context.Context, submission models.Submission, questionID uint) (models.Question, error) {
	for _, id := range submission.QuestionSet {
		if id == questionID {
			assignment, err := s.getAssignment(ctx, submission.AssignmentID)
			if err != nil {
				return models.Question{}, err
			}
			for _, question := range assignment.Questions {
				if question.ID == questionID {
					return question, nil
				}
			}
			break
		}
	}
	return models.Question{}, domainerr.Validationf("question %d is not part of this attempt", questionID)
}

func (s *submissionService) getSubmission(ctx context.Context, id uint) (models.Submission, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, domainerr.NotFound("submission")
		}
		return models.Submission{}, domainerr.Storage(err)
	}
	return submission, nil
}

func (s *submissionService) getAssignment(ctx context.Context, id uint) (models.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, domainerr.NotFound("assignment")
		}
		return models.Assignment{}, domainerr.Storage(err)
	}
	return assignment, nil
}
