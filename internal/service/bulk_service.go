package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gradeflow-api/internal/domainerr"
	"github.com/noah-isme/gradeflow-api/internal/dto"
	"github.com/noah-isme/gradeflow-api/internal/events"
	"github.com/noah-isme/gradeflow-api/internal/models"
	"github.com/noah-isme/gradeflow-api/internal/repository"
	"github.com/noah-isme/gradeflow-api/pkg/jobs"
)

// Job types routed through the background queue.
const (
	JobRecalculate  = "recalculate_question"
	JobBulkRelease  = "bulk_release"
	JobBulkFeedback = "bulk_feedback"
)

// RecalculationPayload targets one question whose key changed.
type RecalculationPayload struct {
	QuestionID uint `json:"question_id"`
}

// BulkReleasePayload carries the async release targets.
type BulkReleasePayload struct {
	SubmissionIDs []uint `json:"submission_ids"`
	ActorID       uint   `json:"actor_id"`
}

// BulkFeedbackPayload carries the async feedback targets.
type BulkFeedbackPayload struct {
	SubmissionIDs []uint `json:"submission_ids"`
	Feedback      string `json:"feedback"`
	ActorID       uint   `json:"actor_id"`
}

// BulkService orchestrates multi-submission operations and retroactive
// recalculation. Synchronous calls report per-item outcomes with no rollback;
// asynchronous calls pre-validate cheaply, enqueue, and acknowledge.
type BulkService interface {
	BulkRelease(ctx context.Context, actorID uint, payload dto.BulkRequest) (dto.BulkResult, error)
	BulkFeedback(ctx context.Context, actorID uint, payload dto.BulkFeedbackRequest) (dto.BulkResult, error)
	BulkReleaseAsync(ctx context.Context, actorID uint, payload dto.BulkRequest) (dto.AsyncAck, error)
	BulkFeedbackAsync(ctx context.Context, actorID uint, payload dto.BulkFeedbackRequest) (dto.AsyncAck, error)
	EnqueueRecalculation(ctx context.Context, questionID uint) error
	RecalculateQuestion(ctx context.Context, questionID uint) error
	HandleJob(ctx context.Context, job jobs.Job) error
}

type bulkService struct {
	submissions repository.SubmissionRepository
	answers     repository.AnswerRepository
	questions   repository.QuestionRepository
	assignments repository.AssignmentRepository
	grades      repository.GradeRepository
	grading     GradingService
	defaults    GradingDefaults
	queue       *jobs.Queue
	dispatcher  events.Dispatcher
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	now         func() time.Time
}

// NewBulkService constructs a BulkService instance. The queue may be nil in
// tests; async entry points then degrade to synchronous execution.
func NewBulkService(
	submissionRepo repository.SubmissionRepository,
	answerRepo repository.AnswerRepository,
	questionRepo repository.QuestionRepository,
	assignmentRepo repository.AssignmentRepository,
	gradeRepo repository.GradeRepository,
	grading GradingService,
	defaults GradingDefaults,
	queue *jobs.Queue,
	dispatcher events.Dispatcher,
	validate *validator.Validate,
	logger zerolog.Logger,
) BulkService {
	return &bulkService{
		submissions: submissionRepo,
		answers:     answerRepo,
		questions:   questionRepo,
		assignments: assignmentRepo,
		grades:      gradeRepo,
		grading:     grading,
		defaults:    defaults,
		queue:       queue,
		dispatcher:  dispatcher,
		validator:   validate,
		sanitizer:   bluemonday.UGCPolicy(),
		logger:      logger.With().Str("component", "bulk_service").Logger(),
		now:         time.Now,
	}
}

// BulkRelease releases each target independently. A failing item never rolls
// back the others.
func (s *bulkService) BulkRelease(ctx context.Context, actorID uint, payload dto.BulkRequest) (dto.BulkResult, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.BulkResult{}, domainerr.Validation(err.Error())
	}

	result := dto.BulkResult{Succeeded: []uint{}, Failed: []dto.BulkFailure{}}
	for _, id := range payload.SubmissionIDs {
		if _, err := s.grading.Release(ctx, id, actorID); err != nil {
			result.Failed = append(result.Failed, dto.BulkFailure{SubmissionID: id, Reason: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}

	s.logger.Info().
		Int("succeeded", len(result.Succeeded)).
		Int("failed", len(result.Failed)).
		Msg("bulk release finished")

	return result, nil
}

// BulkFeedback appends sanitized feedback to each target's grade record.
func (s *bulkService) BulkFeedback(ctx context.Context, actorID uint, payload dto.BulkFeedbackRequest) (dto.BulkResult, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.BulkResult{}, domainerr.Validation(err.Error())
	}

	feedback := s.sanitizer.Sanitize(payload.Feedback)

	result := dto.BulkResult{Succeeded: []uint{}, Failed: []dto.BulkFailure{}}
	for _, id := range payload.SubmissionIDs {
		if err := s.appendFeedback(ctx, id, actorID, feedback); err != nil {
			result.Failed = append(result.Failed, dto.BulkFailure{SubmissionID: id, Reason: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}

	return result, nil
}

func (s *bulkService) appendFeedback(ctx context.Context, submissionID, actorID uint, feedback string) error {
	grade, err := s.grades.GetBySubmission(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainerr.NotFound("grade")
		}
		return domainerr.Storage(err)
	}

	if grade.Feedback == "" {
		grade.Feedback = feedback
	} else {
		grade.Feedback = strings.TrimRight(grade.Feedback, "\n") + "\n\n" + feedback
	}
	grade.GradedBy = &actorID

	if err := s.grades.Update(ctx, &grade); err != nil {
		return domainerr.Storage(err)
	}
	return nil
}

// BulkReleaseAsync pre-validates that at least one target exists, enqueues the
// batch, and acknowledges immediately. Per-item failures surface in logs and
// events rather than the response.
func (s *bulkService) BulkReleaseAsync(ctx context.Context, actorID uint, payload dto.BulkRequest) (dto.AsyncAck, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AsyncAck{}, domainerr.Validation(err.Error())
	}

	valid, err := s.anyExists(ctx, payload.SubmissionIDs)
	if err != nil {
		return dto.AsyncAck{}, err
	}
	if !valid {
		return dto.AsyncAck{}, domainerr.Validation("none of the targeted submissions exist")
	}

	job := jobs.Job{ID: uuid.NewString(), Type: JobBulkRelease, Payload: BulkReleasePayload{SubmissionIDs: payload.SubmissionIDs, ActorID: actorID}}
	if err := s.enqueue(ctx, job); err != nil {
		return dto.AsyncAck{}, err
	}

	return dto.AsyncAck{JobID: job.ID, Accepted: len(payload.SubmissionIDs)}, nil
}

// BulkFeedbackAsync mirrors BulkReleaseAsync for feedback.
func (s *bulkService) BulkFeedbackAsync(ctx context.Context, actorID uint, payload dto.BulkFeedbackRequest) (dto.AsyncAck, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AsyncAck{}, domainerr.Validation(err.Error())
	}

	valid, err := s.anyExists(ctx, payload.SubmissionIDs)
	if err != nil {
		return dto.AsyncAck{}, err
	}
	if !valid {
		return dto.AsyncAck{}, domainerr.Validation("none of the targeted submissions exist")
	}

	job := jobs.Job{ID: uuid.NewString(), Type: JobBulkFeedback, Payload: BulkFeedbackPayload{
		SubmissionIDs: payload.SubmissionIDs,
		Feedback:      payload.Feedback,
		ActorID:       actorID,
	}}
	if err := s.enqueue(ctx, job); err != nil {
		return dto.AsyncAck{}, err
	}

	return dto.AsyncAck{JobID: job.ID, Accepted: len(payload.SubmissionIDs)}, nil
}

func (s *bulkService) anyExists(ctx context.Context, ids []uint) (bool, error) {
	for _, id := range ids {
		if _, err := s.submissions.GetByID(ctx, id); err == nil {
			return true, nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return false, domainerr.Storage(err)
		}
	}
	return false, nil
}

// EnqueueRecalculation schedules a re-grade of every submission that answered
// the question.
func (s *bulkService) EnqueueRecalculation(ctx context.Context, questionID uint) error {
	return s.enqueue(ctx, jobs.Job{Type: JobRecalculate, Payload: RecalculationPayload{QuestionID: questionID}})
}

func (s *bulkService) enqueue(ctx context.Context, job jobs.Job) error {
	if s.queue == nil {
		return s.HandleJob(ctx, job)
	}
	if err := s.queue.Enqueue(job); err != nil {
		return domainerr.Storage(err)
	}
	return nil
}

// HandleJob is the queue handler. It re-derives results from current state so
// a retried job is harmless.
func (s *bulkService) HandleJob(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case JobRecalculate:
		payload, ok := job.Payload.(RecalculationPayload)
		if !ok {
			return domainerr.Validationf("malformed payload for %s job", job.Type)
		}
		return s.RecalculateQuestion(ctx, payload.QuestionID)

	case JobBulkRelease:
		payload, ok := job.Payload.(BulkReleasePayload)
		if !ok {
			return domainerr.Validationf("malformed payload for %s job", job.Type)
		}
		result, err := s.BulkRelease(ctx, payload.ActorID, dto.BulkRequest{SubmissionIDs: payload.SubmissionIDs})
		if err != nil {
			return err
		}
		for _, failure := range result.Failed {
			s.logger.Warn().
				Uint("submission_id", failure.SubmissionID).
				Str("reason", failure.Reason).
				Msg("async bulk release item failed")
		}
		return nil

	case JobBulkFeedback:
		payload, ok := job.Payload.(BulkFeedbackPayload)
		if !ok {
			return domainerr.Validationf("malformed payload for %s job", job.Type)
		}
		_, err := s.BulkFeedback(ctx, payload.ActorID, dto.BulkFeedbackRequest{
			SubmissionIDs: payload.SubmissionIDs,
			Feedback:      payload.Feedback,
		})
		return err
	}

	return domainerr.Validationf("unknown job type: %s", job.Type)
}

// RecalculateQuestion re-scores every auto-graded answer of the question under
// its current key and re-aggregates the affected submissions. In-progress
// attempts and manually overridden grades are left untouched.
func (s *bulkService) RecalculateQuestion(ctx context.Context, questionID uint) error {
	question, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// question vanished since the key change, nothing to do
			return nil
		}
		return domainerr.Storage(err)
	}

	assignment, err := s.assignments.GetByID(ctx, question.AssignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return domainerr.Storage(err)
	}

	submissionIDs, err := s.submissions.ListIDsByAssignment(ctx, question.AssignmentID)
	if err != nil {
		return domainerr.Storage(err)
	}

	recalculated := 0
	for _, submissionID := range submissionIDs {
		changed, err := s.recalculateSubmission(ctx, submissionID, assignment, question)
		if err != nil {
			return err
		}
		if changed {
			recalculated++
		}
	}

	s.logger.Info().
		Uint("question_id", questionID).
		Int("submissions", recalculated).
		Msg("recalculation finished")

	return nil
}

func (s *bulkService) recalculateSubmission(ctx context.Context, submissionID uint, assignment models.Assignment, question models.Question) (bool, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, domainerr.Storage(err)
	}
	if submission.State == models.StateInProgress {
		return false, nil
	}

	var target *models.Answer
	for i := range submission.Answers {
		if submission.Answers[i].QuestionID == question.ID {
			target = &submission.Answers[i]
			break
		}
	}
	if target == nil || !target.IsAutoGraded {
		return false, nil
	}

	newScore, gradable := scoreAutoAnswer(question, *target)
	if !gradable {
		return false, nil
	}
	if target.Score != nil && *target.Score == newScore {
		return false, nil
	}

	target.Score = &newScore
	if err := s.answers.Update(ctx, target); err != nil {
		return false, domainerr.Storage(err)
	}

	questions, err := s.questionsForSubmission(ctx, submission)
	if err != nil {
		return false, err
	}

	oldScore := 0.0
	if submission.Score != nil {
		oldScore = *submission.Score
	}

	newAggregate := aggregateScore(questions, submission.Answers)
	if submission.IsLate {
		newAggregate = applyLatePenalty(newAggregate, assignment.EffectiveLatePenalty(s.defaults.LatePenaltyPercent))
	}

	// Manually overridden grades keep their displayed score; only the
	// recorded original is refreshed.
	grade, err := s.grades.GetBySubmission(ctx, submissionID)
	switch {
	case err == nil && grade.IsOverride:
		original := newAggregate
		grade.OriginalScore = &original
		if err := s.grades.Update(ctx, &grade); err != nil {
			return false, domainerr.Storage(err)
		}
		return true, nil
	case err == nil:
		grade.Score = &newAggregate
		if err := s.grades.Update(ctx, &grade); err != nil {
			return false, domainerr.Storage(err)
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return false, domainerr.Storage(err)
	}

	submission.Score = &newAggregate
	if err := s.submissions.Update(ctx, &submission); err != nil {
		return false, domainerr.Storage(err)
	}

	if err := s.submissions.MarkHighestAttempt(ctx, submission.AssignmentID, submission.UserID); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("mark best attempt failed")
	}

	if math.Abs(newAggregate-oldScore) > 1e-9 {
		s.dispatcher.Dispatch(ctx, events.GradeRecalculated{
			SubmissionID: submission.ID,
			QuestionID:   question.ID,
			OldScore:     oldScore,
			NewScore:     newAggregate,
		})
	}

	return true, nil
}

func (s *bulkService) questionsForSubmission(ctx context.Context, submission models.Submission) (map[uint]models.Question, error) {
	var (
		list []models.Question
		err  error
	)
	if len(submission.QuestionSet) > 0 {
		list, err = s.questions.ListByIDs(ctx, submission.QuestionSet)
	} else {
		list, err = s.questions.ListByAssignment(ctx, submission.AssignmentID)
	}
	if err != nil {
		return nil, domainerr.Storage(err)
	}

	byID := make(map[uint]models.Question, len(list))
	for _, question := range list {
		byID[question.ID] = question
	}
	return byID, nil
}
