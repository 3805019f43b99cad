package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/noah-isme/gradeflow-api/internal/domainerr"
	"github.com/noah-isme/gradeflow-api/internal/dto"
	"github.com/noah-isme/gradeflow-api/internal/events"
	"github.com/noah-isme/gradeflow-api/internal/models"
	"github.com/noah-isme/gradeflow-api/internal/repository"
)

const gradingTracerName = "github.com/noah-isme/gradeflow-api/internal/service/grading"

// GradingDefaults carries the system-wide grading parameters resolved from
// configuration at wiring time.
type GradingDefaults struct {
	LatePenaltyPercent int
}

// GradingService implements automatic and manual grading, score overrides,
// release, and the manual grading queue.
type GradingService interface {
	AutoGrade(ctx context.Context, submissionID, actorID uint) (dto.SubmissionResponse, error)
	ManualGrade(ctx context.Context, submissionID, graderID uint, payload dto.ManualGradeRequest) (dto.GradeResponse, error)
	SaveDraft(ctx context.Context, submissionID, graderID uint, payload dto.DraftGradeRequest) (dto.GradeResponse, error)
	GetDraft(ctx context.Context, submissionID uint) (dto.GradeResponse, error)
	OverrideGrade(ctx context.Context, submissionID, actorID uint, payload dto.OverrideGradeRequest) (dto.GradeResponse, error)
	LegacyGrade(ctx context.Context, submissionID, graderID uint, payload dto.LegacyGradeRequest) (dto.SubmissionResponse, error)
	Release(ctx context.Context, submissionID, actorID uint) (dto.SubmissionResponse, error)
	ReturnToQueue(ctx context.Context, submissionID, actorID uint) (dto.SubmissionResponse, error)
	ValidateGradingComplete(ctx context.Context, submissionID uint) error
	Queue(ctx context.Context, assignmentID uint) ([]dto.GradingQueueItem, error)
}

type gradingService struct {
	submissions repository.SubmissionRepository
	answers     repository.AnswerRepository
	questions   repository.QuestionRepository
	assignments repository.AssignmentRepository
	grades      repository.GradeRepository
	users       repository.UserRepository
	cache       QueueCache
	dispatcher  events.Dispatcher
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	defaults    GradingDefaults
	logger      zerolog.Logger
	now         func() time.Time
}

// NewGradingService constructs a GradingService instance.
func NewGradingService(
	submissionRepo repository.SubmissionRepository,
	answerRepo repository.AnswerRepository,
	questionRepo repository.QuestionRepository,
	assignmentRepo repository.AssignmentRepository,
	gradeRepo repository.GradeRepository,
	userRepo repository.UserRepository,
	cache QueueCache,
	dispatcher events.Dispatcher,
	validate *validator.Validate,
	defaults GradingDefaults,
	logger zerolog.Logger,
) GradingService {
	return &gradingService{
		submissions: submissionRepo,
		answers:     answerRepo,
		questions:   questionRepo,
		assignments: assignmentRepo,
		grades:      gradeRepo,
		users:       userRepo,
		cache:       cache,
		dispatcher:  dispatcher,
		validator:   validate,
		sanitizer:   bluemonday.UGCPolicy(),
		defaults:    defaults,
		logger:      logger.With().Str("component", "grading_service").Logger(),
		now:         time.Now,
	}
}

// scoreAutoAnswer scores one answer against its question's key. The second
// return reports whether the question is auto-gradable at all. Checkbox
// grading is all-or-nothing: the selected set must match the key exactly.
func scoreAutoAnswer(question models.Question, answer models.Answer) (float64, bool) {
	switch question.Type {
	case models.QuestionTypeMultipleChoice:
		if len(answer.SelectedOptions) == 1 && len(question.AnswerKey) == 1 &&
			answer.SelectedOptions[0] == question.AnswerKey[0] {
			return question.MaxScore, true
		}
		return 0, true

	case models.QuestionTypeCheckbox:
		if len(answer.SelectedOptions) != len(question.AnswerKey) {
			return 0, true
		}
		key := make(map[string]bool, len(question.AnswerKey))
		for _, entry := range question.AnswerKey {
			key[entry] = true
		}
		for _, selected := range answer.SelectedOptions {
			if !key[selected] {
				return 0, true
			}
		}
		return question.MaxScore, true
	}

	return 0, false
}

// aggregateScore folds per-answer scores into the 0-100 submission score:
// sum(answer/max*100*weight) / sum(weight), rounded to two decimals.
func aggregateScore(questions map[uint]models.Question, answers []models.Answer) float64 {
	var weighted, totalWeight float64
	for _, answer := range answers {
		question, ok := questions[answer.QuestionID]
		if !ok || question.MaxScore <= 0 {
			continue
		}
		totalWeight += question.Weight
		if answer.Score != nil {
			weighted += *answer.Score / question.MaxScore * 100 * question.Weight
		}
	}

	if totalWeight == 0 {
		return 0
	}
	return math.Round(weighted/totalWeight*100) / 100
}

// applyLatePenalty deducts the configured percentage from a raw score,
// flooring at zero.
func applyLatePenalty(raw float64, percent int) float64 {
	final := raw - raw*float64(percent)/100
	if final < 0 {
		return 0
	}
	return math.Round(final*100) / 100
}

// AutoGrade scores every auto-gradable answer of a submitted attempt. When the
// whole question set is auto-gradable the submission is finalized immediately;
// otherwise it joins the manual grading queue with its objective part scored.
func (s *gradingService) AutoGrade(ctx context.Context, submissionID, actorID uint) (dto.SubmissionResponse, error) {
	tracer := otel.Tracer(gradingTracerName)
	ctx, span := tracer.Start(ctx, "grading.auto")
	span.SetAttributes(attribute.Int64("grading.submission_id", int64(submissionID)))
	defer span.End()

	submission, err := s.getSubmission(ctx, submissionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_lookup_failed")
		return dto.SubmissionResponse{}, err
	}

	if submission.State != models.StateSubmitted {
		err := domainerr.InvalidTransition(string(submission.State), string(models.StateAutoGraded))
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid_state")
		return dto.SubmissionResponse{}, err
	}

	questions, err := s.questionSet(ctx, submission)
	if err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	allAuto := true
	for _, question := range questions {
		if !question.Type.CanAutoGrade() {
			allAuto = false
			break
		}
	}

	for i := range submission.Answers {
		question, ok := questions[submission.Answers[i].QuestionID]
		if !ok {
			continue
		}
		if score, gradable := scoreAutoAnswer(question, submission.Answers[i]); gradable {
			submission.Answers[i].Score = &score
			submission.Answers[i].IsAutoGraded = true
		}
	}
	if err := s.answers.UpdateBatch(ctx, submission.Answers); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, domainerr.Storage(err)
	}

	var evts []events.Event

	if allAuto {
		assignment, err := s.getAssignment(ctx, submission.AssignmentID)
		if err != nil {
			return dto.SubmissionResponse{}, err
		}

		raw := aggregateScore(questions, submission.Answers)
		final := raw
		if submission.IsLate {
			final = applyLatePenalty(raw, assignment.EffectiveLatePenalty(s.defaults.LatePenaltyPercent))
		}

		highScoreEvent, err := s.highScoreEvent(ctx, submission, final)
		if err != nil {
			return dto.SubmissionResponse{}, err
		}

		changed, err := submission.TransitionTo(models.StateAutoGraded, actorID)
		if err != nil {
			span.RecordError(err)
			return dto.SubmissionResponse{}, err
		}
		submission.Score = &final
		evts = append(evts, changed)
		if highScoreEvent != nil {
			evts = append(evts, *highScoreEvent)
		}

		grade := models.Grade{
			SubmissionID: submission.ID,
			UserID:       submission.UserID,
			Score:        &final,
			MaxScore:     100,
			IsDraft:      false,
		}
		gradedAt := s.now()
		grade.GradedAt = &gradedAt
		if err := s.upsertGrade(ctx, &grade); err != nil {
			return dto.SubmissionResponse{}, err
		}

		span.SetAttributes(attribute.Float64("grading.score", final))
	} else {
		changed, err := submission.TransitionTo(models.StatePendingManualGrading, actorID)
		if err != nil {
			span.RecordError(err)
			return dto.SubmissionResponse{}, err
		}
		evts = append(evts, changed)
		s.cache.Invalidate(ctx, submission.AssignmentID)
	}

	if err := s.submissions.Update(ctx, &submission); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_update_failed")
		return dto.SubmissionResponse{}, domainerr.Storage(err)
	}

	if allAuto {
		s.markBestAttempt(ctx, submission)
	}

	s.dispatcher.Dispatch(ctx, evts...)

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Str("state", string(submission.State)).
		Msg("submission auto graded")

	return dto.NewSubmissionResponse(submission, true), nil
}

// ManualGrade finalizes grading of a queued submission. Every entry must name
// an answer of this submission and stay within the question's score bounds.
func (s *gradingService) ManualGrade(ctx context.Context, submissionID, graderID uint, payload dto.ManualGradeRequest) (dto.GradeResponse, error) {
	tracer := otel.Tracer(gradingTracerName)
	ctx, span := tracer.Start(ctx, "grading.manual")
	span.SetAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
		attribute.Int64("grading.grader_id", int64(graderID)),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.GradeResponse{}, domainerr.Validation(err.Error())
	}

	submission, err := s.getSubmission(ctx, submissionID)
	if err != nil {
		return dto.GradeResponse{}, err
	}

	if submission.State != models.StatePendingManualGrading {
		err := domainerr.InvalidTransition(string(submission.State), string(models.StateGraded))
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid_state")
		return dto.GradeResponse{}, err
	}

	questions, err := s.questionSet(ctx, submission)
	if err != nil {
		return dto.GradeResponse{}, err
	}

	if err := s.applyAnswerScores(&submission, questions, payload.Scores); err != nil {
		span.RecordError(err)
		return dto.GradeResponse{}, err
	}

	for _, answer := range submission.Answers {
		if answer.Score == nil {
			return dto.GradeResponse{}, domainerr.Validationf("answer %d is still ungraded", answer.ID)
		}
	}

	if err := s.answers.UpdateBatch(ctx, submission.Answers); err != nil {
		return dto.GradeResponse{}, domainerr.Storage(err)
	}

	assignment, err := s.getAssignment(ctx, submission.AssignmentID)
	if err != nil {
		return dto.GradeResponse{}, err
	}

	raw := aggregateScore(questions, submission.Answers)
	final := raw
	if submission.IsLate {
		final = applyLatePenalty(raw, assignment.EffectiveLatePenalty(s.defaults.LatePenaltyPercent))
	}

	highScoreEvent, err := s.highScoreEvent(ctx, submission, final)
	if err != nil {
		return dto.GradeResponse{}, err
	}

	changed, err := submission.TransitionTo(models.StateGraded, graderID)
	if err != nil {
		span.RecordError(err)
		return dto.GradeResponse{}, err
	}
	submission.Score = &final

	gradedAt := s.now()
	grade := models.Grade{
		SubmissionID: submission.ID,
		UserID:       submission.UserID,
		GradedBy:     &graderID,
		Score:        &final,
		MaxScore:     100,
		Feedback:     s.sanitizer.Sanitize(payload.Feedback),
		IsDraft:      false,
		GradedAt:     &gradedAt,
	}
	if err := s.upsertGrade(ctx, &grade); err != nil {
		return dto.GradeResponse{}, err
	}

	if err := s.submissions.Update(ctx, &submission); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_update_failed")
		return dto.GradeResponse{}, domainerr.Storage(err)
	}

	s.cache.Invalidate(ctx, submission.AssignmentID)
	s.markBestAttempt(ctx, submission)

	evts := []events.Event{changed}
	if highScoreEvent != nil {
		evts = append(evts, *highScoreEvent)
	}
	s.dispatcher.Dispatch(ctx, evts...)

	span.SetAttributes(attribute.Float64("grading.score", final))
	s.logger.Info().Uint("submission_id", submissionID).Float64("score", final).Msg("submission manually graded")

	return dto.NewGradeResponse(grade), nil
}

// LegacyGrade scores a non-attempt-tracked submission in one call. The legacy
// surface has no grading queue; a submitted entry moves straight to graded.
func (s *gradingService) LegacyGrade(ctx context.Context, submissionID, graderID uint, payload dto.LegacyGradeRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, domainerr.Validation(err.Error())
	}

	submission, err := s.getSubmission(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if submission.IsGradedState() {
		return dto.SubmissionResponse{}, domainerr.ErrAlreadyGraded
	}
	if submission.State == models.StateInProgress {
		return dto.SubmissionResponse{}, domainerr.Validation("submission has not been submitted yet")
	}

	assignment, err := s.getAssignment(ctx, submission.AssignmentID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if payload.Score > assignment.MaxScore {
		return dto.SubmissionResponse{}, domainerr.Validationf("score must be between 0 and %g", assignment.MaxScore)
	}

	final := payload.Score
	if submission.IsLate {
		final = applyLatePenalty(payload.Score, assignment.EffectiveLatePenalty(s.defaults.LatePenaltyPercent))
	}

	highScoreEvent, err := s.highScoreEvent(ctx, submission, final)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	gradedAt := s.now()
	grade := models.Grade{
		SubmissionID: submission.ID,
		UserID:       submission.UserID,
		GradedBy:     &graderID,
		Score:        &final,
		MaxScore:     assignment.MaxScore,
		Feedback:     s.sanitizer.Sanitize(payload.Feedback),
		IsDraft:      false,
		GradedAt:     &gradedAt,
	}
	if err := s.upsertGrade(ctx, &grade); err != nil {
		return dto.SubmissionResponse{}, err
	}

	oldState := submission.State
	submission.State = models.StateGraded
	submission.Score = &final
	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, domainerr.Storage(err)
	}

	s.cache.Invalidate(ctx, submission.AssignmentID)
	s.markBestAttempt(ctx, submission)

	evts := []events.Event{events.SubmissionStateChanged{
		SubmissionID: submission.ID,
		AssignmentID: submission.AssignmentID,
		UserID:       submission.UserID,
		OldState:     string(oldState),
		NewState:     string(models.StateGraded),
		ActorID:      graderID,
	}}
	if highScoreEvent != nil {
		evts = append(evts, *highScoreEvent)
	}
	s.dispatcher.Dispatch(ctx, evts...)

	s.logger.Info().
		Uint("submission_id", submissionID).
		Float64("score", final).
		Msg("legacy submission graded")

	return dto.NewSubmissionResponse(submission, true), nil
}

// applyAnswerScores validates and applies per-answer scores in memory.
func (s *gradingService) applyAnswerScores(submission *models.Submission, questions map[uint]models.Question, scores []dto.AnswerScoreInput) error {
	byID := make(map[uint]int, len(submission.Answers))
	for i, answer := range submission.Answers {
		byID[answer.ID] = i
	}

	for _, entry := range scores {
		idx, ok := byID[entry.AnswerID]
		if !ok {
			return domainerr.Validationf("answer %d does not belong to this submission", entry.AnswerID)
		}
		question, ok := questions[submission.Answers[idx].QuestionID]
		if !ok {
			return domainerr.Validationf("answer %d references a question outside the attempt's question set", entry.AnswerID)
		}
		if entry.Score < 0 || entry.Score > question.MaxScore {
			return domainerr.Validationf("score for answer %d must be between 0 and %g", entry.AnswerID, question.MaxScore)
		}

		score := entry.Score
		submission.Answers[idx].Score = &score
		submission.Answers[idx].IsAutoGraded = false
		if entry.Feedback != "" {
			submission.Answers[idx].Feedback = s.sanitizer.Sanitize(entry.Feedback)
		}
	}

	return nil
}

// SaveDraft persists grading progress without finalizing the submission.
func (s *gradingService) SaveDraft(ctx context.Context, submissionID, graderID uint, payload dto.DraftGradeRequest) (dto.GradeResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.GradeResponse{}, domainerr.Validation(err.Error())
	}

	submission, err := s.getSubmission(ctx, submissionID)
	if err != nil {
		return dto.GradeResponse{}, err
	}

	if submission.State != models.StatePendingManualGrading {
		return dto.GradeResponse{}, domainerr.Validation("drafts can only be saved while the submission awaits manual grading")
	}

	questions, err := s.questionSet(ctx, submission)
	if err != nil {
		return dto.GradeResponse{}, err
	}

	if err := s.applyAnswerScores(&submission, questions, payload.Scores); err != nil {
		return dto.GradeResponse{}, err
	}
	if err := s.answers.UpdateBatch(ctx, submission.Answers); err != nil {
		return dto.GradeResponse{}, domainerr.Storage(err)
	}

	grade := models.Grade{
		SubmissionID: submission.ID,
		UserID:       submission.UserID,
		GradedBy:     &graderID,
		MaxScore:     100,
		Feedback:     s.sanitizer.Sanitize(payload.Feedback),
		IsDraft:      true,
	}
	if err := s.upsertGrade(ctx, &grade); err != nil {
		return dto.GradeResponse{}, err
	}

	return dto.NewGradeResponse(grade), nil
}

// GetDraft returns the stored draft grade of a submission.
func (s *gradingService) GetDraft(ctx context.Context, submissionID uint) (dto.GradeResponse, error) {
	grade, err := s.grades.GetBySubmission(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradeResponse{}, domainerr.NotFound("draft grade")
		}
		return dto.GradeResponse{}, domainerr.Storage(err)
	}
	if !grade.IsDraft {
		return dto.GradeResponse{}, domainerr.NotFound("draft grade")
	}

	return dto.NewGradeResponse(grade), nil
}

// OverrideGrade replaces a finalized score with a manual decision, preserving
// the originally computed score for audit.
func (s *gradingService) OverrideGrade(ctx context.Context, submissionID, actorID uint, payload dto.OverrideGradeRequest) (dto.GradeResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.GradeResponse{}, domainerr.Validation(err.Error())
	}
	if payload.Score > 100 {
		return dto.GradeResponse{}, domainerr.Validation("override score must not exceed 100")
	}

	submission, err := s.getSubmission(ctx, submissionID)
	if err != nil {
		return dto.GradeResponse{}, err
	}
	if !submission.IsGradedState() {
		return dto.GradeResponse{}, domainerr.Validation("only graded submissions can be overridden")
	}

	grade, err := s.grades.GetBySubmission(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradeResponse{}, domainerr.NotFound("grade")
		}
		return dto.GradeResponse{}, domainerr.Storage(err)
	}
	if grade.IsDraft {
		return dto.GradeResponse{}, domainerr.Validation("cannot override a draft grade")
	}

	grade.ApplyOverride(payload.Score, payload.Reason, actorID, s.now())
	if err := s.grades.Update(ctx, &grade); err != nil {
		return dto.GradeResponse{}, domainerr.Storage(err)
	}

	submission.Score = grade.Score
	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.GradeResponse{}, domainerr.Storage(err)
	}

	s.markBestAttempt(ctx, submission)

	s.logger.Info().
		Uint("submission_id", submissionID).
		Uint("actor_id", actorID).
		Float64("score", payload.Score).
		Msg("grade overridden")

	return dto.NewGradeResponse(grade), nil
}

// Release makes a finalized grade visible to the student.
func (s *gradingService) Release(ctx context.Context, submissionID, actorID uint) (dto.SubmissionResponse, error) {
	submission, err := s.getSubmission(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if err := s.ValidateGradingComplete(ctx, submissionID); err != nil {
		return dto.SubmissionResponse{}, err
	}

	grade, err := s.grades.GetBySubmission(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, domainerr.NotFound("grade")
		}
		return dto.SubmissionResponse{}, domainerr.Storage(err)
	}
	if grade.IsDraft {
		return dto.SubmissionResponse{}, domainerr.Validation("cannot release a draft grade")
	}

	changed, err := submission.TransitionTo(models.StateReleased, actorID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	releasedAt := s.now()
	grade.ReleasedAt = &releasedAt
	if err := s.grades.Update(ctx, &grade); err != nil {
		return dto.SubmissionResponse{}, domainerr.Storage(err)
	}
	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, domainerr.Storage(err)
	}

	s.dispatcher.Dispatch(ctx, changed, events.GradesReleased{
		SubmissionIDs: []uint{submission.ID},
		ReleasedBy:    actorID,
	})

	s.logger.Info().Uint("submission_id", submissionID).Msg("grade released")

	return dto.NewSubmissionResponse(submission, true), nil
}

// ReturnToQueue sends a graded submission back to manual grading. This is the
// single sanctioned backward transition.
func (s *gradingService) ReturnToQueue(ctx context.Context, submissionID, actorID uint) (dto.SubmissionResponse, error) {
	submission, err := s.getSubmission(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	changed, err := submission.TransitionTo(models.StatePendingManualGrading, actorID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	grade, err := s.grades.GetBySubmission(ctx, submissionID)
	if err == nil {
		grade.IsDraft = true
		grade.ReleasedAt = nil
		if err := s.grades.Update(ctx, &grade); err != nil {
			return dto.SubmissionResponse{}, domainerr.Storage(err)
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.SubmissionResponse{}, domainerr.Storage(err)
	}

	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, domainerr.Storage(err)
	}

	s.cache.Invalidate(ctx, submission.AssignmentID)
	s.dispatcher.Dispatch(ctx, changed)

	s.logger.Info().Uint("submission_id", submissionID).Msg("submission returned to grading queue")

	return dto.NewSubmissionResponse(submission, true), nil
}

// ValidateGradingComplete checks that every answer of the attempt's question
// set carries a score.
func (s *gradingService) ValidateGradingComplete(ctx context.Context, submissionID uint) error {
	submission, err := s.getSubmission(ctx, submissionID)
	if err != nil {
		return err
	}

	answered := make(map[uint]models.Answer, len(submission.Answers))
	for _, answer := range submission.Answers {
		answered[answer.QuestionID] = answer
	}

	for _, questionID := range submission.QuestionSet {
		answer, ok := answered[questionID]
		if !ok || answer.Score == nil {
			return domainerr.Validationf("question %d has no graded answer", questionID)
		}
	}

	return nil
}

// Queue lists submissions awaiting manual grading, oldest first.
func (s *gradingService) Queue(ctx context.Context, assignmentID uint) ([]dto.GradingQueueItem, error) {
	if items, ok := s.cache.Get(ctx, assignmentID); ok {
		return items, nil
	}

	submissions, err := s.submissions.ListByAssignmentAndState(ctx, assignmentID, models.StatePendingManualGrading)
	if err != nil {
		return nil, domainerr.Storage(err)
	}

	studentIDs := make([]uint, 0, len(submissions))
	for _, submission := range submissions {
		studentIDs = append(studentIDs, submission.UserID)
	}

	names := make(map[uint]string, len(studentIDs))
	students, err := s.users.ListByIDs(ctx, studentIDs)
	if err != nil {
		// Queue items stay useful without names; log and move on.
		s.logger.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("resolve student names failed")
	}
	for _, student := range students {
		names[student.ID] = student.Name
	}

	items := make([]dto.GradingQueueItem, 0, len(submissions))
	for _, submission := range submissions {
		items = append(items, dto.GradingQueueItem{
			SubmissionID:  submission.ID,
			AssignmentID:  submission.AssignmentID,
			UserID:        submission.UserID,
			StudentName:   names[submission.UserID],
			AttemptNumber: submission.AttemptNumber,
			IsLate:        submission.IsLate,
			SubmittedAt:   submission.SubmittedAt,
		})
	}

	s.cache.Set(ctx, assignmentID, items)

	return items, nil
}

// markBestAttempt re-derives the student's best-attempt flag after a score
// commit. Failures only cost the marker, not the grade, so they are logged.
func (s *gradingService) markBestAttempt(ctx context.Context, submission models.Submission) {
	if err := s.submissions.MarkHighestAttempt(ctx, submission.AssignmentID, submission.UserID); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("mark best attempt failed")
	}
}

// highScoreEvent compares a new committed score against the student's own best
// committed score on the assignment, returning the event when it is beaten.
func (s *gradingService) highScoreEvent(ctx context.Context, submission models.Submission, score float64) (*events.NewHighScoreAchieved, error) {
	highest, err := s.submissions.HighestScore(ctx, submission.AssignmentID, submission.UserID)
	if err != nil {
		return nil, domainerr.Storage(err)
	}

	if score <= highest {
		return nil, nil
	}

	event := events.NewHighScoreAchieved{
		SubmissionID: submission.ID,
		AssignmentID: submission.AssignmentID,
		UserID:       submission.UserID,
		NewScore:     score,
	}
	if highest > 0 {
		prev := highest
		event.PreviousScore = &prev
	}
	return &event, nil
}

// upsertGrade creates the grade row or updates the existing one for the
// submission, preserving override bookkeeping.
func (s *gradingService) upsertGrade(ctx context.Context, grade *models.Grade) error {
	existing, err := s.grades.GetBySubmission(ctx, grade.SubmissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := s.grades.Create(ctx, grade); err != nil {
				return domainerr.Storage(err)
			}
			return nil
		}
		return domainerr.Storage(err)
	}

	grade.ID = existing.ID
	grade.CreatedAt = existing.CreatedAt
	grade.IsOverride = existing.IsOverride
	grade.OriginalScore = existing.OriginalScore
	grade.OverrideReason = existing.OverrideReason
	if err := s.grades.Update(ctx, grade); err != nil {
		return domainerr.Storage(err)
	}
	return nil
}

// questionSet loads the questions of the attempt keyed by ID. Attempts created
// before randomization fall back to the assignment's full question list.
func (s *gradingService) questionSet(ctx context.Context, submission models.Submission) (map[uint]models.Question, error) {
	var (
		questions []models.Question
		err       error
	)
	if len(submission.QuestionSet) > 0 {
		questions, err = s.questions.ListByIDs(ctx, submission.QuestionSet)
	} else {
		questions, err = s.questions.ListByAssignment(ctx, submission.AssignmentID)
	}
	if err != nil {
		return nil, domainerr.Storage(err)
	}

	byID := make(map[uint]models.Question, len(questions))
	for _, question := range questions {
		byID[question.ID] = question
	}
	return byID, nil
}

func (s *gradingService) getSubmission(ctx context.Context, id uint) (models.Submission, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, domainerr.NotFound("submission")
		}
		return models.Submission{}, domainerr.Storage(err)
	}
	return submission, nil
}

func (s *gradingService) getAssignment(ctx context.Context, id uint) (models.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, domainerr.NotFound("assignment")
		}
		return models.Assignment{}, domainerr.Storage(err)
	}
	return assignment, nil
}
