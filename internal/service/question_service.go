package service

import (
	"context"
	"errors"
	"math/rand"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gradeflow-api/internal/domainerr"
	"github.com/noah-isme/gradeflow-api/internal/dto"
	"github.com/noah-isme/gradeflow-api/internal/events"
	"github.com/noah-isme/gradeflow-api/internal/models"
	"github.com/noah-isme/gradeflow-api/internal/repository"
)

// answerKeySchema constrains the structural shape of an answer key: a
// non-empty array of unique, non-empty strings.
var answerKeySchema = jsonschema.MustCompileString("answer_key.json", `{
	"type": "array",
	"minItems": 1,
	"uniqueItems": true,
	"items": {"type": "string", "minLength": 1}
}`)

// RecalculationEnqueuer schedules a background re-grade of every submission
// that answered the given question.
type RecalculationEnqueuer interface {
	EnqueueRecalculation(ctx context.Context, questionID uint) error
}

// QuestionService manages question definitions and materializes per-attempt
// question sets.
type QuestionService interface {
	Add(ctx context.Context, assignmentID uint, payload dto.QuestionCreateRequest) (dto.QuestionResponse, error)
	Update(ctx context.Context, questionID uint, payload dto.QuestionUpdateRequest) (dto.QuestionResponse, error)
	Delete(ctx context.Context, questionID uint) error
	ListByAssignment(ctx context.Context, assignmentID uint, staff bool) ([]dto.QuestionResponse, error)
	Reorder(ctx context.Context, assignmentID uint, orderedIDs []uint) error
	UpdateAnswerKey(ctx context.Context, questionID, instructorID uint, payload dto.AnswerKeyUpdateRequest) (dto.QuestionResponse, error)
	MaterializeSet(ctx context.Context, assignment models.Assignment, seed int64) ([]models.Question, error)
}

type questionService struct {
	questions   repository.QuestionRepository
	assignments repository.AssignmentRepository
	recalc      RecalculationEnqueuer
	dispatcher  events.Dispatcher
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewQuestionService constructs a QuestionService instance.
func NewQuestionService(
	questionRepo repository.QuestionRepository,
	assignmentRepo repository.AssignmentRepository,
	recalc RecalculationEnqueuer,
	dispatcher events.Dispatcher,
	validate *validator.Validate,
	logger zerolog.Logger,
) QuestionService {
	return &questionService{
		questions:   questionRepo,
		assignments: assignmentRepo,
		recalc:      recalc,
		dispatcher:  dispatcher,
		validator:   validate,
		logger:      logger.With().Str("component", "question_service").Logger(),
	}
}

func (s *questionService) Add(ctx context.Context, assignmentID uint, payload dto.QuestionCreateRequest) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, domainerr.Validation(err.Error())
	}

	if _, err := s.assignments.GetByID(ctx, assignmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuestionResponse{}, domainerr.NotFound("assignment")
		}
		return dto.QuestionResponse{}, domainerr.Storage(err)
	}

	question := models.Question{
		AssignmentID:       assignmentID,
		Type:               models.QuestionType(payload.Type),
		Content:            payload.Content,
		Options:            datatypes.NewJSONSlice(payload.Options),
		AnswerKey:          datatypes.NewJSONSlice(payload.AnswerKey),
		Weight:             payload.Weight,
		MaxScore:           payload.MaxScore,
		Order:              payload.Order,
		MaxFileSize:        payload.MaxFileSize,
		AllowedFileTypes:   datatypes.NewJSONSlice(payload.AllowedFileTypes),
		AllowMultipleFiles: payload.AllowMultipleFiles,
	}

	if err := question.Validate(); err != nil {
		return dto.QuestionResponse{}, err
	}
	if question.Type.CanAutoGrade() {
		if err := validateAnswerKey(question.Type, payload.AnswerKey, payload.Options); err != nil {
			return dto.QuestionResponse{}, err
		}
	}

	if err := s.questions.Create(ctx, &question); err != nil {
		return dto.QuestionResponse{}, domainerr.Storage(err)
	}

	s.logger.Info().Uint("assignment_id", assignmentID).Uint("question_id", question.ID).Msg("question added")

	return dto.NewQuestionResponse(question, true), nil
}

// validateAnswerKey checks the key both structurally (JSON schema) and
// semantically against the question type.
func validateAnswerKey(kind models.QuestionType, key, options []string) error {
	doc := make([]interface{}, len(key))
	for i, entry := range key {
		doc[i] = entry
	}
	if err := answerKeySchema.Validate(doc); err != nil {
		return domainerr.Validationf("answer key has invalid shape: %v", err)
	}

	if kind == models.QuestionTypeMultipleChoice && len(key) != 1 {
		return domainerr.Validation("multiple choice questions require exactly one answer key entry")
	}

	valid := make(map[string]bool, len(options))
	for _, option := range options {
		valid[option] = true
	}
	for _, entry := range key {
		if !valid[entry] {
			return domainerr.Validationf("answer key entry %q is not one of the options", entry)
		}
	}

	return nil
}

func (s *questionService) Update(ctx context.Context, questionID uint, payload dto.QuestionUpdateRequest) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, domainerr.Validation(err.Error())
	}

	question, err := s.getQuestion(ctx, questionID)
	if err != nil {
		return dto.QuestionResponse{}, err
	}

	if payload.Content != nil {
		question.Content = *payload.Content
	}
	if payload.Options != nil {
		question.Options = datatypes.NewJSONSlice(payload.Options)
	}
	if payload.Weight != nil {
		question.Weight = *payload.Weight
	}
	if payload.MaxScore != nil {
		question.MaxScore = *payload.MaxScore
	}
	if payload.Order != nil {
		question.Order = *payload.Order
	}
	if payload.MaxFileSize != nil {
		question.MaxFileSize = payload.MaxFileSize
	}
	if payload.AllowedFileTypes != nil {
		question.AllowedFileTypes = datatypes.NewJSONSlice(payload.AllowedFileTypes)
	}
	if payload.AllowMultipleFiles != nil {
		question.AllowMultipleFiles = *payload.AllowMultipleFiles
	}

	if err := question.Validate(); err != nil {
		return dto.QuestionResponse{}, err
	}
	if question.Type.CanAutoGrade() {
		if err := validateAnswerKey(question.Type, question.AnswerKey, question.Options); err != nil {
			return dto.QuestionResponse{}, err
		}
	}

	if err := s.questions.Update(ctx, &question); err != nil {
		return dto.QuestionResponse{}, domainerr.Storage(err)
	}

	return dto.NewQuestionResponse(question, true), nil
}

func (s *questionService) Delete(ctx context.Context, questionID uint) error {
	if _, err := s.getQuestion(ctx, questionID); err != nil {
		return err
	}

	if err := s.questions.Delete(ctx, questionID); err != nil {
		return domainerr.Storage(err)
	}

	return nil
}

func (s *questionService) ListByAssignment(ctx context.Context, assignmentID uint, staff bool) ([]dto.QuestionResponse, error) {
	questions, err := s.questions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, domainerr.Storage(err)
	}

	return dto.NewQuestionResponseSlice(questions, staff), nil
}

// Reorder rewrites display positions to match the given ID order. Every
// question of the assignment must appear exactly once.
func (s *questionService) Reorder(ctx context.Context, assignmentID uint, orderedIDs []uint) error {
	questions, err := s.questions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return domainerr.Storage(err)
	}

	if len(orderedIDs) != len(questions) {
		return domainerr.Validation("reorder must include every question of the assignment")
	}

	byID := make(map[uint]models.Question, len(questions))
	for _, question := range questions {
		byID[question.ID] = question
	}

	for position, id := range orderedIDs {
		question, ok := byID[id]
		if !ok {
			return domainerr.Validationf("question %d does not belong to this assignment", id)
		}
		question.Order = position + 1
		if err := s.questions.Update(ctx, &question); err != nil {
			return domainerr.Storage(err)
		}
	}

	return nil
}

// UpdateAnswerKey replaces the key of an auto-gradable question, announces the
// change, and schedules recalculation of every affected submission.
func (s *questionService) UpdateAnswerKey(ctx context.Context, questionID, instructorID uint, payload dto.AnswerKeyUpdateRequest) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, domainerr.Validation(err.Error())
	}

	question, err := s.getQuestion(ctx, questionID)
	if err != nil {
		return dto.QuestionResponse{}, err
	}

	if !question.Type.CanAutoGrade() {
		return dto.QuestionResponse{}, domainerr.Validationf("%s questions do not carry an answer key", question.Type)
	}
	if err := validateAnswerKey(question.Type, payload.AnswerKey, question.Options); err != nil {
		return dto.QuestionResponse{}, err
	}

	oldKey := make([]string, len(question.AnswerKey))
	copy(oldKey, question.AnswerKey)

	question.AnswerKey = datatypes.NewJSONSlice(payload.AnswerKey)
	if err := s.questions.Update(ctx, &question); err != nil {
		return dto.QuestionResponse{}, domainerr.Storage(err)
	}

	s.dispatcher.Dispatch(ctx, events.AnswerKeyChanged{
		QuestionID:   question.ID,
		AssignmentID: question.AssignmentID,
		OldKey:       oldKey,
		NewKey:       payload.AnswerKey,
		InstructorID: instructorID,
	})

	if err := s.recalc.EnqueueRecalculation(ctx, question.ID); err != nil {
		s.logger.Error().Err(err).Uint("question_id", question.ID).Msg("failed to enqueue recalculation")
	}

	s.logger.Info().Uint("question_id", question.ID).Msg("answer key updated")

	return dto.NewQuestionResponse(question, true), nil
}

// MaterializeSet resolves the ordered question IDs for a new attempt. The
// seed makes randomized selection reproducible for audits.
func (s *questionService) MaterializeSet(ctx context.Context, assignment models.Assignment, seed int64) ([]models.Question, error) {
	questions, err := s.questions.ListByAssignment(ctx, assignment.ID)
	if err != nil {
		return nil, domainerr.Storage(err)
	}
	if len(questions) == 0 {
		return nil, domainerr.Validation("assignment has no questions")
	}

	rng := rand.New(rand.NewSource(seed))

	switch assignment.RandomizationType {
	case models.RandomizationRandomOrder:
		rng.Shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})

	case models.RandomizationBank:
		count := assignment.QuestionBankCount
		if count <= 0 || count > len(questions) {
			count = len(questions)
		}
		rng.Shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
		questions = questions[:count]
	}

	return questions, nil
}

func (s *questionService) getQuestion(ctx context.Context, id uint) (models.Question, error) {
	question, err := s.questions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Question{}, domainerr.NotFound("question")
		}
		return models.Question{}, domainerr.Storage(err)
	}
	return question, nil
}
