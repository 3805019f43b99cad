package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gradeflow-api/internal/domainerr"
	"github.com/noah-isme/gradeflow-api/internal/dto"
	"github.com/noah-isme/gradeflow-api/internal/events"
	"github.com/noah-isme/gradeflow-api/internal/models"
	"github.com/noah-isme/gradeflow-api/internal/repository"
)

// AssignmentService manages assignment definitions, the prerequisite graph,
// and student eligibility.
type AssignmentService interface {
	Create(ctx context.Context, creatorID uint, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	Update(ctx context.Context, id uint, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error)
	Delete(ctx context.Context, id uint) error
	Get(ctx context.Context, id uint, staff bool) (dto.AssignmentResponse, error)
	List(ctx context.Context, filter dto.AssignmentListFilter) ([]dto.AssignmentResponse, int64, error)
	Publish(ctx context.Context, id uint) (dto.AssignmentResponse, error)
	Duplicate(ctx context.Context, id, creatorID uint) (dto.AssignmentResponse, error)
	AddPrerequisite(ctx context.Context, assignmentID, prerequisiteID uint) error
	RemovePrerequisite(ctx context.Context, assignmentID, prerequisiteID uint) error
	CheckEligibility(ctx context.Context, assignmentID, studentID uint) (dto.EligibilityResponse, error)
}

type assignmentService struct {
	assignments repository.AssignmentRepository
	questions   repository.QuestionRepository
	submissions repository.SubmissionRepository
	overrides   OverrideService
	dispatcher  events.Dispatcher
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAssignmentService constructs an AssignmentService instance.
func NewAssignmentService(
	assignmentRepo repository.AssignmentRepository,
	questionRepo repository.QuestionRepository,
	submissionRepo repository.SubmissionRepository,
	overrides OverrideService,
	dispatcher events.Dispatcher,
	validate *validator.Validate,
	logger zerolog.Logger,
) AssignmentService {
	return &assignmentService{
		assignments: assignmentRepo,
		questions:   questionRepo,
		submissions: submissionRepo,
		overrides:   overrides,
		dispatcher:  dispatcher,
		validator:   validate,
		logger:      logger.With().Str("component", "assignment_service").Logger(),
		now:         time.Now,
	}
}

func (s *assignmentService) Create(ctx context.Context, creatorID uint, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, domainerr.Validation(err.Error())
	}

	scope, err := models.ParseScope(payload.ScopeKind, payload.ScopeID)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment := models.Assignment{
		Scope:              scope,
		CreatedBy:          creatorID,
		Title:              payload.Title,
		Description:        payload.Description,
		SubmissionType:     models.SubmissionTypeText,
		MaxScore:           100,
		AvailableFrom:      payload.AvailableFrom,
		DeadlineAt:         payload.DeadlineAt,
		ToleranceMinutes:   payload.ToleranceMinutes,
		MaxAttempts:        payload.MaxAttempts,
		CooldownMinutes:    payload.CooldownMinutes,
		RetakeEnabled:      true,
		ReviewMode:         models.ReviewModeImmediate,
		RandomizationType:  models.RandomizationStatic,
		QuestionBankCount:  payload.QuestionBankCount,
		Status:             models.AssignmentStatusDraft,
		AllowResubmit:      payload.AllowResubmit,
		LatePenaltyPercent: payload.LatePenaltyPercent,
	}

	if payload.SubmissionType != "" {
		assignment.SubmissionType = models.SubmissionType(payload.SubmissionType)
	}
	if payload.MaxScore != nil {
		assignment.MaxScore = *payload.MaxScore
	}
	if payload.RetakeEnabled != nil {
		assignment.RetakeEnabled = *payload.RetakeEnabled
	}
	if payload.ReviewMode != "" {
		assignment.ReviewMode = models.ReviewMode(payload.ReviewMode)
	}
	if payload.RandomizationType != "" {
		assignment.RandomizationType = models.RandomizationType(payload.RandomizationType)
	}

	if err := validateRandomization(assignment.RandomizationType, assignment.QuestionBankCount); err != nil {
		return dto.AssignmentResponse{}, err
	}

	if err := s.assignments.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, domainerr.Storage(err)
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Str("title", assignment.Title).Msg("assignment created")

	return dto.NewAssignmentResponse(assignment, true), nil
}

func validateRandomization(kind models.RandomizationType, bankCount int) error {
	if kind == models.RandomizationBank && bankCount <= 0 {
		return domainerr.Validation("question_bank_count must be positive for bank randomization")
	}
	return nil
}

func (s *assignmentService) Update(ctx context.Context, id uint, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, domainerr.Validation(err.Error())
	}

	assignment, err := s.getAssignment(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	if payload.Title != nil {
		assignment.Title = *payload.Title
	}
	if payload.Description != nil {
		assignment.Description = *payload.Description
	}
	if payload.SubmissionType != nil {
		assignment.SubmissionType = models.SubmissionType(*payload.SubmissionType)
	}
	if payload.MaxScore != nil {
		assignment.MaxScore = *payload.MaxScore
	}
	if payload.AvailableFrom != nil {
		assignment.AvailableFrom = payload.AvailableFrom
	}
	if payload.DeadlineAt != nil {
		assignment.DeadlineAt = payload.DeadlineAt
	}
	if payload.ToleranceMinutes != nil {
		assignment.ToleranceMinutes = *payload.ToleranceMinutes
	}
	if payload.MaxAttempts != nil {
		assignment.MaxAttempts = payload.MaxAttempts
	}
	if payload.CooldownMinutes != nil {
		assignment.CooldownMinutes = *payload.CooldownMinutes
	}
	if payload.RetakeEnabled != nil {
		assignment.RetakeEnabled = *payload.RetakeEnabled
	}
	if payload.ReviewMode != nil {
		assignment.ReviewMode = models.ReviewMode(*payload.ReviewMode)
	}
	if payload.RandomizationType != nil {
		assignment.RandomizationType = models.RandomizationType(*payload.RandomizationType)
	}
	if payload.QuestionBankCount != nil {
		assignment.QuestionBankCount = *payload.QuestionBankCount
	}
	if payload.AllowResubmit != nil {
		assignment.AllowResubmit = payload.AllowResubmit
	}
	if payload.LatePenaltyPercent != nil {
		assignment.LatePenaltyPercent = payload.LatePenaltyPercent
	}

	if err := validateRandomization(assignment.RandomizationType, assignment.QuestionBankCount); err != nil {
		return dto.AssignmentResponse{}, err
	}

	if err := s.assignments.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, domainerr.Storage(err)
	}

	return dto.NewAssignmentResponse(assignment, true), nil
}

func (s *assignmentService) Delete(ctx context.Context, id uint) error {
	if _, err := s.getAssignment(ctx, id); err != nil {
		return err
	}

	if err := s.assignments.Delete(ctx, id); err != nil {
		return domainerr.Storage(err)
	}

	s.logger.Info().Uint("assignment_id", id).Msg("assignment deleted")
	return nil
}

func (s *assignmentService) Get(ctx context.Context, id uint, staff bool) (dto.AssignmentResponse, error) {
	assignment, err := s.getAssignment(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	return dto.NewAssignmentResponse(assignment, staff), nil
}

func (s *assignmentService) List(ctx context.Context, filter dto.AssignmentListFilter) ([]dto.AssignmentResponse, int64, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, 0, domainerr.Validation(err.Error())
	}

	repoFilter := repository.AssignmentFilter{
		ScopeID:  filter.ScopeID,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}
	if filter.ScopeKind != nil {
		kind := models.ScopeKind(*filter.ScopeKind)
		repoFilter.ScopeKind = &kind
	}
	if filter.Status != nil {
		status := models.AssignmentStatus(*filter.Status)
		repoFilter.Status = &status
	}

	assignments, total, err := s.assignments.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, domainerr.Storage(err)
	}

	return dto.NewAssignmentResponseSlice(assignments, false), total, nil
}

func (s *assignmentService) Publish(ctx context.Context, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.getAssignment(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	if assignment.Status == models.AssignmentStatusPublished {
		return dto.NewAssignmentResponse(assignment, true), nil
	}

	count, err := s.questions.CountByAssignment(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, domainerr.Storage(err)
	}
	if count == 0 {
		return dto.AssignmentResponse{}, domainerr.Validation("cannot publish an assignment without questions")
	}

	assignment.Status = models.AssignmentStatusPublished
	if err := s.assignments.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, domainerr.Storage(err)
	}

	s.dispatcher.Dispatch(ctx, events.AssignmentPublished{
		AssignmentID: assignment.ID,
		Title:        assignment.Title,
		ScopeKind:    string(assignment.Scope.Kind),
		ScopeID:      assignment.Scope.ID,
		DeadlineAt:   assignment.DeadlineAt,
	})

	s.logger.Info().Uint("assignment_id", id).Msg("assignment published")

	return dto.NewAssignmentResponse(assignment, true), nil
}

// Duplicate deep-copies the assignment with its questions and prerequisite
// edges. Submissions are never copied and the copy always starts as a draft.
func (s *assignmentService) Duplicate(ctx context.Context, id, creatorID uint) (dto.AssignmentResponse, error) {
	source, err := s.getAssignment(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	copyModel := source
	copyModel.ID = 0
	copyModel.CreatedBy = creatorID
	copyModel.Title = source.Title + " (Copy)"
	copyModel.Status = models.AssignmentStatusDraft
	copyModel.Questions = nil
	copyModel.Prerequisites = nil
	copyModel.CreatedAt = time.Time{}
	copyModel.UpdatedAt = time.Time{}

	if err := s.assignments.Create(ctx, &copyModel); err != nil {
		return dto.AssignmentResponse{}, domainerr.Storage(err)
	}

	questions := make([]models.Question, 0, len(source.Questions))
	for _, question := range source.Questions {
		question.ID = 0
		question.AssignmentID = copyModel.ID
		question.CreatedAt = time.Time{}
		question.UpdatedAt = time.Time{}
		questions = append(questions, question)
	}
	if err := s.questions.CreateBatch(ctx, questions); err != nil {
		return dto.AssignmentResponse{}, domainerr.Storage(err)
	}

	for _, prereq := range source.Prerequisites {
		if err := s.assignments.AddPrerequisite(ctx, copyModel.ID, prereq.ID); err != nil {
			return dto.AssignmentResponse{}, domainerr.Storage(err)
		}
	}

	created, err := s.getAssignment(ctx, copyModel.ID)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().Uint("source_id", id).Uint("copy_id", copyModel.ID).Msg("assignment duplicated")

	return dto.NewAssignmentResponse(created, true), nil
}

func (s *assignmentService) AddPrerequisite(ctx context.Context, assignmentID, prerequisiteID uint) error {
	if assignmentID == prerequisiteID {
		return domainerr.ErrCircularDependency
	}

	if _, err := s.getAssignment(ctx, assignmentID); err != nil {
		return err
	}
	if _, err := s.getAssignment(ctx, prerequisiteID); err != nil {
		return err
	}

	edges, err := s.assignments.ListPrerequisiteEdges(ctx)
	if err != nil {
		return domainerr.Storage(err)
	}

	if createsCycle(edges, assignmentID, prerequisiteID) {
		return domainerr.ErrCircularDependency
	}

	if err := s.assignments.AddPrerequisite(ctx, assignmentID, prerequisiteID); err != nil {
		return domainerr.Storage(err)
	}

	s.logger.Info().Uint("assignment_id", assignmentID).Uint("prerequisite_id", prerequisiteID).Msg("prerequisite added")
	return nil
}

// createsCycle walks the dependency graph with an explicit stack to decide
// whether adding assignment->prerequisite closes a loop. Iterative on purpose:
// a pathological chain must not overflow the goroutine stack.
func createsCycle(edges []repository.PrerequisiteEdge, assignmentID, prerequisiteID uint) bool {
	graph := make(map[uint][]uint, len(edges))
	for _, edge := range edges {
		graph[edge.AssignmentID] = append(graph[edge.AssignmentID], edge.PrerequisiteID)
	}
	graph[assignmentID] = append(graph[assignmentID], prerequisiteID)

	stack := []uint{prerequisiteID}
	visited := map[uint]bool{}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if current == assignmentID {
			return true
		}
		if visited[current] {
			continue
		}
		visited[current] = true
		stack = append(stack, graph[current]...)
	}

	return false
}

func (s *assignmentService) RemovePrerequisite(ctx context.Context, assignmentID, prerequisiteID uint) error {
	if _, err := s.getAssignment(ctx, assignmentID); err != nil {
		return err
	}

	if err := s.assignments.RemovePrerequisite(ctx, assignmentID, prerequisiteID); err != nil {
		return domainerr.Storage(err)
	}

	return nil
}

// CheckEligibility verifies every prerequisite in the assignment's scope has a
// graded-or-released attempt, honoring an active prerequisite override. An
// override with an empty ID list bypasses all prerequisites.
func (s *assignmentService) CheckEligibility(ctx context.Context, assignmentID, studentID uint) (dto.EligibilityResponse, error) {
	assignment, err := s.getAssignment(ctx, assignmentID)
	if err != nil {
		return dto.EligibilityResponse{}, err
	}

	bypassActive, bypassIDs := s.overrides.BypassedPrerequisites(ctx, assignmentID, studentID)
	if bypassActive && len(bypassIDs) == 0 {
		return dto.EligibilityResponse{Eligible: true}, nil
	}

	bypassed := make(map[uint]bool, len(bypassIDs))
	for _, id := range bypassIDs {
		bypassed[id] = true
	}

	prereqs, err := s.assignments.ListPrerequisites(ctx, assignmentID)
	if err != nil {
		return dto.EligibilityResponse{}, domainerr.Storage(err)
	}

	var missing []uint
	for _, prereq := range prereqs {
		if !scopeCovers(assignment.Scope.Kind, prereq.Scope.Kind) {
			continue
		}
		if bypassActive && bypassed[prereq.ID] {
			continue
		}

		passed, err := s.hasGradedAttempt(ctx, prereq.ID, studentID)
		if err != nil {
			return dto.EligibilityResponse{}, err
		}
		if !passed {
			missing = append(missing, prereq.ID)
		}
	}

	return dto.EligibilityResponse{Eligible: len(missing) == 0, MissingPrerequisites: missing}, nil
}

// scopeCovers restricts prerequisite enforcement to the assignment's own
// curriculum level: lesson-scoped assignments consult sibling lessons only,
// unit-scoped ones the unit and its lessons, course-scoped ones everything.
func scopeCovers(assignment, prereq models.ScopeKind) bool {
	switch assignment {
	case models.ScopeLesson:
		return prereq == models.ScopeLesson
	case models.ScopeUnit:
		return prereq == models.ScopeUnit || prereq == models.ScopeLesson
	case models.ScopeCourse:
		return true
	}
	return false
}

func (s *assignmentService) hasGradedAttempt(ctx context.Context, assignmentID, studentID uint) (bool, error) {
	attempts, err := s.submissions.ListAttempts(ctx, assignmentID, studentID)
	if err != nil {
		return false, domainerr.Storage(err)
	}

	for _, attempt := range attempts {
		if attempt.IsGradedState() {
			return true, nil
		}
	}
	return false, nil
}

func (s *assignmentService) getAssignment(ctx context.Context, id uint) (models.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, domainerr.NotFound("assignment")
		}
		return models.Assignment{}, domainerr.Storage(err)
	}
	return assignment, nil
}
