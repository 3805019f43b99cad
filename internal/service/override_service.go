package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gradeflow-api/internal/domainerr"
	"github.com/noah-isme/gradeflow-api/internal/dto"
	"github.com/noah-isme/gradeflow-api/internal/events"
	"github.com/noah-isme/gradeflow-api/internal/models"
	"github.com/noah-isme/gradeflow-api/internal/repository"
)

// OverrideService grants and resolves per-student exceptions. Overrides are
// consulted at enforcement time, so granting one after a failed attempt takes
// effect on the next try without touching the submission rows.
type OverrideService interface {
	Grant(ctx context.Context, assignmentID, grantorID uint, payload dto.OverrideGrantRequest) (dto.OverrideResponse, error)
	ListByAssignment(ctx context.Context, assignmentID uint) ([]dto.OverrideResponse, error)
	ListActiveForStudent(ctx context.Context, assignmentID, studentID uint) ([]dto.OverrideResponse, error)
	EffectiveDeadline(ctx context.Context, assignment models.Assignment, studentID uint) *time.Time
	EffectiveMaxAttempts(ctx context.Context, assignment models.Assignment, studentID uint) *int
	BypassedPrerequisites(ctx context.Context, assignmentID, studentID uint) (active bool, ids []uint)
}

type overrideService struct {
	overrides   repository.OverrideRepository
	assignments repository.AssignmentRepository
	dispatcher  events.Dispatcher
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewOverrideService constructs an OverrideService instance.
func NewOverrideService(
	overrideRepo repository.OverrideRepository,
	assignmentRepo repository.AssignmentRepository,
	dispatcher events.Dispatcher,
	validate *validator.Validate,
	logger zerolog.Logger,
) OverrideService {
	return &overrideService{
		overrides:   overrideRepo,
		assignments: assignmentRepo,
		dispatcher:  dispatcher,
		validator:   validate,
		logger:      logger.With().Str("component", "override_service").Logger(),
		now:         time.Now,
	}
}

func (s *overrideService) Grant(ctx context.Context, assignmentID, grantorID uint, payload dto.OverrideGrantRequest) (dto.OverrideResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.OverrideResponse{}, domainerr.Validation(err.Error())
	}

	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.OverrideResponse{}, domainerr.NotFound("assignment")
		}
		return dto.OverrideResponse{}, domainerr.Storage(err)
	}

	value, err := s.buildValue(assignment, payload)
	if err != nil {
		return dto.OverrideResponse{}, err
	}

	override := models.Override{
		AssignmentID: assignmentID,
		StudentID:    payload.StudentID,
		GrantorID:    grantorID,
		Type:         models.OverrideType(payload.Type),
		Reason:       payload.Reason,
		Value:        datatypes.NewJSONType(value),
		GrantedAt:    s.now(),
		ExpiresAt:    payload.ExpiresAt,
	}

	if err := s.overrides.Create(ctx, &override); err != nil {
		return dto.OverrideResponse{}, domainerr.Storage(err)
	}

	s.dispatcher.Dispatch(ctx, events.OverrideGranted{
		OverrideID:   override.ID,
		AssignmentID: assignmentID,
		StudentID:    payload.StudentID,
		GrantorID:    grantorID,
		Type:         payload.Type,
		Reason:       payload.Reason,
		ExpiresAt:    payload.ExpiresAt,
	})

	s.logger.Info().
		Uint("assignment_id", assignmentID).
		Uint("student_id", payload.StudentID).
		Str("type", payload.Type).
		Msg("override granted")

	return dto.NewOverrideResponse(override), nil
}

// buildValue validates the type-specific payload and rejects fields that do
// not belong to the requested type.
func (s *overrideService) buildValue(assignment models.Assignment, payload dto.OverrideGrantRequest) (models.OverrideValue, error) {
	switch models.OverrideType(payload.Type) {
	case models.OverrideDeadline:
		if payload.ExtendedDeadline == nil {
			return models.OverrideValue{}, domainerr.Validation("extended_deadline is required for deadline overrides")
		}
		if !payload.ExtendedDeadline.After(s.now()) {
			return models.OverrideValue{}, domainerr.Validation("extended_deadline must be in the future")
		}
		return models.OverrideValue{ExtendedDeadline: payload.ExtendedDeadline}, nil

	case models.OverrideAttempts:
		if payload.AdditionalAttempts == nil {
			return models.OverrideValue{}, domainerr.Validation("additional_attempts is required for attempts overrides")
		}
		return models.OverrideValue{AdditionalAttempts: payload.AdditionalAttempts}, nil

	case models.OverridePrerequisite:
		known := make(map[uint]bool, len(assignment.Prerequisites))
		for _, prereq := range assignment.Prerequisites {
			known[prereq.ID] = true
		}
		for _, id := range payload.BypassedPrerequisiteIDs {
			if !known[id] {
				return models.OverrideValue{}, domainerr.Validationf("assignment %d is not a prerequisite of this assignment", id)
			}
		}
		return models.OverrideValue{BypassedPrerequisiteIDs: payload.BypassedPrerequisiteIDs}, nil
	}

	return models.OverrideValue{}, domainerr.Validationf("unknown override type: %s", payload.Type)
}

func (s *overrideService) ListByAssignment(ctx context.Context, assignmentID uint) ([]dto.OverrideResponse, error) {
	overrides, err := s.overrides.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, domainerr.Storage(err)
	}

	return dto.NewOverrideResponseSlice(overrides), nil
}

func (s *overrideService) ListActiveForStudent(ctx context.Context, assignmentID, studentID uint) ([]dto.OverrideResponse, error) {
	overrides, err := s.overrides.ListActiveForStudent(ctx, assignmentID, studentID, s.now())
	if err != nil {
		return nil, domainerr.Storage(err)
	}

	return dto.NewOverrideResponseSlice(overrides), nil
}

// EffectiveDeadline resolves the deadline the student must beat, preferring an
// active deadline override over the assignment's own deadline. A lookup
// failure falls back to the assignment deadline rather than blocking the
// student.
func (s *overrideService) EffectiveDeadline(ctx context.Context, assignment models.Assignment, studentID uint) *time.Time {
	override, err := s.overrides.FindActive(ctx, assignment.ID, studentID, models.OverrideDeadline, s.now())
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn().Err(err).Uint("assignment_id", assignment.ID).Msg("deadline override lookup failed")
		}
		return assignment.DeadlineAt
	}

	if extended := override.ExtendedDeadline(); extended != nil {
		return extended
	}
	return assignment.DeadlineAt
}

// EffectiveMaxAttempts resolves the attempt ceiling including any active
// attempts override. Nil means unlimited.
func (s *overrideService) EffectiveMaxAttempts(ctx context.Context, assignment models.Assignment, studentID uint) *int {
	if assignment.MaxAttempts == nil {
		return nil
	}

	limit := *assignment.MaxAttempts
	override, err := s.overrides.FindActive(ctx, assignment.ID, studentID, models.OverrideAttempts, s.now())
	if err == nil {
		limit += override.AdditionalAttempts()
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Warn().Err(err).Uint("assignment_id", assignment.ID).Msg("attempts override lookup failed")
	}

	return &limit
}

// BypassedPrerequisites reports whether a prerequisite override is active and
// which prerequisite IDs it covers. An empty list with active=true bypasses
// all prerequisites.
func (s *overrideService) BypassedPrerequisites(ctx context.Context, assignmentID, studentID uint) (bool, []uint) {
	override, err := s.overrides.FindActive(ctx, assignmentID, studentID, models.OverridePrerequisite, s.now())
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("prerequisite override lookup failed")
		}
		return false, nil
	}

	return true, override.BypassedPrerequisites()
}
