package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
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

// AppealService lets students contest late-rejected submissions and
// instructors decide those appeals.
type AppealService interface {
	Submit(ctx context.Context, submissionID, studentID uint, payload dto.AppealCreateRequest, documents []*multipart.FileHeader) (dto.AppealResponse, error)
	Approve(ctx context.Context, appealID, reviewerID uint) (dto.AppealResponse, error)
	Deny(ctx context.Context, appealID, reviewerID uint, payload dto.AppealDecisionRequest) (dto.AppealResponse, error)
	Get(ctx context.Context, appealID uint) (dto.AppealResponse, error)
	ListPending(ctx context.Context, page, pageSize int) ([]dto.AppealResponse, int64, error)
}

type appealService struct {
	appeals     repository.AppealRepository
	submissions repository.SubmissionRepository
	uploader    FileUploader
	dispatcher  events.Dispatcher
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAppealService constructs an AppealService instance.
func NewAppealService(
	appealRepo repository.AppealRepository,
	submissionRepo repository.SubmissionRepository,
	uploader FileUploader,
	dispatcher events.Dispatcher,
	validate *validator.Validate,
	logger zerolog.Logger,
) AppealService {
	return &appealService{
		appeals:     appealRepo,
		submissions: submissionRepo,
		uploader:    uploader,
		dispatcher:  dispatcher,
		validator:   validate,
		logger:      logger.With().Str("component", "appeal_service").Logger(),
		now:         time.Now,
	}
}

// Submit opens an appeal with optional supporting documents. Uploads that
// succeed before a later failure are deleted again so no orphaned files
// remain.
func (s *appealService) Submit(ctx context.Context, submissionID, studentID uint, payload dto.AppealCreateRequest, documents []*multipart.FileHeader) (dto.AppealResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AppealResponse{}, domainerr.Validation(err.Error())
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AppealResponse{}, domainerr.NotFound("submission")
		}
		return dto.AppealResponse{}, domainerr.Storage(err)
	}

	if submission.UserID != studentID {
		return dto.AppealResponse{}, domainerr.Forbidden("submission belongs to another student")
	}

	if _, err := s.appeals.GetBySubmission(ctx, submissionID); err == nil {
		return dto.AppealResponse{}, domainerr.Validation("an appeal for this submission already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.AppealResponse{}, domainerr.Storage(err)
	}

	var (
		docs      []models.AppealDocument
		publicIDs []string
	)
	cleanup := func() {
		for _, id := range publicIDs {
			if err := s.uploader.Delete(ctx, id); err != nil {
				s.logger.Error().Err(err).Str("public_id", id).Msg("appeal document cleanup failed")
			}
		}
	}

	for _, file := range documents {
		detected, err := sniffMimeType(file)
		if err != nil {
			cleanup()
			return dto.AppealResponse{}, err
		}

		reader, err := file.Open()
		if err != nil {
			cleanup()
			return dto.AppealResponse{}, domainerr.Validation("failed to open uploaded document")
		}

		uploaded, err := s.uploader.Upload(ctx, fmt.Sprintf("appeals/%d", submissionID), file.Filename, reader)
		reader.Close()
		if err != nil {
			cleanup()
			return dto.AppealResponse{}, domainerr.Storage(err)
		}

		publicIDs = append(publicIDs, uploaded.PublicID)
		docs = append(docs, models.AppealDocument{
			Name:     file.Filename,
			MimeType: detected.String(),
			Size:     file.Size,
			URL:      uploaded.URL,
		})
	}

	appeal := models.Appeal{
		SubmissionID: submissionID,
		StudentID:    studentID,
		Reason:       payload.Reason,
		Documents:    datatypes.NewJSONSlice(docs),
		Status:       models.AppealPending,
		SubmittedAt:  s.now(),
	}

	if err := s.appeals.Create(ctx, &appeal); err != nil {
		cleanup()
		return dto.AppealResponse{}, domainerr.Storage(err)
	}

	s.dispatcher.Dispatch(ctx, events.AppealSubmitted{
		AppealID:     appeal.ID,
		SubmissionID: submissionID,
		StudentID:    studentID,
	})

	s.logger.Info().
		Uint("appeal_id", appeal.ID).
		Uint("submission_id", submissionID).
		Int("documents", len(docs)).
		Msg("appeal submitted")

	return dto.NewAppealResponse(appeal), nil
}

func (s *appealService) Approve(ctx context.Context, appealID, reviewerID uint) (dto.AppealResponse, error) {
	appeal, err := s.getAppeal(ctx, appealID)
	if err != nil {
		return dto.AppealResponse{}, err
	}

	decided, err := appeal.Approve(reviewerID, s.now())
	if err != nil {
		return dto.AppealResponse{}, err
	}

	if err := s.appeals.Update(ctx, &appeal); err != nil {
		return dto.AppealResponse{}, domainerr.Storage(err)
	}

	s.dispatcher.Dispatch(ctx, decided)
	s.logger.Info().Uint("appeal_id", appealID).Uint("reviewer_id", reviewerID).Msg("appeal approved")

	return dto.NewAppealResponse(appeal), nil
}

func (s *appealService) Deny(ctx context.Context, appealID, reviewerID uint, payload dto.AppealDecisionRequest) (dto.AppealResponse, error) {
	appeal, err := s.getAppeal(ctx, appealID)
	if err != nil {
		return dto.AppealResponse{}, err
	}

	decided, err := appeal.Deny(reviewerID, payload.Reason, s.now())
	if err != nil {
		return dto.AppealResponse{}, err
	}

	if err := s.appeals.Update(ctx, &appeal); err != nil {
		return dto.AppealResponse{}, domainerr.Storage(err)
	}

	s.dispatcher.Dispatch(ctx, decided)
	s.logger.Info().Uint("appeal_id", appealID).Uint("reviewer_id", reviewerID).Msg("appeal denied")

	return dto.NewAppealResponse(appeal), nil
}

func (s *appealService) Get(ctx context.Context, appealID uint) (dto.AppealResponse, error) {
	appeal, err := s.getAppeal(ctx, appealID)
	if err != nil {
		return dto.AppealResponse{}, err
	}
	return dto.NewAppealResponse(appeal), nil
}

func (s *appealService) ListPending(ctx context.Context, page, pageSize int) ([]dto.AppealResponse, int64, error) {
	pending := models.AppealPending
	appeals, total, err := s.appeals.List(ctx, repository.AppealFilter{
		Status:   &pending,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, 0, domainerr.Storage(err)
	}

	return dto.NewAppealResponseSlice(appeals), total, nil
}

func (s *appealService) getAppeal(ctx context.Context, id uint) (models.Appeal, error) {
	appeal, err := s.appeals.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Appeal{}, domainerr.NotFound("appeal")
		}
		return models.Appeal{}, domainerr.Storage(err)
	}
	return appeal, nil
}
