package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gradeflow-api/internal/repository"
)

// RetentionService purges answer files past the retention window. File paths
// are cleared while metadata stays behind as a permanent record of what was
// submitted.
type RetentionService interface {
	CleanupExpiredFiles(ctx context.Context) (int, error)
}

type retentionService struct {
	answers   repository.AnswerRepository
	uploader  FileUploader
	retention time.Duration
	batchSize int
	logger    zerolog.Logger
	now       func() time.Time
}

// NewRetentionService constructs a RetentionService instance.
func NewRetentionService(answerRepo repository.AnswerRepository, uploader FileUploader, retentionDays int, logger zerolog.Logger) RetentionService {
	return &retentionService{
		answers:   answerRepo,
		uploader:  uploader,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		batchSize: 200,
		logger:    logger.With().Str("component", "retention_service").Logger(),
		now:       time.Now,
	}
}

// CleanupExpiredFiles expires one batch of answers, returning how many were
// processed. Safe to re-run: already-expired answers are never selected again.
func (s *retentionService) CleanupExpiredFiles(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.retention)

	answers, err := s.answers.ListWithExpiredFiles(ctx, cutoff, s.batchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range answers {
		paths := answers[i].ExpireFiles(s.now())

		for _, path := range paths {
			if err := s.uploader.Delete(ctx, publicIDFromURL(path)); err != nil {
				s.logger.Warn().Err(err).Str("path", path).Msg("remote file removal failed, clearing reference anyway")
			}
		}

		if err := s.answers.Update(ctx, &answers[i]); err != nil {
			return expired, err
		}
		expired++
	}

	if expired > 0 {
		s.logger.Info().Int("expired", expired).Msg("answer files expired")
	}

	return expired, nil
}

// publicIDFromURL recovers the storage public ID from a delivery URL by
// stripping the host prefix and the file extension.
func publicIDFromURL(url string) string {
	const marker = "/upload/"
	idx := strings.Index(url, marker)
	if idx == -1 {
		return url
	}

	id := url[idx+len(marker):]
	if strings.HasPrefix(id, "v") {
		if slash := strings.Index(id, "/"); slash != -1 && isDigits(id[1:slash]) {
			id = id[slash+1:]
		}
	}

	if dot := strings.LastIndex(id, "."); dot != -1 {
		id = id[:dot]
	}
	return id
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
