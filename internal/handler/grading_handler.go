package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gradeflow-api/internal/dto"
	"github.com/noah-isme/gradeflow-api/internal/observability"
	"github.com/noah-isme/gradeflow-api/internal/service"
	"github.com/noah-isme/gradeflow-api/internal/utils"
)

// GradingHandler manages grading and bulk operation endpoints. All routes are
// staff-only and guarded at registration time.
type GradingHandler struct {
	grading service.GradingService
	bulk    service.BulkService
	logger  zerolog.Logger
}

// NewGradingHandler builds a grading handler instance.
func NewGradingHandler(grading service.GradingService, bulk service.BulkService, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		grading: grading,
		bulk:    bulk,
		logger:  logger.With().Str("component", "grading_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *GradingHandler) Register(router fiber.Router) {
	router.Get("/queue", h.queue)
	router.Post("/submissions/:id/auto", h.autoGrade)
	router.Put("/submissions/:id/draft", h.saveDraft)
	router.Get("/submissions/:id/draft", h.getDraft)
	router.Post("/submissions/:id/grade", h.manualGrade)
	router.Post("/submissions/:id/legacy-grade", h.legacyGrade)
	router.Post("/submissions/:id/override", h.overrideGrade)
	router.Post("/submissions/:id/release", h.release)
	router.Post("/submissions/:id/return", h.returnToQueue)
	router.Post("/bulk/release", h.bulkRelease)
	router.Post("/bulk/feedback", h.bulkFeedback)
	router.Post("/questions/:questionId/recalculate", h.recalculate)
}

func (h *GradingHandler) queue(c *fiber.Ctx) error {
	assignmentID, err := parseQueryUint(c, "assignment_id")
	if err != nil || assignmentID == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "assignment_id is required")
	}

	items, err := h.grading.Queue(c.UserContext(), *assignmentID)
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "grading queue retrieved", items)
}

func (h *GradingHandler) autoGrade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.grading.AutoGrade(c.UserContext(), id, userIDFromContext(c))
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "submission auto-graded", submission)
}

func (h *GradingHandler) saveDraft(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.DraftGradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	draft, err := h.grading.SaveDraft(c.UserContext(), id, userIDFromContext(c), payload)
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "draft saved", draft)
}

func (h *GradingHandler) getDraft(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	draft, err := h.grading.GetDraft(c.UserContext(), id)
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "draft retrieved", draft)
}

func (h *GradingHandler) manualGrade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ManualGradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	grade, err := h.grading.ManualGrade(c.UserContext(), id, userIDFromContext(c), payload)
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "submission graded", grade)
}

func (h *GradingHandler) legacyGrade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.LegacyGradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.grading.LegacyGrade(c.UserContext(), id, userIDFromContext(c), payload)
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "submission graded", submission)
}

func (h *GradingHandler) overrideGrade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.OverrideGradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	grade, err := h.grading.OverrideGrade(c.UserContext(), id, userIDFromContext(c), payload)
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "grade overridden", grade)
}

func (h *GradingHandler) release(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.grading.Release(c.UserContext(), id, userIDFromContext(c))
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	observability.GradesReleased().Inc()
	return utils.SendSuccess(c, "grades released", submission)
}

func (h *GradingHandler) returnToQueue(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.grading.ReturnToQueue(c.UserContext(), id, userIDFromContext(c))
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "submission returned to queue", submission)
}

// async=true hands the batch to the background queue and returns immediately.
func asyncRequested(c *fiber.Ctx) bool {
	return strings.EqualFold(c.Query("async"), "true")
}

func (h *GradingHandler) bulkRelease(c *fiber.Ctx) error {
	var payload dto.BulkRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if asyncRequested(c) {
		ack, err := h.bulk.BulkReleaseAsync(c.UserContext(), userIDFromContext(c), payload)
		if err != nil {
			return respondError(c, requestLogger(h.logger, c), err)
		}
		return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "bulk release queued", ack)
	}

	result, err := h.bulk.BulkRelease(c.UserContext(), userIDFromContext(c), payload)
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	observability.GradesReleased().Add(float64(len(result.Succeeded)))
	return utils.SendSuccess(c, "bulk release completed", result)
}

func (h *GradingHandler) bulkFeedback(c *fiber.Ctx) error {
	var payload dto.BulkFeedbackRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if asyncRequested(c) {
		ack, err := h.bulk.BulkFeedbackAsync(c.UserContext(), userIDFromContext(c), payload)
		if err != nil {
			return respondError(c, requestLogger(h.logger, c), err)
		}
		return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "bulk feedback queued", ack)
	}

	result, err := h.bulk.BulkFeedback(c.UserContext(), userIDFromContext(c), payload)
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "bulk feedback completed", result)
}

func (h *GradingHandler) recalculate(c *fiber.Ctx) error {
	questionID, err := parseUintParam(c, "questionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.bulk.EnqueueRecalculation(c.UserContext(), questionID); err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "recalculation queued", nil)
}
