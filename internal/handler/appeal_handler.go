package handler

import (
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gradeflow-api/internal/dto"
	"github.com/noah-isme/gradeflow-api/internal/service"
	"github.com/noah-isme/gradeflow-api/internal/utils"
)

// AppealHandler manages the appeal workflow endpoints.
type AppealHandler struct {
	service service.AppealService
	logger  zerolog.Logger
}

// NewAppealHandler builds an appeal handler instance.
func NewAppealHandler(service service.AppealService, logger zerolog.Logger) *AppealHandler {
	return &AppealHandler{
		service: service,
		logger:  logger.With().Str("component", "appeal_handler").Logger(),
	}
}

// Register attaches student-facing appeal routes.
func (h *AppealHandler) Register(router fiber.Router) {
	router.Post("/submissions/:id/appeal", h.submit)
	router.Get("/appeals/:id", h.get)
}

// RegisterStaff attaches reviewer routes.
func (h *AppealHandler) RegisterStaff(router fiber.Router) {
	router.Get("/appeals/pending", h.listPending)
	router.Get("/appeals/:id", h.get)
	router.Post("/appeals/:id/approve", h.approve)
	router.Post("/appeals/:id/deny", h.deny)
}

// submit accepts multipart form data: a "reason" field plus optional
// "documents" file parts.
func (h *AppealHandler) submit(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	payload := dto.AppealCreateRequest{Reason: c.FormValue("reason")}

	var documents []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil && form != nil {
		documents = form.File["documents"]
	}

	appeal, err := h.service.Submit(c.UserContext(), submissionID, userIDFromContext(c), payload, documents)
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "appeal submitted", appeal)
}

func (h *AppealHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	appeal, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	if !isStaff(c) && appeal.StudentID != userIDFromContext(c) {
		return utils.SendError(c, fiber.StatusForbidden, "forbidden")
	}

	return utils.SendSuccess(c, "appeal retrieved", appeal)
}

func (h *AppealHandler) approve(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	appeal, err := h.service.Approve(c.UserContext(), id, userIDFromContext(c))
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "appeal approved", appeal)
}

func (h *AppealHandler) deny(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AppealDecisionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	appeal, err := h.service.Deny(c.UserContext(), id, userIDFromContext(c), payload)
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "appeal denied", appeal)
}

func (h *AppealHandler) listPending(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	appeals, total, err := h.service.ListPending(c.UserContext(), page, pageSize)
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "pending appeals retrieved", fiber.Map{
		"items": appeals,
		"total": total,
	})
}
