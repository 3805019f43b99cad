package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gradeflow-api/internal/dto"
	"github.com/noah-isme/gradeflow-api/internal/service"
	"github.com/noah-isme/gradeflow-api/internal/utils"
)

// OverrideHandler manages per-student override endpoints. Staff only.
type OverrideHandler struct {
	service service.OverrideService
	logger  zerolog.Logger
}

// NewOverrideHandler builds an override handler instance.
func NewOverrideHandler(service service.OverrideService, logger zerolog.Logger) *OverrideHandler {
	return &OverrideHandler{
		service: service,
		logger:  logger.With().Str("component", "override_handler").Logger(),
	}
}

// Register attaches override routes under /assignments/:id/overrides.
func (h *OverrideHandler) Register(router fiber.Router) {
	router.Get("/:id/overrides", h.list)
	router.Post("/:id/overrides", h.grant)
}

func (h *OverrideHandler) grant(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.OverrideGrantRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	override, err := h.service.Grant(c.UserContext(), assignmentID, userIDFromContext(c), payload)
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "override granted", override)
}

func (h *OverrideHandler) list(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if studentID, qerr := parseQueryUint(c, "student_id"); qerr == nil && studentID != nil {
		overrides, err := h.service.ListActiveForStudent(c.UserContext(), assignmentID, *studentID)
		if err != nil {
			return respondError(c, requestLogger(h.logger, c), err)
		}
		return utils.SendSuccess(c, "overrides retrieved", overrides)
	}

	overrides, err := h.service.ListByAssignment(c.UserContext(), assignmentID)
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "overrides retrieved", overrides)
}
