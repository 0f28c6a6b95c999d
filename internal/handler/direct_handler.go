package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/tidechat/tide-api/internal/dto"
	"github.com/tidechat/tide-api/internal/service"
	"github.com/tidechat/tide-api/internal/utils"
)

// DirectHandler provides the HTTP endpoints for direct threads.
type DirectHandler struct {
	service service.DirectService
	logger  zerolog.Logger
}

// NewDirectHandler constructs a handler instance.
func NewDirectHandler(service service.DirectService, logger zerolog.Logger) *DirectHandler {
	return &DirectHandler{
		service: service,
		logger:  logger.With().Str("component", "direct_handler").Logger(),
	}
}

// Register binds the direct routes.
func (h *DirectHandler) Register(router fiber.Router) {
	router.Post("/", h.create)
	router.Post("/:id/close", h.close)
	router.Post("/:id/typing_indicator", h.setTyping)
	router.Post("/:id/reset_typing", h.resetTyping)
}

func (h *DirectHandler) create(c *fiber.Ctx) error {
	var payload dto.CreateDirectRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	direct, err := h.service.Create(withRequestContext(c), userIDFromContext(c), payload)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("direct create failed")
		return sendServiceError(c, err)
	}

	return utils.SendCreated(c, "Direct message created.", direct)
}

func (h *DirectHandler) close(c *fiber.Ctx) error {
	if err := h.service.Close(withRequestContext(c), userIDFromContext(c), c.Params("id")); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "Direct message closed.", nil)
}

func (h *DirectHandler) setTyping(c *fiber.Ctx) error {
	var payload dto.TypingRequest
	if err := c.BodyParser(&payload); err != nil || payload.IsTyping == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.SetTyping(withRequestContext(c), userIDFromContext(c), c.Params("id"), *payload.IsTyping); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "Typing indicator updated.", nil)
}

func (h *DirectHandler) resetTyping(c *fiber.Ctx) error {
	if err := h.service.ResetTyping(withRequestContext(c), userIDFromContext(c), c.Params("id")); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "Typing indicator reset.", nil)
}
