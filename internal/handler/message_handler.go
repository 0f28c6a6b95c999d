package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/tidechat/tide-api/internal/dto"
	"github.com/tidechat/tide-api/internal/service"
	"github.com/tidechat/tide-api/internal/utils"
)

// MessageHandler provides the HTTP endpoints for messages.
type MessageHandler struct {
	service service.MessageService
	logger  zerolog.Logger
}

// NewMessageHandler constructs a handler instance.
func NewMessageHandler(service service.MessageService, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		service: service,
		logger:  logger.With().Str("component", "message_handler").Logger(),
	}
}

// Register binds the message routes.
func (h *MessageHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/", h.create)
	router.Patch("/:id", h.edit)
	router.Delete("/:id", h.delete)
}

func (h *MessageHandler) list(c *fiber.Ctx) error {
	chatID := strings.TrimSpace(c.Query("chatId"))
	chatType := strings.TrimSpace(c.Query("chatType"))
	if chatID == "" || chatType == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "chatId and chatType are required")
	}

	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
		}
		limit = parsed
	}

	messages, err := h.service.ListByChat(withRequestContext(c), userIDFromContext(c), chatType, chatID, limit)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "messages", messages)
}

func (h *MessageHandler) create(c *fiber.Ctx) error {
	var payload dto.CreateMessageRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	message, err := h.service.Create(withRequestContext(c), userIDFromContext(c), payload)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("message create failed")
		return sendServiceError(c, err)
	}

	return utils.SendCreated(c, "Message created.", message)
}

func (h *MessageHandler) edit(c *fiber.Ctx) error {
	var payload dto.EditMessageRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	message, err := h.service.Edit(withRequestContext(c), userIDFromContext(c), c.Params("id"), payload)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "Message updated.", message)
}

func (h *MessageHandler) delete(c *fiber.Ctx) error {
	if err := h.service.Delete(withRequestContext(c), userIDFromContext(c), c.Params("id")); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "Message deleted.", nil)
}
