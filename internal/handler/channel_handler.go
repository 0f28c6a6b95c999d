package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/tidechat/tide-api/internal/dto"
	"github.com/tidechat/tide-api/internal/service"
	"github.com/tidechat/tide-api/internal/utils"
)

// ChannelHandler provides the HTTP endpoints for channels.
type ChannelHandler struct {
	service service.ChannelService
	logger  zerolog.Logger
}

// NewChannelHandler constructs a handler instance.
func NewChannelHandler(service service.ChannelService, logger zerolog.Logger) *ChannelHandler {
	return &ChannelHandler{
		service: service,
		logger:  logger.With().Str("component", "channel_handler").Logger(),
	}
}

// Register binds the channel routes.
func (h *ChannelHandler) Register(router fiber.Router) {
	router.Post("/", h.create)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/archive", h.archive)
	router.Post("/:id/unarchive", h.unarchive)
	router.Post("/:id/members", h.addMember)
	router.Delete("/:id/members/:userId", h.deleteMember)
	router.Post("/:id/typing_indicator", h.setTyping)
	router.Post("/:id/reset_typing", h.resetTyping)
}

func (h *ChannelHandler) create(c *fiber.Ctx) error {
	var payload dto.CreateChannelRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	channel, err := h.service.Create(withRequestContext(c), userIDFromContext(c), payload)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("channel create failed")
		return sendServiceError(c, err)
	}

	return utils.SendCreated(c, "Channel created.", channel)
}

func (h *ChannelHandler) update(c *fiber.Ctx) error {
	var payload dto.UpdateChannelRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	channel, err := h.service.Update(withRequestContext(c), userIDFromContext(c), c.Params("id"), payload)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "Channel updated.", channel)
}

func (h *ChannelHandler) delete(c *fiber.Ctx) error {
	if err := h.service.Delete(withRequestContext(c), userIDFromContext(c), c.Params("id")); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "Channel deleted.", nil)
}

func (h *ChannelHandler) archive(c *fiber.Ctx) error {
	if err := h.service.Archive(withRequestContext(c), userIDFromContext(c), c.Params("id")); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "Channel archived.", nil)
}

func (h *ChannelHandler) unarchive(c *fiber.Ctx) error {
	if err := h.service.Unarchive(withRequestContext(c), userIDFromContext(c), c.Params("id")); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "Channel unarchived.", nil)
}

func (h *ChannelHandler) addMember(c *fiber.Ctx) error {
	var payload dto.AddMemberRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.AddMember(withRequestContext(c), userIDFromContext(c), c.Params("id"), payload); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "Member added.", nil)
}

func (h *ChannelHandler) deleteMember(c *fiber.Ctx) error {
	if err := h.service.DeleteMember(withRequestContext(c), userIDFromContext(c), c.Params("id"), c.Params("userId")); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "Member removed.", nil)
}

func (h *ChannelHandler) setTyping(c *fiber.Ctx) error {
	var payload dto.TypingRequest
	if err := c.BodyParser(&payload); err != nil || payload.IsTyping == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.SetTyping(withRequestContext(c), userIDFromContext(c), c.Params("id"), *payload.IsTyping); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "Typing indicator updated.", nil)
}

func (h *ChannelHandler) resetTyping(c *fiber.Ctx) error {
	if err := h.service.ResetTyping(withRequestContext(c), userIDFromContext(c), c.Params("id")); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "Typing indicator reset.", nil)
}
