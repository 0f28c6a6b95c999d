package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/tidechat/tide-api/internal/dto"
	"github.com/tidechat/tide-api/internal/service"
	"github.com/tidechat/tide-api/internal/utils"
)

// UserHandler provides the HTTP endpoints for collaborator profiles.
type UserHandler struct {
	service service.UserService
	logger  zerolog.Logger
}

// NewUserHandler constructs a handler instance.
func NewUserHandler(service service.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger.With().Str("component", "user_handler").Logger(),
	}
}

// Register binds the user routes.
func (h *UserHandler) Register(router fiber.Router) {
	router.Post("/", h.create)
	router.Patch("/:id", h.update)
	router.Post("/:id/presence", h.updatePresence)
	router.Post("/:id/read", h.markRead)
}

func (h *UserHandler) create(c *fiber.Ctx) error {
	var payload dto.CreateUserRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.service.Create(withRequestContext(c), userIDFromContext(c), payload)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("user create failed")
		return sendServiceError(c, err)
	}

	return utils.SendCreated(c, "User created.", user)
}

func (h *UserHandler) update(c *fiber.Ctx) error {
	var payload dto.UpdateUserRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.service.Update(withRequestContext(c), userIDFromContext(c), c.Params("id"), payload)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "User updated.", user)
}

func (h *UserHandler) updatePresence(c *fiber.Ctx) error {
	if err := h.service.UpdatePresence(withRequestContext(c), userIDFromContext(c), c.Params("id")); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "Presence updated.", nil)
}

func (h *UserHandler) markRead(c *fiber.Ctx) error {
	var payload dto.MarkReadRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	callerID := userIDFromContext(c)
	if callerID != c.Params("id") {
		return utils.SendError(c, fiber.StatusForbidden, "The user can only mark their own chats as read.")
	}

	if err := h.service.MarkRead(withRequestContext(c), callerID, payload); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "Chat marked as read.", nil)
}
