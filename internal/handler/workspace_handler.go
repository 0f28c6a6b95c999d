package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/tidechat/tide-api/internal/dto"
	"github.com/tidechat/tide-api/internal/service"
	"github.com/tidechat/tide-api/internal/utils"
)

// WorkspaceHandler provides the HTTP endpoints for workspaces.
type WorkspaceHandler struct {
	service service.WorkspaceService
	logger  zerolog.Logger
}

// NewWorkspaceHandler constructs a handler instance.
func NewWorkspaceHandler(service service.WorkspaceService, logger zerolog.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{
		service: service,
		logger:  logger.With().Str("component", "workspace_handler").Logger(),
	}
}

// Register binds the workspace routes.
func (h *WorkspaceHandler) Register(router fiber.Router) {
	router.Post("/", h.create)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/members", h.addTeammate)
	router.Delete("/:id/members/:userId", h.deleteTeammate)
}

func (h *WorkspaceHandler) create(c *fiber.Ctx) error {
	var payload dto.CreateWorkspaceRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	created, err := h.service.Create(withRequestContext(c), userIDFromContext(c), payload)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("workspace create failed")
		return sendServiceError(c, err)
	}

	return utils.SendCreated(c, "Workspace created.", created)
}

func (h *WorkspaceHandler) update(c *fiber.Ctx) error {
	var payload dto.UpdateWorkspaceRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	workspace, err := h.service.Update(withRequestContext(c), userIDFromContext(c), c.Params("id"), payload)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "Workspace updated.", workspace)
}

func (h *WorkspaceHandler) delete(c *fiber.Ctx) error {
	if err := h.service.Delete(withRequestContext(c), userIDFromContext(c), c.Params("id")); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "Workspace deleted.", nil)
}

func (h *WorkspaceHandler) addTeammate(c *fiber.Ctx) error {
	var payload dto.AddTeammateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.AddTeammate(withRequestContext(c), userIDFromContext(c), c.Params("id"), payload); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "Teammate added.", nil)
}

func (h *WorkspaceHandler) deleteTeammate(c *fiber.Ctx) error {
	if err := h.service.DeleteTeammate(withRequestContext(c), userIDFromContext(c), c.Params("id"), c.Params("userId")); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "Teammate removed.", nil)
}
