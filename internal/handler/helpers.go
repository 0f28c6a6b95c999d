package handler

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/tidechat/tide-api/internal/middleware"
	"github.com/tidechat/tide-api/internal/service"
	"github.com/tidechat/tide-api/internal/utils"
)

func userIDFromContext(c *fiber.Ctx) string {
	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(string); ok {
			return strings.TrimSpace(id)
		}
	}
	return ""
}

func withRequestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// sendServiceError maps a service error kind to its HTTP status. The error
// message travels to the client verbatim.
func sendServiceError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch service.KindOf(err) {
	case service.KindNotFound:
		status = fiber.StatusNotFound
	case service.KindPermissionDenied:
		status = fiber.StatusForbidden
	case service.KindInvalidArgument:
		status = fiber.StatusBadRequest
	case service.KindConflict:
		status = fiber.StatusConflict
	case service.KindUpstream:
		status = fiber.StatusBadGateway
	}
	return utils.SendError(c, status, err.Error())
}
