package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tidechat/tide-api/internal/config"
	"github.com/tidechat/tide-api/internal/handler"
	"github.com/tidechat/tide-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	WorkspaceHandler *handler.WorkspaceHandler
	ChannelHandler   *handler.ChannelHandler
	DirectHandler    *handler.DirectHandler
	MessageHandler   *handler.MessageHandler
	UserHandler      *handler.UserHandler
	JWTMiddleware    fiber.Handler
	VersionGate      fiber.Handler
}

// Register wires the HTTP routes into the fiber application. Health and
// metrics stay outside both the identity and the version gates.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	noop := func(c *fiber.Ctx) error { return c.Next() }
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = noop
	}
	versionGate := deps.VersionGate
	if versionGate == nil {
		versionGate = noop
	}

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	}, versionGate, jwtMiddleware)

	if deps.WorkspaceHandler != nil {
		deps.WorkspaceHandler.Register(api.Group("/workspaces"))
	}
	if deps.ChannelHandler != nil {
		deps.ChannelHandler.Register(api.Group("/channels"))
	}
	if deps.DirectHandler != nil {
		deps.DirectHandler.Register(api.Group("/directs"))
	}
	if deps.MessageHandler != nil {
		deps.MessageHandler.Register(api.Group("/messages"))
	}
	if deps.UserHandler != nil {
		deps.UserHandler.Register(api.Group("/users"))
	}
}
