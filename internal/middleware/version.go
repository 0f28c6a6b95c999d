package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/tidechat/tide-api/internal/repository"
	"github.com/tidechat/tide-api/internal/utils"
)

// Header carrying the caller's declared protocol version.
const clientVersionHeader = "X-Client-Version"

// ClientVersionGate hard-rejects requests whose declared client version is
// not in the compatibility list, or whose stored schema version diverges from
// the one this build expects. There is no negotiation.
func ClientVersionGate(versions repository.VersionRepository, expectedSchema string, compatible []string, logger zerolog.Logger) fiber.Handler {
	allowed := make(map[string]struct{}, len(compatible))
	for _, version := range compatible {
		allowed[strings.TrimSpace(version)] = struct{}{}
	}

	gateLogger := logger.With().Str("component", "version_gate").Logger()

	return func(c *fiber.Ctx) error {
		declared := strings.TrimSpace(c.Get(clientVersionHeader))
		if _, ok := allowed[declared]; !ok {
			return utils.SendError(c, fiber.StatusBadRequest, "The client version is not supported.")
		}

		stored, err := versions.Ensure(c.UserContext(), expectedSchema)
		if err != nil {
			gateLogger.Error().Err(err).Msg("failed to read schema version")
			return utils.SendError(c, fiber.StatusInternalServerError, "Could not verify the schema version.")
		}
		if stored != expectedSchema {
			return utils.SendError(c, fiber.StatusBadRequest, "The database version is not supported.")
		}

		return c.Next()
	}
}
