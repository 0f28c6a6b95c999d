package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/tidechat/tide-api/internal/middleware"
)

const testSecret = "test-secret"

func newProtectedApp() *fiber.App {
	app := fiber.New()
	app.Get("/", middleware.JWTProtected(testSecret), func(c *fiber.Ctx) error {
		return c.SendString(middleware.UserID(c))
	})
	return app
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func performAuthed(t *testing.T, app *fiber.App, authorization string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestJWTProtectedBindsSubjectClaim(t *testing.T) {
	app := newProtectedApp()
	token := signToken(t, jwt.MapClaims{"sub": "user-42"})

	resp := performAuthed(t, app, "Bearer "+token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTProtectedAcceptsUserIDClaim(t *testing.T) {
	app := newProtectedApp()
	token := signToken(t, jwt.MapClaims{"user_id": "user-7"})

	resp := performAuthed(t, app, "Bearer "+token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTProtectedRejectsMissingHeader(t *testing.T) {
	app := newProtectedApp()

	resp := performAuthed(t, app, "")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedRejectsWrongSignature(t *testing.T) {
	app := newProtectedApp()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-42"}).
		SignedString([]byte("other-secret"))
	require.NoError(t, err)

	resp := performAuthed(t, app, "Bearer "+token)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedRejectsEmptySubject(t *testing.T) {
	app := newProtectedApp()
	token := signToken(t, jwt.MapClaims{"sub": "  "})

	resp := performAuthed(t, app, "Bearer "+token)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
