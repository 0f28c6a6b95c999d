package contract_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/tidechat/tide-api/internal/dto"
	"github.com/tidechat/tide-api/internal/handler"
	"github.com/tidechat/tide-api/internal/models"
)

type stubMessageService struct {
	created models.Message
}

func (s stubMessageService) Create(context.Context, string, dto.CreateMessageRequest) (models.Message, error) {
	return s.created, nil
}

func (s stubMessageService) Edit(context.Context, string, string, dto.EditMessageRequest) (models.Message, error) {
	return s.created, nil
}

func (s stubMessageService) Delete(context.Context, string, string) error {
	return nil
}

func (s stubMessageService) ListByChat(context.Context, string, string, string, int) ([]models.Message, error) {
	return []models.Message{s.created}, nil
}

func TestMessageCreateContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", "message_create.schema.json"))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)

	now := time.Now().UTC()
	svc := stubMessageService{created: models.Message{
		ObjectID:      "msg-1",
		ChatID:        "chan-1",
		ChatType:      "Channel",
		WorkspaceID:   "ws-1",
		SenderID:      "user-1",
		Text:          "hello there",
		Counter:       4,
		FileURL:       "https://media.test/Channel/chan-1/photo.png?token=abc",
		ThumbnailURL:  "https://media.test/Channel/chan-1/photo_thumbnail.jpeg?token=def",
		FileSize:      2048,
		FileType:      "image/png",
		FileName:      "photo.png",
		MediaWidth:    400,
		MediaHeight:   300,
		MediaDuration: 0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}}

	h := handler.NewMessageHandler(svc, zerolog.Nop())

	app := fiber.New()
	group := app.Group("/api/v1/messages", func(c *fiber.Ctx) error {
		c.Locals("user_id", "user-1")
		return c.Next()
	})
	h.Register(group)

	body := `{"chatId":"chan-1","chatType":"Channel","workspaceId":"ws-1","text":"hello there"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var payload interface{}
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.NoError(t, schema.Validate(payload))
}
