package middleware

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	config "github.com/aydiegithub/ai-agent-for-social-content/configs"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/apperror"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/service"
	"github.com/aydiegithub/ai-agent-for-social-content/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeKeys struct {
	service.ApiKeyService
	keys map[string]int64
}

func (f *fakeKeys) GetUserID(ctx context.Context, apiKey string) (int64, error) {
	if id, ok := f.keys[apiKey]; ok {
		return id, nil
	}
	return 0, &apperror.AppError{Err: apperror.ErrUnauthorized, Message: "Key doesn't exist"}
}

func newApp() *fiber.App {
	cfg := config.Config{SecretKey: "jwt-secret"}
	m := NewAuthMiddleware(cfg, &fakeKeys{keys: map[string]int64{"ak_good": 42}}, zap.NewNop())

	app := fiber.New()
	app.Use(m.AuthMiddleware())
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("user_id").(string))
	})
	return app
}

func call(t *testing.T, app *fiber.App, headers map[string]string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("GET", "/whoami", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestAuthMiddleware(t *testing.T) {
	app := newApp()
	token, err := utils.GenerateToken("jwt-secret", "7", time.Hour)
	require.NoError(t, err)
	forged, err := utils.GenerateToken("other-secret", "7", time.Hour)
	require.NoError(t, err)

	status, body := call(t, app, map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "7", body)

	status, body = call(t, app, map[string]string{APIKeyHeader: "ak_good"})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "42", body)

	status, _ = call(t, app, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = call(t, app, map[string]string{"Authorization": "Bearer " + forged})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = call(t, app, map[string]string{"Authorization": "Basic " + token})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = call(t, app, map[string]string{APIKeyHeader: "ak_bad"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}
