package handlers

import (
	"github.com/aydiegithub/ai-agent-for-social-content/internal/service"
	"github.com/gofiber/fiber/v2"
)

type ApiKeyHandler struct {
	*Responder
	s service.ApiKeyService
}

func NewApiKeyHandler(r *Responder, service service.ApiKeyService) *ApiKeyHandler {
	return &ApiKeyHandler{Responder: r, s: service}
}

func (h *ApiKeyHandler) CreateApiKey(c *fiber.Ctx) error {
	key, err := h.s.Create(c.UserContext(), GetUserID(c))
	if err != nil {
		return h.Error(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"api_key": key,
		"message": "Store this key now, it will not be shown again",
	})
}

func (h *ApiKeyHandler) ListKeys(c *fiber.Ctx) error {
	keys, err := h.s.List(c.UserContext(), GetUserID(c))
	if err != nil {
		return h.Error(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(keys)
}

func (h *ApiKeyHandler) RemoveAPIKey(c *fiber.Ctx) error {
	keyID := c.QueryInt("id", 0)

	if err := h.s.RemoveAPIKey(c.UserContext(), GetUserID(c), int64(keyID)); err != nil {
		return h.Error(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}
