package middleware

import (
	"strconv"
	"strings"

	config "github.com/aydiegithub/ai-agent-for-social-content/configs"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/service"
	"github.com/aydiegithub/ai-agent-for-social-content/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const APIKeyHeader = "X-API-Key"

type AuthMiddleware struct {
	s   service.ApiKeyService
	cfg config.Config
	log *zap.Logger
}

func NewAuthMiddleware(cfg config.Config, service service.ApiKeyService, log *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{s: service, cfg: cfg, log: log.Named("auth")}
}

// AuthMiddleware accepts either "Authorization: Bearer <jwt>" or an API key
// in X-API-Key and stores the caller's id in Locals("user_id").
func (m *AuthMiddleware) AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c.Get(fiber.HeaderAuthorization))
		apiKey := c.Get(APIKeyHeader)

		if tokenString == "" && apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing bearer token or API key",
			})
		}

		if apiKey != "" {
			userID, err := m.s.GetUserID(c.UserContext(), apiKey)
			if err != nil {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid API key",
				})
			}
			c.Locals("user_id", strconv.FormatInt(userID, 10))
			return c.Next()
		}

		claims, err := utils.ValidateToken(m.cfg.SecretKey, tokenString)
		if err != nil {
			m.log.Debug("token validation failed", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("user_id", claims.UserID)
		return c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
