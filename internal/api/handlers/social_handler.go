package handlers

import (
	"fmt"
	"net/url"
	"strconv"

	config "github.com/aydiegithub/ai-agent-for-social-content/configs"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/apperror"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/service"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/transfer"
	"github.com/aydiegithub/ai-agent-for-social-content/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type SocialHandler struct {
	*Responder
	s   service.SocialService
	cfg config.Config
	log *zap.Logger
}

func NewSocialHandler(r *Responder, service service.SocialService, cfg config.Config, log *zap.Logger) *SocialHandler {
	return &SocialHandler{Responder: r, s: service, cfg: cfg, log: log.Named("social_handler")}
}

func (h *SocialHandler) PostToSocial(c *fiber.Ctx) error {
	contentID, err := c.ParamsInt("content_id")
	if err != nil || contentID <= 0 {
		return h.Error(c, apperror.ValidationFailed("content_id", "Content id is not valid"))
	}

	out, err := h.s.Post(c.UserContext(), GetUserID(c), int64(contentID), c.Params("platform"))
	if err != nil {
		return h.Error(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(transfer.PostResponse{
		Message:    fmt.Sprintf("Posted to %s successfully", out.Platform),
		ContentID:  out.ContentID,
		Platform:   out.Platform,
		ExternalID: out.ExternalID,
		Status:     out.Status,
	})
}

// AddSocialAccount starts the OAuth flow. The caller's session token travels
// as the OAuth state so the callback can tell whose account it is.
func (h *SocialHandler) AddSocialAccount(c *fiber.Ctx) error {
	state := c.Query("state")
	if _, err := h.userFromState(state); err != nil {
		return h.Error(c, err)
	}

	authURL, err := h.s.AuthURL(c.UserContext(), c.Params("platform"), state)
	if err != nil {
		return h.Error(c, err)
	}
	return c.Redirect(authURL, fiber.StatusTemporaryRedirect)
}

func (h *SocialHandler) CallbackHandler(c *fiber.Ctx) error {
	platform := c.Params("platform")
	state := c.Query("state")

	userID, err := h.userFromState(state)
	if err != nil {
		return h.Error(c, err)
	}

	if denied := c.Query("error"); denied != "" {
		h.log.Info("authorization denied", zap.String("platform", platform), zap.String("reason", denied))
		return c.Redirect(fmt.Sprintf("%s/dashboard/accounts?error=%s", h.cfg.FrontendURL, url.QueryEscape(denied)), fiber.StatusTemporaryRedirect)
	}

	if err := h.s.Callback(c.UserContext(), platform, c.Query("code"), state, userID); err != nil {
		return h.Error(c, err)
	}

	redirectURL := fmt.Sprintf("%s/dashboard/accounts", h.cfg.FrontendURL)
	return c.Redirect(redirectURL, fiber.StatusTemporaryRedirect)
}

func (h *SocialHandler) userFromState(state string) (int64, error) {
	unauthorized := &apperror.AppError{Err: apperror.ErrUnauthorized, Message: "Unable to validate user"}
	if state == "" {
		return 0, unauthorized
	}
	claims, err := utils.ValidateToken(h.cfg.SecretKey, state)
	if err != nil {
		return 0, unauthorized
	}
	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return 0, unauthorized
	}
	return userID, nil
}

func (h *SocialHandler) ListConnections(c *fiber.Ctx) error {
	conns, err := h.s.ListConnections(c.UserContext(), GetUserID(c))
	if err != nil {
		return h.Error(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(conns)
}

func (h *SocialHandler) RemoveConnection(c *fiber.Ctx) error {
	var req transfer.RemoveConnectionRequest
	if err := c.BodyParser(&req); err != nil {
		req.Platform = c.Query("platform")
	}
	if err := validate.Struct(req); err != nil {
		return h.Error(c, err)
	}

	if err := h.s.RemoveConnection(c.UserContext(), GetUserID(c), req.Platform); err != nil {
		return h.Error(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}
