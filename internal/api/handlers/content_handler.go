package handlers

import (
	"github.com/aydiegithub/ai-agent-for-social-content/internal/apperror"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/models"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/service"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/transfer"
	"github.com/gofiber/fiber/v2"
)

type ContentHandler struct {
	*Responder
	s service.ContentService
}

func NewContentHandler(r *Responder, service service.ContentService) *ContentHandler {
	return &ContentHandler{Responder: r, s: service}
}

func (h *ContentHandler) Generate(c *fiber.Ctx) error {
	var params models.GenerationParams
	if err := c.BodyParser(&params); err != nil {
		return h.Error(c, apperror.ValidationFailed("body", "Unable to parse request body"))
	}
	if err := validate.Struct(params); err != nil {
		return h.Error(c, err)
	}

	res, err := h.s.Generate(c.UserContext(), GetUserID(c), params)
	if err != nil {
		return h.Error(c, err)
	}

	resp := transfer.GenerateResponse{
		Message:        "Content generated successfully",
		Content:        res.Content,
		CreditsCharged: res.Charged,
	}
	if res.ImageFailure != "" {
		resp.Message = "Content generated, but the image could not be created. You were not charged for it."
		resp.ImageError = string(res.ImageFailure)
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *ContentHandler) ListContents(c *fiber.Ctx) error {
	page, err := h.s.List(c.UserContext(), GetUserID(c), c.QueryInt("page", 1), c.QueryInt("page_size", 0))
	if err != nil {
		return h.Error(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(page)
}

func (h *ContentHandler) GetContent(c *fiber.Ctx) error {
	contentID, err := c.ParamsInt("id")
	if err != nil || contentID <= 0 {
		return h.Error(c, apperror.ValidationFailed("id", "Content id is not valid"))
	}

	content, err := h.s.Get(c.UserContext(), GetUserID(c), int64(contentID))
	if err != nil {
		return h.Error(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(content)
}
