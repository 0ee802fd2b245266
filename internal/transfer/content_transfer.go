package transfer

import "github.com/aydiegithub/ai-agent-for-social-content/internal/models"

type GenerateResponse struct {
	Message        string          `json:"message"`
	Content        *models.Content `json:"content"`
	CreditsCharged int64           `json:"credits_charged"`
	// ImageError carries the failure kind when the image was requested but
	// not produced.
	ImageError string `json:"image_error,omitempty"`
}

type PostResponse struct {
	Message    string `json:"message"`
	ContentID  int64  `json:"content_id"`
	Platform   string `json:"platform"`
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
}

type RemoveConnectionRequest struct {
	Platform string `json:"platform" validate:"required"`
}
