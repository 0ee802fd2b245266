package models

import (
	"encoding/json"
	"strings"
	"time"
)

const (
	PlatformXCom     = "x_com"
	PlatformLinkedIn = "linkedin"
)

var Platforms = []string{PlatformXCom, PlatformLinkedIn}

func IsPlatform(p string) bool {
	for _, known := range Platforms {
		if known == p {
			return true
		}
	}
	return false
}

const (
	ContentStatusDraft     = "DRAFT"
	ContentStatusPostedAll = "POSTED_ALL"
)

type Content struct {
	ID                int64           `db:"id" json:"id"`
	UserID            int64           `db:"user_id" json:"user_id"`
	OperationID       string          `db:"operation_id" json:"-"`
	Title             string          `db:"title" json:"title"`
	InputParams       json.RawMessage `db:"input_params" json:"input_params"`
	GeneratedText     string          `db:"generated_text" json:"generated_text"`
	GeneratedImageURL *string         `db:"generated_image_url" json:"generated_image_url"`
	Status            string          `db:"status" json:"status"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}

// GenerationParams is the caller-supplied request stored as input_params.
type GenerationParams struct {
	Title         string `json:"title" validate:"required,max=255"`
	Niche         string `json:"niche" validate:"required,max=100"`
	Context       string `json:"context,omitempty" validate:"max=2000"`
	Tags          string `json:"tags,omitempty" validate:"max=500"`
	Tone          string `json:"tone,omitempty" validate:"max=50"`
	GenerateImage bool   `json:"generate_image"`
}

func PostedStatus(platform string) string {
	return "POSTED_" + strings.ToUpper(platform)
}

func statusRank(status string) int {
	switch {
	case status == ContentStatusPostedAll:
		return 2
	case strings.HasPrefix(status, "POSTED_"):
		return 1
	default:
		return 0
	}
}

// NextContentStatus advances status along DRAFT < POSTED_<PLATFORM> < POSTED_ALL
// after a successful post to platform. It never moves backwards.
func NextContentStatus(current, platform string) string {
	posted := PostedStatus(platform)
	switch statusRank(current) {
	case 0:
		return posted
	case 1:
		if current == posted {
			return current
		}
		return ContentStatusPostedAll
	default:
		return current
	}
}

func IsPostedTo(status, platform string) bool {
	return status == ContentStatusPostedAll || status == PostedStatus(platform)
}
