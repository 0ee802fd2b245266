package service

import (
	"fmt"
	"strings"

	"github.com/aydiegithub/ai-agent-for-social-content/internal/models"
)

func BuildTextPrompt(p models.GenerationParams) string {
	var sb strings.Builder
	sb.WriteString("Generate content with the following specifications:\n")
	fmt.Fprintf(&sb, "- Title: %s\n", p.Title)
	fmt.Fprintf(&sb, "- Niche/Industry: %s\n", p.Niche)
	if p.Tone != "" {
		fmt.Fprintf(&sb, "- Tone of Voice: %s\n", p.Tone)
	}
	if p.Context != "" {
		fmt.Fprintf(&sb, "- Context/Details to include: %s\n", p.Context)
	}
	if p.Tags != "" {
		fmt.Fprintf(&sb, "- Important Keywords/Tags: %s\n", p.Tags)
	}
	sb.WriteString("\nPlease provide a comprehensive and well-structured piece of content based on these requirements.")
	return sb.String()
}

func BuildImagePrompt(p models.GenerationParams) string {
	return fmt.Sprintf("An image representing: %s in the %s niche.", p.Title, p.Niche)
}
