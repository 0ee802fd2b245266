package service

import (
	"testing"

	"github.com/aydiegithub/ai-agent-for-social-content/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestBuildTextPrompt(t *testing.T) {
	full := BuildTextPrompt(models.GenerationParams{
		Title:   "Launch day",
		Niche:   "saas",
		Tone:    "witty",
		Context: "new pricing page",
		Tags:    "#launch",
	})
	assert.Contains(t, full, "- Title: Launch day\n")
	assert.Contains(t, full, "- Niche/Industry: saas\n")
	assert.Contains(t, full, "- Tone of Voice: witty\n")
	assert.Contains(t, full, "- Context/Details to include: new pricing page\n")
	assert.Contains(t, full, "- Important Keywords/Tags: #launch\n")

	minimal := BuildTextPrompt(models.GenerationParams{Title: "T", Niche: "N"})
	assert.NotContains(t, minimal, "Tone of Voice")
	assert.NotContains(t, minimal, "Context/Details")
	assert.NotContains(t, minimal, "Keywords/Tags")
}

func TestBuildImagePrompt(t *testing.T) {
	got := BuildImagePrompt(models.GenerationParams{Title: "Coffee", Niche: "food"})
	assert.Equal(t, "An image representing: Coffee in the food niche.", got)
}

func TestPlans(t *testing.T) {
	assert.Len(t, Plans(""), 8)
	assert.Len(t, Plans("usd"), 4)
	for _, p := range Plans("INR") {
		assert.Equal(t, "INR", p.Currency)
	}

	p, ok := FindPlan("business_usd")
	assert.True(t, ok)
	assert.Equal(t, int64(2499), p.Price)
	assert.Equal(t, int64(600), p.Credits)

	_, ok = FindPlan("nope")
	assert.False(t, ok)
}
