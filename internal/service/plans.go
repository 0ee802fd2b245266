package service

import (
	"strings"

	"github.com/aydiegithub/ai-agent-for-social-content/internal/models"
)

// Prices are in minor units: cents for USD, paise for INR.
var pricingPlans = []models.Plan{
	{ID: "starter_usd", Name: "Starter", Price: 299, Credits: 50, Currency: "USD"},
	{ID: "creator_usd", Name: "Creator", Price: 999, Credits: 200, Currency: "USD"},
	{ID: "business_usd", Name: "Business", Price: 2499, Credits: 600, Currency: "USD"},
	{ID: "pro_usd", Name: "Pro", Price: 4999, Credits: 1500, Currency: "USD"},
	{ID: "starter_inr", Name: "Starter", Price: 19900, Credits: 50, Currency: "INR"},
	{ID: "creator_inr", Name: "Creator", Price: 69900, Credits: 200, Currency: "INR"},
	{ID: "business_inr", Name: "Business", Price: 189900, Credits: 600, Currency: "INR"},
	{ID: "pro_inr", Name: "Pro", Price: 399900, Credits: 1500, Currency: "INR"},
}

// Plans lists the plans priced in currency, or every plan when currency is
// empty.
func Plans(currency string) []models.Plan {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	out := make([]models.Plan, 0, len(pricingPlans))
	for _, p := range pricingPlans {
		if currency == "" || p.Currency == currency {
			out = append(out, p)
		}
	}
	return out
}

func FindPlan(id string) (models.Plan, bool) {
	for _, p := range pricingPlans {
		if p.ID == id {
			return p, true
		}
	}
	return models.Plan{}, false
}
