package validator

import (
	"github.com/agentmanifest/registry/internal/domain"
)

const goodDescription = "A geocoding and reverse-geocoding service that resolves street addresses " +
	"to coordinates and back, with structured responses suitable for autonomous agents."

const goodAgentNotes = "Create an account at the developer portal, then request an api key from " +
	"the dashboard and send it in the X-Api-Key header on every request. All endpoints are free " +
	"to use with no pricing tiers, quotas or payment onboarding to worry about."

// freeManifest builds a minimal manifest that passes every check without any
// network probing.
func freeManifest() *domain.Manifest {
	return &domain.Manifest{
		SpecVersion:     "0.3",
		Name:            "geo-resolver",
		Description:     goodDescription,
		Categories:      []string{"geolocation", "data"},
		PrimaryCategory: "data",
		Endpoints: []domain.Endpoint{
			{Path: "/v1/geocode", Method: "GET", Description: "forward geocode"},
		},
		Pricing: &domain.Pricing{
			Model:    domain.PricingModelFree,
			FreeTier: &domain.FreeTier{QuotaPerDay: 1000, Description: "1000 lookups per day"},
		},
		Authentication: &domain.Authentication{Required: false},
		AgentNotes:     goodAgentNotes,
	}
}

// paidManifest builds a current-shape non-free manifest that is structurally
// consistent.
func paidManifest() *domain.Manifest {
	m := freeManifest()
	m.Pricing = &domain.Pricing{
		Model: domain.PricingModelPerQuery,
		Tiers: []domain.PricingTier{{Name: "standard", Price: "0.002"}},
	}
	m.Payment = &domain.Payment{
		Model:    domain.PaymentModelPerRequest,
		Currency: "USD",
		Rates:    []domain.Rate{{Unit: "request", Price: "0.002"}},
		Onboarding: &domain.Onboarding{
			URL:     "https://pay.example.com/onboard",
			Accepts: []string{"card"},
			Returns: &domain.OnboardingReturns{
				CredentialType:  "api_key",
				CredentialField: "X-Api-Key",
				Instructions:    "send the returned key in the X-Api-Key header",
			},
		},
		Settlement: &domain.Settlement{Type: domain.SettlementPerRequest},
	}
	return m
}

// checksByName indexes a check list for assertions.
func checksByName(checks []domain.ValidationCheck) map[string][]domain.ValidationCheck {
	out := make(map[string][]domain.ValidationCheck)
	for _, c := range checks {
		out[c.Name] = append(out[c.Name], c)
	}
	return out
}
