package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentmanifest/registry/internal/domain"
)

func TestSchemaCheckValidManifest(t *testing.T) {
	check := SchemaCheck(freeManifest())

	assert.True(t, check.Passed)
	assert.Equal(t, domain.CheckSchemaValidity, check.Name)
	assert.Equal(t, domain.SeverityInfo, check.Severity)
}

func TestSchemaCheckCollectsAllViolations(t *testing.T) {
	m := &domain.Manifest{}
	check := SchemaCheck(m)

	assert.False(t, check.Passed)
	assert.Equal(t, domain.SeverityError, check.Severity)
	// Every violated rule is reported, not just the first.
	assert.Contains(t, check.Message, "spec_version: is required")
	assert.Contains(t, check.Message, "name: is required")
	assert.Contains(t, check.Message, "description: is required")
	assert.Contains(t, check.Message, "pricing: is required")
	assert.Contains(t, check.Message, "authentication: is required")
}

func TestSchemaCheckInvalidBaseURL(t *testing.T) {
	m := freeManifest()
	m.BaseURL = "not a url"

	check := SchemaCheck(m)
	assert.False(t, check.Passed)
	assert.Contains(t, check.Message, "base_url")
}

func TestSchemaCheckInvalidPricingModel(t *testing.T) {
	m := freeManifest()
	m.Pricing.Model = "pay-what-you-want"

	check := SchemaCheck(m)
	assert.False(t, check.Passed)
	assert.Contains(t, check.Message, "pricing.model")
}

func TestSchemaCheckEmptyCategories(t *testing.T) {
	m := freeManifest()
	m.Categories = nil

	check := SchemaCheck(m)
	assert.False(t, check.Passed)
	assert.Contains(t, check.Message, "categories")
}

func TestSchemaCheckPostpaidCycleRequiresCycle(t *testing.T) {
	m := paidManifest()
	m.Payment.Settlement = &domain.Settlement{Type: domain.SettlementPostpaidCycle}

	check := SchemaCheck(m)
	assert.False(t, check.Passed)
	assert.Equal(t, domain.SeverityError, check.Severity)
	assert.Contains(t, check.Message, "payment.settlement.cycle")

	m.Payment.Settlement.Cycle = "monthly"
	assert.True(t, SchemaCheck(m).Passed)
}

func TestSchemaCheckUnknownSettlementType(t *testing.T) {
	m := paidManifest()
	m.Payment.Settlement = &domain.Settlement{Type: "net-30"}

	check := SchemaCheck(m)
	assert.False(t, check.Passed)
	assert.Contains(t, check.Message, "payment.settlement.type")
}

func TestSchemaCheckNonDecimalRatePrice(t *testing.T) {
	m := paidManifest()
	m.Payment.Rates = []domain.Rate{{Unit: "request", Price: "$0.002"}}

	check := SchemaCheck(m)
	assert.False(t, check.Passed)
	assert.Contains(t, check.Message, "payment.rates[0].price")
}

func TestSchemaCheckLegacyShapeSkipsCurrentRules(t *testing.T) {
	// A 0.2 manifest with a legacy payment block is not held to the 0.3
	// structural payment rules.
	m := freeManifest()
	m.SpecVersion = "0.2"
	m.Payment = &domain.Payment{
		CheckoutURL: "https://pay.example.com/checkout",
	}

	check := SchemaCheck(m)
	assert.True(t, check.Passed)
}

func TestSchemaCheckEndpointMethodEnum(t *testing.T) {
	m := freeManifest()
	m.Endpoints = []domain.Endpoint{{Path: "/v1/geocode", Method: "FETCH"}}

	check := SchemaCheck(m)
	assert.False(t, check.Passed)
	assert.Contains(t, check.Message, "method")
}
