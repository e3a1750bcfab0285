package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SpecVersion identifies which manifest schema and thresholds apply.
type SpecVersion string

const (
	// SpecVersionLegacy is the 0.2 manifest format.
	SpecVersionLegacy SpecVersion = "0.2"
	// SpecVersionCurrent is the 0.3 manifest format.
	SpecVersionCurrent SpecVersion = "0.3"
)

// SupportedSpecVersions lists the spec versions this service validates.
var SupportedSpecVersions = []SpecVersion{SpecVersionLegacy, SpecVersionCurrent}

// Supported reports whether v is a spec version this service understands.
func (v SpecVersion) Supported() bool {
	for _, s := range SupportedSpecVersions {
		if v == s {
			return true
		}
	}
	return false
}

// AgentNotesMinLength returns the minimum agent_notes length for this version.
func (v SpecVersion) AgentNotesMinLength() int {
	if v == SpecVersionCurrent {
		return 150
	}
	return 50
}

// PaymentShape discriminates the two payment block formats. It is decided
// once per validation and passed into checks rather than re-sniffed.
type PaymentShape int

const (
	PaymentShapeNone PaymentShape = iota
	PaymentShapeLegacy
	PaymentShapeCurrent
)

// Manifest is a self-declared capability document published by an API
// provider. It is read-only input to the validation engine.
type Manifest struct {
	SpecVersion     string          `json:"spec_version" yaml:"spec_version" validate:"required"`
	Name            string          `json:"name" yaml:"name" validate:"required"`
	Description     string          `json:"description" yaml:"description" validate:"required"`
	BaseURL         string          `json:"base_url,omitempty" yaml:"base_url,omitempty" validate:"omitempty,url"`
	Categories      []string        `json:"categories" yaml:"categories" validate:"required,min=1"`
	PrimaryCategory string          `json:"primary_category" yaml:"primary_category" validate:"required"`
	Endpoints       []Endpoint      `json:"endpoints" yaml:"endpoints" validate:"dive"`
	Pricing         *Pricing        `json:"pricing" yaml:"pricing" validate:"required"`
	Payment         *Payment        `json:"payment,omitempty" yaml:"payment,omitempty"`
	Authentication  *Authentication `json:"authentication" yaml:"authentication" validate:"required"`
	Reliability     *Reliability    `json:"reliability,omitempty" yaml:"reliability,omitempty"`
	AgentNotes      string          `json:"agent_notes" yaml:"agent_notes"`
	Contact         *Contact        `json:"contact,omitempty" yaml:"contact,omitempty"`
}

// Endpoint describes one declared API operation.
type Endpoint struct {
	Path        string      `json:"path" yaml:"path" validate:"required"`
	Method      string      `json:"method" yaml:"method" validate:"required,oneof=GET POST PUT PATCH DELETE HEAD OPTIONS"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Parameters  []Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty" validate:"dive"`
}

// Parameter describes one endpoint parameter.
type Parameter struct {
	Name        string `json:"name" yaml:"name" validate:"required"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Required    bool   `json:"required,omitempty" yaml:"required,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Testable reports whether the endpoint can be probed without synthesizing
// inputs: a GET whose parameters are all optional.
func (e Endpoint) Testable() bool {
	if e.Method != "GET" {
		return false
	}
	for _, p := range e.Parameters {
		if p.Required {
			return false
		}
	}
	return true
}

// Pricing declares the commercial model of the API.
type Pricing struct {
	Model      string        `json:"model" yaml:"model" validate:"required,oneof=free per-query subscription tiered"`
	FreeTier   *FreeTier     `json:"free_tier,omitempty" yaml:"free_tier,omitempty"`
	Tiers      []PricingTier `json:"tiers,omitempty" yaml:"tiers,omitempty" validate:"dive"`
	SupportURL string        `json:"support_url,omitempty" yaml:"support_url,omitempty"`
}

// FreeTier describes the no-cost usage allowance.
type FreeTier struct {
	QuotaPerDay int    `json:"quota_per_day,omitempty" yaml:"quota_per_day,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// PricingTier describes one paid pricing tier.
type PricingTier struct {
	Name        string `json:"name" yaml:"name" validate:"required"`
	Price       string `json:"price" yaml:"price" validate:"required"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Payment carries both payment block formats; which fields are meaningful
// depends on Shape. The 0.2 format declared checkout/key-provisioning URLs,
// the 0.3 format declares a machine-readable payment model.
type Payment struct {
	// Legacy (0.2) fields.
	CheckoutURL        string `json:"checkout_url,omitempty" yaml:"checkout_url,omitempty"`
	KeyProvisioningURL string `json:"key_provisioning_url,omitempty" yaml:"key_provisioning_url,omitempty"`
	PrepayRequired     bool   `json:"prepay_required,omitempty" yaml:"prepay_required,omitempty"`

	// Current (0.3) fields.
	Model          string          `json:"model,omitempty" yaml:"model,omitempty"`
	Currency       string          `json:"currency,omitempty" yaml:"currency,omitempty"`
	Rates          []Rate          `json:"rates,omitempty" yaml:"rates,omitempty"`
	Onboarding     *Onboarding     `json:"onboarding,omitempty" yaml:"onboarding,omitempty"`
	Settlement     *Settlement     `json:"settlement,omitempty" yaml:"settlement,omitempty"`
	BudgetControls *BudgetControls `json:"budget_controls,omitempty" yaml:"budget_controls,omitempty"`
	UsageEndpoint  string          `json:"usage_endpoint,omitempty" yaml:"usage_endpoint,omitempty"`
}

// Rate prices one billable unit. Price is a decimal string, never a float.
type Rate struct {
	Unit        string `json:"unit" yaml:"unit"`
	Price       string `json:"price" yaml:"price"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Onboarding declares how an agent obtains payment credentials before use.
type Onboarding struct {
	URL     string             `json:"url" yaml:"url"`
	Accepts []string           `json:"accepts" yaml:"accepts"`
	Returns *OnboardingReturns `json:"returns" yaml:"returns"`
}

// OnboardingReturns describes the credential the onboarding flow yields.
type OnboardingReturns struct {
	CredentialType  string `json:"credential_type" yaml:"credential_type"`
	CredentialField string `json:"credential_field" yaml:"credential_field"`
	Instructions    string `json:"instructions" yaml:"instructions"`
}

// Settlement declares when charges settle. Cycle is required when Type is
// settlement_postpaid_cycle.
type Settlement struct {
	Type  string `json:"type" yaml:"type"`
	Cycle string `json:"cycle,omitempty" yaml:"cycle,omitempty"`
}

// BudgetControls declares spend-limiting capabilities.
type BudgetControls struct {
	SupportsSpendCaps        bool `json:"supports_spend_caps,omitempty" yaml:"supports_spend_caps,omitempty"`
	SupportsPerRequestLimits bool `json:"supports_per_request_limits,omitempty" yaml:"supports_per_request_limits,omitempty"`
}

// Authentication declares how callers authenticate.
type Authentication struct {
	Required     bool   `json:"required" yaml:"required"`
	Type         string `json:"type,omitempty" yaml:"type,omitempty"`
	Instructions string `json:"instructions,omitempty" yaml:"instructions,omitempty"`
}

// Reliability is optional in 0.2 and absent in 0.3; defaults apply.
type Reliability struct {
	UptimeTarget float64 `json:"uptime_target,omitempty" yaml:"uptime_target,omitempty"`
	StatusURL    string  `json:"status_url,omitempty" yaml:"status_url,omitempty" validate:"omitempty,url"`
}

// DefaultReliability is assumed when a manifest omits the reliability block.
var DefaultReliability = Reliability{UptimeTarget: 0.99}

// Contact accepts either a bare string (0.2) or an object (0.3).
type Contact struct {
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
	URL   string `json:"url,omitempty" yaml:"url,omitempty"`
	Raw   string `json:"-" yaml:"-"`
}

// UnmarshalJSON handles the string-or-object contact representation.
func (c *Contact) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &c.Raw)
	}
	type contactObject Contact
	var obj contactObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("contact must be a string or an object: %w", err)
	}
	*c = Contact(obj)
	return nil
}

// MarshalJSON round-trips the representation the manifest used.
func (c Contact) MarshalJSON() ([]byte, error) {
	if c.Raw != "" {
		return json.Marshal(c.Raw)
	}
	type contactObject Contact
	return json.Marshal(contactObject(c))
}

// String returns the best single-line rendering of the contact.
func (c Contact) String() string {
	switch {
	case c.Raw != "":
		return c.Raw
	case c.Email != "":
		return c.Email
	default:
		return c.URL
	}
}

// Version returns the parsed spec version tag. Unsupported values parse to
// an unsupported SpecVersion; callers gate on Supported().
func (m *Manifest) Version() SpecVersion {
	return SpecVersion(m.SpecVersion)
}

// PaymentShape classifies the payment block. The 0.3 format is detected by a
// declared model under the current spec version; anything else with a
// payment block is treated as legacy.
func (m *Manifest) PaymentShape() PaymentShape {
	if m.Payment == nil {
		return PaymentShapeNone
	}
	if m.Payment.Model != "" && m.Version() == SpecVersionCurrent {
		return PaymentShapeCurrent
	}
	return PaymentShapeLegacy
}

// PaymentModel returns the declared 0.3 payment model, or "" when the
// manifest has no payment block (or a legacy one). Listing filters depend on
// this derivation staying exactly as stated.
func (m *Manifest) PaymentModel() string {
	if m.Payment == nil {
		return ""
	}
	return m.Payment.Model
}

// HasNonFreePayment reports whether the manifest declares a current-shape
// payment block with a model other than free.
func (m *Manifest) HasNonFreePayment() bool {
	return m.PaymentShape() == PaymentShapeCurrent && m.Payment.Model != PaymentModelFree
}
