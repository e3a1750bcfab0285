package validator

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/agentmanifest/registry/internal/domain"
)

// minDescriptionLength applies to all spec versions.
const minDescriptionLength = 100

// defaultBoilerplateSources are the stock boilerplate patterns. The list is
// configurable because it is expected to grow; see config.BoilerplatePatterns.
var defaultBoilerplateSources = []string{
	`(?i)lorem ipsum`,
	`(?i)\btodo:`,
	`(?i)\[(insert|your|add|describe)[^\]]*\]`,
	`(?i)\bdescription (goes|will go) here\b`,
	`(?i)\bthis is an? (sample|test|placeholder|example) (api|service|description)\b`,
	`(?i)\bcoming soon\b`,
	`(?i)\bunder construction\b`,
	`(?i)\bchange ?me\b`,
}

// DefaultBoilerplatePatterns compiles the stock boilerplate pattern set.
func DefaultBoilerplatePatterns() []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(defaultBoilerplateSources))
	for _, src := range defaultBoilerplateSources {
		out = append(out, regexp.MustCompile(src))
	}
	return out
}

// SpecVersionCheck verifies the declared spec version is one this service
// supports.
func SpecVersionCheck(m *domain.Manifest) domain.ValidationCheck {
	if m.Version().Supported() {
		return domain.InfoCheck(domain.CheckSpecVersion,
			fmt.Sprintf("spec version %s is supported", m.SpecVersion))
	}
	supported := make([]string, 0, len(domain.SupportedSpecVersions))
	for _, v := range domain.SupportedSpecVersions {
		supported = append(supported, string(v))
	}
	return domain.ErrorCheck(domain.CheckSpecVersion,
		fmt.Sprintf("spec version %q is not supported (supported versions: %s)",
			m.SpecVersion, strings.Join(supported, ", ")))
}

// DescriptionQuality gates the description on length, then on boilerplate.
func DescriptionQuality(m *domain.Manifest, boilerplate []*regexp.Regexp) domain.ValidationCheck {
	return textQuality(domain.CheckDescriptionQuality, "description", m.Description, minDescriptionLength, boilerplate)
}

// AgentNotesQuality applies the same two-stage gate to agent_notes with a
// version-dependent length threshold.
func AgentNotesQuality(m *domain.Manifest, version domain.SpecVersion, boilerplate []*regexp.Regexp) domain.ValidationCheck {
	return textQuality(domain.CheckAgentNotesQuality, "agent_notes", m.AgentNotes, version.AgentNotesMinLength(), boilerplate)
}

func textQuality(checkName, field, text string, minLen int, boilerplate []*regexp.Regexp) domain.ValidationCheck {
	if len(text) < minLen {
		return domain.ErrorCheck(checkName,
			fmt.Sprintf("%s is %d characters, minimum is %d", field, len(text), minLen))
	}
	for _, re := range boilerplate {
		if re.MatchString(text) {
			return domain.WarnCheck(checkName, false,
				fmt.Sprintf("%s matches boilerplate pattern %q", field, re.String()))
		}
	}
	return domain.InfoCheck(checkName, fmt.Sprintf("%s passes quality checks (%d characters)", field, len(text)))
}

// CategoryValidity checks primary_category against the small vocabulary and
// every categories entry against the larger one.
func CategoryValidity(m *domain.Manifest) []domain.ValidationCheck {
	var checks []domain.ValidationCheck

	if m.PrimaryCategory == "" || !domain.ValidPrimaryCategory(m.PrimaryCategory) {
		checks = append(checks, domain.ErrorCheck(domain.CheckCategoryValidity,
			fmt.Sprintf("primary_category %q is not in the controlled vocabulary (expected one of: %s)",
				m.PrimaryCategory, strings.Join(domain.PrimaryCategories, ", "))))
	}

	if len(m.Categories) == 0 {
		checks = append(checks, domain.ErrorCheck(domain.CheckCategoryValidity,
			"categories must contain at least one entry"))
	} else {
		var invalid []string
		for _, c := range m.Categories {
			if !domain.ValidCategory(c) {
				invalid = append(invalid, c)
			}
		}
		if len(invalid) > 0 {
			checks = append(checks, domain.ErrorCheck(domain.CheckCategoryValidity,
				fmt.Sprintf("categories contain values outside the vocabulary: %s", strings.Join(invalid, ", "))))
		}
	}

	if len(checks) == 0 {
		checks = append(checks, domain.InfoCheck(domain.CheckCategoryValidity,
			fmt.Sprintf("primary category %q and %d categories are valid", m.PrimaryCategory, len(m.Categories))))
	}
	return checks
}

// PricingConsistency cross-checks the pricing block against its model.
func PricingConsistency(m *domain.Manifest) []domain.ValidationCheck {
	if m.Pricing == nil {
		return []domain.ValidationCheck{
			domain.ErrorCheck(domain.CheckPricingConsistency, "pricing block is missing"),
		}
	}

	var checks []domain.ValidationCheck
	p := m.Pricing

	switch p.Model {
	case domain.PricingModelPerQuery, domain.PricingModelSubscription, domain.PricingModelTiered:
		if len(p.Tiers) == 0 {
			checks = append(checks, domain.ErrorCheck(domain.CheckPricingConsistency,
				fmt.Sprintf("pricing model %q declares no paid tiers", p.Model)))
		}
	case domain.PricingModelFree:
		if p.FreeTier == nil {
			checks = append(checks, domain.ErrorCheck(domain.CheckPricingConsistency,
				"pricing model \"free\" declares no free tier details"))
		}
	}

	if p.SupportURL != "" && !validHTTPURL(p.SupportURL) {
		checks = append(checks, domain.ErrorCheck(domain.CheckPricingConsistency,
			fmt.Sprintf("support_url %q does not parse as a URL", p.SupportURL)))
	}

	if len(checks) == 0 {
		checks = append(checks, domain.InfoCheck(domain.CheckPricingConsistency,
			fmt.Sprintf("pricing block is consistent for model %q", p.Model)))
	}
	return checks
}

// AuthenticationConsistency cross-checks the authentication declaration.
func AuthenticationConsistency(m *domain.Manifest) []domain.ValidationCheck {
	if m.Authentication == nil {
		return []domain.ValidationCheck{
			domain.ErrorCheck(domain.CheckAuthConsistency, "authentication block is missing"),
		}
	}

	var checks []domain.ValidationCheck
	a := m.Authentication

	if a.Required {
		if a.Type == "" || a.Type == "none" {
			checks = append(checks, domain.ErrorCheck(domain.CheckAuthConsistency,
				fmt.Sprintf("authentication is required but type is %q", a.Type)))
		}
		if a.Instructions == "" {
			checks = append(checks, domain.ErrorCheck(domain.CheckAuthConsistency,
				"authentication is required but instructions are missing"))
		}
	}

	if len(checks) == 0 {
		checks = append(checks, domain.InfoCheck(domain.CheckAuthConsistency,
			"authentication declaration is consistent"))
	}
	return checks
}

// PaymentConsistency cross-checks the payment block. The shape is decided
// once by the orchestrator and passed in; it is never re-sniffed here.
func PaymentConsistency(m *domain.Manifest, shape domain.PaymentShape) []domain.ValidationCheck {
	switch shape {
	case domain.PaymentShapeLegacy:
		return legacyPaymentConsistency(m.Payment)
	case domain.PaymentShapeCurrent:
		return currentPaymentConsistency(m.Payment)
	default:
		return nil
	}
}

func legacyPaymentConsistency(p *domain.Payment) []domain.ValidationCheck {
	var checks []domain.ValidationCheck

	if p.CheckoutURL == "" || !validHTTPURL(p.CheckoutURL) {
		checks = append(checks, domain.ErrorCheck(domain.CheckPaymentConsistency,
			fmt.Sprintf("checkout_url %q is missing or not a valid URL", p.CheckoutURL)))
	}
	if p.KeyProvisioningURL != "" {
		if !validHTTPURL(p.KeyProvisioningURL) {
			checks = append(checks, domain.ErrorCheck(domain.CheckPaymentConsistency,
				fmt.Sprintf("key_provisioning_url %q is not a valid URL", p.KeyProvisioningURL)))
		} else {
			checks = append(checks, domain.InfoCheck(domain.CheckPaymentConsistency,
				"key_provisioning_url parses as a URL"))
		}
	}

	if len(checks) == 0 {
		checks = append(checks, domain.InfoCheck(domain.CheckPaymentConsistency,
			"legacy payment block is consistent"))
	}
	return checks
}

func currentPaymentConsistency(p *domain.Payment) []domain.ValidationCheck {
	var checks []domain.ValidationCheck

	if !domain.ValidPaymentModel(p.Model) {
		checks = append(checks, domain.ErrorCheck(domain.CheckPaymentConsistency,
			fmt.Sprintf("payment model %q is not one of: %s", p.Model, strings.Join(domain.PaymentModels, ", "))))
	}

	// Currency format is advisory; a wrong format is a warning, not an error.
	if p.Currency != "" && !domain.CurrencyRegex.MatchString(p.Currency) {
		checks = append(checks, domain.WarnCheck(domain.CheckPaymentConsistency, false,
			fmt.Sprintf("currency %q is neither a 3-letter ISO code nor an x- prefixed identifier", p.Currency)))
	}

	nonFree := p.Model != domain.PaymentModelFree

	if nonFree {
		if len(p.Rates) == 0 {
			checks = append(checks, domain.ErrorCheck(domain.CheckPaymentConsistency,
				fmt.Sprintf("payment model %q requires at least one rate", p.Model)))
		} else {
			var badUnits []string
			for _, r := range p.Rates {
				if !domain.DecimalPriceRegex.MatchString(r.Price) {
					badUnits = append(badUnits, fmt.Sprintf("%s=%q", r.Unit, r.Price))
				}
			}
			if len(badUnits) > 0 {
				checks = append(checks, domain.ErrorCheck(domain.CheckPaymentConsistency,
					fmt.Sprintf("rates carry non-decimal prices: %s", strings.Join(badUnits, ", "))))
			}
		}

		checks = append(checks, onboardingConsistency(p.Onboarding)...)

		if p.Settlement == nil {
			checks = append(checks, domain.ErrorCheck(domain.CheckPaymentConsistency,
				"settlement block is required for non-free payment models"))
		} else {
			if !domain.ValidSettlementType(p.Settlement.Type) {
				checks = append(checks, domain.ErrorCheck(domain.CheckPaymentConsistency,
					fmt.Sprintf("settlement type %q is not recognized (expected one of: %s)",
						p.Settlement.Type, strings.Join(domain.SettlementTypes, ", "))))
			}
			if p.Settlement.Type == domain.SettlementPostpaidCycle && p.Settlement.Cycle == "" {
				checks = append(checks, domain.ErrorCheck(domain.CheckPaymentConsistency,
					"settlement type postpaid_cycle requires a cycle"))
			}
		}
	}

	if p.UsageEndpoint != "" && !validHTTPURL(p.UsageEndpoint) {
		checks = append(checks, domain.ErrorCheck(domain.CheckPaymentConsistency,
			fmt.Sprintf("usage_endpoint %q does not parse as a URL", p.UsageEndpoint)))
	}

	for _, c := range checks {
		if !c.Passed {
			return checks
		}
	}
	return append(checks, domain.InfoCheck(domain.CheckPaymentConsistency,
		fmt.Sprintf("payment block is consistent for model %q", p.Model)))
}

func onboardingConsistency(o *domain.Onboarding) []domain.ValidationCheck {
	if o == nil {
		return []domain.ValidationCheck{domain.ErrorCheck(domain.CheckPaymentConsistency,
			"onboarding block is required for non-free payment models")}
	}

	var missing []string
	if o.URL == "" || !validHTTPURL(o.URL) {
		missing = append(missing, "url")
	}
	if len(o.Accepts) == 0 {
		missing = append(missing, "accepts")
	}
	if o.Returns == nil {
		missing = append(missing, "returns")
	} else {
		if o.Returns.CredentialType == "" {
			missing = append(missing, "returns.credential_type")
		}
		if o.Returns.CredentialField == "" {
			missing = append(missing, "returns.credential_field")
		}
		if o.Returns.Instructions == "" {
			missing = append(missing, "returns.instructions")
		}
	}

	if len(missing) > 0 {
		return []domain.ValidationCheck{domain.ErrorCheck(domain.CheckPaymentConsistency,
			fmt.Sprintf("onboarding block is missing or invalid: %s", strings.Join(missing, ", ")))}
	}
	return nil
}

// validHTTPURL reports whether raw parses as an absolute http(s) URL.
func validHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
