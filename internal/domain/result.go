package domain

import (
	"strings"
	"time"
)

// Severity classifies a validation check outcome.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Check names are part of the API contract; downstream consumers pattern
// match on them and they must never be renamed.
const (
	CheckManifestFetch         = "manifest_fetch"
	CheckLocalManifest         = "local_manifest"
	CheckSchemaValidity        = "schema_validity"
	CheckSpecVersion           = "spec_version"
	CheckDescriptionQuality    = "description_quality"
	CheckAgentNotesQuality     = "agent_notes_quality"
	CheckEndpointReachability  = "endpoint_reachability"
	CheckPricingConsistency    = "pricing_consistency"
	CheckCategoryValidity      = "category_validity"
	CheckAuthConsistency       = "authentication_consistency"
	CheckPaymentConsistency    = "payment_consistency"
	CheckOperationalComplete   = "operational_completeness"
	CheckAuthFlowVerification  = "auth_flow_verification"
	CheckPaymentFlow           = "payment_flow_verification"
	CheckPaymentCheckout       = "payment_checkout"
	CheckPaymentKeyProvision   = "payment_key_provisioning"
	CheckPaymentOnboarding     = "payment_onboarding"
	CheckPaymentUsageEndpoint  = "payment_usage_endpoint"
	endpointCheckPrefix        = "endpoint"
)

// Badge tags summarize verified capabilities. They inform, they never gate.
const (
	BadgeAuthVerified = "auth-verified"
	BadgePaymentReady = "payment-ready"
	BadgeBudgetAware  = "budget-aware"
)

// ValidationCheck is one atomic pass/fail judgment.
type ValidationCheck struct {
	Name     string   `json:"name" yaml:"name"`
	Passed   bool     `json:"passed" yaml:"passed"`
	Message  string   `json:"message" yaml:"message"`
	Severity Severity `json:"severity" yaml:"severity"`
}

// ErrorCheck builds a failed error-severity check.
func ErrorCheck(name, message string) ValidationCheck {
	return ValidationCheck{Name: name, Passed: false, Message: message, Severity: SeverityError}
}

// WarnCheck builds a warning-severity check; passed is caller-determined
// because a warning can accompany a passing judgment.
func WarnCheck(name string, passed bool, message string) ValidationCheck {
	return ValidationCheck{Name: name, Passed: passed, Message: message, Severity: SeverityWarning}
}

// InfoCheck builds a passing informational check.
func InfoCheck(name, message string) ValidationCheck {
	return ValidationCheck{Name: name, Passed: true, Message: message, Severity: SeverityInfo}
}

// IsEndpointCheck reports whether the check name belongs to the endpoint
// reachability family (the aggregate gate plus per-endpoint probes).
func (c ValidationCheck) IsEndpointCheck() bool {
	return strings.HasPrefix(c.Name, endpointCheckPrefix)
}

// EndpointCheckName names a per-endpoint probe check, e.g. "endpoint:GET /search".
func EndpointCheckName(method, path string) string {
	return endpointCheckPrefix + ":" + method + " " + path
}

// ValidationResult is the aggregate output of one validation call. It is
// constructed fresh per call and never mutated after Finalize.
type ValidationResult struct {
	URL                   string            `json:"url" yaml:"url"`
	ValidatedAt           time.Time         `json:"validated_at" yaml:"validated_at"`
	Passed                bool              `json:"passed" yaml:"passed"`
	SpecVersion           string            `json:"spec_version,omitempty" yaml:"spec_version,omitempty"`
	Checks                []ValidationCheck `json:"checks" yaml:"checks"`
	VerificationToken     string            `json:"verification_token,omitempty" yaml:"verification_token,omitempty"`
	SchemaValid           bool              `json:"schema_valid" yaml:"schema_valid"`
	EndpointsReachable    bool              `json:"endpoints_reachable" yaml:"endpoints_reachable"`
	AuthVerified          bool              `json:"auth_verified" yaml:"auth_verified"`
	PaymentFlowVerified   bool              `json:"payment_flow_verified" yaml:"payment_flow_verified"`
	OperationallyComplete bool              `json:"operationally_complete" yaml:"operationally_complete"`
	Badges                []string          `json:"badges" yaml:"badges"`
}

// Add appends checks preserving pipeline order.
func (r *ValidationResult) Add(checks ...ValidationCheck) {
	r.Checks = append(r.Checks, checks...)
}

// Check returns the first check with the given name, or nil.
func (r *ValidationResult) Check(name string) *ValidationCheck {
	for i := range r.Checks {
		if r.Checks[i].Name == name {
			return &r.Checks[i]
		}
	}
	return nil
}

// ComputePassed derives the aggregate verdict: every error-severity check
// passed. Warnings and infos never block.
func (r *ValidationResult) ComputePassed() bool {
	for _, c := range r.Checks {
		if c.Severity == SeverityError && !c.Passed {
			return false
		}
	}
	return true
}

// ComputeEndpointsReachable derives the endpoint verdict: vacuously true
// with no endpoint-named checks, otherwise all of them must pass.
func (r *ValidationResult) ComputeEndpointsReachable() bool {
	for _, c := range r.Checks {
		if c.IsEndpointCheck() && !c.Passed {
			return false
		}
	}
	return true
}
