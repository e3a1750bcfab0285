package validator

import (
	"context"
	"fmt"
	"net/http"

	"github.com/agentmanifest/registry/internal/domain"
)

// VerifyPaymentFlow confirms declared payment capabilities are reachable.
// The shape is decided once by the orchestrator. An empty baseURL means
// local/offline validation: every sub-probe reports an unverified
// info-severity check without touching the network, because validating a
// local manifest file is a supported mode, not an error.
func (p *Probe) VerifyPaymentFlow(ctx context.Context, m *domain.Manifest, shape domain.PaymentShape, baseURL string) (bool, []domain.ValidationCheck) {
	switch shape {
	case domain.PaymentShapeLegacy:
		if !m.Payment.PrepayRequired {
			return false, nil
		}
		return p.verifyLegacyPaymentFlow(ctx, m, baseURL)
	case domain.PaymentShapeCurrent:
		if m.Payment.Model == "" || m.Payment.Model == domain.PaymentModelFree {
			return false, nil
		}
		return p.verifyCurrentPaymentFlow(ctx, m.Payment, baseURL)
	default:
		return false, nil
	}
}

// verifyLegacyPaymentFlow probes the 0.2 prepay flow: checkout must serve
// 200, key provisioning must serve 200 or 401.
func (p *Probe) verifyLegacyPaymentFlow(ctx context.Context, m *domain.Manifest, baseURL string) (bool, []domain.ValidationCheck) {
	pay := m.Payment

	// Hard gates, no network call.
	var checks []domain.ValidationCheck
	if pay.CheckoutURL == "" {
		checks = append(checks, domain.ErrorCheck(domain.CheckPaymentFlow,
			"prepay_required is set but checkout_url is missing"))
	}
	if pay.KeyProvisioningURL == "" {
		checks = append(checks, domain.ErrorCheck(domain.CheckPaymentFlow,
			"prepay_required is set but key_provisioning_url is missing"))
	}
	if m.Pricing != nil && m.Pricing.Model == domain.PricingModelFree {
		checks = append(checks, domain.ErrorCheck(domain.CheckPaymentFlow,
			"prepay_required contradicts the free pricing model"))
	}
	if len(checks) > 0 {
		return false, checks
	}

	if baseURL == "" {
		return false, []domain.ValidationCheck{
			domain.InfoCheck(domain.CheckPaymentCheckout, "skipped: local validation without a base URL"),
			domain.InfoCheck(domain.CheckPaymentKeyProvision, "skipped: local validation without a base URL"),
		}
	}

	checkoutOK := p.probeCheckout(ctx, pay.CheckoutURL, &checks)
	keyOK := p.probeKeyProvisioning(ctx, pay.KeyProvisioningURL, &checks)

	return checkoutOK && keyOK, checks
}

// probeCheckout HEADs the checkout URL, falling back to GET when HEAD is not
// allowed, and expects 200.
func (p *Probe) probeCheckout(ctx context.Context, checkoutURL string, checks *[]domain.ValidationCheck) bool {
	status, _, latency, err := p.do(ctx, http.MethodHead, checkoutURL, nil)
	if err == nil && status == http.StatusMethodNotAllowed {
		status, _, latency, err = p.do(ctx, http.MethodGet, checkoutURL, nil)
	}

	switch {
	case err != nil:
		*checks = append(*checks, domain.WarnCheck(domain.CheckPaymentCheckout, false,
			fmt.Sprintf("checkout URL %s unreachable: %v", checkoutURL, err)))
		return false
	case status == http.StatusOK:
		*checks = append(*checks, domain.InfoCheck(domain.CheckPaymentCheckout,
			fmt.Sprintf("checkout URL %s responded HTTP 200 in %dms", checkoutURL, latency.Milliseconds())))
		return true
	default:
		*checks = append(*checks, domain.WarnCheck(domain.CheckPaymentCheckout, false,
			fmt.Sprintf("checkout URL %s responded HTTP %d, expected 200", checkoutURL, status)))
		return false
	}
}

// probeKeyProvisioning GETs the key provisioning URL; 200 and 401 both count.
func (p *Probe) probeKeyProvisioning(ctx context.Context, keyURL string, checks *[]domain.ValidationCheck) bool {
	status, _, latency, err := p.do(ctx, http.MethodGet, keyURL, nil)
	switch {
	case err != nil:
		*checks = append(*checks, domain.WarnCheck(domain.CheckPaymentKeyProvision, false,
			fmt.Sprintf("key provisioning URL %s unreachable: %v", keyURL, err)))
		return false
	case status == http.StatusOK || status == http.StatusUnauthorized:
		*checks = append(*checks, domain.InfoCheck(domain.CheckPaymentKeyProvision,
			fmt.Sprintf("key provisioning URL %s responded HTTP %d in %dms", keyURL, status, latency.Milliseconds())))
		return true
	default:
		*checks = append(*checks, domain.WarnCheck(domain.CheckPaymentKeyProvision, false,
			fmt.Sprintf("key provisioning URL %s responded HTTP %d, expected 200 or 401", keyURL, status)))
		return false
	}
}

// verifyCurrentPaymentFlow probes the 0.3 onboarding URL (expect 200) and
// the usage endpoint when declared.
func (p *Probe) verifyCurrentPaymentFlow(ctx context.Context, pay *domain.Payment, baseURL string) (bool, []domain.ValidationCheck) {
	if baseURL == "" {
		checks := []domain.ValidationCheck{
			domain.InfoCheck(domain.CheckPaymentOnboarding, "skipped: local validation without a base URL"),
		}
		if pay.UsageEndpoint != "" {
			checks = append(checks, domain.InfoCheck(domain.CheckPaymentUsageEndpoint,
				"skipped: local validation without a base URL"))
		}
		return false, checks
	}

	var checks []domain.ValidationCheck
	verified := true

	if pay.Onboarding == nil || pay.Onboarding.URL == "" {
		checks = append(checks, domain.WarnCheck(domain.CheckPaymentOnboarding, false,
			"non-free payment model declares no onboarding URL to verify"))
		verified = false
	} else {
		status, _, latency, err := p.do(ctx, http.MethodGet, pay.Onboarding.URL, nil)
		switch {
		case err != nil:
			checks = append(checks, domain.WarnCheck(domain.CheckPaymentOnboarding, false,
				fmt.Sprintf("onboarding URL %s unreachable: %v", pay.Onboarding.URL, err)))
			verified = false
		case status == http.StatusOK:
			checks = append(checks, domain.InfoCheck(domain.CheckPaymentOnboarding,
				fmt.Sprintf("onboarding URL %s responded HTTP 200 in %dms", pay.Onboarding.URL, latency.Milliseconds())))
		default:
			checks = append(checks, domain.WarnCheck(domain.CheckPaymentOnboarding, false,
				fmt.Sprintf("onboarding URL %s responded HTTP %d, expected 200", pay.Onboarding.URL, status)))
			verified = false
		}
	}

	if pay.UsageEndpoint != "" {
		status, _, latency, err := p.do(ctx, http.MethodGet, pay.UsageEndpoint, nil)
		switch {
		case err != nil:
			checks = append(checks, domain.WarnCheck(domain.CheckPaymentUsageEndpoint, false,
				fmt.Sprintf("usage endpoint %s unreachable: %v", pay.UsageEndpoint, err)))
			verified = false
		case status >= 500:
			checks = append(checks, domain.WarnCheck(domain.CheckPaymentUsageEndpoint, false,
				fmt.Sprintf("usage endpoint %s responded HTTP %d", pay.UsageEndpoint, status)))
			verified = false
		default:
			checks = append(checks, domain.InfoCheck(domain.CheckPaymentUsageEndpoint,
				fmt.Sprintf("usage endpoint %s responded HTTP %d in %dms", pay.UsageEndpoint, status, latency.Milliseconds())))
		}
	}

	return verified, checks
}
