package validator

import (
	"fmt"
	"strings"

	"github.com/agentmanifest/registry/internal/domain"
)

// termGroup is satisfied when the normalized text contains any synonym.
type termGroup struct {
	name  string
	terms []string
}

// The three hard requirement groups: an actionable manifest tells an agent
// how to get an account, how to authenticate, and what usage costs.
var requiredTermGroups = []termGroup{
	{name: "account", terms: []string{"account"}},
	{name: "authentication", terms: []string{"authentication", "api key", "api_key", "credentials"}},
	{name: "pricing", terms: []string{"pricing", "cost", "free"}},
}

// The soft payment group applies only when a non-free payment block is
// declared.
var paymentTermGroup = termGroup{
	name:  "payment",
	terms: []string{"payment", "onboarding", "budget"},
}

func (g termGroup) satisfiedBy(text string) bool {
	for _, t := range g.terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

// CompletenessResult pairs the operationally-complete verdict with its check.
type CompletenessResult struct {
	OperationallyComplete bool
	Check                 domain.ValidationCheck
}

// OperationalCompleteness decides whether agent_notes is actionable guidance.
// nonFreePayment flags a declared non-free current-shape payment block;
// version selects the minimum length threshold.
func OperationalCompleteness(agentNotes string, nonFreePayment bool, version domain.SpecVersion) CompletenessResult {
	normalized := strings.Join(strings.Fields(strings.ToLower(agentNotes)), " ")

	minLen := version.AgentNotesMinLength()
	if len(normalized) < minLen {
		return CompletenessResult{
			OperationallyComplete: false,
			Check: domain.ErrorCheck(domain.CheckOperationalComplete,
				fmt.Sprintf("agent notes are %d characters, minimum is %d for spec version %s",
					len(normalized), minLen, version)),
		}
	}

	for _, g := range requiredTermGroups {
		if !g.satisfiedBy(normalized) {
			return CompletenessResult{
				OperationallyComplete: false,
				Check: domain.ErrorCheck(domain.CheckOperationalComplete,
					fmt.Sprintf("agent notes do not cover %s (expected any of: %s)",
						g.name, strings.Join(g.terms, ", "))),
			}
		}
	}

	if nonFreePayment && !paymentTermGroup.satisfiedBy(normalized) {
		return CompletenessResult{
			OperationallyComplete: true,
			Check: domain.WarnCheck(domain.CheckOperationalComplete, true,
				fmt.Sprintf("agent notes cover the basics but under-document the payment flow (expected any of: %s)",
					strings.Join(paymentTermGroup.terms, ", "))),
		}
	}

	return CompletenessResult{
		OperationallyComplete: true,
		Check: domain.InfoCheck(domain.CheckOperationalComplete,
			"agent notes cover account, authentication and pricing"),
	}
}
