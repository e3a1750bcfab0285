package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/agentmanifest/registry/internal/domain"
)

// structValidator is shared across validation calls; validator.Validate
// caches struct metadata and is safe for concurrent use.
var structValidator = newStructValidator()

// newStructValidator creates a configured validator instance.
func newStructValidator() *validator.Validate {
	v := validator.New()

	// Report violations by JSON field name, not Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("decimal_price", func(fl validator.FieldLevel) bool {
		return domain.DecimalPriceRegex.MatchString(fl.Field().String())
	})

	return v
}

// SchemaCheck validates the manifest's structural shape against the schema
// for its declared spec version and produces the schema_validity check. On
// failure the message carries every violated rule, not just the first. This
// is a hard gate: failure is always error severity.
func SchemaCheck(m *domain.Manifest) domain.ValidationCheck {
	var violations []string

	if err := structValidator.Struct(m); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				violations = append(violations, fmt.Sprintf("%s: %s", fieldPath(fe), describeRule(fe)))
			}
		} else {
			violations = append(violations, fmt.Sprintf("manifest structure: %v", err))
		}
	}

	violations = append(violations, paymentStructuralViolations(m)...)

	if len(violations) > 0 {
		return domain.ErrorCheck(domain.CheckSchemaValidity,
			fmt.Sprintf("schema violations: %s", strings.Join(violations, "; ")))
	}
	return domain.InfoCheck(domain.CheckSchemaValidity, "manifest conforms to the declared schema")
}

// paymentStructuralViolations applies the version-dependent structural rules
// the flat tag validator cannot express.
func paymentStructuralViolations(m *domain.Manifest) []string {
	if m.PaymentShape() != domain.PaymentShapeCurrent {
		return nil
	}

	p := m.Payment
	var out []string

	if p.Settlement != nil {
		if !domain.ValidSettlementType(p.Settlement.Type) {
			out = append(out, fmt.Sprintf("payment.settlement.type: %q is not a recognized settlement type (expected one of: %s)",
				p.Settlement.Type, strings.Join(domain.SettlementTypes, ", ")))
		}
		if p.Settlement.Type == domain.SettlementPostpaidCycle && p.Settlement.Cycle == "" {
			out = append(out, "payment.settlement.cycle: required when settlement type is postpaid_cycle")
		}
	}

	for i, r := range p.Rates {
		if !domain.DecimalPriceRegex.MatchString(r.Price) {
			out = append(out, fmt.Sprintf("payment.rates[%d].price: %q does not match the decimal price pattern", i, r.Price))
		}
	}

	return out
}

// fieldPath strips the root struct name from the violation namespace,
// leaving a JSON-style path like "pricing.model".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}

// describeRule renders a violated tag as a human-readable rule description.
func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return fmt.Sprintf("%q is not a valid URL", fe.Value())
	case "oneof":
		return fmt.Sprintf("%q is not one of: %s", fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		return fmt.Sprintf("must contain at least %s entries", fe.Param())
	case "decimal_price":
		return fmt.Sprintf("%q does not match the decimal price pattern", fe.Value())
	default:
		return fmt.Sprintf("failed rule %q", fe.Tag())
	}
}
