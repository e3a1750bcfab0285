package domain

import "regexp"

// Pricing model identifiers.
const (
	PricingModelFree         = "free"
	PricingModelPerQuery     = "per-query"
	PricingModelSubscription = "subscription"
	PricingModelTiered       = "tiered"
)

// Payment model identifiers (0.3 payment block).
const (
	PaymentModelFree           = "free"
	PaymentModelPerRequest     = "per_request"
	PaymentModelSubscription   = "subscription"
	PaymentModelPrepaidCredits = "prepaid_credits"
)

// Settlement type identifiers (0.3 payment block).
const (
	SettlementPrepaid       = "prepaid"
	SettlementPostpaidCycle = "postpaid_cycle"
	SettlementPerRequest    = "per_request"
)

// PrimaryCategories is the small controlled vocabulary for primary_category.
var PrimaryCategories = []string{
	"data", "ai", "finance", "commerce",
	"communication", "infrastructure", "media", "productivity",
}

// CategoryVocabulary is the larger controlled vocabulary for categories.
// It is a strict superset of PrimaryCategories.
var CategoryVocabulary = append([]string{
	"search", "weather", "travel", "social", "security", "analytics",
	"developer-tools", "identity", "payments", "storage", "translation",
	"monitoring", "geolocation", "entertainment",
}, PrimaryCategories...)

// PaymentModels lists the accepted 0.3 payment models.
var PaymentModels = []string{
	PaymentModelFree, PaymentModelPerRequest,
	PaymentModelSubscription, PaymentModelPrepaidCredits,
}

// SettlementTypes lists the accepted 0.3 settlement types.
var SettlementTypes = []string{
	SettlementPrepaid, SettlementPostpaidCycle, SettlementPerRequest,
}

// DecimalPriceRegex validates rate prices as decimal strings (no floats,
// no currency symbols).
var DecimalPriceRegex = regexp.MustCompile(`^\d+(\.\d+)?$`)

// CurrencyRegex accepts 3-letter ISO codes or x- prefixed custom identifiers.
var CurrencyRegex = regexp.MustCompile(`^([A-Z]{3}|x-[a-z0-9-]+)$`)

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// ValidPrimaryCategory reports membership in the primary vocabulary.
func ValidPrimaryCategory(c string) bool { return contains(PrimaryCategories, c) }

// ValidCategory reports membership in the full category vocabulary.
func ValidCategory(c string) bool { return contains(CategoryVocabulary, c) }

// ValidPaymentModel reports membership in the 0.3 payment model enum.
func ValidPaymentModel(m string) bool { return contains(PaymentModels, m) }

// ValidSettlementType reports membership in the settlement type enum.
func ValidSettlementType(t string) bool { return contains(SettlementTypes, t) }
