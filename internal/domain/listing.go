package domain

import "time"

// CatalogIndex is the index.yaml at the root of the listings repository.
type CatalogIndex struct {
	Version   string         `json:"version" yaml:"version"`
	Commit    string         `json:"commit" yaml:"commit"`
	UpdatedAt string         `json:"updated_at" yaml:"updated_at"`
	Listings  []CatalogEntry `json:"listings" yaml:"listings"`
}

// CatalogEntry locates one listing file within the listings repository.
type CatalogEntry struct {
	ID   string `json:"id" yaml:"id"`
	Path string `json:"path" yaml:"path"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	URL  string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Listing is one catalog entry together with its manifest and the most
// recent validation outcome.
type Listing struct {
	ID           string            `json:"id" yaml:"id"`
	Name         string            `json:"name" yaml:"name"`
	URL          string            `json:"url" yaml:"url"`
	Manifest     *Manifest         `json:"manifest,omitempty" yaml:"manifest,omitempty"`
	LastResult   *ValidationResult `json:"last_result,omitempty" yaml:"last_result,omitempty"`
	ValidatedAt  time.Time         `json:"validated_at,omitzero" yaml:"validated_at,omitempty"`
}

// Verified reports whether the listing's last validation passed.
func (l *Listing) Verified() bool {
	return l.LastResult != nil && l.LastResult.Passed
}

// PricingModel returns the declared pricing model, or "" without a manifest.
func (l *Listing) PricingModel() string {
	if l.Manifest == nil || l.Manifest.Pricing == nil {
		return ""
	}
	return l.Manifest.Pricing.Model
}

// PaymentModel returns the derived payment model, or "" without a manifest.
func (l *Listing) PaymentModel() string {
	if l.Manifest == nil {
		return ""
	}
	return l.Manifest.PaymentModel()
}

// Free reports whether the listing is usable without payment. This is the
// documented OR over pricing model and payment model that the free_only
// filter exposes.
func (l *Listing) Free() bool {
	return l.PricingModel() == PricingModelFree || l.PaymentModel() == PaymentModelFree
}

// Badges returns the badge tags from the last validation, never nil.
func (l *Listing) Badges() []string {
	if l.LastResult == nil || l.LastResult.Badges == nil {
		return []string{}
	}
	return l.LastResult.Badges
}
