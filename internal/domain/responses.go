package domain

import "encoding/json"

// ValidateRequest is the body of POST /validate. Exactly one of URL or
// Manifest must be set; Source labels an inline manifest.
type ValidateRequest struct {
	URL      string          `json:"url,omitempty"`
	Manifest json.RawMessage `json:"manifest,omitempty"`
	Source   string          `json:"source,omitempty"`
}

// SubmissionRequest is the body of POST /submissions.
type SubmissionRequest struct {
	URL string `json:"url"`
}

// SubmissionResponse reports the state of an async validation.
type SubmissionResponse struct {
	ID          string            `json:"id"`
	URL         string            `json:"url"`
	Status      string            `json:"status"`
	SubmittedAt string            `json:"submitted_at"`
	Result      *ValidationResult `json:"result,omitempty"`
}

// ListingResponse wraps a listing for API responses.
type ListingResponse struct {
	Listing Listing `json:"listing"`
}

// ListingListResponse is a paginated page of listings.
type ListingListResponse struct {
	Listings []ListingSummary `json:"listings"`
	Metadata ListMetadata     `json:"metadata"`
}

// ListingSummary is the compact listing shape used in list responses.
type ListingSummary struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	URL          string   `json:"url"`
	Description  string   `json:"description,omitempty"`
	Categories   []string `json:"categories,omitempty"`
	PricingModel string   `json:"pricing_model,omitempty"`
	PaymentModel string   `json:"payment_model,omitempty"`
	Verified     bool     `json:"verified"`
	Badges       []string `json:"badges"`
}

// ListMetadata contains pagination metadata.
type ListMetadata struct {
	NextCursor string `json:"next_cursor,omitempty"`
	Count      int    `json:"count"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status       string      `json:"status"`
	CatalogURL   string      `json:"catalog_url,omitempty"`
	Branch       string      `json:"branch,omitempty"`
	CommitSHA    string      `json:"commit_sha,omitempty"`
	LastSyncAt   string      `json:"last_sync_at,omitempty"`
	ListingCount int         `json:"listing_count"`
	CacheStats   *CacheStats `json:"cache_stats,omitempty"`
}

// CacheStats contains manifest cache statistics.
type CacheStats struct {
	Size     int     `json:"size"`
	Capacity int     `json:"capacity"`
	HitRate  float64 `json:"hit_rate"`
}

// PingResponse represents the ping response.
type PingResponse struct {
	Pong bool `json:"pong"`
}

// VersionResponse represents the version info response.
type VersionResponse struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}
