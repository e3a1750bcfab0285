package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmanifest/registry/internal/domain"
	"github.com/agentmanifest/registry/internal/listing"
	"github.com/agentmanifest/registry/internal/submission"
	"github.com/agentmanifest/registry/internal/validator"
)

const manifestJSON = `{
	"spec_version": "0.3",
	"name": "geo-resolver",
	"description": "A geocoding and reverse-geocoding service that resolves street addresses to coordinates and back again.",
	"categories": ["geolocation", "data"],
	"primary_category": "data",
	"endpoints": [{"path": "/v1/geocode", "method": "GET"}],
	"pricing": {"model": "free", "free_tier": {"quota_per_day": 1000}},
	"authentication": {"required": false},
	"agent_notes": "Create an account at the developer portal, then request an api key from the dashboard and send it in the X-Api-Key header. All endpoints are free to use with no pricing tiers or quotas."
}`

func testRouter(t *testing.T) (http.Handler, *listing.Store) {
	t.Helper()
	engine := validator.New(validator.Config{
		Probe: validator.NewProbe(2*time.Second, nil),
	})
	listings, err := listing.New(listing.Config{CacheSize: 16})
	require.NoError(t, err)
	tracker := submission.NewTracker(time.Minute, nil)
	h := NewHandlers(engine, listings, tracker, nil, nil)
	return NewRouter(h, nil), listings
}

func doJSON(t *testing.T, router http.Handler, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPing(t *testing.T) {
	router, _ := testRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/v0.3/ping", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pong")
}

func TestHealth(t *testing.T) {
	router, _ := testRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/v0.3/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp domain.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestValidateInlineManifest(t *testing.T) {
	router, _ := testRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/v0.3/validate",
		`{"manifest": `+manifestJSON+`, "source": "test-suite"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result domain.ValidationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Passed)
	assert.Equal(t, "test-suite", result.URL)
	assert.NotEmpty(t, result.Checks)
}

func TestValidateRejectsAmbiguousRequest(t *testing.T) {
	router, _ := testRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/v0.3/validate",
		`{"url": "https://api.example.com", "manifest": `+manifestJSON+`}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "not both")
}

func TestValidateRejectsEmptyRequest(t *testing.T) {
	router, _ := testRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/v0.3/validate", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateRejectsMalformedManifest(t *testing.T) {
	router, _ := testRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/v0.3/validate", `{"manifest": {"contact": 42}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLegacyRouteAlias(t *testing.T) {
	router, _ := testRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/v0.2/validate",
		`{"manifest": `+manifestJSON+`}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSubmissionLifecycle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == validator.WellKnownManifestPath {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(manifestJSON))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	router, listings := testRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v0.3/submissions", `{"url": "`+srv.URL+`"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var created domain.SubmissionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, string(submission.StatusPending), created.Status)

	// Poll until the background validation completes.
	var final domain.SubmissionResponse
	require.Eventually(t, func() bool {
		rec := doJSON(t, router, http.MethodGet, "/v0.3/submissions/"+created.ID, "")
		if rec.Code != http.StatusOK {
			return false
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &final); err != nil {
			return false
		}
		return final.Status == string(submission.StatusComplete)
	}, 5*time.Second, 50*time.Millisecond)

	require.NotNil(t, final.Result)
	assert.True(t, final.Result.Passed)

	// A passing submission becomes a runtime listing.
	assert.Equal(t, 1, listings.Count())
}

func TestSubmissionRequiresURL(t *testing.T) {
	router, _ := testRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/v0.3/submissions", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSubmissionNotFound(t *testing.T) {
	router, _ := testRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/v0.3/submissions/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListListingsEmpty(t *testing.T) {
	router, _ := testRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/v0.3/listings", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.ListingListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Listings)
	assert.Equal(t, 0, resp.Metadata.Count)
}

func TestListListingsFilters(t *testing.T) {
	router, listings := testRouter(t)
	listings.Upsert(&domain.Listing{
		ID:   "free-1",
		Name: "Free Service",
		Manifest: &domain.Manifest{
			SpecVersion:     "0.3",
			PrimaryCategory: "data",
			Pricing:         &domain.Pricing{Model: domain.PricingModelFree},
		},
	})
	listings.Upsert(&domain.Listing{
		ID:   "paid-1",
		Name: "Paid Service",
		Manifest: &domain.Manifest{
			SpecVersion:     "0.3",
			PrimaryCategory: "finance",
			Pricing:         &domain.Pricing{Model: domain.PricingModelSubscription},
		},
	})

	rec := doJSON(t, router, http.MethodGet, "/v0.3/listings?free_only=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp domain.ListingListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Listings, 1)
	assert.Equal(t, "free-1", resp.Listings[0].ID)
}

func TestGetListing(t *testing.T) {
	router, listings := testRouter(t)
	listings.Upsert(&domain.Listing{ID: "l-1", Name: "Listed", URL: "https://l1.example.com"})

	rec := doJSON(t, router, http.MethodGet, "/v0.3/listings/l-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Listed")

	rec = doJSON(t, router, http.MethodGet, "/v0.3/listings/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVersionEndpoint(t *testing.T) {
	router, _ := testRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/v0.3/version", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "version")
}
