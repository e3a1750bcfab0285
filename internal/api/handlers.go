package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agentmanifest/registry/internal/domain"
	"github.com/agentmanifest/registry/internal/listing"
	"github.com/agentmanifest/registry/internal/submission"
	"github.com/agentmanifest/registry/internal/validator"
)

// Build information (set at compile time)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Handlers provides HTTP handlers for the API.
type Handlers struct {
	engine      *validator.Engine
	listings    *listing.Store
	submissions *submission.Tracker
	catalogInfo CatalogInfo
	logger      *slog.Logger
}

// CatalogInfo reports catalog state for the health endpoint; nil-safe when
// running in validate-only mode.
type CatalogInfo interface {
	RepoURL() string
	Branch() string
	CurrentCommit() string
}

// NewHandlers creates a handlers instance.
func NewHandlers(engine *validator.Engine, listings *listing.Store, submissions *submission.Tracker, catalogInfo CatalogInfo, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		engine:      engine,
		listings:    listings,
		submissions: submissions,
		catalogInfo: catalogInfo,
		logger:      logger,
	}
}

// Validate runs a synchronous validation of a manifest by URL or by value.
func (h *Handlers) Validate(w http.ResponseWriter, r *http.Request) {
	var req domain.ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", "Request body must be JSON")
		return
	}

	switch {
	case req.URL != "" && req.Manifest != nil:
		writeError(w, http.StatusBadRequest, "Bad Request", "Provide either url or manifest, not both")
	case req.URL != "":
		result := h.engine.ValidateURL(r.Context(), req.URL)
		writeJSON(w, http.StatusOK, result)
	case req.Manifest != nil:
		var m domain.Manifest
		if err := json.Unmarshal(req.Manifest, &m); err != nil {
			writeError(w, http.StatusBadRequest, "Bad Request", "Manifest is not parseable JSON: "+err.Error())
			return
		}
		source := req.Source
		if source == "" {
			source = "inline"
		}
		result := h.engine.ValidateManifest(r.Context(), &m, source)
		writeJSON(w, http.StatusOK, result)
	default:
		writeError(w, http.StatusBadRequest, "Bad Request", "Provide a url or a manifest to validate")
	}
}

// CreateSubmission accepts an async validation request and returns 202 with
// a submission ID for polling.
func (h *Handlers) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "Bad Request", "Request body must be JSON with a url")
		return
	}

	sub := h.submissions.Create(req.URL)

	go h.runSubmission(sub.ID, req.URL)

	writeJSON(w, http.StatusAccepted, submissionResponse(*sub))
}

// runSubmission executes one async validation. It deliberately detaches from
// the request context: the submitter polls for the outcome.
func (h *Handlers) runSubmission(id, url string) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("submission validation panicked", "id", id, "panic", rec)
			h.submissions.Complete(id, nil)
		}
	}()

	h.submissions.SetStatus(id, submission.StatusValidating)

	result := h.engine.ValidateURL(context.Background(), url)

	// Passing submissions become runtime listings; the listing exists before
	// the submission reads complete.
	if result.Passed && h.listings != nil {
		h.listings.Upsert(&domain.Listing{
			ID:          id,
			Name:        url,
			URL:         url,
			LastResult:  result,
			ValidatedAt: result.ValidatedAt,
		})
	}

	h.submissions.Complete(id, result)
}

// GetSubmission returns the state of an async validation.
func (h *Handlers) GetSubmission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "submissionID")

	sub, ok := h.submissions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found", "Submission not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, submissionResponse(sub))
}

func submissionResponse(sub submission.Submission) domain.SubmissionResponse {
	return domain.SubmissionResponse{
		ID:          sub.ID,
		URL:         sub.URL,
		Status:      string(sub.Status),
		SubmittedAt: sub.SubmittedAt.Format(time.RFC3339),
		Result:      sub.Result,
	}
}

// ListListings returns a filtered, paginated list of listings.
func (h *Handlers) ListListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := listing.Filter{
		Category:     q.Get("category"),
		FreeOnly:     q.Get("free_only") == "true",
		VerifiedOnly: q.Get("verified_only") == "true",
	}

	limit := 30
	if v := q.Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 {
			limit = l
		}
	}

	resp, err := h.listings.List(filter, q.Get("cursor"), limit)
	if err != nil {
		h.logger.Error("failed to list listings", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Service Unavailable", "Listing index not available")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetListing returns one listing with its manifest and last result.
func (h *Handlers) GetListing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "listingID")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Bad Request", "Listing ID is required")
		return
	}

	l, err := h.listings.Get(id)
	if err != nil {
		h.logger.Debug("listing not found", "id", id, "error", err)
		writeError(w, http.StatusNotFound, "Not Found", "Listing not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, domain.ListingResponse{Listing: *l})
}

// Health returns health check information.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := domain.HealthResponse{
		Status:       "ok",
		ListingCount: h.listings.Count(),
		LastSyncAt:   h.listings.LastSyncAt().Format(time.RFC3339),
		CacheStats:   h.listings.CacheStats(),
	}
	if h.catalogInfo != nil {
		resp.CatalogURL = h.catalogInfo.RepoURL()
		resp.Branch = h.catalogInfo.Branch()
		resp.CommitSHA = h.catalogInfo.CurrentCommit()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Ping returns a simple pong response.
func (h *Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.PingResponse{Pong: true})
}

// Version returns build version information.
func (h *Handlers) Version(w http.ResponseWriter, r *http.Request) {
	version := Version
	commit := GitCommit
	buildTime := BuildTime

	if info, ok := debug.ReadBuildInfo(); ok && version == "dev" {
		version = info.Main.Version
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				commit = setting.Value
			case "vcs.time":
				buildTime = setting.Value
			}
		}
	}

	writeJSON(w, http.StatusOK, domain.VersionResponse{
		Version:   version,
		GitCommit: commit,
		BuildTime: buildTime,
	})
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, title, detail string) {
	writeJSON(w, status, domain.ErrorResponse{
		Status: status,
		Title:  title,
		Detail: detail,
	})
}
