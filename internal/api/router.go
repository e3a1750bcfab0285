package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates the HTTP router with all routes configured. Logging,
// tracing and metrics wrap the whole router via middleware.Chain; the webhook
// handler is nil in validate-only mode.
func NewRouter(h *Handlers, webhook http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	if webhook != nil {
		r.Post("/webhooks/github", webhook.ServeHTTP)
	}

	r.Route("/v0.3", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/ping", h.Ping)
		r.Get("/version", h.Version)

		r.Post("/validate", h.Validate)

		r.Route("/submissions", func(r chi.Router) {
			r.Post("/", h.CreateSubmission)
			r.Get("/{submissionID}", h.GetSubmission)
		})

		r.Route("/listings", func(r chi.Router) {
			r.Get("/", h.ListListings)
			r.Get("/{listingID}", h.GetListing)
		})
	})

	// Legacy manifests still validate; the legacy route group aliases the
	// current API surface.
	r.Route("/v0.2", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/ping", h.Ping)
		r.Post("/validate", h.Validate)
	})

	return r
}
