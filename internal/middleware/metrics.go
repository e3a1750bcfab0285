package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_size_bytes",
			Help:    "HTTP request size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 6),
		},
		[]string{"method", "path"},
	)

	httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 6),
		},
		[]string{"method", "path"},
	)

	// Catalog and revalidation metrics, recorded by the sync manager.
	CatalogSyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_sync_duration_seconds",
			Help:    "Duration of catalog sync operations",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)

	CatalogSyncErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_sync_errors_total",
			Help: "Total number of catalog sync errors",
		},
	)

	ListingsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_listings_total",
			Help: "Total number of listings in the catalog",
		},
	)

	RevalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_revalidations_total",
			Help: "Total number of listing revalidations by outcome",
		},
		[]string{"outcome"},
	)
)

// Metrics returns a middleware that records Prometheus metrics.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		if r.ContentLength > 0 {
			httpRequestSize.WithLabelValues(r.Method, normalizePath(r.URL.Path)).Observe(float64(r.ContentLength))
		}

		next.ServeHTTP(ww, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(ww.Status())
		path := normalizePath(r.URL.Path)

		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
		httpResponseSize.WithLabelValues(r.Method, path).Observe(float64(ww.BytesWritten()))
	})
}

// normalizePath collapses dynamic path segments into static metric labels to
// avoid cardinality explosion.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v0.3/listings/") && path != "/v0.3/listings":
		return "/v0.3/listings/{listingID}"
	case strings.HasPrefix(path, "/v0.3/submissions/") && path != "/v0.3/submissions":
		return "/v0.3/submissions/{submissionID}"
	default:
		return path
	}
}
