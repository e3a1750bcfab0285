package validator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agentmanifest/registry/internal/domain"
)

// WellKnownManifestPath is where providers publish their manifest.
const WellKnownManifestPath = "/.well-known/agent-manifest.json"

// DefaultProbeTimeout bounds every individual network probe.
const DefaultProbeTimeout = 8 * time.Second

// maxEndpointProbes caps how many declared endpoints get reachability-tested.
const maxEndpointProbes = 3

// maxProbeBody caps how much of a probe response body is read.
const maxProbeBody = 64 * 1024

// Probe performs bounded-timeout HTTP probing. Any network fault degrades to
// a failed check, never an unhandled fault. Safe for concurrent use.
type Probe struct {
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewProbe creates a probe with the given per-request timeout.
func NewProbe(timeout time.Duration, logger *slog.Logger) *Probe {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Probe{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		logger:  logger,
	}
}

// do issues one bounded request and returns the response, the observed
// latency, and the first kilobytes of body.
func (p *Probe) do(ctx context.Context, method, rawURL string, header http.Header) (status int, body string, latency time.Duration, err error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, "", 0, fmt.Errorf("invalid URL: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	latency = time.Since(start)
	if err != nil {
		return 0, "", latency, err
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	return resp.StatusCode, string(b), latency, nil
}

// FetchManifest GETs the well-known manifest path relative to baseURL. It
// requires HTTP 200 with a JSON content type. On any failure it returns a
// nil manifest and a descriptive error-severity check; the orchestrator
// short-circuits on a nil manifest.
func (p *Probe) FetchManifest(ctx context.Context, baseURL string) (*domain.Manifest, domain.ValidationCheck) {
	manifestURL := strings.TrimSuffix(baseURL, "/") + WellKnownManifestPath

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, manifestURL, nil)
	if err != nil {
		return nil, domain.ErrorCheck(domain.CheckManifestFetch,
			fmt.Sprintf("cannot build manifest request for %q: %v", manifestURL, err))
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, domain.ErrorCheck(domain.CheckManifestFetch,
			fmt.Sprintf("failed to fetch manifest from %s: %v", manifestURL, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.ErrorCheck(domain.CheckManifestFetch,
			fmt.Sprintf("manifest fetch from %s returned HTTP %d, expected 200", manifestURL, resp.StatusCode))
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "json") {
		return nil, domain.ErrorCheck(domain.CheckManifestFetch,
			fmt.Sprintf("manifest fetch from %s returned content type %q, expected JSON", manifestURL, ct))
	}

	var m domain.Manifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, domain.ErrorCheck(domain.CheckManifestFetch,
			fmt.Sprintf("manifest from %s is not parseable JSON: %v", manifestURL, err))
	}

	return &m, domain.InfoCheck(domain.CheckManifestFetch,
		fmt.Sprintf("fetched manifest from %s in %dms", manifestURL, time.Since(start).Milliseconds()))
}

// CheckEndpoints probes declared endpoint reachability. Only parameterless
// GET endpoints are testable; at most the first three are probed. A 5xx is
// an error, any other status is a pass (an endpoint rejecting a malformed
// call is still reachable), a transport fault is a warning.
func (p *Probe) CheckEndpoints(ctx context.Context, baseURL string, endpoints []domain.Endpoint) []domain.ValidationCheck {
	if len(endpoints) == 0 {
		return []domain.ValidationCheck{domain.ErrorCheck(domain.CheckEndpointReachability,
			"manifest declares no endpoints")}
	}

	var testable []domain.Endpoint
	for _, ep := range endpoints {
		if ep.Testable() {
			testable = append(testable, ep)
		}
	}
	if len(testable) == 0 {
		return []domain.ValidationCheck{domain.InfoCheck(domain.CheckEndpointReachability,
			fmt.Sprintf("none of the %d declared endpoints are testable without required parameters; skipping reachability probes", len(endpoints)))}
	}
	if len(testable) > maxEndpointProbes {
		testable = testable[:maxEndpointProbes]
	}

	var checks []domain.ValidationCheck
	for _, ep := range testable {
		name := domain.EndpointCheckName(ep.Method, ep.Path)
		target := resolveAgainst(baseURL, ep.Path)

		status, _, latency, err := p.do(ctx, http.MethodGet, target, nil)
		switch {
		case err != nil:
			checks = append(checks, domain.WarnCheck(name, false,
				fmt.Sprintf("probe of %s failed after %dms: %v", target, latency.Milliseconds(), err)))
		case status >= 500:
			checks = append(checks, domain.ErrorCheck(name,
				fmt.Sprintf("%s returned HTTP %d in %dms", target, status, latency.Milliseconds())))
		default:
			checks = append(checks, domain.InfoCheck(name,
				fmt.Sprintf("%s reachable, HTTP %d in %dms", target, status, latency.Milliseconds())))
		}
	}
	return checks
}

// resolveAgainst joins a declared endpoint path with the manifest's base
// URL; absolute URLs pass through untouched.
func resolveAgainst(baseURL, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return strings.TrimSuffix(baseURL, "/") + "/" + strings.TrimPrefix(path, "/")
	}
	ref, err := url.Parse(path)
	if err != nil {
		return strings.TrimSuffix(baseURL, "/") + "/" + strings.TrimPrefix(path, "/")
	}
	return base.ResolveReference(ref).String()
}
