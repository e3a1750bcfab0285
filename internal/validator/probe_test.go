package validator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmanifest/registry/internal/domain"
)

func testProbe() *Probe {
	return NewProbe(2*time.Second, nil)
}

// manifestServer serves m at the well-known path and delegates everything
// else to extra.
func manifestServer(t *testing.T, m *domain.Manifest, extra http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == WellKnownManifestPath {
			w.Header().Set("Content-Type", "application/json")
			require.NoError(t, json.NewEncoder(w).Encode(m))
			return
		}
		if extra != nil {
			extra(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchManifestSuccess(t *testing.T) {
	srv := manifestServer(t, freeManifest(), nil)

	m, check := testProbe().FetchManifest(context.Background(), srv.URL)
	require.NotNil(t, m)
	assert.Equal(t, "geo-resolver", m.Name)
	assert.True(t, check.Passed)
	assert.Equal(t, domain.CheckManifestFetch, check.Name)
	assert.Equal(t, domain.SeverityInfo, check.Severity)
}

func TestFetchManifestNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	m, check := testProbe().FetchManifest(context.Background(), srv.URL)
	assert.Nil(t, m)
	assert.False(t, check.Passed)
	assert.Equal(t, domain.SeverityError, check.Severity)
	assert.Contains(t, check.Message, "404")
}

func TestFetchManifestWrongContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>not a manifest</html>"))
	}))
	t.Cleanup(srv.Close)

	m, check := testProbe().FetchManifest(context.Background(), srv.URL)
	assert.Nil(t, m)
	assert.False(t, check.Passed)
	assert.Contains(t, check.Message, "content type")
}

func TestFetchManifestUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	m, check := testProbe().FetchManifest(context.Background(), srv.URL)
	assert.Nil(t, m)
	assert.False(t, check.Passed)
	assert.Equal(t, domain.SeverityError, check.Severity)
}

func TestCheckEndpointsNoneDeclared(t *testing.T) {
	checks := testProbe().CheckEndpoints(context.Background(), "http://example.com", nil)

	require.Len(t, checks, 1)
	assert.Equal(t, domain.CheckEndpointReachability, checks[0].Name)
	assert.False(t, checks[0].Passed)
	assert.Equal(t, domain.SeverityError, checks[0].Severity)
}

func TestCheckEndpointsNoneTestable(t *testing.T) {
	endpoints := []domain.Endpoint{
		{Path: "/submit", Method: "POST"},
		{Path: "/search", Method: "GET", Parameters: []domain.Parameter{{Name: "q", Required: true}}},
	}

	checks := testProbe().CheckEndpoints(context.Background(), "http://example.com", endpoints)
	require.Len(t, checks, 1)
	assert.True(t, checks[0].Passed)
	assert.Equal(t, domain.SeverityInfo, checks[0].Severity)
	assert.Contains(t, checks[0].Message, "skipping")
}

func TestCheckEndpointsOutcomes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusOK)
		case "/teapot":
			w.WriteHeader(http.StatusTeapot)
		case "/boom":
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	t.Cleanup(srv.Close)

	endpoints := []domain.Endpoint{
		{Path: "/ok", Method: "GET"},
		{Path: "/teapot", Method: "GET"},
		{Path: "/boom", Method: "GET"},
	}

	checks := testProbe().CheckEndpoints(context.Background(), srv.URL, endpoints)
	require.Len(t, checks, 3)
	byName := checksByName(checks)

	ok := byName[domain.EndpointCheckName("GET", "/ok")]
	require.Len(t, ok, 1)
	assert.True(t, ok[0].Passed)

	// A 4xx still proves reachability.
	teapot := byName[domain.EndpointCheckName("GET", "/teapot")]
	require.Len(t, teapot, 1)
	assert.True(t, teapot[0].Passed)

	boom := byName[domain.EndpointCheckName("GET", "/boom")]
	require.Len(t, boom, 1)
	assert.False(t, boom[0].Passed)
	assert.Equal(t, domain.SeverityError, boom[0].Severity)
}

func TestCheckEndpointsTransportFaultIsWarning(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	checks := testProbe().CheckEndpoints(context.Background(), srv.URL, []domain.Endpoint{
		{Path: "/status", Method: "GET"},
	})
	require.Len(t, checks, 1)
	assert.False(t, checks[0].Passed)
	assert.Equal(t, domain.SeverityWarning, checks[0].Severity)
}

func TestCheckEndpointsCapped(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	endpoints := make([]domain.Endpoint, 5)
	for i := range endpoints {
		endpoints[i] = domain.Endpoint{Path: "/e" + string(rune('a'+i)), Method: "GET"}
	}

	checks := testProbe().CheckEndpoints(context.Background(), srv.URL, endpoints)
	assert.Len(t, checks, maxEndpointProbes)
	assert.Equal(t, maxEndpointProbes, hits)
}

func TestResolveAgainst(t *testing.T) {
	assert.Equal(t, "https://api.example.com/v1/geocode",
		resolveAgainst("https://api.example.com", "/v1/geocode"))
	assert.Equal(t, "https://api.example.com/v1/geocode",
		resolveAgainst("https://api.example.com/", "/v1/geocode"))
	// Absolute endpoint URLs pass through.
	assert.Equal(t, "https://other.example.com/status",
		resolveAgainst("https://api.example.com", "https://other.example.com/status"))
}
