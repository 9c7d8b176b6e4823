package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbckr/domainlens/internal/metrics"
)

func TestMetrics_Counters(t *testing.T) {
	m := metrics.New()

	m.AnalysisCompleted("complete")
	m.AnalysisCompleted("complete")
	m.AnalysisCompleted("partial")
	m.CacheLookup(true)
	m.CacheLookup(false)
	m.CacheLookup(false)
	m.SourceFailed("fingerprint", "rate_limited")

	expected := `
# HELP domainlens_analyses_total Analyses by outcome
# TYPE domainlens_analyses_total counter
domainlens_analyses_total{outcome="complete"} 2
domainlens_analyses_total{outcome="partial"} 1
# HELP domainlens_cache_lookups_total Analysis cache lookups by result
# TYPE domainlens_cache_lookups_total counter
domainlens_cache_lookups_total{result="hit"} 1
domainlens_cache_lookups_total{result="miss"} 2
# HELP domainlens_source_errors_total Failed source lookups by source and kind
# TYPE domainlens_source_errors_total counter
domainlens_source_errors_total{kind="rate_limited",source="fingerprint"} 1
`
	err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"domainlens_analyses_total", "domainlens_cache_lookups_total", "domainlens_source_errors_total")
	require.NoError(t, err)
}

func TestMetrics_Histograms(t *testing.T) {
	m := metrics.New()
	m.LookupDuration("mx", 30*time.Millisecond)
	m.ObserveRequest("/analyze", http.MethodGet, http.StatusOK, 120*time.Millisecond)

	n, err := testutil.GatherAndCount(m.Registry(),
		"domainlens_lookup_duration_seconds", "domainlens_http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMetrics_Handler(t *testing.T) {
	m := metrics.New()
	m.AnalysisCompleted("cached")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `domainlens_analyses_total{outcome="cached"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
