// Package metrics exposes prometheus instrumentation for analyses, the
// cache, lookup sources and the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "domainlens"

// Metrics holds the collectors on a dedicated registry.
type Metrics struct {
	registry        *prometheus.Registry
	analyses        *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	sourceErrors    *prometheus.CounterVec
	lookupDuration  *prometheus.HistogramVec
	requestDuration *prometheus.HistogramVec
}

// New creates and registers all collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		analyses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analyses_total",
				Help:      "Analyses by outcome",
			},
			[]string{"outcome"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Analysis cache lookups by result",
			},
			[]string{"result"},
		),
		sourceErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_errors_total",
				Help:      "Failed source lookups by source and kind",
			},
			[]string{"source", "kind"},
		),
		lookupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "lookup_duration_seconds",
				Help:      "Time taken by upstream source lookups",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"source"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Time taken to serve HTTP requests",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"route", "method", "status"},
		),
	}
	m.registry.MustRegister(
		m.analyses,
		m.cacheLookups,
		m.sourceErrors,
		m.lookupDuration,
		m.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// AnalysisCompleted counts one finished analysis.
func (m *Metrics) AnalysisCompleted(outcome string) {
	m.analyses.WithLabelValues(outcome).Inc()
}

// CacheLookup counts a cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// SourceFailed counts a failed source lookup.
func (m *Metrics) SourceFailed(source, kind string) {
	m.sourceErrors.WithLabelValues(source, kind).Inc()
}

// LookupDuration observes how long a source lookup took.
func (m *Metrics) LookupDuration(source string, d time.Duration) {
	m.lookupDuration.WithLabelValues(source).Observe(d.Seconds())
}

// ObserveRequest observes one served HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	m.requestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
}
