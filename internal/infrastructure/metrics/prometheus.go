// Package metrics exposes Prometheus counters for rate fetching, conversions,
// portal submissions and HTTP requests.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/recibos/taxbot/internal/domain/shared"
)

// Prometheus metric names (without namespace).
const (
	MetricRateFetchesTotal          = "rate_fetches_total"
	MetricRateFetchBytesTotal       = "rate_fetch_bytes_total"
	MetricRateCacheHitsTotal        = "rate_cache_hits_total"
	MetricConversionsTotal          = "conversions_total"
	MetricSubmissionsTotal          = "submissions_total"
	MetricSubmissionDurationSeconds = "submission_duration_seconds"
	MetricHTTPRequestsTotal         = "http_requests_total"
	MetricHTTPDurationSeconds       = "http_request_duration_seconds"
)

// Result label values
const (
	ResultOK = "ok"
)

// Config holds configuration for the metrics registry.
type Config struct {
	// Namespace prefixes every metric. Default: "taxbot"
	Namespace string

	// HistogramBuckets are the buckets for duration histograms.
	// Default: prometheus.DefBuckets
	HistogramBuckets []float64

	// GoCollector registers Go runtime and process collectors.
	GoCollector bool
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		Namespace:        "taxbot",
		HistogramBuckets: prometheus.DefBuckets,
		GoCollector:      true,
	}
}

// Metrics owns a private Prometheus registry.
// A nil *Metrics is valid and records nothing.
//
// Thread Safety: Safe for concurrent use by multiple goroutines.
type Metrics struct {
	config   Config
	registry *prometheus.Registry

	rateFetches        *prometheus.CounterVec
	rateFetchBytes     prometheus.Counter
	rateCacheHits      prometheus.Counter
	conversions        *prometheus.CounterVec
	submissions        *prometheus.CounterVec
	submissionDuration prometheus.Histogram
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// New creates the metrics and registers them in a new registry.
func New(config Config) *Metrics {
	if config.Namespace == "" {
		config.Namespace = "taxbot"
	}
	if len(config.HistogramBuckets) == 0 {
		config.HistogramBuckets = prometheus.DefBuckets
	}

	m := &Metrics{
		config:   config,
		registry: prometheus.NewRegistry(),
	}
	m.initMetrics()
	return m
}

func (m *Metrics) initMetrics() {
	ns := m.config.Namespace

	m.rateFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      MetricRateFetchesTotal,
			Help:      "Downloads of the exchange rate dataset, by result.",
		},
		[]string{"result"},
	)
	m.rateFetchBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      MetricRateFetchBytesTotal,
			Help:      "Bytes of exchange rate data written to the daily cache.",
		},
	)
	m.rateCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      MetricRateCacheHitsTotal,
			Help:      "Lookups served from an existing daily cache file.",
		},
	)
	m.conversions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      MetricConversionsTotal,
			Help:      "Currency conversions, by currency pair and result.",
		},
		[]string{"from", "to", "result"},
	)
	m.submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      MetricSubmissionsTotal,
			Help:      "Invoice submission runs, by final status.",
		},
		[]string{"status"},
	)
	m.submissionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      MetricSubmissionDurationSeconds,
			Help:      "Wall time of a submission run including login.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)
	m.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      MetricHTTPRequestsTotal,
			Help:      "HTTP requests served, by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)
	m.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      MetricHTTPDurationSeconds,
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   m.config.HistogramBuckets,
		},
		[]string{"route"},
	)

	m.registry.MustRegister(
		m.rateFetches,
		m.rateFetchBytes,
		m.rateCacheHits,
		m.conversions,
		m.submissions,
		m.submissionDuration,
		m.httpRequests,
		m.httpDuration,
	)
	if m.config.GoCollector {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
}

// RecordRateFetch records one download of the rate dataset.
func (m *Metrics) RecordRateFetch(err error, size int) {
	if m == nil {
		return
	}
	m.rateFetches.WithLabelValues(ResultLabel(err)).Inc()
	if err == nil {
		m.rateFetchBytes.Add(float64(size))
	}
}

// RecordCacheHit records a lookup served from an existing cache file.
func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.rateCacheHits.Inc()
}

// RecordConversion records one Convert call.
func (m *Metrics) RecordConversion(from, to string, err error) {
	if m == nil {
		return
	}
	m.conversions.WithLabelValues(from, to, ResultLabel(err)).Inc()
}

// RecordSubmission records the outcome of one submission run.
func (m *Metrics) RecordSubmission(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(status).Inc()
	m.submissionDuration.Observe(elapsed.Seconds())
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Gather collects all metric families from the registry.
func (m *Metrics) Gather() ([]*dto.MetricFamily, error) {
	return m.registry.Gather()
}

// ResultLabel maps an error to a low-cardinality label: "ok" for nil,
// the lower-cased DomainError code, or "error".
func ResultLabel(err error) string {
	if err == nil {
		return ResultOK
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) && domainErr.Code != "" {
		return strings.ToLower(domainErr.Code)
	}
	return "error"
}
