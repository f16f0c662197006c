package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/recibos/taxbot/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findFamily(t *testing.T, m *Metrics, name string) *dto.MetricFamily {
	t.Helper()
	families, err := m.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric family %s not found", name)
	return nil
}

func labelsOf(metric *dto.Metric) map[string]string {
	labels := make(map[string]string)
	for _, lp := range metric.GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}
	return labels
}

func TestNew(t *testing.T) {
	t.Run("default config", func(t *testing.T) {
		m := New(Config{})

		assert.Equal(t, "taxbot", m.config.Namespace)
		assert.Equal(t, prometheus.DefBuckets, m.config.HistogramBuckets)
		assert.NotNil(t, m.Registry())
	})

	t.Run("default config helper", func(t *testing.T) {
		cfg := DefaultConfig()

		assert.Equal(t, "taxbot", cfg.Namespace)
		assert.True(t, cfg.GoCollector)
	})
}

func TestMetrics_RecordRateFetch(t *testing.T) {
	m := New(Config{Namespace: "test"})

	m.RecordRateFetch(nil, 1024)
	m.RecordRateFetch(shared.NewNetworkError("status 503", nil), 0)

	mf := findFamily(t, m, "test_rate_fetches_total")
	require.Len(t, mf.GetMetric(), 2)
	for _, metric := range mf.GetMetric() {
		result := labelsOf(metric)["result"]
		assert.Contains(t, []string{"ok", "network"}, result)
		assert.Equal(t, 1.0, metric.GetCounter().GetValue())
	}

	bytes := findFamily(t, m, "test_rate_fetch_bytes_total")
	assert.Equal(t, 1024.0, bytes.GetMetric()[0].GetCounter().GetValue())
}

func TestMetrics_RecordConversion(t *testing.T) {
	m := New(Config{Namespace: "test"})

	m.RecordConversion("USD", "EUR", nil)
	m.RecordConversion("USD", "EUR", nil)
	m.RecordConversion("USD", "EUR", shared.NewRateNotFoundError("no rate", nil))

	mf := findFamily(t, m, "test_conversions_total")
	values := make(map[string]float64)
	for _, metric := range mf.GetMetric() {
		labels := labelsOf(metric)
		assert.Equal(t, "USD", labels["from"])
		assert.Equal(t, "EUR", labels["to"])
		values[labels["result"]] = metric.GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{"ok": 2, "rate_not_found": 1}, values)
}

func TestMetrics_RecordSubmissionAndHTTP(t *testing.T) {
	m := New(Config{Namespace: "test"})

	m.RecordSubmission("submitted", 12*time.Second)
	m.RecordHTTPRequest(http.MethodPost, "/start-automation", http.StatusOK, 50*time.Millisecond)
	m.RecordHTTPRequest(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	sub := findFamily(t, m, "test_submissions_total")
	assert.Equal(t, "submitted", labelsOf(sub.GetMetric()[0])["status"])

	dur := findFamily(t, m, "test_submission_duration_seconds")
	assert.Equal(t, uint64(1), dur.GetMetric()[0].GetHistogram().GetSampleCount())

	reqs := findFamily(t, m, "test_http_requests_total")
	routes := make(map[string]string)
	for _, metric := range reqs.GetMetric() {
		labels := labelsOf(metric)
		routes[labels["route"]] = labels["status"]
	}
	assert.Equal(t, map[string]string{"/start-automation": "200", "unmatched": "404"}, routes)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordRateFetch(nil, 10)
		m.RecordCacheHit()
		m.RecordConversion("USD", "EUR", nil)
		m.RecordSubmission("submitted", time.Second)
		m.RecordHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Second)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics_Handler(t *testing.T) {
	m := New(Config{Namespace: "test"})
	m.RecordCacheHit()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "test_rate_cache_hits_total 1")
}

func TestResultLabel(t *testing.T) {
	assert.Equal(t, "ok", ResultLabel(nil))
	assert.Equal(t, "validation", ResultLabel(shared.NewValidationError("amount", "is required")))
	assert.Equal(t, "automation", ResultLabel(shared.NewAutomationError("no button", errors.New("x"))))
	assert.Equal(t, "error", ResultLabel(errors.New("plain")))
}
