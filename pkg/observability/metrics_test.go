package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// TestMetricsRegistered verifies that all metrics are registered in the
// default registry without panicking.
func TestMetricsRegistered(t *testing.T) {
	expected := map[string]bool{
		"konexion_requests_total":            false,
		"konexion_request_duration_seconds":  false,
		"konexion_ws_sessions_active":        false,
		"konexion_turns_total":               false,
		"konexion_turn_duration_seconds":     false,
		"konexion_catalog_models":            false,
		"konexion_catalog_refreshes_total":   false,
	}

	// Counters and histograms only appear after the first observation,
	// so seed every metric before gathering.
	RequestsTotal.WithLabelValues("GET", "2xx", "/api/models").Inc()
	RequestDuration.WithLabelValues("GET", "/api/models").Observe(0.1)
	TurnsTotal.WithLabelValues("groq", "test", "completed").Inc()
	TurnDuration.WithLabelValues("groq", "test").Observe(0.1)
	CatalogModels.WithLabelValues("groq").Set(3)
	RefreshesTotal.WithLabelValues(RefreshOutcomeSuccess).Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("unexpected gather error: %v", err)
	}

	for _, mf := range families {
		if _, ok := expected[mf.GetName()]; ok {
			expected[mf.GetName()] = true
		}
	}

	for name, found := range expected {
		if !found {
			t.Errorf("metric %q not found in default registry", name)
		}
	}
}

// TestMiddlewareRecordsRequestCount verifies that the middleware increments
// the request counter for each served request.
func TestMiddlewareRecordsRequestCount(t *testing.T) {
	before := counterValue(t, RequestsTotal, "GET", "2xx", "/api/health")

	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	after := counterValue(t, RequestsTotal, "GET", "2xx", "/api/health")
	if after-before != 1 {
		t.Errorf("expected request count to increase by 1, got delta=%f", after-before)
	}
}

// TestMiddlewareCapturesStatusCode verifies that non-200 status codes are
// captured correctly in the status label.
func TestMiddlewareCapturesStatusCode(t *testing.T) {
	before := counterValue(t, RequestsTotal, "POST", "4xx", "/api/models/refresh")

	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	req := httptest.NewRequest("POST", "/api/models/refresh", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	after := counterValue(t, RequestsTotal, "POST", "4xx", "/api/models/refresh")
	if after-before != 1 {
		t.Errorf("expected 4xx count to increase by 1, got delta=%f", after-before)
	}
}

// TestGatewayMetricsSessionGauge verifies the session gauge tracks open
// and close events.
func TestGatewayMetricsSessionGauge(t *testing.T) {
	var gm GatewayMetrics
	baseline := gaugeValue(t, ActiveSessions)

	gm.SessionOpened()
	if got := gaugeValue(t, ActiveSessions); got != baseline+1 {
		t.Errorf("gauge after open = %f, want %f", got, baseline+1)
	}
	gm.SessionClosed()
	if got := gaugeValue(t, ActiveSessions); got != baseline {
		t.Errorf("gauge after close = %f, want %f", got, baseline)
	}
}

// TestGatewayMetricsTurnFinished verifies turn counting and duration
// observation.
func TestGatewayMetricsTurnFinished(t *testing.T) {
	var gm GatewayMetrics
	before := counterValue(t, TurnsTotal, "ollama", "llama3.2:latest", "completed")
	histBefore := histogramCount(t, TurnDuration, "ollama", "llama3.2:latest")

	gm.TurnFinished("ollama", "llama3.2:latest", "completed", 250*time.Millisecond)

	after := counterValue(t, TurnsTotal, "ollama", "llama3.2:latest", "completed")
	if after-before != 1 {
		t.Errorf("turn counter delta = %f, want 1", after-before)
	}
	histAfter := histogramCount(t, TurnDuration, "ollama", "llama3.2:latest")
	if histAfter-histBefore != 1 {
		t.Errorf("duration sample delta = %d, want 1", histAfter-histBefore)
	}

	// Rejected turns carry no meaningful duration and must not skew the
	// histogram.
	gm.TurnFinished("ollama", "llama3.2:latest", "rejected", 0)
	if got := histogramCount(t, TurnDuration, "ollama", "llama3.2:latest"); got != histAfter {
		t.Errorf("zero-duration turn observed in histogram")
	}
}

// TestRecordRefresh verifies outcome counting and catalog gauge updates.
func TestRecordRefresh(t *testing.T) {
	before := counterValue(t, RefreshesTotal, RefreshOutcomePartial)

	RecordRefresh(RefreshOutcomePartial, map[string]int{"groq": 7, "ollama": 2})

	after := counterValue(t, RefreshesTotal, RefreshOutcomePartial)
	if after-before != 1 {
		t.Errorf("refresh counter delta = %f, want 1", after-before)
	}
	if got := gaugeVecValue(t, CatalogModels, "groq"); got != 7 {
		t.Errorf("catalog gauge groq = %f, want 7", got)
	}
	if got := gaugeVecValue(t, CatalogModels, "ollama"); got != 2 {
		t.Errorf("catalog gauge ollama = %f, want 2", got)
	}
}

// TestStatusWriterFlush verifies that the statusWriter Flush method
// delegates to the underlying writer when it implements http.Flusher.
func TestStatusWriterFlush(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec, status: http.StatusOK}

	sw.Flush()

	if !rec.Flushed {
		t.Error("expected underlying writer to be flushed")
	}
}

// counterValue reads the current value of a CounterVec for the given labels.
func counterValue(t *testing.T, cv *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	c, err := cv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting counter metric: %v", err)
	}
	if err := c.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("writing counter metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

// histogramCount reads the observation count from a HistogramVec.
func histogramCount(t *testing.T, hv *prometheus.HistogramVec, labels ...string) uint64 {
	t.Helper()
	m := &dto.Metric{}
	obs, err := hv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting histogram metric: %v", err)
	}
	if err := obs.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("writing histogram metric: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

// gaugeValue reads the current value of a Gauge.
func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		t.Fatalf("writing gauge metric: %v", err)
	}
	return m.GetGauge().GetValue()
}

// gaugeVecValue reads the current value of a GaugeVec for the given labels.
func gaugeVecValue(t *testing.T, gv *prometheus.GaugeVec, labels ...string) float64 {
	t.Helper()
	g, err := gv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting gauge metric: %v", err)
	}
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		t.Fatalf("writing gauge metric: %v", err)
	}
	return m.GetGauge().GetValue()
}
