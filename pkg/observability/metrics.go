// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the konexion gateway.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method, status class, and path.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "konexion_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "path"},
	)

	// RequestDuration records HTTP request duration in seconds by method and path.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "konexion_request_duration_seconds",
			Help:    "Request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// ActiveSessions tracks the number of open websocket chat sessions.
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "konexion_ws_sessions_active",
			Help: "Active websocket chat sessions",
		},
	)

	// TurnsTotal counts chat turns by provider, model, and outcome.
	TurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "konexion_turns_total",
			Help: "Chat turns",
		},
		[]string{"provider", "model", "status"},
	)

	// TurnDuration records end-to-end turn duration in seconds.
	TurnDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "konexion_turn_duration_seconds",
			Help:    "Turn duration",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "model"},
	)

	// CatalogModels tracks the number of models in the current catalog
	// snapshot, per provider.
	CatalogModels = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "konexion_catalog_models",
			Help: "Models in the current catalog snapshot",
		},
		[]string{"provider"},
	)

	// RefreshesTotal counts catalog refresh attempts by outcome.
	RefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "konexion_catalog_refreshes_total",
			Help: "Catalog refreshes",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		ActiveSessions,
		TurnsTotal,
		TurnDuration,
		CatalogModels,
		RefreshesTotal,
	)
}

// Refresh outcome labels.
const (
	RefreshOutcomeSuccess = "success"
	RefreshOutcomePartial = "partial"
	RefreshOutcomeFailed  = "failed"
)

// RecordRefresh notes one catalog refresh outcome and updates the
// per-provider catalog size gauges.
func RecordRefresh(outcome string, counts map[string]int) {
	RefreshesTotal.WithLabelValues(outcome).Inc()
	for provider, n := range counts {
		CatalogModels.WithLabelValues(provider).Set(float64(n))
	}
}

// GatewayMetrics feeds gateway session and turn events into the
// Prometheus collectors. It satisfies the gateway's Metrics interface.
type GatewayMetrics struct{}

func (GatewayMetrics) SessionOpened() { ActiveSessions.Inc() }
func (GatewayMetrics) SessionClosed() { ActiveSessions.Dec() }

func (GatewayMetrics) TurnFinished(provider, model, status string, elapsed time.Duration) {
	TurnsTotal.WithLabelValues(provider, model, status).Inc()
	if elapsed > 0 {
		TurnDuration.WithLabelValues(provider, model).Observe(elapsed.Seconds())
	}
}
