package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Upstream provider metrics
	upstreamCallsTotal    *prometheus.CounterVec
	upstreamCallDuration  *prometheus.HistogramVec
	upstreamRateLimitHits *prometheus.CounterVec
	upstreamThrottleWait  prometheus.Histogram

	// Aggregation metrics
	blockTransactionsDropped prometheus.Counter
	addressDegradedTotal     *prometheus.CounterVec
	searchesTotal            *prometheus.CounterVec

	// HTTP metrics
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		upstreamCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upstream_calls_total",
				Help: "Total number of block-data provider calls by endpoint and outcome",
			},
			[]string{"endpoint", "status"},
		),
		upstreamCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "upstream_call_duration_seconds",
				Help:    "Duration of block-data provider calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"endpoint"},
		),
		upstreamRateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upstream_rate_limit_hits_total",
				Help: "Total number of 429 responses from the block-data provider",
			},
			[]string{"endpoint"},
		),
		upstreamThrottleWait: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "upstream_throttle_wait_seconds",
				Help:    "Time spent waiting on the client-side upstream rate limiter",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
		),

		blockTransactionsDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "block_transactions_dropped_total",
				Help: "Transactions omitted from block transaction lists because their lookups failed",
			},
		),
		addressDegradedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "address_degraded_total",
				Help: "Address responses served with an empty section after a secondary lookup failed",
			},
			[]string{"part"},
		),
		searchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "searches_total",
				Help: "Total number of searches by resolved entity type and outcome",
			},
			[]string{"type", "status"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),
	}
}

// Upstream metric helpers

// RecordUpstreamCall records a provider call with duration.
func (m *Metrics) RecordUpstreamCall(endpoint, status string, duration float64) {
	m.upstreamCallsTotal.WithLabelValues(endpoint, status).Inc()
	m.upstreamCallDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordRateLimitHit records a rate limit hit (429 error).
func (m *Metrics) RecordRateLimitHit(endpoint string) {
	m.upstreamRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordThrottleWait records time spent blocked on the local limiter.
func (m *Metrics) RecordThrottleWait(duration float64) {
	m.upstreamThrottleWait.Observe(duration)
}

// Aggregation metric helpers

// RecordBlockTransactionsDropped records transactions left out of a block listing.
func (m *Metrics) RecordBlockTransactionsDropped(count int) {
	m.blockTransactionsDropped.Add(float64(count))
}

// RecordAddressDegraded records an address response missing one section.
func (m *Metrics) RecordAddressDegraded(part string) {
	m.addressDegradedTotal.WithLabelValues(part).Inc()
}

// RecordSearch records a search outcome.
func (m *Metrics) RecordSearch(resultType, status string) {
	m.searchesTotal.WithLabelValues(resultType, status).Inc()
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// Helper functions

func statusCodeToString(code int) string {
	// Group status codes by class
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
