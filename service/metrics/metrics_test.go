package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordUpstreamCall(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordUpstreamCall("blocks_latest", "success", 0.2)
	m.RecordUpstreamCall("blocks_latest", "success", 0.3)
	m.RecordUpstreamCall("blocks_latest", "not_found", 0.1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.upstreamCallsTotal.WithLabelValues("blocks_latest", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.upstreamCallsTotal.WithLabelValues("blocks_latest", "not_found")))
}

func TestAggregationCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordBlockTransactionsDropped(3)
	m.RecordAddressDegraded("utxos")
	m.RecordSearch("transaction", "success")
	m.RecordRateLimitHit("txs")

	assert.Equal(t, 3.0, testutil.ToFloat64(m.blockTransactionsDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.addressDegradedTotal.WithLabelValues("utxos")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.searchesTotal.WithLabelValues("transaction", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.upstreamRateLimitHits.WithLabelValues("txs")))
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	handler := HTTPMetricsMiddleware(m, "/blocks/:id")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/blocks/42", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/blocks/:id", "GET", "4xx")))
}

func TestStatusCodeToString(t *testing.T) {
	assert.Equal(t, "2xx", statusCodeToString(200))
	assert.Equal(t, "4xx", statusCodeToString(429))
	assert.Equal(t, "5xx", statusCodeToString(502))
	assert.Equal(t, "unknown", statusCodeToString(0))
}

func TestStatusRecorder(t *testing.T) {
	rec := NewStatusRecorder(httptest.NewRecorder())
	assert.Equal(t, http.StatusOK, rec.Status())

	// Nested middleware shares one recorder.
	assert.Same(t, rec, NewStatusRecorder(rec))

	rec.WriteHeader(http.StatusTeapot)
	assert.Equal(t, http.StatusTeapot, rec.Status())
}

func TestHTTPMetricsMiddleware_NilMetrics(t *testing.T) {
	called := false
	handler := HTTPMetricsMiddleware(nil, "/health")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.True(t, called)
}
