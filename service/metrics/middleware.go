package metrics

import (
	"net/http"
	"time"
)

// HTTPMetricsMiddleware records request count and latency under route,
// which must be the route pattern (e.g. "/blocks/:id") rather than the raw
// path so label cardinality stays bounded. A nil m records nothing.
func HTTPMetricsMiddleware(m *Metrics, route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := NewStatusRecorder(w)

			next.ServeHTTP(rec, r)

			m.RecordHTTPRequest(route, r.Method, rec.Status(), time.Since(start).Seconds())
		})
	}
}

// StatusRecorder is an http.ResponseWriter that remembers the status code
// written through it. Handlers that never call WriteHeader report 200.
type StatusRecorder struct {
	http.ResponseWriter
	status int
}

// NewStatusRecorder wraps w. If w is already a *StatusRecorder it is
// returned as is.
func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	if rec, ok := w.(*StatusRecorder); ok {
		return rec
	}
	return &StatusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (r *StatusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Status returns the recorded status code.
func (r *StatusRecorder) Status() int {
	return r.status
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (r *StatusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
