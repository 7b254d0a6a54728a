// internal/interfaces/http/middleware/metrics.go

package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fileready/fileready/internal/infrastructure/monitoring/prometheus"
)

// RequestMetrics observes request counts and latency. The path label is the
// chi route pattern, not the raw URL, so identifiers never inflate the label
// cardinality.
func RequestMetrics(metrics *prometheus.AppMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			metrics.HTTPActiveRequests.WithLabelValues(r.Method).Inc()
			defer metrics.HTTPActiveRequests.WithLabelValues(r.Method).Dec()

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(sw, r)

			path := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					path = pattern
				}
			}
			metrics.RecordHTTPRequest(r.Method, path, sw.status, time.Since(start))
		})
	}
}
