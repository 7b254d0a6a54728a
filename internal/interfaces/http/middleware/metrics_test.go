package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/internal/infrastructure/monitoring/prometheus"
)

func TestRequestMetricsUsesRoutePattern(t *testing.T) {
	collector, err := prometheus.NewCollector(prometheus.CollectorConfig{Namespace: "fileready", Subsystem: "test"}, logging.NewNopLogger())
	require.NoError(t, err)
	metrics := prometheus.NewAppMetrics(collector)

	r := chi.NewRouter()
	r.Use(RequestMetrics(metrics))
	r.Get("/clients/{clientID}/score", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, target := range []string{"/clients/c1/score", "/clients/c2/score"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	scrape := httptest.NewRecorder()
	collector.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := scrape.Body.String()

	// Both requests collapse onto the route pattern label.
	assert.Contains(t, body, `fileready_test_http_requests_total{method="GET",path="/clients/{clientID}/score",status_code="200"} 2`)
	assert.NotContains(t, body, "/clients/c1/score")
	assert.Contains(t, body, `fileready_test_http_active_requests{method="GET"} 0`)
}
