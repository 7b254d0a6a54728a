// internal/interfaces/http/handlers/health_handler.go

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/pkg/types/common"
)

// probeTimeout bounds one dependency check during readiness.
const probeTimeout = 3 * time.Second

// DependencyCheck probes one backing service.
type DependencyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	checks []DependencyCheck
	logger logging.Logger
}

func NewHealthHandler(checks []DependencyCheck, log logging.Logger) *HealthHandler {
	return &HealthHandler{checks: checks, logger: log.Named("health")}
}

// Liveness answers as long as the process can serve requests.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness probes every dependency; any failure turns the response 503 so
// the instance is pulled from rotation.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	results := make([]common.ComponentHealth, 0, len(h.checks))
	ready := true

	for _, c := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		start := time.Now()
		err := c.Check(ctx)
		cancel()

		component := common.ComponentHealth{
			Name:    c.Name,
			Status:  common.HealthUp,
			Latency: time.Since(start),
		}
		if err != nil {
			ready = false
			component.Status = common.HealthDown
			component.Message = err.Error()
			h.logger.Warn("readiness probe failed",
				logging.String("component", c.Name),
				logging.Err(err))
		}
		results = append(results, component)
	}

	status := http.StatusOK
	overall := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		overall = "not_ready"
	}
	writeJSON(w, status, map[string]interface{}{
		"status":     overall,
		"components": results,
	})
}
