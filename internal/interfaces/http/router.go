// internal/interfaces/http/router.go

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/internal/infrastructure/monitoring/prometheus"
	"github.com/fileready/fileready/internal/interfaces/http/handlers"
	"github.com/fileready/fileready/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and cross-cutting dependencies the
// route tree needs. Nil handlers leave their routes unmounted.
type RouterConfig struct {
	Compliance    *handlers.ComplianceHandler
	Notifications *handlers.NotificationHandler
	Jobs          *handlers.JobsHandler
	Health        *handlers.HealthHandler

	Logger  logging.Logger
	Metrics *prometheus.AppMetrics

	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
}

// NewRouter builds the route tree: public probes, the metrics endpoint, the
// tenant-scoped API, and the tenant-free admin group.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if cfg.Metrics != nil {
		r.Use(middleware.RequestMetrics(cfg.Metrics))
	}
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogging(cfg.Logger, middleware.DefaultLoggingConfig()))
	}

	if cfg.Health != nil {
		r.Get("/healthz", cfg.Health.Liveness)
		r.Get("/readyz", cfg.Health.Readiness)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Group(func(tenanted chi.Router) {
			if cfg.Logger != nil {
				tenanted.Use(middleware.RequireTenant(cfg.Logger))
			}
			registerComplianceRoutes(tenanted, cfg.Compliance)
			registerNotificationRoutes(tenanted, cfg.Notifications)
		})

		registerAdminRoutes(api, cfg.Jobs)
	})

	return r
}

func registerComplianceRoutes(r chi.Router, h *handlers.ComplianceHandler) {
	if h == nil {
		return
	}
	r.Route("/compliance", func(cr chi.Router) {
		cr.Get("/scores", h.ListScores)
		cr.Get("/clients/{clientID}/score", h.GetScore)
		cr.Get("/dashboard", h.GetDashboard)
		cr.Post("/refresh", h.TriggerRefresh)
	})
}

func registerNotificationRoutes(r chi.Router, h *handlers.NotificationHandler) {
	if h == nil {
		return
	}
	r.Route("/notifications", func(nr chi.Router) {
		nr.Get("/", h.List)
		nr.Post("/{notificationID}/read", h.MarkRead)
	})
}

func registerAdminRoutes(r chi.Router, h *handlers.JobsHandler) {
	if h == nil {
		return
	}
	r.Route("/admin", func(ar chi.Router) {
		ar.Get("/queues", h.ListQueues)
		ar.Post("/jobs", h.Trigger)

		ar.Route("/queues/{queueName}", func(qr chi.Router) {
			qr.Post("/pause", h.Pause)
			qr.Post("/resume", h.Resume)
			qr.Post("/clean", h.Clean)
			qr.Get("/jobs/{jobID}", h.GetJob)
		})
	})
}
