// internal/interfaces/http/handlers/compliance_handler.go
//
// Read side of compliance: persisted scores and the tenant dashboard.
// Recalculation is asynchronous; the POST endpoint enqueues a refresh job
// and answers 202 with the job id.

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	appcompliance "github.com/fileready/fileready/internal/application/compliance"
	"github.com/fileready/fileready/internal/application/jobs"
	domcompliance "github.com/fileready/fileready/internal/domain/compliance"
	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/internal/infrastructure/queue"
	"github.com/fileready/fileready/internal/interfaces/http/middleware"
	"github.com/fileready/fileready/pkg/types/common"
)

type ComplianceHandler struct {
	scores          domcompliance.ScoreRepository
	summary         appcompliance.SummaryService
	complianceQueue *queue.Queue
	logger          logging.Logger
}

func NewComplianceHandler(
	scores domcompliance.ScoreRepository,
	summary appcompliance.SummaryService,
	complianceQueue *queue.Queue,
	log logging.Logger,
) *ComplianceHandler {
	return &ComplianceHandler{
		scores:          scores,
		summary:         summary,
		complianceQueue: complianceQueue,
		logger:          log.Named("compliance_handler"),
	}
}

// GetScore returns one client's persisted compliance score.
func (h *ComplianceHandler) GetScore(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := middleware.TenantFromContext(r.Context())
	clientID := common.ID(chi.URLParam(r, "clientID"))

	score, err := h.scores.Get(r.Context(), tenantID, clientID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, score)
}

// ListScores returns every persisted score for the tenant.
func (h *ComplianceHandler) ListScores(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := middleware.TenantFromContext(r.Context())

	scores, err := h.scores.ListByTenant(r.Context(), tenantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, scores)
}

// GetDashboard returns the tenant-level posture summary.
func (h *ComplianceHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := middleware.TenantFromContext(r.Context())

	dashboard, err := h.summary.GetDashboard(r.Context(), tenantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, dashboard)
}

// refreshAccepted is the 202 body of a refresh trigger.
type refreshAccepted struct {
	JobID common.ID `json:"job_id"`
	Queue string    `json:"queue"`
	State string    `json:"state"`
}

// TriggerRefresh enqueues an on-demand score refresh for the caller's tenant.
func (h *ComplianceHandler) TriggerRefresh(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := middleware.TenantFromContext(r.Context())

	payload := jobs.Payload{
		TenantIDs:   []common.TenantID{tenantID},
		TriggeredBy: jobs.TriggerAPI,
	}
	job, err := h.complianceQueue.Enqueue(r.Context(), jobs.JobComplianceRefresh, payload,
		queue.WithTriggeredBy(jobs.TriggerAPI))
	if err != nil {
		h.logger.Error("refresh enqueue failed", logging.String("tenant_id", tenantID.String()), logging.Err(err))
		writeError(w, r, err)
		return
	}

	writeData(w, r, http.StatusAccepted, refreshAccepted{
		JobID: job.ID,
		Queue: job.Queue,
		State: string(job.State),
	})
}
