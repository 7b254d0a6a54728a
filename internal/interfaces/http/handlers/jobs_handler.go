// internal/interfaces/http/handlers/jobs_handler.go
//
// Queue administration: depth inspection, pause/resume, manual triggers, and
// eviction of old finished jobs. Mounted outside the tenant-scoped group;
// these endpoints operate across all tenants.

package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fileready/fileready/internal/application/jobs"
	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/internal/infrastructure/queue"
	"github.com/fileready/fileready/pkg/errors"
	"github.com/fileready/fileready/pkg/types/common"
)

// cleanLimit bounds one manual eviction pass.
const cleanLimit = 1000

type JobsHandler struct {
	queues    map[string]*queue.Queue
	retention time.Duration
	logger    logging.Logger
}

func NewJobsHandler(queues map[string]*queue.Queue, retention time.Duration, log logging.Logger) *JobsHandler {
	return &JobsHandler{queues: queues, retention: retention, logger: log.Named("jobs_handler")}
}

func (h *JobsHandler) queueFromURL(r *http.Request) (*queue.Queue, error) {
	name := chi.URLParam(r, "queueName")
	q, ok := h.queues[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeNotFound, "unknown queue %q", name)
	}
	return q, nil
}

// ListQueues reports per-state depths for every queue.
func (h *JobsHandler) ListQueues(w http.ResponseWriter, r *http.Request) {
	counts := make(map[string]*queue.JobCounts, len(h.queues))
	for name, q := range h.queues {
		c, err := q.Counts(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		counts[name] = c
	}
	writeData(w, r, http.StatusOK, counts)
}

// GetJob returns one job record, including progress and result.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	q, err := h.queueFromURL(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	job, err := q.GetJob(r.Context(), common.ID(chi.URLParam(r, "jobID")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, job)
}

// Pause stops dequeueing; already-running jobs finish.
func (h *JobsHandler) Pause(w http.ResponseWriter, r *http.Request) {
	q, err := h.queueFromURL(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := q.Pause(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	h.logger.Info("queue paused", logging.String("queue", q.Name()))
	writeData(w, r, http.StatusOK, map[string]string{"queue": q.Name(), "status": "paused"})
}

// Resume reopens a paused queue.
func (h *JobsHandler) Resume(w http.ResponseWriter, r *http.Request) {
	q, err := h.queueFromURL(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := q.Resume(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	h.logger.Info("queue resumed", logging.String("queue", q.Name()))
	writeData(w, r, http.StatusOK, map[string]string{"queue": q.Name(), "status": "resumed"})
}

type cleanRequest struct {
	// Age is a Go duration string; finished jobs older than it are evicted.
	// Empty means the configured retention.
	Age string `json:"age,omitempty"`

	// State is "completed" or "failed"; empty cleans both.
	State string `json:"state,omitempty"`
}

// Clean evicts old finished job records.
func (h *JobsHandler) Clean(w http.ResponseWriter, r *http.Request) {
	q, err := h.queueFromURL(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	req := cleanRequest{}
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}

	age := h.retention
	if req.Age != "" {
		age, err = time.ParseDuration(req.Age)
		if err != nil || age < 0 {
			writeError(w, r, errors.Newf(errors.ErrCodeValidation, "bad age %q", req.Age))
			return
		}
	}

	states := []queue.State{queue.StateCompleted, queue.StateFailed}
	switch req.State {
	case "":
	case string(queue.StateCompleted):
		states = states[:1]
	case string(queue.StateFailed):
		states = states[1:]
	default:
		writeError(w, r, errors.Newf(errors.ErrCodeValidation, "bad state %q", req.State))
		return
	}

	removed := make(map[string]int, len(states))
	for _, state := range states {
		n, err := q.Clean(r.Context(), age, cleanLimit, state)
		if err != nil {
			writeError(w, r, err)
			return
		}
		removed[string(state)] = n
	}
	writeData(w, r, http.StatusOK, map[string]interface{}{"queue": q.Name(), "removed": removed})
}

type triggerRequest struct {
	Name      string            `json:"name"`
	TenantIDs []common.TenantID `json:"tenant_ids,omitempty"`

	// Queue overrides routing for job names that run on more than one
	// queue; normally derived from the name prefix.
	Queue string `json:"queue,omitempty"`
}

// Trigger enqueues one job by name, routed to its queue by name prefix.
func (h *JobsHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Name == "" {
		writeError(w, r, errors.New(errors.ErrCodeValidation, "job name required"))
		return
	}

	queueName := req.Queue
	if queueName == "" {
		queueName = strings.SplitN(req.Name, ".", 2)[0]
	}
	q, ok := h.queues[queueName]
	if !ok {
		writeError(w, r, errors.Newf(errors.ErrCodeValidation, "no queue for job %q", req.Name))
		return
	}

	payload := jobs.Payload{TenantIDs: req.TenantIDs, TriggeredBy: jobs.TriggerAPI}
	job, err := q.Enqueue(r.Context(), req.Name, payload, queue.WithTriggeredBy(jobs.TriggerAPI))
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.logger.Info("job triggered",
		logging.String("queue", q.Name()),
		logging.String("name", req.Name),
		logging.String("job_id", job.ID.String()))
	writeData(w, r, http.StatusAccepted, job)
}
