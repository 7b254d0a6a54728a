// internal/application/jobs/handlers.go
//
// Queue handlers bridging the application services to the worker pools. A
// handler unpacks the job payload, runs the service, and returns its result
// summary, which the queue persists on the job record.

package jobs

import (
	"context"
	"time"

	"github.com/fileready/fileready/internal/application/compliance"
	"github.com/fileready/fileready/internal/application/reminder"
	domnotification "github.com/fileready/fileready/internal/domain/notification"
	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/internal/infrastructure/queue"
	"github.com/fileready/fileready/pkg/types/common"
)

// cleanBatchLimit bounds how many terminal job records one clean pass evicts.
const cleanBatchLimit = 1000

// CleanResult summarizes one housekeeping pass.
type CleanResult struct {
	CompletedRemoved int `json:"completed_removed"`
	FailedRemoved    int `json:"failed_removed"`
}

// Handlers binds the application services to queue job names.
type Handlers struct {
	refresher compliance.Refresher
	scanner   reminder.Scanner
	retention time.Duration
	logger    logging.Logger
}

// NewHandlers constructs the handler set. retention is how long terminal job
// records are kept before the housekeeping job evicts them.
func NewHandlers(
	refresher compliance.Refresher,
	scanner reminder.Scanner,
	retention time.Duration,
	log logging.Logger,
) *Handlers {
	return &Handlers{
		refresher: refresher,
		scanner:   scanner,
		retention: retention,
		logger:    log.Named("jobs"),
	}
}

// RegisterCompliance wires the compliance-queue handlers onto a worker
// consuming q.
func (h *Handlers) RegisterCompliance(w *queue.Worker, q *queue.Queue) {
	w.Register(JobComplianceRefresh, h.ComplianceRefresh)
	w.Register(JobQueueClean, h.QueueClean(q))
}

// RegisterReminder wires the reminder-queue handlers onto a worker
// consuming q.
func (h *Handlers) RegisterReminder(w *queue.Worker, q *queue.Queue) {
	w.Register(JobFilingReminder, h.ReminderScan)
	w.Register(JobExpiryCheck, h.ReminderScan)
	w.Register(JobQueueClean, h.QueueClean(q))
}

// ComplianceRefresh recomputes scores for the tenants named in the payload,
// forwarding per-tenant progress to the queue.
func (h *Handlers) ComplianceRefresh(ctx context.Context, job *queue.Job, progress func(common.Progress)) (interface{}, error) {
	p, err := decodePayload(job)
	if err != nil {
		return nil, err
	}
	res, err := h.refresher.RefreshTenants(ctx, p.TenantIDs, progress)
	if err != nil {
		return nil, err
	}
	h.logger.Info("compliance refresh finished",
		logging.String("job_id", job.ID.String()),
		logging.String("triggered_by", p.TriggeredBy),
		logging.Int("tenants", res.TenantsProcessed),
		logging.Int("clients_scored", res.ClientsScored),
		logging.Int("clients_failed", res.ClientsFailed))
	return res, nil
}

// ReminderScan runs one threshold scan. The filing-deadline and
// document-expiry jobs share this handler; the job name selects which
// entity kind the scan covers so the daily pair does not walk the same
// rows twice. An unrecognized name scans both kinds.
func (h *Handlers) ReminderScan(ctx context.Context, job *queue.Job, progress func(common.Progress)) (interface{}, error) {
	p, err := decodePayload(job)
	if err != nil {
		return nil, err
	}
	var kinds []domnotification.EntityKind
	switch job.Name {
	case JobFilingReminder:
		kinds = []domnotification.EntityKind{domnotification.EntityFiling}
	case JobExpiryCheck:
		kinds = []domnotification.EntityKind{domnotification.EntityDocument}
	}
	res, err := h.scanner.Scan(ctx, p.TenantIDs, kinds...)
	if err != nil {
		return nil, err
	}
	if progress != nil {
		progress(common.Progress{Current: res.TenantsProcessed, Total: res.TenantsProcessed})
	}
	h.logger.Info("reminder scan finished",
		logging.String("job_id", job.ID.String()),
		logging.String("triggered_by", p.TriggeredBy),
		logging.Int("tenants", res.TenantsProcessed),
		logging.Int("notifications", res.NotificationsCreated),
		logging.Int("emails", res.EmailsQueued))
	return res, nil
}

// QueueClean returns the housekeeping handler for q: it evicts completed and
// failed job records older than the retention.
func (h *Handlers) QueueClean(q *queue.Queue) queue.Handler {
	return func(ctx context.Context, job *queue.Job, _ func(common.Progress)) (interface{}, error) {
		completed, err := q.Clean(ctx, h.retention, cleanBatchLimit, queue.StateCompleted)
		if err != nil {
			return nil, err
		}
		failed, err := q.Clean(ctx, h.retention, cleanBatchLimit, queue.StateFailed)
		if err != nil {
			return nil, err
		}
		if completed+failed > 0 {
			h.logger.Info("queue cleaned",
				logging.String("queue", q.Name()),
				logging.Int("completed_removed", completed),
				logging.Int("failed_removed", failed))
		}
		return &CleanResult{CompletedRemoved: completed, FailedRemoved: failed}, nil
	}
}
