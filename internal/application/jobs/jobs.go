// internal/application/jobs/jobs.go
//
// Background job names, queue names, and the shared payload contract. The
// cron scheduler and the manual HTTP/CLI triggers enqueue the same payload,
// so a job record alone tells an operator who asked for the run.

package jobs

import (
	"encoding/json"

	"github.com/fileready/fileready/internal/infrastructure/queue"
	"github.com/fileready/fileready/pkg/errors"
	"github.com/fileready/fileready/pkg/types/common"
)

// Queue names. Each gets its own worker pool with its own concurrency bound.
const (
	QueueCompliance = "compliance"
	QueueReminder   = "reminder"
)

// Job names, namespaced by queue.
const (
	// JobComplianceRefresh recomputes and persists compliance scores.
	JobComplianceRefresh = "compliance.refresh"

	// JobFilingReminder scans filing due dates against the reminder
	// thresholds and dispatches notifications.
	JobFilingReminder = "reminder.filing_deadlines"

	// JobExpiryCheck scans document expiry dates against the reminder
	// thresholds and dispatches notifications.
	JobExpiryCheck = "reminder.document_expiry"

	// JobQueueClean evicts terminal job records older than the configured
	// retention from the queue the worker consumes.
	JobQueueClean = "queue.clean"
)

// TriggeredBy values recorded on enqueued jobs.
const (
	TriggerScheduler = "scheduler"
	TriggerAPI       = "api"
	TriggerCLI       = "cli"
)

// Payload is the body of every tenant-batch job. An empty TenantIDs slice
// means every active tenant.
type Payload struct {
	TenantIDs   []common.TenantID `json:"tenant_ids,omitempty"`
	TriggeredBy string            `json:"triggered_by,omitempty"`
}

func decodePayload(job *queue.Job) (Payload, error) {
	var p Payload
	if len(job.Payload) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return p, errors.Wrapf(err, errors.ErrCodeJobPayload,
			"job %s: malformed payload", job.ID)
	}
	return p, nil
}
