// internal/infrastructure/queue/job.go
//
// Job model for the Redis-backed queue. A job's payload is immutable once
// enqueued; state transitions and bookkeeping fields are rewritten by the
// queue as the job moves between sets.

package queue

import (
	"encoding/json"
	"time"

	"github.com/fileready/fileready/pkg/types/common"
)

// State is a job's position in its lifecycle.
type State string

const (
	StateWaiting   State = "waiting"
	StateDelayed   State = "delayed"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Job is one unit of queued work.
type Job struct {
	ID       common.ID       `json:"id"`
	Queue    string          `json:"queue"`
	Name     string          `json:"name"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Priority int             `json:"priority,omitempty"`

	State       State `json:"state"`
	Attempts    int   `json:"attempts"`
	MaxAttempts int   `json:"max_attempts"`

	// Progress is updated by the handler while iterating tenants so
	// long-running scans are observable mid-flight.
	Progress *common.Progress `json:"progress,omitempty"`

	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	ReadyAt     time.Time  `json:"ready_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	TriggeredBy string     `json:"triggered_by,omitempty"`
}

// Terminal reports whether the job has reached a final state.
func (j *Job) Terminal() bool {
	return j.State == StateCompleted || j.State == StateFailed
}

// EnqueueOptions tune a single enqueue call.
type EnqueueOptions struct {
	// Priority pushes the job ahead of already-waiting work when > 0.
	Priority int

	// Delay holds the job in the delayed set until it elapses.
	Delay time.Duration

	// MaxAttempts overrides the queue's configured attempt budget.
	MaxAttempts int

	// TriggeredBy records who or what enqueued the job ("scheduler",
	// a user id, "cli").
	TriggeredBy string
}

// EnqueueOption mutates EnqueueOptions.
type EnqueueOption func(*EnqueueOptions)

func WithPriority(p int) EnqueueOption {
	return func(o *EnqueueOptions) { o.Priority = p }
}

func WithDelay(d time.Duration) EnqueueOption {
	return func(o *EnqueueOptions) { o.Delay = d }
}

func WithMaxAttempts(n int) EnqueueOption {
	return func(o *EnqueueOptions) { o.MaxAttempts = n }
}

func WithTriggeredBy(by string) EnqueueOption {
	return func(o *EnqueueOptions) { o.TriggeredBy = by }
}

// JobCounts is the per-queue state census exposed on the admin surface.
type JobCounts struct {
	Waiting   int64 `json:"waiting"`
	Delayed   int64 `json:"delayed"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Paused    bool  `json:"paused"`
}
