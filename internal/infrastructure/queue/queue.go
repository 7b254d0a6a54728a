// internal/infrastructure/queue/queue.go
//
// Redis-backed job queue. Waiting jobs live in a list, delayed and finished
// jobs in sorted sets scored by time, and the job body in a per-job key.
// Queues are explicitly constructed and injected; there is no package-level
// queue state.

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/fileready/fileready/internal/config"
	"github.com/fileready/fileready/internal/infrastructure/database/redis"
	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/pkg/errors"
	"github.com/fileready/fileready/pkg/types/common"
)

// jobDataTTL keeps job bodies around long enough for Clean to govern their
// lifetime rather than Redis expiry racing it.
const jobDataTTL = 7 * 24 * time.Hour

// Queue is one named job queue.
type Queue struct {
	name   string
	client *redis.Client
	cfg    config.QueueConfig
	logger logging.Logger
	now    func() time.Time
}

// NewQueue constructs a queue. The now function is injectable for
// deterministic tests; pass nil for time.Now.
func NewQueue(name string, client *redis.Client, cfg config.QueueConfig, log logging.Logger, now func() time.Time) *Queue {
	if now == nil {
		now = time.Now
	}
	return &Queue{
		name:   name,
		client: client,
		cfg:    cfg,
		logger: log.Named("queue." + name),
		now:    now,
	}
}

func (q *Queue) Name() string { return q.name }

func (q *Queue) key(suffix string) string {
	return "fileready:queue:" + q.name + ":" + suffix
}

func (q *Queue) jobKey(id common.ID) string {
	return q.key("job:" + string(id))
}

// Enqueue adds a job. Delayed jobs park in the delayed set until ready;
// priority jobs are pushed to the consuming end of the waiting list.
func (q *Queue) Enqueue(ctx context.Context, name string, payload interface{}, opts ...EnqueueOption) (*Job, error) {
	o := EnqueueOptions{MaxAttempts: q.cfg.MaxAttempts}
	for _, opt := range opts {
		opt(&o)
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 1
	}

	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeJobPayload, "failed to encode job payload")
		}
		raw = data
	}

	now := q.now()
	job := &Job{
		ID:          common.NewID(),
		Queue:       q.name,
		Name:        name,
		Payload:     raw,
		Priority:    o.Priority,
		State:       StateWaiting,
		MaxAttempts: o.MaxAttempts,
		CreatedAt:   now,
		ReadyAt:     now.Add(o.Delay),
		TriggeredBy: o.TriggeredBy,
	}

	if o.Delay > 0 {
		job.State = StateDelayed
	}
	if err := q.saveJob(ctx, job); err != nil {
		return nil, err
	}

	if o.Delay > 0 {
		err := q.client.ZAdd(ctx, q.key("delayed"), goredis.Z{
			Score:  float64(job.ReadyAt.UnixMilli()),
			Member: string(job.ID),
		}).Err()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeQueueError, "failed to delay job")
		}
		return job, nil
	}

	if err := q.pushWaiting(ctx, job); err != nil {
		return nil, err
	}
	q.logger.Debug("job enqueued",
		logging.String("job_id", string(job.ID)),
		logging.String("job_name", name),
	)
	return job, nil
}

func (q *Queue) pushWaiting(ctx context.Context, job *Job) error {
	var err error
	if job.Priority > 0 {
		err = q.client.RPush(ctx, q.key("waiting"), string(job.ID)).Err()
	} else {
		err = q.client.LPush(ctx, q.key("waiting"), string(job.ID)).Err()
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeQueueError, "failed to push job")
	}
	return nil
}

// Dequeue moves the oldest waiting job to the active list and returns it.
// Returns (nil, nil) when the queue is empty or paused.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	paused, err := q.IsPaused(ctx)
	if err != nil {
		return nil, err
	}
	if paused {
		return nil, nil
	}

	id, err := q.client.RPopLPush(ctx, q.key("waiting"), q.key("active")).Result()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeQueueError, "failed to pop job")
	}

	job, err := q.GetJob(ctx, common.ID(id))
	if err != nil {
		// Orphaned id with no body: drop it from active and move on.
		q.client.LRem(ctx, q.key("active"), 1, id)
		return nil, err
	}

	now := q.now()
	job.State = StateActive
	job.Attempts++
	job.StartedAt = &now
	if err := q.saveJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// PromoteDelayed moves due delayed jobs onto the waiting list. Called by
// the worker poll loop.
func (q *Queue) PromoteDelayed(ctx context.Context) (int, error) {
	nowMs := strconv.FormatInt(q.now().UnixMilli(), 10)
	ids, err := q.client.ZRangeByScore(ctx, q.key("delayed"), &goredis.ZRangeBy{
		Min: "-inf",
		Max: nowMs,
	}).Result()
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeQueueError, "failed to read delayed jobs")
	}

	promoted := 0
	for _, id := range ids {
		if err := q.client.ZRem(ctx, q.key("delayed"), id).Err(); err != nil {
			return promoted, err
		}
		job, err := q.GetJob(ctx, common.ID(id))
		if err != nil {
			continue
		}
		job.State = StateWaiting
		if err := q.saveJob(ctx, job); err != nil {
			continue
		}
		if err := q.pushWaiting(ctx, job); err != nil {
			return promoted, err
		}
		promoted++
	}
	return promoted, nil
}

// Complete records a successful run and moves the job to the completed set.
func (q *Queue) Complete(ctx context.Context, job *Job, result interface{}) error {
	now := q.now()
	job.State = StateCompleted
	job.FinishedAt = &now
	job.Error = ""
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			q.logger.Warn("job result not serializable",
				logging.String("job_id", string(job.ID)),
				logging.Err(err),
			)
		} else {
			job.Result = data
		}
	}
	return q.finishJob(ctx, job, q.key("completed"))
}

// Fail records a failed attempt. Jobs with attempts remaining go back to
// the delayed set with exponential backoff; exhausted jobs land in failed.
func (q *Queue) Fail(ctx context.Context, job *Job, jobErr error) error {
	job.Error = jobErr.Error()

	if job.Attempts < job.MaxAttempts {
		backoff := q.cfg.RetryBackoff * time.Duration(1<<(job.Attempts-1))
		job.State = StateDelayed
		job.ReadyAt = q.now().Add(backoff)
		if err := q.saveJob(ctx, job); err != nil {
			return err
		}
		if err := q.client.LRem(ctx, q.key("active"), 1, string(job.ID)).Err(); err != nil {
			return errors.Wrap(err, errors.ErrCodeQueueError, "failed to remove active job")
		}
		err := q.client.ZAdd(ctx, q.key("delayed"), goredis.Z{
			Score:  float64(job.ReadyAt.UnixMilli()),
			Member: string(job.ID),
		}).Err()
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeQueueError, "failed to schedule retry")
		}
		q.logger.Info("job scheduled for retry",
			logging.String("job_id", string(job.ID)),
			logging.Int("attempt", job.Attempts),
			logging.Duration("backoff", backoff),
		)
		return nil
	}

	now := q.now()
	job.State = StateFailed
	job.FinishedAt = &now
	return q.finishJob(ctx, job, q.key("failed"))
}

func (q *Queue) finishJob(ctx context.Context, job *Job, setKey string) error {
	if err := q.saveJob(ctx, job); err != nil {
		return err
	}
	if err := q.client.LRem(ctx, q.key("active"), 1, string(job.ID)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeQueueError, "failed to remove active job")
	}
	err := q.client.ZAdd(ctx, setKey, goredis.Z{
		Score:  float64(job.FinishedAt.UnixMilli()),
		Member: string(job.ID),
	}).Err()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeQueueError, "failed to record finished job")
	}
	return nil
}

// UpdateProgress persists handler-reported progress mid-run.
func (q *Queue) UpdateProgress(ctx context.Context, job *Job, p common.Progress) error {
	job.Progress = &p
	return q.saveJob(ctx, job)
}

// GetJob loads a job body by id.
func (q *Queue) GetJob(ctx context.Context, id common.ID) (*Job, error) {
	data, err := q.client.Get(ctx, q.jobKey(id)).Bytes()
	if err == goredis.Nil {
		return nil, errors.Newf(errors.ErrCodeJobNotFound, "job %s not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeQueueError, "failed to load job")
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "corrupt job body")
	}
	return &job, nil
}

func (q *Queue) saveJob(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode job")
	}
	if err := q.client.Set(ctx, q.jobKey(job.ID), data, jobDataTTL).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeQueueError, "failed to save job")
	}
	return nil
}

// Pause stops workers from picking up new jobs; running jobs finish.
func (q *Queue) Pause(ctx context.Context) error {
	return q.client.Set(ctx, q.key("paused"), "1", 0).Err()
}

// Resume lifts a pause.
func (q *Queue) Resume(ctx context.Context) error {
	return q.client.Del(ctx, q.key("paused")).Err()
}

func (q *Queue) IsPaused(ctx context.Context) (bool, error) {
	n, err := q.client.Exists(ctx, q.key("paused")).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeQueueError, "failed to check pause flag")
	}
	return n > 0, nil
}

// Counts reports the queue's state census.
func (q *Queue) Counts(ctx context.Context) (*JobCounts, error) {
	counts := &JobCounts{}
	var err error
	if counts.Waiting, err = q.client.LLen(ctx, q.key("waiting")).Result(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeQueueError, "failed to count waiting")
	}
	if counts.Active, err = q.client.LLen(ctx, q.key("active")).Result(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeQueueError, "failed to count active")
	}
	if counts.Delayed, err = q.client.ZCard(ctx, q.key("delayed")).Result(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeQueueError, "failed to count delayed")
	}
	if counts.Completed, err = q.client.ZCard(ctx, q.key("completed")).Result(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeQueueError, "failed to count completed")
	}
	if counts.Failed, err = q.client.ZCard(ctx, q.key("failed")).Result(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeQueueError, "failed to count failed")
	}
	if counts.Paused, err = q.IsPaused(ctx); err != nil {
		return nil, err
	}
	return counts, nil
}

// Clean evicts finished jobs older than age from the given terminal state,
// at most limit per call. Returns the number evicted.
func (q *Queue) Clean(ctx context.Context, age time.Duration, limit int, state State) (int, error) {
	if limit <= 0 {
		// Without a Count the range query returns every matching member.
		return 0, errors.Newf(errors.ErrCodeBadRequest, "clean limit must be positive: %d", limit)
	}
	var setKey string
	switch state {
	case StateCompleted:
		setKey = q.key("completed")
	case StateFailed:
		setKey = q.key("failed")
	default:
		return 0, errors.Newf(errors.ErrCodeBadRequest, "cannot clean state %q", state)
	}

	cutoff := strconv.FormatInt(q.now().Add(-age).UnixMilli(), 10)
	ids, err := q.client.ZRangeByScore(ctx, setKey, &goredis.ZRangeBy{
		Min:   "-inf",
		Max:   cutoff,
		Count: int64(limit),
	}).Result()
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeQueueError, "failed to list cleanable jobs")
	}

	cleaned := 0
	for _, id := range ids {
		if err := q.client.ZRem(ctx, setKey, id).Err(); err != nil {
			return cleaned, err
		}
		if err := q.client.Del(ctx, q.jobKey(common.ID(id))).Err(); err != nil {
			return cleaned, err
		}
		cleaned++
	}
	if cleaned > 0 {
		q.logger.Info("cleaned finished jobs",
			logging.String("state", string(state)),
			logging.Int("count", cleaned),
		)
	}
	return cleaned, nil
}

// Health pings the backing store.
func (q *Queue) Health(ctx context.Context) error {
	if err := q.client.Ping(ctx); err != nil {
		return fmt.Errorf("queue %s: %w", q.name, err)
	}
	return nil
}
