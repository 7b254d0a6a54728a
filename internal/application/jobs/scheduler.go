// internal/application/jobs/scheduler.go
//
// Daily cron trigger. Each worker process runs one Scheduler; a Redis lock
// ensures that in a multi-instance deployment only one of them enqueues the
// recurring jobs for a given day.

package jobs

import (
	"context"
	"time"

	"github.com/fileready/fileready/internal/config"
	"github.com/fileready/fileready/internal/infrastructure/database/redis"
	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/internal/infrastructure/queue"
	"github.com/fileready/fileready/pkg/errors"
)

const schedulerLockName = "daily-scheduler"

// Scheduler enqueues the recurring compliance and reminder jobs once a day
// at the configured local hour.
type Scheduler struct {
	client     *redis.Client
	compliance *queue.Queue
	reminder   *queue.Queue
	cfg        config.SchedulerConfig
	loc        *time.Location
	logger     logging.Logger
	now        func() time.Time
}

// NewScheduler constructs the scheduler. The now function is injectable for
// deterministic tests; pass nil for time.Now.
func NewScheduler(
	client *redis.Client,
	complianceQ, reminderQ *queue.Queue,
	cfg config.SchedulerConfig,
	log logging.Logger,
	now func() time.Time,
) (*Scheduler, error) {
	loc := time.UTC
	if cfg.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrCodeValidation,
				"scheduler: unknown timezone %q", cfg.Timezone)
		}
	}
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		client:     client,
		compliance: complianceQ,
		reminder:   reminderQ,
		cfg:        cfg,
		loc:        loc,
		logger:     log.Named("scheduler"),
		now:        now,
	}, nil
}

// Run blocks, firing at each daily boundary, until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.logger.Info("scheduler disabled")
		<-ctx.Done()
		return ctx.Err()
	}
	s.logger.Info("scheduler started",
		logging.Int("hour", s.cfg.Hour),
		logging.String("timezone", s.loc.String()))
	for {
		next := s.NextRun(s.now())
		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			if err := s.Fire(ctx); err != nil {
				s.logger.Error("scheduled enqueue failed", logging.Err(err))
			}
		}
	}
}

// NextRun returns the first daily boundary strictly after now.
func (s *Scheduler) NextRun(now time.Time) time.Time {
	local := now.In(s.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.cfg.Hour, 0, 0, 0, s.loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Fire enqueues one round of recurring jobs, if this instance wins the
// scheduler lock. A losing instance returns nil without enqueuing.
//
// The lock is deliberately never released: holding it for its full TTL keeps
// a replica whose clock ticks a little later from enqueuing the same round
// again.
func (s *Scheduler) Fire(ctx context.Context) error {
	var opts []redis.LockOption
	if s.cfg.LockTTL > 0 {
		opts = append(opts, redis.WithLockTTL(s.cfg.LockTTL))
	}
	lock := redis.NewLock(s.client, schedulerLockName, s.logger, opts...)
	won, err := lock.TryLock(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeQueueError, "scheduler lock")
	}
	if !won {
		s.logger.Info("scheduler lock held elsewhere, skipping round")
		return nil
	}

	payload := Payload{TriggeredBy: TriggerScheduler}
	rounds := []struct {
		q    *queue.Queue
		name string
	}{
		{s.compliance, JobComplianceRefresh},
		{s.reminder, JobFilingReminder},
		{s.reminder, JobExpiryCheck},
		{s.compliance, JobQueueClean},
		{s.reminder, JobQueueClean},
	}
	var firstErr error
	for _, r := range rounds {
		job, err := r.q.Enqueue(ctx, r.name, payload, queue.WithTriggeredBy(TriggerScheduler))
		if err != nil {
			s.logger.Error("scheduled enqueue failed",
				logging.String("queue", r.q.Name()),
				logging.String("job_name", r.name),
				logging.Err(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.logger.Info("scheduled job enqueued",
			logging.String("queue", r.q.Name()),
			logging.String("job_name", r.name),
			logging.String("job_id", job.ID.String()))
	}
	return firstErr
}
