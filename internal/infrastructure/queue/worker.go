// internal/infrastructure/queue/worker.go
//
// Worker pool for one queue: a bounded number of goroutines pulling jobs,
// running registered handlers with a per-job timeout, and feeding results
// back through the queue's Complete/Fail transitions. A handler panic or
// error marks the job failed without taking the worker down.

package queue

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/pkg/errors"
	"github.com/fileready/fileready/pkg/types/common"
)

// Handler executes one job. The returned value is recorded as the job's
// structured result.
type Handler func(ctx context.Context, job *Job, progress func(common.Progress)) (interface{}, error)

// WorkerMetrics receives job execution observations. Nil-safe via the
// worker's guard.
type WorkerMetrics interface {
	JobStarted(queue, name string)
	JobFinished(queue, name string, state State, duration time.Duration)
}

// Worker runs jobs from one queue with bounded concurrency.
type Worker struct {
	queue        *Queue
	handlers     map[string]Handler
	concurrency  int
	pollInterval time.Duration
	jobTimeout   time.Duration
	metrics      WorkerMetrics
	logger       logging.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// WorkerOption customizes a worker.
type WorkerOption func(*Worker)

func WithPollInterval(d time.Duration) WorkerOption {
	return func(w *Worker) { w.pollInterval = d }
}

func WithJobTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) { w.jobTimeout = d }
}

func WithWorkerMetrics(m WorkerMetrics) WorkerOption {
	return func(w *Worker) { w.metrics = m }
}

// NewWorker constructs a worker pool over the queue.
func NewWorker(q *Queue, concurrency int, log logging.Logger, opts ...WorkerOption) *Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	w := &Worker{
		queue:        q,
		handlers:     map[string]Handler{},
		concurrency:  concurrency,
		pollInterval: 500 * time.Millisecond,
		jobTimeout:   5 * time.Minute,
		logger:       log.Named("worker." + q.Name()),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Register binds a handler to a job name. Must be called before Start.
func (w *Worker) Register(jobName string, h Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[jobName] = h
}

// Start launches the pool. Safe to call once.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return errors.New(errors.ErrCodeConflict, "worker already started")
	}
	w.started = true

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.loop(runCtx, i)
	}
	w.logger.Info("worker started",
		logging.Int("concurrency", w.concurrency),
		logging.String("queue", w.queue.Name()),
	)
	return nil
}

// Stop drains the pool: no new jobs are picked up and in-flight jobs run to
// completion or until ctx expires.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.cancel()
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		w.logger.Info("worker drained")
		return nil
	case <-ctx.Done():
		w.logger.Warn("worker drain timed out")
		return ctx.Err()
	}
}

func (w *Worker) loop(ctx context.Context, slot int) {
	defer w.wg.Done()
	log := w.logger.With(logging.Int("slot", slot))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if _, err := w.queue.PromoteDelayed(ctx); err != nil && ctx.Err() == nil {
			log.Warn("delayed promotion failed", logging.Err(err))
		}

		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Warn("dequeue failed", logging.Err(err))
			}
			w.sleep(ctx)
			continue
		}
		if job == nil {
			w.sleep(ctx)
			continue
		}

		w.run(ctx, job, log)
	}
}

func (w *Worker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.pollInterval):
	}
}

func (w *Worker) run(ctx context.Context, job *Job, log logging.Logger) {
	start := time.Now()
	if w.metrics != nil {
		w.metrics.JobStarted(job.Queue, job.Name)
	}

	result, err := w.execute(job)

	// Outcome recording survives pool shutdown so a drained worker still
	// persists what its in-flight jobs produced.
	recordCtx, cancelRecord := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelRecord()

	if err != nil {
		log.Error("job failed",
			logging.String("job_id", string(job.ID)),
			logging.String("job_name", job.Name),
			logging.Int("attempt", job.Attempts),
			logging.Err(err),
		)
		if ferr := w.queue.Fail(recordCtx, job, err); ferr != nil {
			log.Error("failed to record job failure", logging.Err(ferr))
		}
	} else {
		log.Info("job completed",
			logging.String("job_id", string(job.ID)),
			logging.String("job_name", job.Name),
			logging.Duration("duration", time.Since(start)),
		)
		if cerr := w.queue.Complete(recordCtx, job, result); cerr != nil {
			log.Error("failed to record job completion", logging.Err(cerr))
		}
	}

	if w.metrics != nil {
		w.metrics.JobFinished(job.Queue, job.Name, job.State, time.Since(start))
	}
}

// execute runs the handler with the job timeout and panic containment. The
// job context is detached from the pool context so a graceful drain lets
// in-flight jobs run to completion; the timeout still bounds them.
func (w *Worker) execute(job *Job) (result interface{}, err error) {
	w.mu.Lock()
	handler, ok := w.handlers[job.Name]
	w.mu.Unlock()
	if !ok {
		return nil, errors.Newf(errors.ErrCodeHandlerNotFound, "no handler registered for %q", job.Name)
	}

	jobCtx, cancel := context.WithTimeout(context.Background(), w.jobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("handler panic",
				logging.String("job_id", string(job.ID)),
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	progress := func(p common.Progress) {
		if perr := w.queue.UpdateProgress(jobCtx, job, p); perr != nil {
			w.logger.Debug("progress update failed", logging.Err(perr))
		}
	}

	result, err = handler(jobCtx, job, progress)
	if err == nil && jobCtx.Err() == context.DeadlineExceeded {
		err = errors.Wrap(jobCtx.Err(), errors.ErrCodeJobTimeout, "job deadline exceeded")
	}
	return result, err
}
