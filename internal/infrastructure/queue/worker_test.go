// internal/infrastructure/queue/worker_test.go

package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/pkg/errors"
	"github.com/fileready/fileready/pkg/types/common"
)

func startWorker(t *testing.T, q *Queue, concurrency int, register func(w *Worker)) *Worker {
	t.Helper()
	w := NewWorker(q, concurrency, logging.NewNopLogger(),
		WithPollInterval(10*time.Millisecond),
		WithJobTimeout(2*time.Second),
	)
	register(w)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		w.Stop(ctx)
	})
	return w
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestWorkerRunsJobToCompletion(t *testing.T) {
	q, _, _ := newTestQueue(t)
	ctx := context.Background()

	var ran atomic.Int32
	startWorker(t, q, 1, func(w *Worker) {
		w.Register("compliance.refresh", func(_ context.Context, _ *Job, _ func(common.Progress)) (interface{}, error) {
			ran.Add(1)
			return map[string]int{"clients_scored": 3}, nil
		})
	})

	job, err := q.Enqueue(ctx, "compliance.refresh", nil)
	require.NoError(t, err)

	waitFor(t, 2*time.Second, func() bool {
		stored, err := q.GetJob(ctx, job.ID)
		return err == nil && stored.State == StateCompleted
	})
	assert.Equal(t, int32(1), ran.Load())

	stored, _ := q.GetJob(ctx, job.ID)
	assert.JSONEq(t, `{"clients_scored":3}`, string(stored.Result))
}

func TestWorkerRetriesFailedJob(t *testing.T) {
	q, clock, _ := newTestQueue(t)
	ctx := context.Background()

	var calls atomic.Int32
	startWorker(t, q, 1, func(w *Worker) {
		w.Register("flaky", func(_ context.Context, _ *Job, _ func(common.Progress)) (interface{}, error) {
			if calls.Add(1) == 1 {
				return nil, errors.New(errors.ErrCodeDatabaseError, "transient")
			}
			return nil, nil
		})
	})

	job, err := q.Enqueue(ctx, "flaky", nil)
	require.NoError(t, err)

	waitFor(t, 2*time.Second, func() bool { return calls.Load() >= 1 })
	// Let the retry become due on the queue's clock.
	clock.Advance(time.Minute)

	waitFor(t, 2*time.Second, func() bool {
		stored, err := q.GetJob(ctx, job.ID)
		return err == nil && stored.State == StateCompleted
	})
	assert.Equal(t, int32(2), calls.Load())
}

func TestWorkerPanicMarksJobFailed(t *testing.T) {
	q, _, _ := newTestQueue(t)
	ctx := context.Background()

	startWorker(t, q, 1, func(w *Worker) {
		w.Register("boom", func(_ context.Context, _ *Job, _ func(common.Progress)) (interface{}, error) {
			panic("nope")
		})
	})

	job, err := q.Enqueue(ctx, "boom", nil, WithMaxAttempts(1))
	require.NoError(t, err)

	waitFor(t, 2*time.Second, func() bool {
		stored, err := q.GetJob(ctx, job.ID)
		return err == nil && stored.State == StateFailed
	})
	stored, _ := q.GetJob(ctx, job.ID)
	assert.Contains(t, stored.Error, "panic")
}

func TestWorkerUnknownJobNameFails(t *testing.T) {
	q, _, _ := newTestQueue(t)
	ctx := context.Background()

	startWorker(t, q, 1, func(_ *Worker) {})

	job, err := q.Enqueue(ctx, "unregistered", nil, WithMaxAttempts(1))
	require.NoError(t, err)

	waitFor(t, 2*time.Second, func() bool {
		stored, err := q.GetJob(ctx, job.ID)
		return err == nil && stored.State == StateFailed
	})
}

func TestWorkerBoundedConcurrency(t *testing.T) {
	q, _, _ := newTestQueue(t)
	ctx := context.Background()

	var mu sync.Mutex
	running, peak := 0, 0
	release := make(chan struct{})

	startWorker(t, q, 2, func(w *Worker) {
		w.Register("slow", func(_ context.Context, _ *Job, _ func(common.Progress)) (interface{}, error) {
			mu.Lock()
			running++
			if running > peak {
				peak = running
			}
			mu.Unlock()
			<-release
			mu.Lock()
			running--
			mu.Unlock()
			return nil, nil
		})
	})

	for i := 0; i < 5; i++ {
		_, err := q.Enqueue(ctx, "slow", nil)
		require.NoError(t, err)
	}

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return running == 2
	})
	close(release)

	waitFor(t, 2*time.Second, func() bool {
		counts, err := q.Counts(ctx)
		return err == nil && counts.Completed == 5
	})
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, peak, "concurrency bound must hold")
}

func TestWorkerReportsProgress(t *testing.T) {
	q, _, _ := newTestQueue(t)
	ctx := context.Background()

	startWorker(t, q, 1, func(w *Worker) {
		w.Register("scan", func(_ context.Context, _ *Job, progress func(common.Progress)) (interface{}, error) {
			progress(common.Progress{Current: 1, Total: 2, TenantID: "t1"})
			progress(common.Progress{Current: 2, Total: 2, TenantID: "t2"})
			return nil, nil
		})
	})

	job, err := q.Enqueue(ctx, "scan", nil)
	require.NoError(t, err)

	waitFor(t, 2*time.Second, func() bool {
		stored, err := q.GetJob(ctx, job.ID)
		return err == nil && stored.State == StateCompleted
	})
	stored, _ := q.GetJob(ctx, job.ID)
	require.NotNil(t, stored.Progress)
	assert.Equal(t, 2, stored.Progress.Current)
	assert.Equal(t, common.TenantID("t2"), stored.Progress.TenantID)
}

func TestWorkerStopDrains(t *testing.T) {
	q, _, _ := newTestQueue(t)
	ctx := context.Background()

	started := make(chan struct{})
	finish := make(chan struct{})
	w := NewWorker(q, 1, logging.NewNopLogger(), WithPollInterval(10*time.Millisecond))
	w.Register("slow", func(_ context.Context, _ *Job, _ func(common.Progress)) (interface{}, error) {
		close(started)
		<-finish
		return nil, nil
	})
	require.NoError(t, w.Start(ctx))

	job, err := q.Enqueue(ctx, "slow", nil)
	require.NoError(t, err)
	<-started

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(finish)
	}()

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, w.Stop(stopCtx))

	stored, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, stored.State, "in-flight work finishes during drain")
}
