// internal/application/jobs/handlers_test.go

package jobs

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fileready/fileready/internal/application/compliance"
	"github.com/fileready/fileready/internal/application/reminder"
	"github.com/fileready/fileready/internal/config"
	domcompliance "github.com/fileready/fileready/internal/domain/compliance"
	domnotification "github.com/fileready/fileready/internal/domain/notification"
	"github.com/fileready/fileready/internal/infrastructure/database/redis"
	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/internal/infrastructure/queue"
	"github.com/fileready/fileready/pkg/errors"
	"github.com/fileready/fileready/pkg/types/common"
)

// testClock is a settable clock shared by a queue under test.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeRefresher struct {
	gotTenants []common.TenantID
	result     *compliance.RefreshResult
	err        error
}

func (f *fakeRefresher) RefreshClient(context.Context, common.TenantID, common.ID) (*domcompliance.Result, error) {
	return nil, errors.New(errors.ErrCodeNotImplemented, "not used by job handlers")
}

func (f *fakeRefresher) RefreshTenants(_ context.Context, tenantIDs []common.TenantID, progress compliance.ProgressFunc) (*compliance.RefreshResult, error) {
	f.gotTenants = tenantIDs
	if progress != nil {
		progress(common.Progress{Current: 1, Total: 2, TenantID: "t1"})
	}
	return f.result, f.err
}

type fakeScanner struct {
	gotTenants []common.TenantID
	gotKinds   [][]domnotification.EntityKind
	calls      int
	result     *reminder.ScanResult
	err        error
}

func (f *fakeScanner) Scan(_ context.Context, tenantIDs []common.TenantID, kinds ...domnotification.EntityKind) (*reminder.ScanResult, error) {
	f.calls++
	f.gotTenants = tenantIDs
	f.gotKinds = append(f.gotKinds, kinds)
	return f.result, f.err
}

func testJob(t *testing.T, name string, payload interface{}) *queue.Job {
	t.Helper()
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		raw = b
	}
	return &queue.Job{ID: common.NewID(), Queue: QueueCompliance, Name: name, Payload: raw}
}

func newHandlerQueue(t *testing.T, name string) (*queue.Queue, *testClock) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	client := redis.NewClientFromUniversal(rdb, logging.NewNopLogger())
	clock := newTestClock()
	cfg := config.QueueConfig{Concurrency: 1, MaxAttempts: 1, RetryBackoff: time.Second}
	return queue.NewQueue(name, client, cfg, logging.NewNopLogger(), clock.Now), clock
}

func TestComplianceRefreshHandlerForwardsTenantsAndProgress(t *testing.T) {
	refresher := &fakeRefresher{result: &compliance.RefreshResult{TenantsProcessed: 2, ClientsScored: 5}}
	h := NewHandlers(refresher, &fakeScanner{}, time.Hour, logging.NewNopLogger())

	var seen []common.Progress
	job := testJob(t, JobComplianceRefresh, Payload{
		TenantIDs:   []common.TenantID{"t1", "t2"},
		TriggeredBy: TriggerAPI,
	})
	out, err := h.ComplianceRefresh(context.Background(), job, func(p common.Progress) { seen = append(seen, p) })
	require.NoError(t, err)

	res, ok := out.(*compliance.RefreshResult)
	require.True(t, ok)
	assert.Equal(t, 5, res.ClientsScored)
	assert.Equal(t, []common.TenantID{"t1", "t2"}, refresher.gotTenants)
	require.Len(t, seen, 1)
	assert.Equal(t, common.TenantID("t1"), seen[0].TenantID)
}

func TestComplianceRefreshHandlerEmptyPayloadMeansAllTenants(t *testing.T) {
	refresher := &fakeRefresher{result: &compliance.RefreshResult{}}
	h := NewHandlers(refresher, &fakeScanner{}, time.Hour, logging.NewNopLogger())

	_, err := h.ComplianceRefresh(context.Background(), testJob(t, JobComplianceRefresh, nil), nil)
	require.NoError(t, err)
	assert.Empty(t, refresher.gotTenants)
}

func TestComplianceRefreshHandlerRejectsMalformedPayload(t *testing.T) {
	h := NewHandlers(&fakeRefresher{}, &fakeScanner{}, time.Hour, logging.NewNopLogger())

	job := &queue.Job{ID: common.NewID(), Name: JobComplianceRefresh, Payload: json.RawMessage(`{"tenant_ids":`)}
	_, err := h.ComplianceRefresh(context.Background(), job, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeJobPayload))
}

func TestReminderScanHandlerServesBothJobNames(t *testing.T) {
	scanner := &fakeScanner{result: &reminder.ScanResult{TenantsProcessed: 3, NotificationsCreated: 4}}
	h := NewHandlers(&fakeRefresher{}, scanner, time.Hour, logging.NewNopLogger())

	for _, name := range []string{JobFilingReminder, JobExpiryCheck} {
		out, err := h.ReminderScan(context.Background(), testJob(t, name, Payload{TriggeredBy: TriggerScheduler}), nil)
		require.NoError(t, err)
		res, ok := out.(*reminder.ScanResult)
		require.True(t, ok)
		assert.Equal(t, 4, res.NotificationsCreated)
	}
	assert.Equal(t, 2, scanner.calls)
}

// Each job name must scope the scan to its own entity kind so the daily
// pair does not walk the same rows twice.
func TestReminderScanHandlerScopesByJobName(t *testing.T) {
	scanner := &fakeScanner{result: &reminder.ScanResult{}}
	h := NewHandlers(&fakeRefresher{}, scanner, time.Hour, logging.NewNopLogger())

	_, err := h.ReminderScan(context.Background(), testJob(t, JobFilingReminder, nil), nil)
	require.NoError(t, err)
	_, err = h.ReminderScan(context.Background(), testJob(t, JobExpiryCheck, nil), nil)
	require.NoError(t, err)

	require.Len(t, scanner.gotKinds, 2)
	assert.Equal(t, []domnotification.EntityKind{domnotification.EntityFiling}, scanner.gotKinds[0])
	assert.Equal(t, []domnotification.EntityKind{domnotification.EntityDocument}, scanner.gotKinds[1])
}

func TestReminderScanHandlerPropagatesScanError(t *testing.T) {
	scanner := &fakeScanner{err: errors.New(errors.ErrCodeDatabaseError, "store down")}
	h := NewHandlers(&fakeRefresher{}, scanner, time.Hour, logging.NewNopLogger())

	_, err := h.ReminderScan(context.Background(), testJob(t, JobFilingReminder, nil), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
}

func TestQueueCleanHandlerEvictsOldTerminalJobs(t *testing.T) {
	q, clock := newHandlerQueue(t, QueueCompliance)
	ctx := context.Background()

	old, err := q.Enqueue(ctx, JobComplianceRefresh, nil)
	require.NoError(t, err)
	old, err = q.Dequeue(ctx)
	require.NoError(t, err)
	require.NoError(t, q.Complete(ctx, old, nil))

	clock.Advance(2 * time.Hour)

	fresh, err := q.Enqueue(ctx, JobComplianceRefresh, nil)
	require.NoError(t, err)
	fresh, err = q.Dequeue(ctx)
	require.NoError(t, err)
	require.NoError(t, q.Complete(ctx, fresh, nil))

	h := NewHandlers(&fakeRefresher{}, &fakeScanner{}, time.Hour, logging.NewNopLogger())
	out, err := h.QueueClean(q)(ctx, testJob(t, JobQueueClean, nil), nil)
	require.NoError(t, err)

	res, ok := out.(*CleanResult)
	require.True(t, ok)
	assert.Equal(t, 1, res.CompletedRemoved)
	assert.Equal(t, 0, res.FailedRemoved)

	_, err = q.GetJob(ctx, old.ID)
	assert.True(t, errors.IsCode(err, errors.ErrCodeJobNotFound))
	_, err = q.GetJob(ctx, fresh.ID)
	assert.NoError(t, err)
}
