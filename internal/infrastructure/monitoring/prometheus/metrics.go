// internal/infrastructure/monitoring/prometheus/metrics.go

package prometheus

import (
	"strconv"
	"time"

	"github.com/fileready/fileready/internal/infrastructure/queue"
)

// AppMetrics holds every instrument the platform emits. Label sets stay
// low-cardinality: queue and job names, levels, topics — never tenant or
// entity identifiers.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Job queue layer
	JobsTotal      CounterVec
	JobDuration    HistogramVec
	JobsActive     GaugeVec
	QueueDepth     GaugeVec
	JobsEnqueued   CounterVec
	SchedulerFires CounterVec

	// Compliance layer
	ScoresCalculated    CounterVec
	RefreshDuration     HistogramVec
	TenantRefreshErrors CounterVec

	// Reminder / notification layer
	NotificationsCreated CounterVec
	EmailJobsPublished   CounterVec
	RemindersDeduped     CounterVec
	FilingsFlaggedUrgent CounterVec

	// Messaging layer
	EventsPublished  CounterVec
	ReceiptsConsumed CounterVec

	// Infrastructure
	DBPoolOpen  GaugeVec
	DBPoolInUse GaugeVec
	ErrorsTotal CounterVec
}

var (
	httpDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	jobDurationBuckets  = []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300, 600}
)

// NewAppMetrics registers all instruments on the collector.
func NewAppMetrics(c Collector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = c.RegisterCounter("http_requests_total", "HTTP requests served", "method", "path", "status_code")
	m.HTTPRequestDuration = c.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", httpDurationBuckets, "method", "path")
	m.HTTPActiveRequests = c.RegisterGauge("http_active_requests", "In-flight HTTP requests", "method")

	m.JobsTotal = c.RegisterCounter("jobs_total", "Jobs finished by terminal state", "queue", "name", "state")
	m.JobDuration = c.RegisterHistogram("job_duration_seconds", "Job execution duration", jobDurationBuckets, "queue", "name")
	m.JobsActive = c.RegisterGauge("jobs_active", "Jobs currently executing", "queue")
	m.QueueDepth = c.RegisterGauge("queue_depth", "Jobs per queue state", "queue", "state")
	m.JobsEnqueued = c.RegisterCounter("jobs_enqueued_total", "Jobs enqueued by trigger source", "queue", "name", "triggered_by")
	m.SchedulerFires = c.RegisterCounter("scheduler_fires_total", "Daily scheduler firings", "outcome")

	m.ScoresCalculated = c.RegisterCounter("scores_calculated_total", "Compliance scores computed", "level")
	m.RefreshDuration = c.RegisterHistogram("refresh_duration_seconds", "Per-tenant refresh duration", jobDurationBuckets)
	m.TenantRefreshErrors = c.RegisterCounter("tenant_refresh_errors_total", "Tenants whose refresh failed", "code")

	m.NotificationsCreated = c.RegisterCounter("notifications_created_total", "Notifications created", "type")
	m.EmailJobsPublished = c.RegisterCounter("email_jobs_published_total", "Email jobs handed to the mailer", "template")
	m.RemindersDeduped = c.RegisterCounter("reminders_deduped_total", "Reminders suppressed by the fired log", "entity_kind")
	m.FilingsFlaggedUrgent = c.RegisterCounter("filings_flagged_urgent_total", "Filings flagged urgent at the day-1 threshold")

	m.EventsPublished = c.RegisterCounter("events_published_total", "Kafka events published", "topic", "status")
	m.ReceiptsConsumed = c.RegisterCounter("receipts_consumed_total", "Email delivery receipts consumed", "status")

	m.DBPoolOpen = c.RegisterGauge("db_pool_open_connections", "Open database connections")
	m.DBPoolInUse = c.RegisterGauge("db_pool_in_use_connections", "Database connections in use")
	m.ErrorsTotal = c.RegisterCounter("errors_total", "Errors by component and code", "component", "code")

	return m
}

// RecordHTTPRequest observes one served request.
func (m *AppMetrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError counts one component failure.
func (m *AppMetrics) RecordError(component, code string) {
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}

// WorkerObserver feeds worker lifecycle events into AppMetrics. It satisfies
// the queue worker's metrics hook.
type WorkerObserver struct {
	metrics *AppMetrics
}

func NewWorkerObserver(m *AppMetrics) *WorkerObserver {
	return &WorkerObserver{metrics: m}
}

func (o *WorkerObserver) JobStarted(queueName, jobName string) {
	o.metrics.JobsActive.WithLabelValues(queueName).Inc()
}

func (o *WorkerObserver) JobFinished(queueName, jobName string, state queue.State, duration time.Duration) {
	o.metrics.JobsActive.WithLabelValues(queueName).Dec()
	o.metrics.JobsTotal.WithLabelValues(queueName, jobName, string(state)).Inc()
	o.metrics.JobDuration.WithLabelValues(queueName, jobName).Observe(duration.Seconds())
}

var _ queue.WorkerMetrics = (*WorkerObserver)(nil)

// ObserveQueueCounts exports a snapshot of queue depths.
func (m *AppMetrics) ObserveQueueCounts(queueName string, counts *queue.JobCounts) {
	m.QueueDepth.WithLabelValues(queueName, string(queue.StateWaiting)).Set(float64(counts.Waiting))
	m.QueueDepth.WithLabelValues(queueName, string(queue.StateDelayed)).Set(float64(counts.Delayed))
	m.QueueDepth.WithLabelValues(queueName, string(queue.StateActive)).Set(float64(counts.Active))
	m.QueueDepth.WithLabelValues(queueName, string(queue.StateCompleted)).Set(float64(counts.Completed))
	m.QueueDepth.WithLabelValues(queueName, string(queue.StateFailed)).Set(float64(counts.Failed))
}
