// cmd/worker/main.go
// Background worker entry point: job queues, the daily scheduler, and the
// delivery receipt consumer.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fileready/fileready/internal/application/compliance"
	"github.com/fileready/fileready/internal/application/jobs"
	"github.com/fileready/fileready/internal/application/reminder"
	"github.com/fileready/fileready/internal/config"
	"github.com/fileready/fileready/internal/infrastructure/database/postgres"
	"github.com/fileready/fileready/internal/infrastructure/database/postgres/repositories"
	"github.com/fileready/fileready/internal/infrastructure/database/redis"
	"github.com/fileready/fileready/internal/infrastructure/messaging/kafka"
	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/internal/infrastructure/monitoring/prometheus"
	"github.com/fileready/fileready/internal/infrastructure/queue"
)

const (
	defaultConfigPath  = "configs/config.yaml"
	drainTimeout       = 30 * time.Second
	queueStatsInterval = 30 * time.Second
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("worker exited", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger logging.Logger) error {
	logger.Info("starting worker",
		logging.Int("compliance_concurrency", cfg.Queues.Compliance.Concurrency),
		logging.Int("reminder_concurrency", cfg.Queues.Reminder.Concurrency),
	)

	conn, err := postgres.NewConnection(cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	redisClient, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	producer, err := kafka.NewProducer(cfg.Kafka, logger)
	if err != nil {
		return err
	}
	defer producer.Close()

	snapshots := repositories.NewClientSnapshotRepo(conn, logger)
	tenants := repositories.NewTenantDirectoryRepo(conn, logger)
	ruleSets := repositories.NewRuleSetRepo(conn, logger)
	scores := repositories.NewScoreRepo(conn, logger)
	notifications := repositories.NewNotificationRepo(conn, logger)
	reminderLog := repositories.NewReminderLogRepo(conn, logger)
	users := repositories.NewUserDirectoryRepo(conn, logger)

	engine := compliance.NewEngine(snapshots, ruleSets, cfg.Score, logger, nil)
	refresher := compliance.NewRefresher(engine, snapshots, tenants, scores, producer, logger, nil)
	resolver := reminder.NewResolver(users, cfg.Reminder, logger)
	dispatcher := reminder.NewDispatcher(notifications, reminderLog, producer, cfg.Reminder, logger, nil)
	scanner := reminder.NewScanner(snapshots, tenants, resolver, dispatcher, cfg.Reminder, logger, nil)

	complianceQ := queue.NewQueue(jobs.QueueCompliance, redisClient, cfg.Queues.Compliance, logger, nil)
	reminderQ := queue.NewQueue(jobs.QueueReminder, redisClient, cfg.Queues.Reminder, logger, nil)

	collector := newCollector(cfg, logger)
	metrics := prometheus.NewAppMetrics(collector)
	observer := prometheus.NewWorkerObserver(metrics)

	workerOpts := []queue.WorkerOption{
		queue.WithWorkerMetrics(observer),
	}
	if cfg.Queues.PollInterval > 0 {
		workerOpts = append(workerOpts, queue.WithPollInterval(cfg.Queues.PollInterval))
	}
	if cfg.Queues.JobTimeout > 0 {
		workerOpts = append(workerOpts, queue.WithJobTimeout(cfg.Queues.JobTimeout))
	}

	complianceW := queue.NewWorker(complianceQ, cfg.Queues.Compliance.Concurrency, logger, workerOpts...)
	reminderW := queue.NewWorker(reminderQ, cfg.Queues.Reminder.Concurrency, logger, workerOpts...)

	handlers := jobs.NewHandlers(refresher, scanner, cfg.Queues.CompletedRetention, logger)
	handlers.RegisterCompliance(complianceW, complianceQ)
	handlers.RegisterReminder(reminderW, reminderQ)

	scheduler, err := jobs.NewScheduler(redisClient, complianceQ, reminderQ, cfg.Scheduler, logger, nil)
	if err != nil {
		return err
	}

	receipts, err := kafka.NewReceiptConsumer(cfg.Kafka, notifications, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := complianceW.Start(ctx); err != nil {
		return err
	}
	if err := reminderW.Start(ctx); err != nil {
		return err
	}
	if err := receipts.Start(ctx); err != nil {
		return err
	}
	go scheduler.Run(ctx)
	go observeQueues(ctx, metrics, complianceQ, reminderQ)

	<-ctx.Done()
	logger.Info("shutting down worker")

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	var firstErr error
	if err := complianceW.Stop(drainCtx); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := reminderW.Stop(drainCtx); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := receipts.Stop(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func newCollector(cfg *config.Config, logger logging.Logger) prometheus.Collector {
	if !cfg.Metrics.Enabled {
		return prometheus.NewNopCollector()
	}
	namespace := cfg.Metrics.Namespace
	if namespace == "" {
		namespace = "fileready"
	}
	collector, err := prometheus.NewCollector(prometheus.CollectorConfig{
		Namespace:            namespace,
		Subsystem:            "worker",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		logger.Warn("metrics disabled", logging.Err(err))
		return prometheus.NewNopCollector()
	}
	return collector
}

// observeQueues samples queue depth gauges until ctx is cancelled.
func observeQueues(ctx context.Context, metrics *prometheus.AppMetrics, queues ...*queue.Queue) {
	ticker := time.NewTicker(queueStatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, q := range queues {
				counts, err := q.Counts(ctx)
				if err != nil {
					continue
				}
				metrics.ObserveQueueCounts(q.Name(), counts)
			}
		}
	}
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}
