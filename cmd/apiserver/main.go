// cmd/apiserver/main.go
// HTTP API server entry point.
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
	"github.com/fileready/fileready/internal/config"
	"github.com/fileready/fileready/internal/infrastructure/database/postgres"
	"github.com/fileready/fileready/internal/infrastructure/database/postgres/repositories"
	"github.com/fileready/fileready/internal/infrastructure/database/redis"
	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/internal/infrastructure/monitoring/prometheus"
	"github.com/fileready/fileready/internal/infrastructure/queue"
	httpserver "github.com/fileready/fileready/internal/interfaces/http"
	"github.com/fileready/fileready/internal/interfaces/http/handlers"
)

const (
	defaultConfigPath = "configs/config.yaml"
	poolStatsInterval = 15 * time.Second
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("api server exited", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger logging.Logger) error {
	logger.Info("starting api server", logging.Int("port", cfg.Server.Port))

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

	complianceQ := queue.NewQueue(jobs.QueueCompliance, redisClient, cfg.Queues.Compliance, logger, nil)
	reminderQ := queue.NewQueue(jobs.QueueReminder, redisClient, cfg.Queues.Reminder, logger, nil)
	queues := map[string]*queue.Queue{
		complianceQ.Name(): complianceQ,
		reminderQ.Name():   reminderQ,
	}

	collector := newCollector(cfg, logger)
	metrics := prometheus.NewAppMetrics(collector)

	scores := repositories.NewScoreRepo(conn, logger)
	notifications := repositories.NewNotificationRepo(conn, logger)
	cache := redis.NewCache(redisClient, logger)
	summary := compliance.NewSummaryService(scores, cache, logger, nil)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Compliance:    handlers.NewComplianceHandler(scores, summary, complianceQ, logger),
		Notifications: handlers.NewNotificationHandler(notifications, logger),
		Jobs:          handlers.NewJobsHandler(queues, cfg.Queues.CompletedRetention, logger),
		Health: handlers.NewHealthHandler([]handlers.DependencyCheck{
			{Name: "postgres", Check: conn.HealthCheck},
			{Name: "redis", Check: redisClient.Ping},
		}, logger),
		Logger:         logger,
		Metrics:        metrics,
		MetricsHandler: collector.Handler(),
	})

	srv := httpserver.NewServer(cfg.Server, router, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go observePools(ctx, conn, metrics)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down api server")
	if err := srv.Stop(context.Background()); err != nil {
		return err
	}
	return <-errCh
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
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		logger.Warn("metrics disabled", logging.Err(err))
		return prometheus.NewNopCollector()
	}
	return collector
}

// observePools samples the connection pool gauges until ctx is cancelled.
func observePools(ctx context.Context, conn *postgres.Connection, metrics *prometheus.AppMetrics) {
	ticker := time.NewTicker(poolStatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := conn.Stats()
			metrics.DBPoolOpen.WithLabelValues().Set(float64(stats.OpenConnections))
			metrics.DBPoolInUse.WithLabelValues().Set(float64(stats.InUse))
		}
	}
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}
