// internal/config/defaults.go
//
// Defaults applied after unmarshalling, before validation. A zero value in
// the YAML or environment means "use the default".

package config

import "time"

const (
	DefaultServerPort = 8080

	DefaultDBHost        = "localhost"
	DefaultDBPort        = 5432
	DefaultDBName        = "fileready"
	DefaultDBMaxConns    = 25
	DefaultMigrationPath = "migrations"

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "fileready:"

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaGroupID = "fileready-core"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "fileready"

	// DefaultComplianceConcurrency bounds concurrent compliance-refresh
	// jobs to limit load on the shared database.
	DefaultComplianceConcurrency = 2
	DefaultReminderConcurrency   = 2
	DefaultMaxAttempts           = 3
	DefaultRetryBackoff          = 1 * time.Second
	DefaultPollInterval          = 500 * time.Millisecond
	DefaultJobTimeout            = 5 * time.Minute
	DefaultCompletedRetention    = 24 * time.Hour

	DefaultSchedulerHour    = 6
	DefaultSchedulerLockTTL = 2 * time.Minute

	DefaultGreenThreshold            = 80
	DefaultAmberThreshold            = 50
	DefaultUpcomingFilingCredit      = 0.5
	DefaultDocumentExpiryWarningDays = 30
	DefaultFilingUpcomingWindowDays  = 14

	DefaultUrgentWithinDays = 3
	DefaultHighWithinDays   = 7
)

// DefaultFilingThresholdDays are the exact-match reminder thresholds for
// filings approaching their due date.
func DefaultFilingThresholdDays() []int { return []int{3, 7, 14} }

// DefaultDocumentThresholdDays are the exact-match reminder thresholds for
// documents approaching expiry.
func DefaultDocumentThresholdDays() []int { return []int{7, 14, 30} }

// DefaultNotifyRoles are the tenant-wide roles notified for every reminder.
func DefaultNotifyRoles() []string { return []string{"admin", "manager", "compliance_officer"} }

// ApplyDefaults fills zero-valued fields in place.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// Server
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}

	// Postgres
	if cfg.Postgres.Host == "" {
		cfg.Postgres.Host = DefaultDBHost
	}
	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = DefaultDBPort
	}
	if cfg.Postgres.DBName == "" {
		cfg.Postgres.DBName = DefaultDBName
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = "disable"
	}
	if cfg.Postgres.MaxOpenConns == 0 {
		cfg.Postgres.MaxOpenConns = DefaultDBMaxConns
	}
	if cfg.Postgres.MaxIdleConns == 0 {
		cfg.Postgres.MaxIdleConns = 10
	}
	if cfg.Postgres.ConnMaxLifetime == 0 {
		cfg.Postgres.ConnMaxLifetime = 30 * time.Minute
	}
	if cfg.Postgres.ConnMaxIdleTime == 0 {
		cfg.Postgres.ConnMaxIdleTime = 5 * time.Minute
	}
	if cfg.Postgres.MigrationPath == "" {
		cfg.Postgres.MigrationPath = DefaultMigrationPath
	}

	// Redis
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = 3 * time.Second
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = 3 * time.Second
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = 5 * time.Minute
	}

	// Kafka
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}
	if cfg.Kafka.ProducerRetries == 0 {
		cfg.Kafka.ProducerRetries = 3
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = time.Second
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = 10 * time.Second
	}

	// Logging
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}

	// Metrics
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	// Queues
	if cfg.Queues.Compliance.Concurrency == 0 {
		cfg.Queues.Compliance.Concurrency = DefaultComplianceConcurrency
	}
	if cfg.Queues.Compliance.MaxAttempts == 0 {
		cfg.Queues.Compliance.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Queues.Compliance.RetryBackoff == 0 {
		cfg.Queues.Compliance.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.Queues.Reminder.Concurrency == 0 {
		cfg.Queues.Reminder.Concurrency = DefaultReminderConcurrency
	}
	if cfg.Queues.Reminder.MaxAttempts == 0 {
		cfg.Queues.Reminder.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Queues.Reminder.RetryBackoff == 0 {
		cfg.Queues.Reminder.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.Queues.PollInterval == 0 {
		cfg.Queues.PollInterval = DefaultPollInterval
	}
	if cfg.Queues.JobTimeout == 0 {
		cfg.Queues.JobTimeout = DefaultJobTimeout
	}
	if cfg.Queues.CompletedRetention == 0 {
		cfg.Queues.CompletedRetention = DefaultCompletedRetention
	}

	// Scheduler
	if cfg.Scheduler.Hour == 0 {
		cfg.Scheduler.Hour = DefaultSchedulerHour
	}
	if cfg.Scheduler.Timezone == "" {
		cfg.Scheduler.Timezone = "UTC"
	}
	if cfg.Scheduler.LockTTL == 0 {
		cfg.Scheduler.LockTTL = DefaultSchedulerLockTTL
	}

	// Score policy
	if cfg.Score.GreenThreshold == 0 {
		cfg.Score.GreenThreshold = DefaultGreenThreshold
	}
	if cfg.Score.AmberThreshold == 0 {
		cfg.Score.AmberThreshold = DefaultAmberThreshold
	}
	if cfg.Score.UpcomingFilingCredit == 0 {
		cfg.Score.UpcomingFilingCredit = DefaultUpcomingFilingCredit
	}
	if cfg.Score.DocumentExpiryWarningDays == 0 {
		cfg.Score.DocumentExpiryWarningDays = DefaultDocumentExpiryWarningDays
	}
	if cfg.Score.FilingUpcomingWindowDays == 0 {
		cfg.Score.FilingUpcomingWindowDays = DefaultFilingUpcomingWindowDays
	}

	// Reminder policy
	if len(cfg.Reminder.FilingThresholdDays) == 0 {
		cfg.Reminder.FilingThresholdDays = DefaultFilingThresholdDays()
	}
	if len(cfg.Reminder.DocumentThresholdDays) == 0 {
		cfg.Reminder.DocumentThresholdDays = DefaultDocumentThresholdDays()
	}
	if cfg.Reminder.UrgentWithinDays == 0 {
		cfg.Reminder.UrgentWithinDays = DefaultUrgentWithinDays
	}
	if cfg.Reminder.HighWithinDays == 0 {
		cfg.Reminder.HighWithinDays = DefaultHighWithinDays
	}
	if len(cfg.Reminder.NotifyRoles) == 0 {
		cfg.Reminder.NotifyRoles = DefaultNotifyRoles()
	}
}
