// internal/config/config.go
//
// Typed configuration for the compliance platform. Loaded from YAML with
// FILEREADY_* environment overrides; see loader.go. Policy knobs that the
// business may retune (score boundaries, reminder thresholds, partial
// credit) live here rather than as inline constants.

package config

import (
	"fmt"
	"time"

	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
)

// ServerConfig tunes the HTTP API server.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// PostgresConfig tunes the relational store connection pool.
type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// RedisConfig tunes the Redis connection shared by the queue, locks, and cache.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
}

// KafkaConfig tunes the broker used for outbound email jobs, score events,
// and delivery receipts.
type KafkaConfig struct {
	Brokers         []string      `mapstructure:"brokers"`
	GroupID         string        `mapstructure:"group_id"`
	AutoOffsetReset string        `mapstructure:"auto_offset_reset"` // "earliest" | "latest"
	ProducerRetries int           `mapstructure:"producer_retries"`
	BatchTimeout    time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
}

// MetricsConfig tunes the Prometheus exposition.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// QueueConfig tunes one named job queue.
type QueueConfig struct {
	// Concurrency bounds the number of jobs of this queue processed in
	// parallel by one worker process.
	Concurrency int `mapstructure:"concurrency"`

	// MaxAttempts is the total number of tries (first run + retries)
	// before a job is marked failed.
	MaxAttempts int `mapstructure:"max_attempts"`

	// RetryBackoff is the base delay before the first retry; later
	// retries back off exponentially.
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// QueuesConfig holds per-queue settings plus shared housekeeping knobs.
type QueuesConfig struct {
	Compliance QueueConfig `mapstructure:"compliance"`
	Reminder   QueueConfig `mapstructure:"reminder"`

	// PollInterval is how often an idle worker checks for new jobs.
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// JobTimeout bounds a single job execution.
	JobTimeout time.Duration `mapstructure:"job_timeout"`

	// CompletedRetention is how long finished job records are kept before
	// Clean evicts them.
	CompletedRetention time.Duration `mapstructure:"completed_retention"`
}

// SchedulerConfig tunes the daily cron trigger that enqueues the refresh and
// reminder jobs.
type SchedulerConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Hour is the local hour of day (0-23) the daily jobs fire.
	Hour int `mapstructure:"hour"`

	// Timezone is an IANA zone name; defaults to UTC.
	Timezone string `mapstructure:"timezone"`

	// LockTTL bounds how long the cross-instance scheduler lock is held.
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

// ScorePolicy carries the tunable scoring decisions: classification
// boundaries and the partial credit granted to filings that are upcoming
// but not yet due.
type ScorePolicy struct {
	// GreenThreshold is the minimum score classified green.
	GreenThreshold int `mapstructure:"green_threshold"`

	// AmberThreshold is the minimum score classified amber; anything
	// below is red.
	AmberThreshold int `mapstructure:"amber_threshold"`

	// UpcomingFilingCredit is the weight fraction granted when the most
	// recent filing is not yet due but its period end is inside the
	// upcoming window.
	UpcomingFilingCredit float64 `mapstructure:"upcoming_filing_credit"`

	// DocumentExpiryWarningDays flags documents expiring within this many
	// days without deducting score.
	DocumentExpiryWarningDays int `mapstructure:"document_expiry_warning_days"`

	// FilingUpcomingWindowDays is the period-end window that triggers the
	// partial credit above.
	FilingUpcomingWindowDays int `mapstructure:"filing_upcoming_window_days"`
}

// ReminderPolicy carries the threshold-scan and notification settings.
type ReminderPolicy struct {
	// FilingThresholdDays are exact-match days-until-due values that fire
	// a filing reminder.
	FilingThresholdDays []int `mapstructure:"filing_threshold_days"`

	// DocumentThresholdDays are exact-match days-until-expiry values that
	// fire a document expiry reminder.
	DocumentThresholdDays []int `mapstructure:"document_threshold_days"`

	// UrgentWithinDays classifies a reminder urgent; at or below this the
	// entity is also flagged urgent in the store.
	UrgentWithinDays int `mapstructure:"urgent_within_days"`

	// HighWithinDays classifies a reminder high priority.
	HighWithinDays int `mapstructure:"high_within_days"`

	// NotifyRoles are the tenant-wide roles whose holders receive every
	// reminder, in addition to entity-specific assignees.
	NotifyRoles []string `mapstructure:"notify_roles"`
}

// Config is the root configuration object.
type Config struct {
	Server    ServerConfig      `mapstructure:"server"`
	Postgres  PostgresConfig    `mapstructure:"postgres"`
	Redis     RedisConfig       `mapstructure:"redis"`
	Kafka     KafkaConfig       `mapstructure:"kafka"`
	Logging   logging.LogConfig `mapstructure:"logging"`
	Metrics   MetricsConfig     `mapstructure:"metrics"`
	Queues    QueuesConfig      `mapstructure:"queues"`
	Scheduler SchedulerConfig   `mapstructure:"scheduler"`
	Score     ScorePolicy       `mapstructure:"score"`
	Reminder  ReminderPolicy    `mapstructure:"reminder"`
}

// Validate rejects configurations that cannot produce a working process.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Postgres.Host == "" {
		return fmt.Errorf("postgres.host is required")
	}
	if c.Postgres.DBName == "" {
		return fmt.Errorf("postgres.db_name is required")
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required")
	}
	if c.Score.GreenThreshold <= c.Score.AmberThreshold {
		return fmt.Errorf("score.green_threshold (%d) must exceed score.amber_threshold (%d)",
			c.Score.GreenThreshold, c.Score.AmberThreshold)
	}
	if c.Score.UpcomingFilingCredit < 0 || c.Score.UpcomingFilingCredit > 1 {
		return fmt.Errorf("score.upcoming_filing_credit must be in [0,1]: %f", c.Score.UpcomingFilingCredit)
	}
	if len(c.Reminder.FilingThresholdDays) == 0 {
		return fmt.Errorf("reminder.filing_threshold_days must not be empty")
	}
	for _, d := range c.Reminder.FilingThresholdDays {
		if d <= 0 {
			return fmt.Errorf("reminder.filing_threshold_days entries must be positive: %d", d)
		}
	}
	for _, d := range c.Reminder.DocumentThresholdDays {
		if d <= 0 {
			return fmt.Errorf("reminder.document_threshold_days entries must be positive: %d", d)
		}
	}
	if c.Scheduler.Hour < 0 || c.Scheduler.Hour > 23 {
		return fmt.Errorf("scheduler.hour out of range: %d", c.Scheduler.Hour)
	}
	if c.Queues.Compliance.Concurrency <= 0 || c.Queues.Reminder.Concurrency <= 0 {
		return fmt.Errorf("queue concurrency must be positive")
	}
	return nil
}
