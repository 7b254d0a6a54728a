// internal/infrastructure/messaging/kafka/producer.go
//
// Outbound event publishing: email jobs for the external mailer and
// score-updated events for downstream consumers. One writer serves all
// topics; messages are keyed by tenant so a tenant's events stay ordered
// within a partition.

package kafka

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/fileready/fileready/internal/config"
	domcompliance "github.com/fileready/fileready/internal/domain/compliance"
	domnotification "github.com/fileready/fileready/internal/domain/notification"
	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/pkg/errors"
)

// ErrProducerClosed is returned by publishes after Close.
var ErrProducerClosed = errors.New(errors.ErrCodeServiceUnavailable, "kafka producer closed")

// writerInterface abstracts kafka.Writer for tests.
type writerInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Producer publishes the platform's outbound events. It implements
// compliance.ScoreEventPublisher and reminder.EmailPublisher.
type Producer struct {
	writer writerInterface
	logger logging.Logger
	closed atomic.Bool
}

// NewProducer builds a producer from the broker configuration.
func NewProducer(cfg config.KafkaConfig, log logging.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "kafka brokers required")
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout == 0 {
		batchTimeout = time.Second
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 10 * time.Second
	}
	maxAttempts := cfg.ProducerRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Balancer:     &kafkago.Hash{},
		MaxAttempts:  maxAttempts,
		BatchTimeout: batchTimeout,
		WriteTimeout: writeTimeout,
		RequiredAcks: kafkago.RequireAll,
	}
	return &Producer{writer: writer, logger: log.Named("kafka_producer")}, nil
}

// newProducerWithWriter injects a writer (tests).
func newProducerWithWriter(w writerInterface, log logging.Logger) *Producer {
	return &Producer{writer: w, logger: log}
}

// PublishEmailJob enqueues one outbound email for the external mailer.
func (p *Producer) PublishEmailJob(ctx context.Context, job *domnotification.EmailJob) error {
	return p.publish(ctx, TopicEmailSend, EventEmailJob, string(job.TenantID), job)
}

// PublishScoreUpdated announces a recomputed score.
func (p *Producer) PublishScoreUpdated(ctx context.Context, score *domcompliance.Score) error {
	payload := ScoreUpdatedPayload{
		TenantID:     score.TenantID.String(),
		ClientID:     score.ClientID.String(),
		ScoreValue:   score.ScoreValue,
		Level:        string(score.Level),
		CalculatedAt: score.LastCalculatedAt,
	}
	return p.publish(ctx, TopicScoreUpdated, EventScoreUpdated, payload.TenantID, payload)
}

func (p *Producer) publish(ctx context.Context, topic, eventType, key string, payload interface{}) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	env, err := NewEventEnvelope(eventType, payload)
	if err != nil {
		return err
	}
	value, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal event envelope")
	}

	msg := kafkago.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  env.Timestamp,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "source_service", Value: []byte(env.Source)},
			{Key: "schema_version", Value: []byte(env.SchemaVersion)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, errors.ErrCodeExternalService, "failed to publish to %s", topic)
	}
	p.logger.Debug("event published",
		logging.String("topic", topic),
		logging.String("event_type", eventType),
		logging.String("event_id", env.EventID))
	return nil
}

// Close flushes and closes the writer. Publishes after Close fail fast.
func (p *Producer) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to close kafka writer")
	}
	p.logger.Info("kafka producer closed")
	return nil
}
