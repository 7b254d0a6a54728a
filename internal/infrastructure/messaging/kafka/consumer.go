// internal/infrastructure/messaging/kafka/consumer.go
//
// Delivery-receipt consumer. The external mailer reports per-email outcomes
// on the status topic; this consumer advances the matching notification's
// channel status from pending to sent or failed.

package kafka

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/fileready/fileready/internal/config"
	domnotification "github.com/fileready/fileready/internal/domain/notification"
	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/pkg/errors"
	"github.com/fileready/fileready/pkg/types/common"
)

// ErrAlreadyRunning is returned when Start is called twice.
var ErrAlreadyRunning = errors.New(errors.ErrCodeConflict, "receipt consumer already running")

// readerInterface abstracts kafka.Reader for tests.
type readerInterface interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// ReceiptConsumer consumes email delivery receipts and records them.
type ReceiptConsumer struct {
	reader        readerInterface
	notifications domnotification.Repository
	logger        logging.Logger

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewReceiptConsumer builds the consumer for the email status topic.
func NewReceiptConsumer(cfg config.KafkaConfig, notifications domnotification.Repository, log logging.Logger) (*ReceiptConsumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "kafka brokers required")
	}
	if cfg.GroupID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "kafka group_id required")
	}
	startOffset := kafkago.FirstOffset
	if cfg.AutoOffsetReset == "latest" {
		startOffset = kafkago.LastOffset
	}
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       TopicEmailStatus,
		StartOffset: startOffset,
		MinBytes:    1,
		MaxBytes:    10 * 1024 * 1024,
	})
	return &ReceiptConsumer{
		reader:        reader,
		notifications: notifications,
		logger:        log.Named("receipt_consumer"),
	}, nil
}

// newReceiptConsumerWithReader injects a reader (tests).
func newReceiptConsumerWithReader(r readerInterface, notifications domnotification.Repository, log logging.Logger) *ReceiptConsumer {
	return &ReceiptConsumer{reader: r, notifications: notifications, logger: log}
}

// Start launches the consume loop. Returns immediately; Stop shuts it down.
func (c *ReceiptConsumer) Start(ctx context.Context) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.consumeLoop(ctx)
	c.logger.Info("receipt consumer started")
	return nil
}

// Stop cancels the loop and closes the reader.
func (c *ReceiptConsumer) Stop() error {
	if !c.running.Swap(false) {
		return nil
	}
	c.cancel()
	c.wg.Wait()
	return c.reader.Close()
}

func (c *ReceiptConsumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("failed to fetch receipt", logging.Err(err))
			time.Sleep(time.Second)
			continue
		}

		// Malformed receipts are logged and committed; retrying cannot fix
		// them and they would wedge the partition.
		if err := c.handleReceipt(ctx, msg.Value); err != nil {
			c.logger.Warn("dropping bad delivery receipt",
				logging.Int64("offset", msg.Offset),
				logging.Err(err))
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("failed to commit receipt offset", logging.Err(err))
		}
	}
}

func (c *ReceiptConsumer) handleReceipt(ctx context.Context, value []byte) error {
	env, err := ParseEnvelope(value)
	if err != nil {
		return err
	}
	var receipt EmailReceiptPayload
	if err := env.DecodePayload(&receipt); err != nil {
		return err
	}
	if receipt.NotificationID == "" {
		return errors.New(errors.ErrCodeValidation, "receipt missing notification_id")
	}

	var status domnotification.ChannelStatus
	switch receipt.Status {
	case string(domnotification.StatusSent):
		status = domnotification.StatusSent
	case string(domnotification.StatusFailed):
		status = domnotification.StatusFailed
	default:
		return errors.Newf(errors.ErrCodeValidation, "unknown receipt status %q", receipt.Status)
	}

	if err := c.notifications.UpdateChannelStatus(ctx, common.ID(receipt.NotificationID), status); err != nil {
		return err
	}
	c.logger.Debug("delivery receipt recorded",
		logging.String("notification_id", receipt.NotificationID),
		logging.String("status", receipt.Status))
	return nil
}
