// internal/infrastructure/messaging/kafka/topics.go
//
// Topic names and the event envelope shared by producer and consumer. Every
// message on the wire is an EventEnvelope; the payload carries the
// type-specific body.

package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/fileready/fileready/pkg/errors"
)

// Topic constants.
const (
	// TopicEmailSend carries outbound email jobs for the external mailer.
	TopicEmailSend = "notification.email.send"

	// TopicEmailStatus carries delivery receipts back from the mailer.
	TopicEmailStatus = "notification.email.status"

	// TopicScoreUpdated announces recomputed compliance scores.
	TopicScoreUpdated = "compliance.score.updated"
)

// Event type names carried in envelopes.
const (
	EventEmailJob     = "notification.email_job"
	EventEmailReceipt = "notification.email_receipt"
	EventScoreUpdated = "compliance.score_updated"
)

// sourceService identifies this process in envelope metadata.
const sourceService = "fileready-core"

// EventEnvelope standardizes messages on every topic.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

// EmailReceiptPayload is the body of a delivery receipt from the mailer.
type EmailReceiptPayload struct {
	NotificationID string    `json:"notification_id"`
	Status         string    `json:"status"` // "sent" | "failed"
	Detail         string    `json:"detail,omitempty"`
	DeliveredAt    time.Time `json:"delivered_at"`
}

// ScoreUpdatedPayload is the body of a score-updated event.
type ScoreUpdatedPayload struct {
	TenantID     string    `json:"tenant_id"`
	ClientID     string    `json:"client_id"`
	ScoreValue   int       `json:"score_value"`
	Level        string    `json:"level"`
	CalculatedAt time.Time `json:"calculated_at"`
}

// NewEventEnvelope wraps a payload in a fresh envelope.
func NewEventEnvelope(eventType string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal event payload")
	}
	return &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        sourceService,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: "v1",
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the envelope payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return errors.New(errors.ErrCodeValidation, "event payload is empty")
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal event payload")
	}
	return nil
}

// ParseEnvelope unmarshals a raw message value into an envelope.
func ParseEnvelope(value []byte) (*EventEnvelope, error) {
	if len(value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal event envelope")
	}
	return &env, nil
}
