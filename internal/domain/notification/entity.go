// internal/domain/notification/entity.go
//
// Notification aggregate and the reminder-log marker used for cross-run
// deduplication. Read state is a typed field pair with a dedicated update
// path, not a loose metadata bag.

package notification

import (
	"time"

	"github.com/fileready/fileready/pkg/types/common"
)

// Channel is the delivery channel of a notification.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelInApp Channel = "in_app"
	ChannelSMS   Channel = "sms"
)

// ChannelStatus tracks outbound delivery on the notification's channel.
type ChannelStatus string

const (
	StatusPending ChannelStatus = "pending"
	StatusSent    ChannelStatus = "sent"
	StatusFailed  ChannelStatus = "failed"
)

// EntityKind says what kind of entity a reminder refers to.
type EntityKind string

const (
	EntityFiling   EntityKind = "filing"
	EntityDocument EntityKind = "document"
)

// Urgency classifies how close a deadline is.
type Urgency string

const (
	UrgencyUrgent Urgency = "urgent" // <= 3 days by default policy
	UrgencyHigh   Urgency = "high"   // <= 7 days
	UrgencyNormal Urgency = "normal"
)

// Metadata is the typed payload attached to a reminder notification.
type Metadata struct {
	EntityKind   EntityKind `json:"entity_kind"`
	EntityID     common.ID  `json:"entity_id"`
	EntityName   string     `json:"entity_name,omitempty"`
	ClientID     common.ID  `json:"client_id,omitempty"`
	ClientName   string     `json:"client_name,omitempty"`
	DueDate      time.Time  `json:"due_date"`
	DaysUntilDue int        `json:"days_until_due"`
	Urgency      Urgency    `json:"urgency"`
}

// Notification is one in-app notification record for one recipient. Exactly
// one is created per (recipient, entity, threshold) per day.
type Notification struct {
	ID            common.ID       `json:"id"`
	TenantID      common.TenantID `json:"tenant_id"`
	RecipientID   common.UserID   `json:"recipient_user_id"`
	Type          Channel         `json:"type"`
	ChannelStatus ChannelStatus   `json:"channel_status"`
	Message       string          `json:"message"`
	Metadata      Metadata        `json:"metadata"`

	// Read state: a typed boolean plus timestamp, set only via MarkRead.
	Read   bool       `json:"read"`
	ReadAt *time.Time `json:"read_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Recipient is one user who should be notified about an entity.
type Recipient struct {
	UserID common.UserID `json:"user_id"`
	Name   string        `json:"name"`
	Email  string        `json:"email"`

	// Source records how the recipient was selected: "role" for
	// tenant-wide role holders, "assignee" for entity-linked assignees.
	// A user matched by both keeps the first source seen.
	Source string `json:"source"`
}

// ReminderLog is the persisted marker that a threshold fired for an entity
// on a given day. The scanner consults it so reruns within the same day do
// not re-notify, and so exact-match firing is resilient to missed scans.
type ReminderLog struct {
	TenantID   common.TenantID `json:"tenant_id"`
	EntityKind EntityKind      `json:"entity_kind"`
	EntityID   common.ID       `json:"entity_id"`
	Threshold  int             `json:"threshold"`
	FiredOn    time.Time       `json:"fired_on"` // date precision
}

// EmailJob is the outbound email contract published for the external mail
// sender. NotificationID correlates the email back to the in-app record.
type EmailJob struct {
	RecipientEmail string          `json:"recipient_email"`
	RecipientName  string          `json:"recipient_name"`
	Subject        string          `json:"subject"`
	Template       string          `json:"template"`
	Data           Metadata        `json:"data"`
	NotificationID common.ID       `json:"notification_id,omitempty"`
	TenantID       common.TenantID `json:"tenant_id"`
}
