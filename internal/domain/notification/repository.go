// internal/domain/notification/repository.go

package notification

import (
	"context"
	"time"

	"github.com/fileready/fileready/pkg/types/common"
)

// Repository persists notifications. Creation is insert-only; the only
// mutations are the typed read flag and the channel delivery status.
type Repository interface {
	// Create inserts one notification with status pending.
	Create(ctx context.Context, n *Notification) error

	// ListByRecipient returns a user's notifications, newest first.
	ListByRecipient(ctx context.Context, tenantID common.TenantID, userID common.UserID, limit int) ([]*Notification, error)

	// MarkRead sets the read flag and timestamp. Idempotent.
	MarkRead(ctx context.Context, tenantID common.TenantID, id common.ID) error

	// UpdateChannelStatus advances pending -> sent/failed when a delivery
	// receipt arrives from the external mailer.
	UpdateChannelStatus(ctx context.Context, id common.ID, status ChannelStatus) error
}

// ReminderLogRepository persists threshold-fired markers.
type ReminderLogRepository interface {
	// AlreadyFired reports whether the (entity, threshold) marker exists
	// for the given day.
	AlreadyFired(ctx context.Context, tenantID common.TenantID, kind EntityKind, entityID common.ID, threshold int, day time.Time) (bool, error)

	// RecordFired writes the marker. Writing an existing marker is a
	// no-op, so dispatch stays idempotent under concurrent scans.
	RecordFired(ctx context.Context, log *ReminderLog) error
}

// UserDirectory resolves the two recipient sources: tenant-wide role holders
// and users assigned to work items linked to an entity.
type UserDirectory interface {
	// ListByRoles returns the tenant's users holding any of the roles.
	ListByRoles(ctx context.Context, tenantID common.TenantID, roles []string) ([]*Recipient, error)

	// ListAssignees returns users assigned to tasks linked to the entity.
	ListAssignees(ctx context.Context, tenantID common.TenantID, kind EntityKind, entityID common.ID) ([]*Recipient, error)
}
