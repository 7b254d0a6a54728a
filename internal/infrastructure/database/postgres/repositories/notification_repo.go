// internal/infrastructure/database/postgres/repositories/notification_repo.go
//
// Notification persistence and the reminder-log marker store. Notifications
// are insert-only; the read flag and channel status have dedicated update
// paths and nothing else mutates.

package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	domnotification "github.com/fileready/fileready/internal/domain/notification"
	"github.com/fileready/fileready/internal/infrastructure/database/postgres"
	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/pkg/errors"
	"github.com/fileready/fileready/pkg/types/common"
)

// NotificationRepo implements notification.Repository.
type NotificationRepo struct {
	db     *sql.DB
	logger logging.Logger
}

// NewNotificationRepo constructs the repository.
func NewNotificationRepo(conn *postgres.Connection, log logging.Logger) *NotificationRepo {
	return &NotificationRepo{db: conn.DB(), logger: log.Named("notification_repo")}
}

// Create inserts one notification.
func (r *NotificationRepo) Create(ctx context.Context, n *domnotification.Notification) error {
	metadata, err := json.Marshal(n.Metadata)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal notification metadata")
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO notifications (
			id, tenant_id, recipient_user_id, type, channel_status,
			message, metadata, read, read_at, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		n.ID, n.TenantID, n.RecipientID, n.Type, n.ChannelStatus,
		n.Message, metadata, n.Read, n.ReadAt, n.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeNotificationCreate, "failed to insert notification")
	}
	return nil
}

const notificationColumns = `id, tenant_id, recipient_user_id, type, channel_status,
	message, metadata, read, read_at, created_at`

func scanNotification(rows *sql.Rows) (*domnotification.Notification, error) {
	var n domnotification.Notification
	var metadata []byte
	var readAt sql.NullTime
	if err := rows.Scan(&n.ID, &n.TenantID, &n.RecipientID, &n.Type, &n.ChannelStatus,
		&n.Message, &metadata, &n.Read, &readAt, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.ReadAt = nullTime(readAt)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &n.Metadata); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "malformed notification metadata")
		}
	}
	return &n, nil
}

// ListByRecipient returns a user's notifications, newest first.
func (r *NotificationRepo) ListByRecipient(ctx context.Context, tenantID common.TenantID, userID common.UserID, limit int) ([]*domnotification.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE tenant_id = $1 AND recipient_user_id = $2
		ORDER BY created_at DESC
		LIMIT $3`, tenantID, userID, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list notifications")
	}
	defer rows.Close()

	var out []*domnotification.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan notification")
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate notifications")
	}
	return out, nil
}

// MarkRead sets the read flag. Re-reading keeps the original read timestamp,
// so the call is idempotent.
func (r *NotificationRepo) MarkRead(ctx context.Context, tenantID common.TenantID, id common.ID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications
		SET read = TRUE, read_at = COALESCE(read_at, NOW())
		WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to mark notification read")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read affected rows")
	}
	if n == 0 {
		return errors.Newf(errors.ErrCodeNotificationNotFound, "notification %s not found in tenant %s", id, tenantID)
	}
	return nil
}

// UpdateChannelStatus advances pending -> sent/failed when a delivery receipt
// arrives. A receipt for an unknown or already-settled notification is logged
// and dropped; the mailer may redeliver receipts.
func (r *NotificationRepo) UpdateChannelStatus(ctx context.Context, id common.ID, status domnotification.ChannelStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications
		SET channel_status = $2
		WHERE id = $1 AND channel_status = $3`,
		id, status, domnotification.StatusPending)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update channel status")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		r.logger.Debug("delivery receipt for unknown or settled notification",
			logging.String("notification_id", id.String()),
			logging.String("status", string(status)))
	}
	return nil
}

// ReminderLogRepo implements notification.ReminderLogRepository.
type ReminderLogRepo struct {
	db     *sql.DB
	logger logging.Logger
}

// NewReminderLogRepo constructs the marker store.
func NewReminderLogRepo(conn *postgres.Connection, log logging.Logger) *ReminderLogRepo {
	return &ReminderLogRepo{db: conn.DB(), logger: log.Named("reminder_log_repo")}
}

// AlreadyFired reports whether the (entity, threshold) marker exists for the
// given day.
func (r *ReminderLogRepo) AlreadyFired(ctx context.Context, tenantID common.TenantID, kind domnotification.EntityKind, entityID common.ID, threshold int, day time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM reminder_log
			WHERE tenant_id = $1 AND entity_kind = $2 AND entity_id = $3
			  AND threshold = $4 AND fired_on = $5::date
		)`, tenantID, kind, entityID, threshold, dayKey(day)).Scan(&exists)
	if err != nil && !stderrors.Is(err, sql.ErrNoRows) {
		return false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to check reminder marker")
	}
	return exists, nil
}

// RecordFired writes the marker. ON CONFLICT DO NOTHING keeps concurrent
// scans idempotent.
func (r *ReminderLogRepo) RecordFired(ctx context.Context, log *domnotification.ReminderLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reminder_log (tenant_id, entity_kind, entity_id, threshold, fired_on)
		VALUES ($1,$2,$3,$4,$5::date)
		ON CONFLICT DO NOTHING`,
		log.TenantID, log.EntityKind, log.EntityID, log.Threshold, dayKey(log.FiredOn))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to record reminder marker")
	}
	return nil
}

var (
	_ domnotification.Repository            = (*NotificationRepo)(nil)
	_ domnotification.ReminderLogRepository = (*ReminderLogRepo)(nil)
)
