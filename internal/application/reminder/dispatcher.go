// internal/application/reminder/dispatcher.go
//
// Notification dispatch for one (entity, threshold) firing: the cross-run
// dedup check, one in-app notification per recipient, and one outbound
// email job per notification.

package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/fileready/fileready/internal/config"
	domnotification "github.com/fileready/fileready/internal/domain/notification"
	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/pkg/errors"
	"github.com/fileready/fileready/pkg/types/common"
)

// emailTemplate is the template name the external mailer renders reminders
// with.
const emailTemplate = "deadline_reminder"

// EmailPublisher hands outbound email jobs to the external mail sender.
type EmailPublisher interface {
	PublishEmailJob(ctx context.Context, job *domnotification.EmailJob) error
}

// DispatchResult counts what one dispatch produced.
type DispatchResult struct {
	NotificationsCreated int `json:"notifications_created"`
	EmailsQueued         int `json:"emails_queued"`

	// Skipped is true when the (entity, threshold) marker already existed
	// for today and nothing was sent.
	Skipped bool `json:"skipped,omitempty"`
}

// Dispatcher fans a threshold firing out to its recipients.
type Dispatcher interface {
	// Dispatch creates one in-app notification and queues one email per
	// recipient, unless the same (entity, threshold) already fired today.
	Dispatch(ctx context.Context, tenantID common.TenantID, meta domnotification.Metadata, threshold int, recipients []*domnotification.Recipient) (*DispatchResult, error)
}

type dispatcher struct {
	notifications domnotification.Repository
	reminderLog   domnotification.ReminderLogRepository
	emails        EmailPublisher
	policy        config.ReminderPolicy
	logger        logging.Logger
	now           func() time.Time
}

// NewDispatcher constructs the dispatcher. The now function is injectable
// for deterministic tests; pass nil for time.Now.
func NewDispatcher(
	notifications domnotification.Repository,
	reminderLog domnotification.ReminderLogRepository,
	emails EmailPublisher,
	policy config.ReminderPolicy,
	logger logging.Logger,
	now func() time.Time,
) Dispatcher {
	if now == nil {
		now = time.Now
	}
	return &dispatcher{
		notifications: notifications,
		reminderLog:   reminderLog,
		emails:        emails,
		policy:        policy,
		logger:        logger.Named("dispatcher"),
		now:           now,
	}
}

// urgencyFor classifies a reminder by how many days remain.
func urgencyFor(policy config.ReminderPolicy, daysUntilDue int) domnotification.Urgency {
	switch {
	case daysUntilDue <= policy.UrgentWithinDays:
		return domnotification.UrgencyUrgent
	case daysUntilDue <= policy.HighWithinDays:
		return domnotification.UrgencyHigh
	default:
		return domnotification.UrgencyNormal
	}
}

func reminderMessage(meta domnotification.Metadata) string {
	noun := "Filing"
	verb := "due"
	if meta.EntityKind == domnotification.EntityDocument {
		noun = "Document"
		verb = "expiring"
	}
	prefix := ""
	switch meta.Urgency {
	case domnotification.UrgencyUrgent:
		prefix = "URGENT: "
	case domnotification.UrgencyHigh:
		prefix = "Action needed: "
	}
	return fmt.Sprintf("%s%s %q for %s is %s in %d days (%s)",
		prefix, noun, meta.EntityName, meta.ClientName, verb,
		meta.DaysUntilDue, meta.DueDate.Format("2006-01-02"))
}

func (d *dispatcher) Dispatch(ctx context.Context, tenantID common.TenantID, meta domnotification.Metadata, threshold int, recipients []*domnotification.Recipient) (*DispatchResult, error) {
	res := &DispatchResult{}
	now := d.now()

	fired, err := d.reminderLog.AlreadyFired(ctx, tenantID, meta.EntityKind, meta.EntityID, threshold, now)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "reminder log lookup failed").
			WithDetail("tenant_id=%s entity_id=%s", tenantID, meta.EntityID)
	}
	if fired {
		// A rerun within the same day must not re-notify.
		res.Skipped = true
		return res, nil
	}

	if len(recipients) == 0 {
		// Nobody to tell is a valid outcome; still record the marker so a
		// later rerun with recipients does not double-fire other runs.
		d.logger.Debug("no recipients resolved",
			logging.String("tenant_id", string(tenantID)),
			logging.String("entity_id", string(meta.EntityID)),
		)
	}

	meta.Urgency = urgencyFor(d.policy, meta.DaysUntilDue)
	message := reminderMessage(meta)

	for _, rec := range recipients {
		n := &domnotification.Notification{
			ID:            common.NewID(),
			TenantID:      tenantID,
			RecipientID:   rec.UserID,
			Type:          domnotification.ChannelEmail,
			ChannelStatus: domnotification.StatusPending,
			Message:       message,
			Metadata:      meta,
			CreatedAt:     now,
		}
		if err := d.notifications.Create(ctx, n); err != nil {
			return res, errors.Wrap(err, errors.ErrCodeNotificationCreate, "failed to create notification").
				WithDetail("tenant_id=%s recipient=%s", tenantID, rec.UserID)
		}
		res.NotificationsCreated++

		job := &domnotification.EmailJob{
			RecipientEmail: rec.Email,
			RecipientName:  rec.Name,
			Subject:        message,
			Template:       emailTemplate,
			Data:           meta,
			NotificationID: n.ID,
			TenantID:       tenantID,
		}
		if err := d.emails.PublishEmailJob(ctx, job); err != nil {
			// The in-app record exists; the mailer leg failed. Leave the
			// channel status pending and surface the failure.
			return res, errors.Wrap(err, errors.ErrCodeEmailPublishFailed, "failed to queue reminder email").
				WithDetail("notification_id=%s", n.ID)
		}
		res.EmailsQueued++
	}

	if err := d.reminderLog.RecordFired(ctx, &domnotification.ReminderLog{
		TenantID:   tenantID,
		EntityKind: meta.EntityKind,
		EntityID:   meta.EntityID,
		Threshold:  threshold,
		FiredOn:    now,
	}); err != nil {
		return res, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to record reminder marker").
			WithDetail("tenant_id=%s entity_id=%s", tenantID, meta.EntityID)
	}

	return res, nil
}
