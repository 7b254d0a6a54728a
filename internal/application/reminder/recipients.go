// internal/application/reminder/recipients.go
//
// Recipient resolution for deadline reminders: the union of tenant-wide
// role holders and users assigned to work items linked to the entity,
// deduplicated by user id.

package reminder

import (
	"context"

	"github.com/fileready/fileready/internal/config"
	domnotification "github.com/fileready/fileready/internal/domain/notification"
	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/pkg/errors"
	"github.com/fileready/fileready/pkg/types/common"
)

// Resolver determines who should be notified about an entity.
type Resolver interface {
	// Resolve returns the deduplicated recipient set for the entity. An
	// empty set is a valid outcome, not an error.
	Resolve(ctx context.Context, tenantID common.TenantID, kind domnotification.EntityKind, entityID common.ID) ([]*domnotification.Recipient, error)
}

type resolver struct {
	users  domnotification.UserDirectory
	policy config.ReminderPolicy
	logger logging.Logger
}

// NewResolver constructs the recipient resolver.
func NewResolver(users domnotification.UserDirectory, policy config.ReminderPolicy, logger logging.Logger) Resolver {
	return &resolver{users: users, policy: policy, logger: logger.Named("recipients")}
}

func (r *resolver) Resolve(ctx context.Context, tenantID common.TenantID, kind domnotification.EntityKind, entityID common.ID) ([]*domnotification.Recipient, error) {
	roleHolders, err := r.users.ListByRoles(ctx, tenantID, r.policy.NotifyRoles)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRecipientResolve, "failed to list role holders").
			WithDetail("tenant_id=%s", tenantID)
	}

	assignees, err := r.users.ListAssignees(ctx, tenantID, kind, entityID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRecipientResolve, "failed to list assignees").
			WithDetail("tenant_id=%s entity_id=%s", tenantID, entityID)
	}

	// Role holders come first so a user matched by both keeps "role" as
	// their recorded source.
	seen := make(map[common.UserID]struct{}, len(roleHolders)+len(assignees))
	out := make([]*domnotification.Recipient, 0, len(roleHolders)+len(assignees))
	for _, rec := range roleHolders {
		if _, dup := seen[rec.UserID]; dup {
			continue
		}
		seen[rec.UserID] = struct{}{}
		rec.Source = "role"
		out = append(out, rec)
	}
	for _, rec := range assignees {
		if _, dup := seen[rec.UserID]; dup {
			continue
		}
		seen[rec.UserID] = struct{}{}
		rec.Source = "assignee"
		out = append(out, rec)
	}

	return out, nil
}
