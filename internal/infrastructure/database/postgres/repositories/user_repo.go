// internal/infrastructure/database/postgres/repositories/user_repo.go
//
// Recipient lookups for reminder dispatch: tenant-wide role holders and
// task assignees linked to an entity.

package repositories

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	domnotification "github.com/fileready/fileready/internal/domain/notification"
	"github.com/fileready/fileready/internal/infrastructure/database/postgres"
	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/pkg/errors"
	"github.com/fileready/fileready/pkg/types/common"
)

// UserDirectoryRepo implements notification.UserDirectory.
type UserDirectoryRepo struct {
	db     *sql.DB
	logger logging.Logger
}

// NewUserDirectoryRepo constructs the directory.
func NewUserDirectoryRepo(conn *postgres.Connection, log logging.Logger) *UserDirectoryRepo {
	return &UserDirectoryRepo{db: conn.DB(), logger: log.Named("user_repo")}
}

// ListByRoles returns the tenant's active users holding any of the roles.
func (r *UserDirectoryRepo) ListByRoles(ctx context.Context, tenantID common.TenantID, roles []string) ([]*domnotification.Recipient, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT u.id, u.name, u.email
		FROM users u
		JOIN user_roles ur ON ur.user_id = u.id AND ur.tenant_id = u.tenant_id
		WHERE u.tenant_id = $1 AND u.active AND ur.role = ANY($2)
		ORDER BY u.id`, tenantID, pq.Array(roles))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list role holders")
	}
	defer rows.Close()
	return collectRecipients(rows, "role")
}

// ListAssignees returns active users assigned to tasks linked to the entity.
func (r *UserDirectoryRepo) ListAssignees(ctx context.Context, tenantID common.TenantID, kind domnotification.EntityKind, entityID common.ID) ([]*domnotification.Recipient, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT u.id, u.name, u.email
		FROM users u
		JOIN tasks t ON t.assignee_user_id = u.id AND t.tenant_id = u.tenant_id
		WHERE u.tenant_id = $1 AND u.active
		  AND t.entity_kind = $2 AND t.entity_id = $3
		ORDER BY u.id`, tenantID, kind, entityID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list assignees")
	}
	defer rows.Close()
	return collectRecipients(rows, "assignee")
}

func collectRecipients(rows *sql.Rows, source string) ([]*domnotification.Recipient, error) {
	var out []*domnotification.Recipient
	for rows.Next() {
		var rec domnotification.Recipient
		if err := rows.Scan(&rec.UserID, &rec.Name, &rec.Email); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan recipient")
		}
		rec.Source = source
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate recipients")
	}
	return out, nil
}

var _ domnotification.UserDirectory = (*UserDirectoryRepo)(nil)
