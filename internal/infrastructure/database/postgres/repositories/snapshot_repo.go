// internal/infrastructure/database/postgres/repositories/snapshot_repo.go
//
// Read-model access to clients, documents (latest version only), and filings.
// Document and filing CRUD lives in the external client-management service;
// this side only reads, except for the narrow urgent-flag write.

package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/lib/pq"

	domclient "github.com/fileready/fileready/internal/domain/client"
	"github.com/fileready/fileready/internal/infrastructure/database/postgres"
	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/pkg/errors"
	"github.com/fileready/fileready/pkg/types/common"
)

// ClientSnapshotRepo implements client.SnapshotRepository.
type ClientSnapshotRepo struct {
	db     *sql.DB
	logger logging.Logger
}

// NewClientSnapshotRepo constructs the repository.
func NewClientSnapshotRepo(conn *postgres.Connection, log logging.Logger) *ClientSnapshotRepo {
	return &ClientSnapshotRepo{db: conn.DB(), logger: log.Named("snapshot_repo")}
}

const clientColumns = `id, tenant_id, name, type, sector, active`

func scanClient(row interface{ Scan(...interface{}) error }) (*domclient.Client, error) {
	var c domclient.Client
	var sector sql.NullString
	if err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.Type, &sector, &c.Active); err != nil {
		return nil, err
	}
	c.Sector = sector.String
	return &c, nil
}

// GetClient returns one client of the tenant.
func (r *ClientSnapshotRepo) GetClient(ctx context.Context, tenantID common.TenantID, clientID common.ID) (*domclient.Client, error) {
	c, err := scanClient(r.db.QueryRowContext(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE tenant_id = $1 AND id = $2`, tenantID, clientID))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.Newf(errors.ErrCodeClientNotFound, "client %s not found in tenant %s", clientID, tenantID)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load client")
	}
	return c, nil
}

// ListActiveClients returns every active client of the tenant.
func (r *ClientSnapshotRepo) ListActiveClients(ctx context.Context, tenantID common.TenantID) ([]*domclient.Client, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE tenant_id = $1 AND active
		ORDER BY name`, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list clients")
	}
	defer rows.Close()

	var out []*domclient.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan client")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate clients")
	}
	return out, nil
}

// GetSnapshot loads the client with its documents (latest versions) and
// filings in three queries.
func (r *ClientSnapshotRepo) GetSnapshot(ctx context.Context, tenantID common.TenantID, clientID common.ID) (*domclient.Snapshot, error) {
	c, err := r.GetClient(ctx, tenantID, clientID)
	if err != nil {
		return nil, err
	}
	docs, err := r.listDocuments(ctx, tenantID, clientID)
	if err != nil {
		return nil, err
	}
	filings, err := r.listFilings(ctx, tenantID, clientID)
	if err != nil {
		return nil, err
	}
	return &domclient.Snapshot{Client: c, Documents: docs, Filings: filings}, nil
}

// listDocuments returns the client's documents, each with its most recently
// uploaded version. DISTINCT ON keeps exactly one version row per document.
func (r *ClientSnapshotRepo) listDocuments(ctx context.Context, tenantID common.TenantID, clientID common.ID) ([]*domclient.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT d.id, d.tenant_id, d.client_id, d.type_name,
		       v.id, v.issue_date, v.expiry_date, v.uploaded_at
		FROM documents d
		LEFT JOIN (
			SELECT DISTINCT ON (document_id)
			       document_id, id, issue_date, expiry_date, uploaded_at
			FROM document_versions
			ORDER BY document_id, uploaded_at DESC
		) v ON v.document_id = d.id
		WHERE d.tenant_id = $1 AND d.client_id = $2
		ORDER BY d.type_name`, tenantID, clientID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list documents")
	}
	defer rows.Close()

	var out []*domclient.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan document")
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate documents")
	}
	return out, nil
}

func scanDocument(rows *sql.Rows) (*domclient.Document, error) {
	var d domclient.Document
	var verID sql.NullString
	var issue, expiry, uploaded sql.NullTime
	if err := rows.Scan(&d.ID, &d.TenantID, &d.ClientID, &d.TypeName,
		&verID, &issue, &expiry, &uploaded); err != nil {
		return nil, err
	}
	if verID.Valid {
		d.Latest = &domclient.DocumentVersion{
			ID:         common.ID(verID.String),
			IssueDate:  nullTime(issue),
			ExpiryDate: nullTime(expiry),
			UploadedAt: uploaded.Time,
		}
	}
	return &d, nil
}

const filingColumns = `id, tenant_id, client_id, type_name, frequency, status, period_end, due_date, urgent_flagged_at`

func scanFiling(rows *sql.Rows) (*domclient.Filing, error) {
	var f domclient.Filing
	var flagged sql.NullTime
	if err := rows.Scan(&f.ID, &f.TenantID, &f.ClientID, &f.TypeName,
		&f.Frequency, &f.Status, &f.PeriodEnd, &f.DueDate, &flagged); err != nil {
		return nil, err
	}
	f.UrgentFlaggedAt = nullTime(flagged)
	return &f, nil
}

func (r *ClientSnapshotRepo) listFilings(ctx context.Context, tenantID common.TenantID, clientID common.ID) ([]*domclient.Filing, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+filingColumns+`
		FROM filings
		WHERE tenant_id = $1 AND client_id = $2
		ORDER BY period_end DESC`, tenantID, clientID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list filings")
	}
	defer rows.Close()
	return collectFilings(rows)
}

// ListOutstandingFilings returns the tenant's filings still needing action.
func (r *ClientSnapshotRepo) ListOutstandingFilings(ctx context.Context, tenantID common.TenantID) ([]*domclient.Filing, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+filingColumns+`
		FROM filings
		WHERE tenant_id = $1 AND status = ANY($2)
		ORDER BY due_date`, tenantID,
		pq.Array([]string{string(domclient.FilingDraft), string(domclient.FilingPrepared)}))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list outstanding filings")
	}
	defer rows.Close()
	return collectFilings(rows)
}

func collectFilings(rows *sql.Rows) ([]*domclient.Filing, error) {
	var out []*domclient.Filing
	for rows.Next() {
		f, err := scanFiling(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan filing")
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate filings")
	}
	return out, nil
}

// ListExpiringDocuments returns documents whose latest version expires within
// the horizon. Already-expired documents are excluded; the score engine
// handles those separately.
func (r *ClientSnapshotRepo) ListExpiringDocuments(ctx context.Context, tenantID common.TenantID, withinDays int) ([]*domclient.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT d.id, d.tenant_id, d.client_id, d.type_name,
		       v.id, v.issue_date, v.expiry_date, v.uploaded_at
		FROM documents d
		JOIN (
			SELECT DISTINCT ON (document_id)
			       document_id, id, issue_date, expiry_date, uploaded_at
			FROM document_versions
			ORDER BY document_id, uploaded_at DESC
		) v ON v.document_id = d.id
		WHERE d.tenant_id = $1
		  AND v.expiry_date IS NOT NULL
		  AND v.expiry_date >= CURRENT_DATE
		  AND v.expiry_date <= CURRENT_DATE + $2::int
		ORDER BY v.expiry_date`, tenantID, withinDays)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list expiring documents")
	}
	defer rows.Close()

	var out []*domclient.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan document")
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate documents")
	}
	return out, nil
}

// FlagFilingUrgent records the urgent marker. Set-if-null: the WHERE clause
// makes the write a no-op when an earlier run already set the flag, and the
// affected-row count tells the caller which case happened.
func (r *ClientSnapshotRepo) FlagFilingUrgent(ctx context.Context, tenantID common.TenantID, filingID common.ID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE filings
		SET urgent_flagged_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND urgent_flagged_at IS NULL`,
		tenantID, filingID)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to flag filing urgent")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read affected rows")
	}
	return n > 0, nil
}

// TenantDirectoryRepo implements client.TenantDirectory.
type TenantDirectoryRepo struct {
	db     *sql.DB
	logger logging.Logger
}

// NewTenantDirectoryRepo constructs the directory.
func NewTenantDirectoryRepo(conn *postgres.Connection, log logging.Logger) *TenantDirectoryRepo {
	return &TenantDirectoryRepo{db: conn.DB(), logger: log.Named("tenant_repo")}
}

// ListActiveTenants returns the ids of every active tenant.
func (r *TenantDirectoryRepo) ListActiveTenants(ctx context.Context) ([]common.TenantID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM tenants WHERE active ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list tenants")
	}
	defer rows.Close()

	var out []common.TenantID
	for rows.Next() {
		var id common.TenantID
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan tenant id")
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate tenants")
	}
	return out, nil
}

var (
	_ domclient.SnapshotRepository = (*ClientSnapshotRepo)(nil)
	_ domclient.TenantDirectory    = (*TenantDirectoryRepo)(nil)
)
