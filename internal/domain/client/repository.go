// internal/domain/client/repository.go

package client

import (
	"context"

	"github.com/fileready/fileready/pkg/types/common"
)

// SnapshotRepository reads client state for scoring and scanning. All reads
// are tenant-scoped; implementations must never leak rows across tenants.
type SnapshotRepository interface {
	// GetClient returns the client, or a ClientNotFound error when the id
	// does not exist within the tenant.
	GetClient(ctx context.Context, tenantID common.TenantID, clientID common.ID) (*Client, error)

	// ListActiveClients returns every active client of the tenant.
	ListActiveClients(ctx context.Context, tenantID common.TenantID) ([]*Client, error)

	// GetSnapshot loads the client together with its documents (latest
	// versions only) and filings.
	GetSnapshot(ctx context.Context, tenantID common.TenantID, clientID common.ID) (*Snapshot, error)

	// ListOutstandingFilings returns the tenant's filings whose status is
	// still outstanding (draft or prepared), for the threshold scan.
	ListOutstandingFilings(ctx context.Context, tenantID common.TenantID) ([]*Filing, error)

	// ListExpiringDocuments returns the tenant's documents whose latest
	// version expires within the given horizon in days.
	ListExpiringDocuments(ctx context.Context, tenantID common.TenantID, withinDays int) ([]*Document, error)

	// FlagFilingUrgent records the urgent marker on a filing. Set-if-null:
	// returns true when this call set the flag, false when it was already
	// set by an earlier run.
	FlagFilingUrgent(ctx context.Context, tenantID common.TenantID, filingID common.ID) (bool, error)
}

// TenantDirectory enumerates tenants for all-tenant batch runs.
type TenantDirectory interface {
	// ListActiveTenants returns the ids of every active tenant.
	ListActiveTenants(ctx context.Context) ([]common.TenantID, error)
}
