// internal/domain/compliance/repository.go

package compliance

import (
	"context"

	"github.com/fileready/fileready/pkg/types/common"
)

// RuleSetRepository reads the tenant's rule catalog.
type RuleSetRepository interface {
	// ListActive returns the tenant's active rule sets with their rules.
	ListActive(ctx context.Context, tenantID common.TenantID) ([]*RuleSet, error)

	// GetByID returns one rule set with its rules.
	GetByID(ctx context.Context, tenantID common.TenantID, id common.ID) (*RuleSet, error)
}

// ScoreRepository persists the latest score per (tenant, client).
type ScoreRepository interface {
	// Upsert creates the row if absent, otherwise fully overwrites it.
	// Keyed by (tenant_id, client_id); safe to call concurrently for
	// different clients and idempotent for the same client.
	Upsert(ctx context.Context, score *Score) error

	// Get returns the latest persisted score, or a ScoreNotFound error.
	Get(ctx context.Context, tenantID common.TenantID, clientID common.ID) (*Score, error)

	// ListByTenant returns every persisted score of a tenant.
	ListByTenant(ctx context.Context, tenantID common.TenantID) ([]*Score, error)
}
