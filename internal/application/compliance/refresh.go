// internal/application/compliance/refresh.go
//
// Batch recomputation of compliance scores. A refresh run walks one tenant
// (or all active tenants), evaluates every active client, and upserts the
// latest score. Per-client and per-tenant failures are isolated: a broken
// client skips to the next, a broken tenant is recorded in the run result
// and the remaining tenants still complete.

package compliance

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	domclient "github.com/fileready/fileready/internal/domain/client"
	domcompliance "github.com/fileready/fileready/internal/domain/compliance"
	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/pkg/errors"
	"github.com/fileready/fileready/pkg/types/common"
)

// clientConcurrency bounds parallel evaluations within one tenant. Upserts
// for different clients share no mutable state, so this is safe.
const clientConcurrency = 4

// ScoreEventPublisher announces recomputed scores to downstream consumers.
type ScoreEventPublisher interface {
	PublishScoreUpdated(ctx context.Context, score *domcompliance.Score) error
}

// ProgressFunc receives batch progress while a run iterates tenants.
type ProgressFunc func(p common.Progress)

// RefreshResult summarizes one refresh run.
type RefreshResult struct {
	TenantsProcessed int                  `json:"tenants_processed"`
	ClientsScored    int                  `json:"clients_scored"`
	ClientsFailed    int                  `json:"clients_failed"`
	Errors           []common.TenantError `json:"errors,omitempty"`
	StartedAt        time.Time            `json:"started_at"`
	FinishedAt       time.Time            `json:"finished_at"`
}

// Refresher recomputes and persists compliance scores.
type Refresher interface {
	// RefreshClient evaluates and persists one client's score.
	RefreshClient(ctx context.Context, tenantID common.TenantID, clientID common.ID) (*domcompliance.Result, error)

	// RefreshTenants runs a full refresh for the given tenants; an empty
	// slice means every active tenant. progress may be nil.
	RefreshTenants(ctx context.Context, tenantIDs []common.TenantID, progress ProgressFunc) (*RefreshResult, error)
}

type refresher struct {
	engine  Engine
	clients domclient.SnapshotRepository
	tenants domclient.TenantDirectory
	scores  domcompliance.ScoreRepository
	events  ScoreEventPublisher
	logger  logging.Logger
	now     func() time.Time
}

// NewRefresher constructs the refresh service. events may be nil when no
// broker is wired (tests, CLI one-offs).
func NewRefresher(
	engine Engine,
	clients domclient.SnapshotRepository,
	tenants domclient.TenantDirectory,
	scores domcompliance.ScoreRepository,
	events ScoreEventPublisher,
	logger logging.Logger,
	now func() time.Time,
) Refresher {
	if now == nil {
		now = time.Now
	}
	return &refresher{
		engine:  engine,
		clients: clients,
		tenants: tenants,
		scores:  scores,
		events:  events,
		logger:  logger.Named("refresh"),
		now:     now,
	}
}

func (r *refresher) RefreshClient(ctx context.Context, tenantID common.TenantID, clientID common.ID) (*domcompliance.Result, error) {
	result, err := r.engine.Evaluate(ctx, tenantID, clientID)
	if err != nil {
		return nil, err
	}

	score := domcompliance.ScoreFromResult(result)
	if err := r.scores.Upsert(ctx, score); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeScorePersistFailed, "failed to persist compliance score").
			WithDetail("tenant_id=%s client_id=%s", tenantID, clientID)
	}

	if r.events != nil {
		if err := r.events.PublishScoreUpdated(ctx, score); err != nil {
			// The score is persisted; a lost event is not worth failing
			// the refresh over.
			r.logger.Warn("score event publish failed",
				logging.String("tenant_id", string(tenantID)),
				logging.String("client_id", string(clientID)),
				logging.Err(err),
			)
		}
	}

	return result, nil
}

func (r *refresher) RefreshTenants(ctx context.Context, tenantIDs []common.TenantID, progress ProgressFunc) (*RefreshResult, error) {
	res := &RefreshResult{StartedAt: r.now()}

	if len(tenantIDs) == 0 {
		all, err := r.tenants.ListActiveTenants(ctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list tenants")
		}
		tenantIDs = all
	}

	for i, tid := range tenantIDs {
		if progress != nil {
			progress(common.Progress{Current: i + 1, Total: len(tenantIDs), TenantID: tid})
		}

		scored, failed, err := r.refreshTenant(ctx, tid)
		res.ClientsScored += scored
		res.ClientsFailed += failed
		if err != nil {
			// One tenant's failure must not abort the others.
			r.logger.Error("tenant refresh failed",
				logging.String("tenant_id", string(tid)),
				logging.Err(err),
			)
			res.Errors = append(res.Errors, common.TenantError{
				TenantID: tid,
				Code:     errors.GetCode(err).String(),
				Message:  err.Error(),
			})
			continue
		}
		res.TenantsProcessed++
	}

	res.FinishedAt = r.now()
	r.logger.Info("refresh run finished",
		logging.Int("tenants", res.TenantsProcessed),
		logging.Int("clients_scored", res.ClientsScored),
		logging.Int("clients_failed", res.ClientsFailed),
		logging.Int("tenant_errors", len(res.Errors)),
	)
	return res, nil
}

func (r *refresher) refreshTenant(ctx context.Context, tenantID common.TenantID) (scored, failed int, err error) {
	clients, err := r.clients.ListActiveClients(ctx, tenantID)
	if err != nil {
		return 0, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list clients").
			WithDetail("tenant_id=%s", tenantID)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(clientConcurrency)

	for _, c := range clients {
		c := c
		g.Go(func() error {
			if _, cerr := r.RefreshClient(gctx, tenantID, c.ID); cerr != nil {
				// Per-client isolation: log, count, move on.
				r.logger.Warn("client refresh failed",
					logging.String("tenant_id", string(tenantID)),
					logging.String("client_id", string(c.ID)),
					logging.Err(cerr),
				)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			scored++
			mu.Unlock()
			return nil
		})
	}

	if werr := g.Wait(); werr != nil {
		return scored, failed, werr
	}
	return scored, failed, nil
}
