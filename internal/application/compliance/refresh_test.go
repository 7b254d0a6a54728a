// internal/application/compliance/refresh_test.go

package compliance

import (
	"context"
	"testing"

	domclient "github.com/fileready/fileready/internal/domain/client"
	domcompliance "github.com/fileready/fileready/internal/domain/compliance"
	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/pkg/errors"
	"github.com/fileready/fileready/pkg/types/common"
)

func snapshotFor(tenant common.TenantID, clientID common.ID) *domclient.Snapshot {
	return &domclient.Snapshot{
		Client: &domclient.Client{ID: clientID, TenantID: tenant, Name: string(clientID), Type: domclient.TypeCompany, Active: true},
	}
}

func newTestRefresher(snaps *mockSnapshotRepo, tenants *mockTenantDirectory, scores *mockScoreRepo, pub ScoreEventPublisher) Refresher {
	rsRepo := newMockRuleSetRepo()
	engine := NewEngine(snaps, rsRepo, defaultPolicy(), logging.NewNopLogger(), fixedNow)
	return NewRefresher(engine, snaps, tenants, scores, pub, logging.NewNopLogger(), fixedNow)
}

func TestRefreshClientPersistsAndPublishes(t *testing.T) {
	snaps := newMockSnapshotRepo()
	snaps.add(snapshotFor("t1", "c1"))
	scores := newMockScoreRepo()
	pub := &mockPublisher{}

	r := newTestRefresher(snaps, &mockTenantDirectory{}, scores, pub)
	res, err := r.RefreshClient(context.Background(), "t1", "c1")
	if err != nil {
		t.Fatalf("RefreshClient: %v", err)
	}
	if res.ScoreValue != 100 {
		t.Errorf("score = %d, want 100 with no rules", res.ScoreValue)
	}

	stored, err := scores.Get(context.Background(), "t1", "c1")
	if err != nil {
		t.Fatalf("score was not persisted: %v", err)
	}
	if stored.LastCalculatedAt != testNow {
		t.Errorf("last calculated at = %v, want %v", stored.LastCalculatedAt, testNow)
	}
	if len(pub.events) != 1 {
		t.Errorf("published events = %d, want 1", len(pub.events))
	}
}

func TestRefreshClientPublishFailureIsNotFatal(t *testing.T) {
	snaps := newMockSnapshotRepo()
	snaps.add(snapshotFor("t1", "c1"))
	scores := newMockScoreRepo()
	pub := &mockPublisher{err: errors.New(errors.ErrCodeExternalService, "broker down")}

	r := newTestRefresher(snaps, &mockTenantDirectory{}, scores, pub)
	if _, err := r.RefreshClient(context.Background(), "t1", "c1"); err != nil {
		t.Fatalf("a lost event must not fail the refresh: %v", err)
	}
	if _, err := scores.Get(context.Background(), "t1", "c1"); err != nil {
		t.Errorf("score must still be persisted: %v", err)
	}
}

func TestRefreshClientUpsertFailure(t *testing.T) {
	snaps := newMockSnapshotRepo()
	snaps.add(snapshotFor("t1", "c1"))
	scores := newMockScoreRepo()
	scores.failFor[snapKey{"t1", "c1"}] = errors.New(errors.ErrCodeDatabaseError, "connection reset")

	r := newTestRefresher(snaps, &mockTenantDirectory{}, scores, nil)
	_, err := r.RefreshClient(context.Background(), "t1", "c1")
	if !errors.IsCode(err, errors.ErrCodeScorePersistFailed) {
		t.Errorf("expected ScorePersistFailed, got %v", err)
	}
}

func TestRefreshTenantsIsolatesTenantFailures(t *testing.T) {
	snaps := newMockSnapshotRepo()
	snaps.add(snapshotFor("t-ok", "c1"))
	snaps.add(snapshotFor("t-ok", "c2"))
	snaps.listErr["t-broken"] = errors.New(errors.ErrCodeDatabaseError, "relation missing")

	tenants := &mockTenantDirectory{tenants: []common.TenantID{"t-broken", "t-ok"}}
	scores := newMockScoreRepo()

	r := newTestRefresher(snaps, tenants, scores, nil)
	res, err := r.RefreshTenants(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("RefreshTenants: %v", err)
	}

	if res.TenantsProcessed != 1 {
		t.Errorf("tenants processed = %d, want 1", res.TenantsProcessed)
	}
	if res.ClientsScored != 2 {
		t.Errorf("clients scored = %d, want 2; the healthy tenant must complete", res.ClientsScored)
	}
	if len(res.Errors) != 1 || res.Errors[0].TenantID != "t-broken" {
		t.Fatalf("errors = %+v, want exactly one for t-broken", res.Errors)
	}
	if res.Errors[0].Code != errors.ErrCodeDatabaseError.String() {
		t.Errorf("error code = %s, want %s", res.Errors[0].Code, errors.ErrCodeDatabaseError)
	}
}

func TestRefreshTenantsIsolatesClientFailures(t *testing.T) {
	snaps := newMockSnapshotRepo()
	snaps.add(snapshotFor("t1", "c1"))
	snaps.add(snapshotFor("t1", "c2"))
	scores := newMockScoreRepo()
	scores.failFor[snapKey{"t1", "c1"}] = errors.New(errors.ErrCodeDatabaseError, "deadlock")

	r := newTestRefresher(snaps, &mockTenantDirectory{tenants: []common.TenantID{"t1"}}, scores, nil)
	res, err := r.RefreshTenants(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("RefreshTenants: %v", err)
	}

	if res.ClientsScored != 1 || res.ClientsFailed != 1 {
		t.Errorf("scored/failed = %d/%d, want 1/1", res.ClientsScored, res.ClientsFailed)
	}
	if res.TenantsProcessed != 1 {
		t.Errorf("a client failure must not fail the tenant, processed = %d", res.TenantsProcessed)
	}
	if _, err := scores.Get(context.Background(), "t1", "c2"); err != nil {
		t.Errorf("the healthy client must still be scored: %v", err)
	}
}

func TestRefreshTenantsReportsProgress(t *testing.T) {
	snaps := newMockSnapshotRepo()
	snaps.add(snapshotFor("t1", "c1"))
	snaps.add(snapshotFor("t2", "c2"))
	tenants := &mockTenantDirectory{tenants: []common.TenantID{"t1", "t2"}}

	var seen []common.Progress
	r := newTestRefresher(snaps, tenants, newMockScoreRepo(), nil)
	if _, err := r.RefreshTenants(context.Background(), nil, func(p common.Progress) {
		seen = append(seen, p)
	}); err != nil {
		t.Fatalf("RefreshTenants: %v", err)
	}

	if len(seen) != 2 {
		t.Fatalf("progress callbacks = %d, want 2", len(seen))
	}
	if seen[0].Current != 1 || seen[0].Total != 2 || seen[1].Current != 2 {
		t.Errorf("progress sequence wrong: %+v", seen)
	}
}

func TestRefreshTenantsExplicitSubset(t *testing.T) {
	snaps := newMockSnapshotRepo()
	snaps.add(snapshotFor("t1", "c1"))
	snaps.add(snapshotFor("t2", "c2"))
	tenants := &mockTenantDirectory{tenants: []common.TenantID{"t1", "t2"}}
	scores := newMockScoreRepo()

	r := newTestRefresher(snaps, tenants, scores, nil)
	res, err := r.RefreshTenants(context.Background(), []common.TenantID{"t2"}, nil)
	if err != nil {
		t.Fatalf("RefreshTenants: %v", err)
	}
	if res.TenantsProcessed != 1 || res.ClientsScored != 1 {
		t.Errorf("processed/scored = %d/%d, want 1/1", res.TenantsProcessed, res.ClientsScored)
	}
	if _, err := scores.Get(context.Background(), "t1", "c1"); err == nil {
		t.Error("tenant t1 was not requested and must not be scored")
	}
}

var _ domcompliance.ScoreRepository = (*mockScoreRepo)(nil)
var _ domclient.SnapshotRepository = (*mockSnapshotRepo)(nil)
var _ domclient.TenantDirectory = (*mockTenantDirectory)(nil)
var _ domcompliance.RuleSetRepository = (*mockRuleSetRepo)(nil)
