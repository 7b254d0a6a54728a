// internal/application/compliance/common_test.go
//
// Shared fakes for the compliance application tests.

package compliance

import (
	"context"
	"fmt"
	"sync"
	"time"

	domclient "github.com/fileready/fileready/internal/domain/client"
	domcompliance "github.com/fileready/fileready/internal/domain/compliance"
	"github.com/fileready/fileready/internal/config"
	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/pkg/errors"
	"github.com/fileready/fileready/pkg/types/common"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func days(n int) time.Time { return testNow.AddDate(0, 0, n) }

func defaultPolicy() config.ScorePolicy {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg.Score
}

type snapKey struct {
	tenant common.TenantID
	client common.ID
}

type mockSnapshotRepo struct {
	mu        sync.Mutex
	snapshots map[snapKey]*domclient.Snapshot
	clients   map[common.TenantID][]*domclient.Client
	listErr   map[common.TenantID]error
}

func newMockSnapshotRepo() *mockSnapshotRepo {
	return &mockSnapshotRepo{
		snapshots: map[snapKey]*domclient.Snapshot{},
		clients:   map[common.TenantID][]*domclient.Client{},
		listErr:   map[common.TenantID]error{},
	}
}

func (m *mockSnapshotRepo) add(snap *domclient.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := snap.Client
	m.snapshots[snapKey{c.TenantID, c.ID}] = snap
	m.clients[c.TenantID] = append(m.clients[c.TenantID], c)
}

func (m *mockSnapshotRepo) GetClient(_ context.Context, tenantID common.TenantID, clientID common.ID) (*domclient.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.snapshots[snapKey{tenantID, clientID}]; ok {
		return s.Client, nil
	}
	return nil, errors.New(errors.ErrCodeClientNotFound, "client not found")
}

func (m *mockSnapshotRepo) ListActiveClients(_ context.Context, tenantID common.TenantID) ([]*domclient.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.listErr[tenantID]; err != nil {
		return nil, err
	}
	return m.clients[tenantID], nil
}

func (m *mockSnapshotRepo) GetSnapshot(_ context.Context, tenantID common.TenantID, clientID common.ID) (*domclient.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.snapshots[snapKey{tenantID, clientID}]; ok {
		return s, nil
	}
	return nil, errors.New(errors.ErrCodeClientNotFound, "client not found").WithDetail("client_id=%s", clientID)
}

func (m *mockSnapshotRepo) ListOutstandingFilings(_ context.Context, tenantID common.TenantID) ([]*domclient.Filing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domclient.Filing
	for k, s := range m.snapshots {
		if k.tenant != tenantID {
			continue
		}
		for _, f := range s.Filings {
			if f.Status.Outstanding() {
				out = append(out, f)
			}
		}
	}
	return out, nil
}

func (m *mockSnapshotRepo) ListExpiringDocuments(_ context.Context, tenantID common.TenantID, withinDays int) ([]*domclient.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	horizon := testNow.AddDate(0, 0, withinDays)
	var out []*domclient.Document
	for k, s := range m.snapshots {
		if k.tenant != tenantID {
			continue
		}
		for _, d := range s.Documents {
			if d.HasExpiry() && d.Latest.ExpiryDate.Before(horizon) {
				out = append(out, d)
			}
		}
	}
	return out, nil
}

func (m *mockSnapshotRepo) FlagFilingUrgent(_ context.Context, tenantID common.TenantID, filingID common.ID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, s := range m.snapshots {
		if k.tenant != tenantID {
			continue
		}
		for _, f := range s.Filings {
			if f.ID == filingID {
				if f.UrgentFlaggedAt != nil {
					return false, nil
				}
				now := testNow
				f.UrgentFlaggedAt = &now
				return true, nil
			}
		}
	}
	return false, errors.New(errors.ErrCodeNotFound, "filing not found")
}

type mockRuleSetRepo struct {
	sets map[common.TenantID][]*domcompliance.RuleSet
}

func newMockRuleSetRepo() *mockRuleSetRepo {
	return &mockRuleSetRepo{sets: map[common.TenantID][]*domcompliance.RuleSet{}}
}

func (m *mockRuleSetRepo) ListActive(_ context.Context, tenantID common.TenantID) ([]*domcompliance.RuleSet, error) {
	return m.sets[tenantID], nil
}

func (m *mockRuleSetRepo) GetByID(_ context.Context, tenantID common.TenantID, id common.ID) (*domcompliance.RuleSet, error) {
	for _, rs := range m.sets[tenantID] {
		if rs.ID == id {
			return rs, nil
		}
	}
	return nil, errors.New(errors.ErrCodeRuleSetNotFound, "rule set not found")
}

type mockScoreRepo struct {
	mu      sync.Mutex
	rows    map[snapKey]*domcompliance.Score
	upserts int
	failFor map[snapKey]error
}

func newMockScoreRepo() *mockScoreRepo {
	return &mockScoreRepo{rows: map[snapKey]*domcompliance.Score{}, failFor: map[snapKey]error{}}
}

func (m *mockScoreRepo) Upsert(_ context.Context, score *domcompliance.Score) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := snapKey{score.TenantID, score.ClientID}
	if err := m.failFor[k]; err != nil {
		return err
	}
	m.upserts++
	cp := *score
	m.rows[k] = &cp
	return nil
}

func (m *mockScoreRepo) Get(_ context.Context, tenantID common.TenantID, clientID common.ID) (*domcompliance.Score, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.rows[snapKey{tenantID, clientID}]; ok {
		return s, nil
	}
	return nil, errors.New(errors.ErrCodeScoreNotFound, "score not found")
}

func (m *mockScoreRepo) ListByTenant(_ context.Context, tenantID common.TenantID) ([]*domcompliance.Score, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domcompliance.Score
	for k, s := range m.rows {
		if k.tenant == tenantID {
			out = append(out, s)
		}
	}
	return out, nil
}

type mockTenantDirectory struct {
	tenants []common.TenantID
}

func (m *mockTenantDirectory) ListActiveTenants(_ context.Context) ([]common.TenantID, error) {
	return m.tenants, nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []*domcompliance.Score
	err    error
}

func (m *mockPublisher) PublishScoreUpdated(_ context.Context, s *domcompliance.Score) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, s)
	return nil
}

type mockCache struct {
	mu    sync.Mutex
	store map[string]interface{}
	gets  int
	hits  int
}

func newMockCache() *mockCache {
	return &mockCache{store: map[string]interface{}{}}
}

func (m *mockCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	v, ok := m.store[key]
	if !ok {
		return errors.New(errors.ErrCodeCacheError, "cache miss")
	}
	m.hits++
	if d, ok := dest.(*Dashboard); ok {
		*d = *(v.(*Dashboard))
		return nil
	}
	return fmt.Errorf("unsupported dest type %T", dest)
}

func (m *mockCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[key] = value
	return nil
}

// newTestEngine builds an engine around one snapshot and a single rule set.
func newTestEngine(snaps *mockSnapshotRepo, rules *mockRuleSetRepo) Engine {
	return NewEngine(snaps, rules, defaultPolicy(), logging.NewNopLogger(), fixedNow)
}

// oneRuleSet wraps rules into a single active unfiltered set for tenant t.
func oneRuleSet(t common.TenantID, rules ...*domcompliance.Rule) *domcompliance.RuleSet {
	return &domcompliance.RuleSet{
		ID:       "rs-1",
		TenantID: t,
		Name:     "standard",
		Version:  1,
		Active:   true,
		Rules:    rules,
	}
}

func docRule(id string, weight float64, docType string) *domcompliance.Rule {
	return &domcompliance.Rule{
		ID:        common.ID(id),
		Type:      domcompliance.RuleDocumentRequired,
		Weight:    weight,
		Condition: domcompliance.RuleCondition{DocumentType: docType},
	}
}

func filingRule(id string, weight float64, filingType string) *domcompliance.Rule {
	return &domcompliance.Rule{
		ID:        common.ID(id),
		Type:      domcompliance.RuleFilingRequired,
		Weight:    weight,
		Condition: domcompliance.RuleCondition{FilingType: filingType},
	}
}
