// internal/application/reminder/common_test.go
//
// Shared fakes for the reminder application tests.

package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fileready/fileready/internal/config"
	domclient "github.com/fileready/fileready/internal/domain/client"
	domnotification "github.com/fileready/fileready/internal/domain/notification"
	"github.com/fileready/fileready/pkg/errors"
	"github.com/fileready/fileready/pkg/types/common"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func dueIn(n int) time.Time { return testNow.AddDate(0, 0, n) }

func testPolicy() config.ReminderPolicy {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg.Reminder
}

type mockUserDirectory struct {
	roleHolders []*domnotification.Recipient
	assignees   map[common.ID][]*domnotification.Recipient
	rolesErr    error
}

func (m *mockUserDirectory) ListByRoles(_ context.Context, _ common.TenantID, _ []string) ([]*domnotification.Recipient, error) {
	if m.rolesErr != nil {
		return nil, m.rolesErr
	}
	return m.roleHolders, nil
}

func (m *mockUserDirectory) ListAssignees(_ context.Context, _ common.TenantID, _ domnotification.EntityKind, entityID common.ID) ([]*domnotification.Recipient, error) {
	return m.assignees[entityID], nil
}

type mockNotificationRepo struct {
	mu      sync.Mutex
	created []*domnotification.Notification
	err     error
}

func (m *mockNotificationRepo) Create(_ context.Context, n *domnotification.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, n)
	return nil
}

func (m *mockNotificationRepo) ListByRecipient(_ context.Context, tenantID common.TenantID, userID common.UserID, _ int) ([]*domnotification.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domnotification.Notification
	for _, n := range m.created {
		if n.TenantID == tenantID && n.RecipientID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, _ common.TenantID, id common.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.created {
		if n.ID == id {
			if !n.Read {
				n.Read = true
				at := testNow
				n.ReadAt = &at
			}
			return nil
		}
	}
	return errors.New(errors.ErrCodeNotificationNotFound, "notification not found")
}

func (m *mockNotificationRepo) UpdateChannelStatus(_ context.Context, id common.ID, status domnotification.ChannelStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.created {
		if n.ID == id {
			n.ChannelStatus = status
			return nil
		}
	}
	return errors.New(errors.ErrCodeNotificationNotFound, "notification not found")
}

type firedKey struct {
	tenant    common.TenantID
	kind      domnotification.EntityKind
	entity    common.ID
	threshold int
	day       string
}

type mockReminderLog struct {
	mu    sync.Mutex
	fired map[firedKey]bool
}

func newMockReminderLog() *mockReminderLog {
	return &mockReminderLog{fired: map[firedKey]bool{}}
}

func (m *mockReminderLog) key(tenantID common.TenantID, kind domnotification.EntityKind, entityID common.ID, threshold int, day time.Time) firedKey {
	return firedKey{tenantID, kind, entityID, threshold, day.Format("2006-01-02")}
}

func (m *mockReminderLog) AlreadyFired(_ context.Context, tenantID common.TenantID, kind domnotification.EntityKind, entityID common.ID, threshold int, day time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fired[m.key(tenantID, kind, entityID, threshold, day)], nil
}

func (m *mockReminderLog) RecordFired(_ context.Context, log *domnotification.ReminderLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fired[m.key(log.TenantID, log.EntityKind, log.EntityID, log.Threshold, log.FiredOn)] = true
	return nil
}

type mockEmailPublisher struct {
	mu   sync.Mutex
	jobs []*domnotification.EmailJob
	err  error
}

func (m *mockEmailPublisher) PublishEmailJob(_ context.Context, job *domnotification.EmailJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.jobs = append(m.jobs, job)
	return nil
}

// mockSnapshotRepo serves the scanner's read paths per tenant.
type mockSnapshotRepo struct {
	mu       sync.Mutex
	clients  map[common.TenantID][]*domclient.Client
	filings  map[common.TenantID][]*domclient.Filing
	docs     map[common.TenantID][]*domclient.Document
	listErr  map[common.TenantID]error
	flagged  map[common.ID]bool
	flagCall int
}

func newMockSnapshotRepo() *mockSnapshotRepo {
	return &mockSnapshotRepo{
		clients: map[common.TenantID][]*domclient.Client{},
		filings: map[common.TenantID][]*domclient.Filing{},
		docs:    map[common.TenantID][]*domclient.Document{},
		listErr: map[common.TenantID]error{},
		flagged: map[common.ID]bool{},
	}
}

func (m *mockSnapshotRepo) GetClient(_ context.Context, tenantID common.TenantID, clientID common.ID) (*domclient.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.clients[tenantID] {
		if c.ID == clientID {
			return c, nil
		}
	}
	return nil, errors.New(errors.ErrCodeClientNotFound, "client not found")
}

func (m *mockSnapshotRepo) ListActiveClients(_ context.Context, tenantID common.TenantID) ([]*domclient.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clients[tenantID], nil
}

func (m *mockSnapshotRepo) GetSnapshot(_ context.Context, _ common.TenantID, _ common.ID) (*domclient.Snapshot, error) {
	return nil, fmt.Errorf("not used by the scanner")
}

func (m *mockSnapshotRepo) ListOutstandingFilings(_ context.Context, tenantID common.TenantID) ([]*domclient.Filing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.listErr[tenantID]; err != nil {
		return nil, err
	}
	var out []*domclient.Filing
	for _, f := range m.filings[tenantID] {
		if f.Status.Outstanding() {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *mockSnapshotRepo) ListExpiringDocuments(_ context.Context, tenantID common.TenantID, withinDays int) ([]*domclient.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	horizon := testNow.AddDate(0, 0, withinDays)
	var out []*domclient.Document
	for _, d := range m.docs[tenantID] {
		if d.HasExpiry() && d.Latest.ExpiryDate.Before(horizon) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockSnapshotRepo) FlagFilingUrgent(_ context.Context, _ common.TenantID, filingID common.ID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flagCall++
	if m.flagged[filingID] {
		return false, nil
	}
	m.flagged[filingID] = true
	return true, nil
}

type mockTenantDirectory struct {
	tenants []common.TenantID
}

func (m *mockTenantDirectory) ListActiveTenants(_ context.Context) ([]common.TenantID, error) {
	return m.tenants, nil
}

func recipient(id, name string) *domnotification.Recipient {
	return &domnotification.Recipient{
		UserID: common.UserID(id),
		Name:   name,
		Email:  name + "@example.com",
	}
}

var _ domnotification.Repository = (*mockNotificationRepo)(nil)
var _ domnotification.ReminderLogRepository = (*mockReminderLog)(nil)
var _ domnotification.UserDirectory = (*mockUserDirectory)(nil)
var _ domclient.SnapshotRepository = (*mockSnapshotRepo)(nil)
var _ domclient.TenantDirectory = (*mockTenantDirectory)(nil)
