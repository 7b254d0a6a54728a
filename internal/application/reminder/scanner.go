// internal/application/reminder/scanner.go
//
// The daily threshold scan: walk each tenant's outstanding filings and
// expiring documents, fire a reminder for every entity whose days-until-due
// exactly matches a configured threshold, and flag filings inside the most
// urgent window. Per-tenant failures are isolated into the scan result.

package reminder

import (
	"context"
	"time"

	"github.com/fileready/fileready/internal/config"
	domclient "github.com/fileready/fileready/internal/domain/client"
	domnotification "github.com/fileready/fileready/internal/domain/notification"
	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/pkg/errors"
	"github.com/fileready/fileready/pkg/types/common"
)

// ScanResult summarizes one threshold scan run.
type ScanResult struct {
	TenantsProcessed     int                  `json:"tenants_processed"`
	EntitiesChecked      int                  `json:"entities_checked"`
	BucketsByThreshold   map[int]int          `json:"buckets_by_threshold"`
	UrgentFlagged        int                  `json:"urgent_flagged"`
	NotificationsCreated int                  `json:"notifications_created"`
	EmailsQueued         int                  `json:"emails_queued"`
	Errors               []common.TenantError `json:"errors,omitempty"`
	StartedAt            time.Time            `json:"started_at"`
	FinishedAt           time.Time            `json:"finished_at"`
}

// Scanner runs the deadline threshold scan.
type Scanner interface {
	// Scan processes the given tenants; an empty slice means every active
	// tenant. kinds restricts the scan to filings, documents, or both;
	// none means both.
	Scan(ctx context.Context, tenantIDs []common.TenantID, kinds ...domnotification.EntityKind) (*ScanResult, error)
}

type scanner struct {
	snapshots  domclient.SnapshotRepository
	tenants    domclient.TenantDirectory
	resolver   Resolver
	dispatcher Dispatcher
	policy     config.ReminderPolicy
	logger     logging.Logger
	now        func() time.Time
}

// NewScanner constructs the threshold scanner. The now function is
// injectable for deterministic tests; pass nil for time.Now.
func NewScanner(
	snapshots domclient.SnapshotRepository,
	tenants domclient.TenantDirectory,
	resolver Resolver,
	dispatcher Dispatcher,
	policy config.ReminderPolicy,
	logger logging.Logger,
	now func() time.Time,
) Scanner {
	if now == nil {
		now = time.Now
	}
	return &scanner{
		snapshots:  snapshots,
		tenants:    tenants,
		resolver:   resolver,
		dispatcher: dispatcher,
		policy:     policy,
		logger:     logger.Named("scanner"),
		now:        now,
	}
}

func (s *scanner) Scan(ctx context.Context, tenantIDs []common.TenantID, kinds ...domnotification.EntityKind) (*ScanResult, error) {
	res := &ScanResult{
		StartedAt:          s.now(),
		BucketsByThreshold: map[int]int{},
	}
	scanFilings, scanDocuments := kindSelection(kinds)

	if len(tenantIDs) == 0 {
		all, err := s.tenants.ListActiveTenants(ctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list tenants")
		}
		tenantIDs = all
	}

	for _, tid := range tenantIDs {
		if err := s.scanTenant(ctx, tid, res, scanFilings, scanDocuments); err != nil {
			// One tenant's failure must not abort the others.
			s.logger.Error("tenant scan failed",
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

	res.FinishedAt = s.now()
	s.logger.Info("threshold scan finished",
		logging.Int("tenants", res.TenantsProcessed),
		logging.Int("entities_checked", res.EntitiesChecked),
		logging.Int("urgent_flagged", res.UrgentFlagged),
		logging.Int("notifications", res.NotificationsCreated),
		logging.Int("tenant_errors", len(res.Errors)),
	)
	return res, nil
}

// kindSelection turns the variadic kind filter into section switches; an
// empty filter scans everything.
func kindSelection(kinds []domnotification.EntityKind) (filings, documents bool) {
	if len(kinds) == 0 {
		return true, true
	}
	for _, k := range kinds {
		switch k {
		case domnotification.EntityFiling:
			filings = true
		case domnotification.EntityDocument:
			documents = true
		}
	}
	return filings, documents
}

func (s *scanner) scanTenant(ctx context.Context, tenantID common.TenantID, res *ScanResult, scanFilings, scanDocuments bool) error {
	now := s.now()
	names := s.clientNames(ctx, tenantID)

	if scanFilings {
		if err := s.scanTenantFilings(ctx, tenantID, now, names, res); err != nil {
			return err
		}
	}
	if scanDocuments {
		if err := s.scanTenantDocuments(ctx, tenantID, now, names, res); err != nil {
			return err
		}
	}
	return nil
}

func (s *scanner) scanTenantFilings(ctx context.Context, tenantID common.TenantID, now time.Time, names func(common.ID) string, res *ScanResult) error {
	filings, err := s.snapshots.ListOutstandingFilings(ctx, tenantID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list outstanding filings").
			WithDetail("tenant_id=%s", tenantID)
	}
	for _, f := range filings {
		res.EntitiesChecked++
		days := domclient.DaysUntil(now, f.DueDate)

		if days <= s.policy.UrgentWithinDays {
			first, ferr := s.snapshots.FlagFilingUrgent(ctx, tenantID, f.ID)
			if ferr != nil {
				s.logger.Warn("urgent flag write failed",
					logging.String("tenant_id", string(tenantID)),
					logging.String("filing_id", string(f.ID)),
					logging.Err(ferr),
				)
			} else if first {
				res.UrgentFlagged++
			}
		}

		threshold, hit := matchThreshold(days, s.policy.FilingThresholdDays)
		if !hit {
			continue
		}
		res.BucketsByThreshold[threshold]++

		meta := domnotification.Metadata{
			EntityKind:   domnotification.EntityFiling,
			EntityID:     f.ID,
			EntityName:   f.TypeName,
			ClientID:     f.ClientID,
			ClientName:   names(f.ClientID),
			DueDate:      f.DueDate,
			DaysUntilDue: days,
		}
		s.fire(ctx, tenantID, meta, threshold, res)
	}
	return nil
}

func (s *scanner) scanTenantDocuments(ctx context.Context, tenantID common.TenantID, now time.Time, names func(common.ID) string, res *ScanResult) error {
	horizon := maxThreshold(s.policy.DocumentThresholdDays)
	docs, err := s.snapshots.ListExpiringDocuments(ctx, tenantID, horizon+1)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list expiring documents").
			WithDetail("tenant_id=%s", tenantID)
	}
	for _, d := range docs {
		if !d.HasExpiry() {
			continue
		}
		res.EntitiesChecked++
		days := domclient.DaysUntil(now, *d.Latest.ExpiryDate)

		threshold, hit := matchThreshold(days, s.policy.DocumentThresholdDays)
		if !hit {
			continue
		}
		res.BucketsByThreshold[threshold]++

		meta := domnotification.Metadata{
			EntityKind:   domnotification.EntityDocument,
			EntityID:     d.ID,
			EntityName:   d.TypeName,
			ClientID:     d.ClientID,
			ClientName:   names(d.ClientID),
			DueDate:      *d.Latest.ExpiryDate,
			DaysUntilDue: days,
		}
		s.fire(ctx, tenantID, meta, threshold, res)
	}

	return nil
}

// fire resolves recipients and dispatches one threshold firing. Dispatch
// failures are logged and counted per entity, not escalated to the tenant.
func (s *scanner) fire(ctx context.Context, tenantID common.TenantID, meta domnotification.Metadata, threshold int, res *ScanResult) {
	recipients, err := s.resolver.Resolve(ctx, tenantID, meta.EntityKind, meta.EntityID)
	if err != nil {
		s.logger.Warn("recipient resolution failed",
			logging.String("tenant_id", string(tenantID)),
			logging.String("entity_id", string(meta.EntityID)),
			logging.Err(err),
		)
		return
	}

	dres, err := s.dispatcher.Dispatch(ctx, tenantID, meta, threshold, recipients)
	if err != nil {
		s.logger.Warn("reminder dispatch failed",
			logging.String("tenant_id", string(tenantID)),
			logging.String("entity_id", string(meta.EntityID)),
			logging.Int("threshold", threshold),
			logging.Err(err),
		)
	}
	if dres != nil {
		res.NotificationsCreated += dres.NotificationsCreated
		res.EmailsQueued += dres.EmailsQueued
	}
}

// clientNames returns a memoizing name lookup; a miss falls back to the raw
// id so a notification is still produced with degraded copy.
func (s *scanner) clientNames(ctx context.Context, tenantID common.TenantID) func(common.ID) string {
	cache := map[common.ID]string{}
	return func(id common.ID) string {
		if name, ok := cache[id]; ok {
			return name
		}
		name := string(id)
		if c, err := s.snapshots.GetClient(ctx, tenantID, id); err == nil {
			name = c.Name
		}
		cache[id] = name
		return name
	}
}

func matchThreshold(days int, thresholds []int) (int, bool) {
	for _, t := range thresholds {
		if days == t {
			return t, true
		}
	}
	return 0, false
}

func maxThreshold(thresholds []int) int {
	max := 0
	for _, t := range thresholds {
		if t > max {
			max = t
		}
	}
	return max
}
