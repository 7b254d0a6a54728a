// internal/application/compliance/engine.go
//
// The rule-evaluation engine: given a client's current snapshot and the
// tenant's active rule sets, produce a weighted compliance score with a
// tri-level classification, a structured breakdown, and human-readable
// issues and recommendations.
//
// Evaluation is side-effect free: it reads the snapshot fresh, never caches
// it, and never persists. Persistence is the refresh service's job.

package compliance

import (
	"context"
	"fmt"
	"math"
	"time"

	domclient "github.com/fileready/fileready/internal/domain/client"
	domcompliance "github.com/fileready/fileready/internal/domain/compliance"
	"github.com/fileready/fileready/internal/config"
	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/pkg/types/common"
)

// Engine evaluates one client against the tenant's rule catalog.
type Engine interface {
	// Evaluate computes the compliance result for a client. Returns a
	// ClientNotFound error when the client does not exist in the tenant.
	Evaluate(ctx context.Context, tenantID common.TenantID, clientID common.ID) (*domcompliance.Result, error)
}

type engine struct {
	snapshots domclient.SnapshotRepository
	ruleSets  domcompliance.RuleSetRepository
	policy    config.ScorePolicy
	logger    logging.Logger
	now       func() time.Time
}

// NewEngine constructs the scoring engine. The now function is injectable
// for deterministic tests; pass nil for time.Now.
func NewEngine(
	snapshots domclient.SnapshotRepository,
	ruleSets domcompliance.RuleSetRepository,
	policy config.ScorePolicy,
	logger logging.Logger,
	now func() time.Time,
) Engine {
	if now == nil {
		now = time.Now
	}
	return &engine{
		snapshots: snapshots,
		ruleSets:  ruleSets,
		policy:    policy,
		logger:    logger.Named("engine"),
		now:       now,
	}
}

func (e *engine) Evaluate(ctx context.Context, tenant common.TenantID, clientID common.ID) (*domcompliance.Result, error) {
	snap, err := e.snapshots.GetSnapshot(ctx, tenant, clientID)
	if err != nil {
		return nil, err
	}

	ruleSets, err := e.ruleSets.ListActive(ctx, tenant)
	if err != nil {
		return nil, err
	}

	now := e.now()
	res := &domcompliance.Result{
		TenantID:     tenant,
		ClientID:     clientID,
		CalculatedAt: now,
	}

	for _, rs := range ruleSets {
		if !rs.AppliesTo(snap.Client) {
			continue
		}
		for _, rule := range rs.Rules {
			if verr := rule.Validate(); verr != nil {
				// Malformed rule: skip it, keep scoring with the rest.
				e.logger.Warn("skipping malformed rule",
					logging.String("tenant_id", string(tenant)),
					logging.String("rule_set_id", string(rs.ID)),
					logging.String("rule_id", string(rule.ID)),
					logging.Err(verr),
				)
				continue
			}
			switch rule.Type {
			case domcompliance.RuleDocumentRequired:
				e.evaluateDocumentRule(rule, snap, now, res)
			case domcompliance.RuleFilingRequired:
				e.evaluateFilingRule(rule, snap, now, res)
			}
		}
	}

	res.ScoreValue = e.scoreValue(res.Breakdown)
	res.Level = e.classify(res.ScoreValue)

	// Urgency banner goes first so it is the top recommendation in the UI.
	switch res.Level {
	case domcompliance.LevelRed:
		res.Recommendations = append(
			[]string{"Urgent: this client is non-compliant. Resolve the issues below immediately."},
			res.Recommendations...,
		)
	case domcompliance.LevelAmber:
		res.Recommendations = append(
			[]string{"Attention needed: this client is at risk of falling out of compliance."},
			res.Recommendations...,
		)
	}

	return res, nil
}

func (e *engine) evaluateDocumentRule(rule *domcompliance.Rule, snap *domclient.Snapshot, now time.Time, res *domcompliance.Result) {
	b := &res.Breakdown
	b.TotalWeight += rule.Weight

	docType := rule.Condition.DocumentType
	doc := snap.DocumentOfType(docType)
	if doc == nil {
		b.MissingDocuments++
		res.Issues = append(res.Issues, fmt.Sprintf("Missing required document: %s", docType))
		res.Recommendations = append(res.Recommendations, fmt.Sprintf("Request and upload a current %s", docType))
		return
	}

	if !doc.HasExpiry() {
		// A document without an expiry date is treated as indefinitely valid.
		b.AchievedWeight += rule.Weight
		return
	}

	expiry := *doc.Latest.ExpiryDate
	if expiry.Before(now) {
		b.ExpiredDocuments++
		res.Issues = append(res.Issues, fmt.Sprintf("Document expired: %s (expired %s)", docType, expiry.Format("2006-01-02")))
		res.Recommendations = append(res.Recommendations, fmt.Sprintf("Renew the %s; the held version expired on %s", docType, expiry.Format("2006-01-02")))
		return
	}

	warningHorizon := now.AddDate(0, 0, e.policy.DocumentExpiryWarningDays)
	if !expiry.After(warningHorizon) {
		// Still valid: full weight, but flag it so staff act before expiry.
		b.ExpiringDocuments++
		res.Issues = append(res.Issues, fmt.Sprintf("Document expiring soon: %s (expires %s)", docType, expiry.Format("2006-01-02")))
		res.Recommendations = append(res.Recommendations, fmt.Sprintf("Arrange renewal of the %s before %s", docType, expiry.Format("2006-01-02")))
	}
	b.AchievedWeight += rule.Weight
}

func (e *engine) evaluateFilingRule(rule *domcompliance.Rule, snap *domclient.Snapshot, now time.Time, res *domcompliance.Result) {
	b := &res.Breakdown
	b.TotalWeight += rule.Weight

	filingType := rule.Condition.FilingType
	filings := snap.FilingsOfType(filingType)
	if len(filings) == 0 {
		b.OverdueFilings++
		res.Issues = append(res.Issues, fmt.Sprintf("No %s filing on record", filingType))
		res.Recommendations = append(res.Recommendations, fmt.Sprintf("Prepare the first %s for this client", filingType))
		return
	}

	latest := filings[0]
	if latest.Status.Done() {
		b.AchievedWeight += rule.Weight
		return
	}

	if latest.Status == domclient.FilingOverdue || latest.PeriodEnd.Before(now) {
		b.OverdueFilings++
		res.Issues = append(res.Issues, fmt.Sprintf("Filing overdue: %s (period ended %s)", filingType, latest.PeriodEnd.Format("2006-01-02")))
		res.Recommendations = append(res.Recommendations, fmt.Sprintf("Submit the outstanding %s as soon as possible", filingType))
		return
	}

	upcomingHorizon := now.AddDate(0, 0, e.policy.FilingUpcomingWindowDays)
	if !latest.PeriodEnd.After(upcomingHorizon) {
		// Not yet due, not yet done: partial credit per policy.
		b.UpcomingFilings++
		b.AchievedWeight += rule.Weight * e.policy.UpcomingFilingCredit
		res.Issues = append(res.Issues, fmt.Sprintf("Filing due soon: %s (period ends %s)", filingType, latest.PeriodEnd.Format("2006-01-02")))
		res.Recommendations = append(res.Recommendations, fmt.Sprintf("Complete and submit the %s before %s", filingType, latest.PeriodEnd.Format("2006-01-02")))
		return
	}

	b.AchievedWeight += rule.Weight
}

// scoreValue maps the achieved/total weights to an integer score in [0,100].
// A client with no applicable rules is trivially compliant, by policy.
func (e *engine) scoreValue(b domcompliance.Breakdown) int {
	if b.TotalWeight == 0 {
		return 100
	}
	return int(math.Round(b.AchievedWeight / b.TotalWeight * 100))
}

func (e *engine) classify(score int) domcompliance.Level {
	switch {
	case score >= e.policy.GreenThreshold:
		return domcompliance.LevelGreen
	case score >= e.policy.AmberThreshold:
		return domcompliance.LevelAmber
	default:
		return domcompliance.LevelRed
	}
}
