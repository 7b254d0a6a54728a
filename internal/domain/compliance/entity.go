// internal/domain/compliance/entity.go
//
// Rule catalog aggregates and the scoring result types. A RuleSet is a
// tenant-defined compliance policy; each Rule ties a weight to one required
// document type or filing type. RuleSets are edited by staff and evaluated
// read-only by the engine; the engine never mutates them.

package compliance

import (
	"time"

	"github.com/fileready/fileready/internal/domain/client"
	"github.com/fileready/fileready/pkg/errors"
	"github.com/fileready/fileready/pkg/types/common"
)

// RuleType says what kind of artifact a rule requires.
type RuleType string

const (
	RuleDocumentRequired RuleType = "document_required"
	RuleFilingRequired   RuleType = "filing_required"
)

// RuleCondition names the required artifact. DocumentType is set for
// document_required rules; FilingType (plus optional Frequency) for
// filing_required rules.
type RuleCondition struct {
	DocumentType string                 `json:"document_type,omitempty"`
	FilingType   string                 `json:"filing_type,omitempty"`
	Frequency    client.FilingFrequency `json:"frequency,omitempty"`
}

// Rule is one weighted requirement inside a RuleSet.
//
// Weight is a contribution unit in [0,1], not a percentage: the score is
// achievedWeight / totalWeight over all applicable rules.
type Rule struct {
	ID        common.ID     `json:"id"`
	RuleSetID common.ID     `json:"rule_set_id"`
	Type      RuleType      `json:"type"`
	Condition RuleCondition `json:"condition"`
	Weight    float64       `json:"weight"`
}

// Validate rejects malformed rules. A malformed rule is skipped and logged
// during scoring rather than aborting the evaluation.
func (r *Rule) Validate() error {
	if r.Weight < 0 || r.Weight > 1 {
		return errors.Newf(errors.ErrCodeRuleInvalid, "rule %s: weight %.3f out of [0,1]", r.ID, r.Weight)
	}
	switch r.Type {
	case RuleDocumentRequired:
		if r.Condition.DocumentType == "" {
			return errors.Newf(errors.ErrCodeRuleInvalid, "rule %s: document_required needs a document type", r.ID)
		}
	case RuleFilingRequired:
		if r.Condition.FilingType == "" {
			return errors.Newf(errors.ErrCodeRuleInvalid, "rule %s: filing_required needs a filing type", r.ID)
		}
	default:
		return errors.Newf(errors.ErrCodeRuleInvalid, "rule %s: unknown rule type %q", r.ID, r.Type)
	}
	return nil
}

// RuleSet groups rules under a tenant-owned, versioned policy with an
// applicability filter.
type RuleSet struct {
	ID          common.ID         `json:"id"`
	TenantID    common.TenantID   `json:"tenant_id"`
	Name        string            `json:"name"`
	Version     int               `json:"version"`
	Active      bool              `json:"active"`
	ClientTypes []client.ClientType `json:"client_types,omitempty"`
	Rules       []*Rule           `json:"rules"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// AppliesTo reports whether the rule set covers the given client: either it
// carries no client-type filter, or the client's type is listed.
func (rs *RuleSet) AppliesTo(c *client.Client) bool {
	if len(rs.ClientTypes) == 0 {
		return true
	}
	for _, t := range rs.ClientTypes {
		if t == c.Type {
			return true
		}
	}
	return false
}

// Level is the tri-level classification of a compliance score.
type Level string

const (
	LevelGreen Level = "green"
	LevelAmber Level = "amber"
	LevelRed   Level = "red"
)

// Breakdown carries the per-category counts behind a score.
type Breakdown struct {
	MissingDocuments  int     `json:"missing_documents"`
	ExpiredDocuments  int     `json:"expired_documents"`
	ExpiringDocuments int     `json:"expiring_documents"`
	OverdueFilings    int     `json:"overdue_filings"`
	UpcomingFilings   int     `json:"upcoming_filings"`
	TotalWeight       float64 `json:"total_weight"`
	AchievedWeight    float64 `json:"achieved_weight"`
}

// Result is the ephemeral output of one scoring run for one client.
type Result struct {
	TenantID        common.TenantID `json:"tenant_id"`
	ClientID        common.ID       `json:"client_id"`
	ScoreValue      int             `json:"score_value"`
	Level           Level           `json:"level"`
	Breakdown       Breakdown       `json:"breakdown"`
	Issues          []string        `json:"issues"`
	Recommendations []string        `json:"recommendations"`
	CalculatedAt    time.Time       `json:"calculated_at"`
}

// Score is the persisted latest score for a (tenant, client): one row,
// overwritten each run. Never historized.
type Score struct {
	TenantID         common.TenantID `json:"tenant_id"`
	ClientID         common.ID       `json:"client_id"`
	ScoreValue       int             `json:"score_value"`
	Level            Level           `json:"level"`
	MissingCount     int             `json:"missing_count"`
	ExpiringCount    int             `json:"expiring_count"`
	OverdueFilings   int             `json:"overdue_filings_count"`
	Breakdown        Breakdown       `json:"breakdown"`
	LastCalculatedAt time.Time       `json:"last_calculated_at"`
}

// ScoreFromResult flattens a Result into its persisted shape.
func ScoreFromResult(r *Result) *Score {
	return &Score{
		TenantID:         r.TenantID,
		ClientID:         r.ClientID,
		ScoreValue:       r.ScoreValue,
		Level:            r.Level,
		MissingCount:     r.Breakdown.MissingDocuments,
		ExpiringCount:    r.Breakdown.ExpiringDocuments,
		OverdueFilings:   r.Breakdown.OverdueFilings,
		Breakdown:        r.Breakdown,
		LastCalculatedAt: r.CalculatedAt,
	}
}
