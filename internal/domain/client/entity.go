// internal/domain/client/entity.go
//
// Read-model entities for clients and their compliance-relevant artifacts:
// documents (with versioned expiry dates) and regulatory filings. This core
// never mutates these aggregates except the narrow urgent-flag write on a
// filing; CRUD ownership lives in the external client-management service.

package client

import (
	"sort"
	"time"

	"github.com/fileready/fileready/pkg/types/common"
)

// ClientType classifies a client for rule-set applicability filtering.
type ClientType string

const (
	TypeCompany     ClientType = "company"
	TypeIndividual  ClientType = "individual"
	TypePartnership ClientType = "partnership"
	TypeTrust       ClientType = "trust"
	TypeCharity     ClientType = "charity"
)

// Client is one client of a tenant firm.
type Client struct {
	ID       common.ID       `json:"id"`
	TenantID common.TenantID `json:"tenant_id"`
	Name     string          `json:"name"`
	Type     ClientType      `json:"type"`
	Sector   string          `json:"sector,omitempty"`
	Active   bool            `json:"active"`
}

// DocumentVersion is the latest uploaded version of a document. Issue and
// expiry dates are optional; a document without an expiry never goes stale.
type DocumentVersion struct {
	ID         common.ID  `json:"id"`
	IssueDate  *time.Time `json:"issue_date,omitempty"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
	UploadedAt time.Time  `json:"uploaded_at"`
}

// Document is a client document of a named type together with its latest
// version. Older versions are irrelevant to scoring and scanning.
type Document struct {
	ID       common.ID       `json:"id"`
	TenantID common.TenantID `json:"tenant_id"`
	ClientID common.ID       `json:"client_id"`
	TypeName string          `json:"type_name"`
	Latest   *DocumentVersion `json:"latest,omitempty"`
}

// HasExpiry reports whether the latest version carries an expiry date.
func (d *Document) HasExpiry() bool {
	return d.Latest != nil && d.Latest.ExpiryDate != nil
}

// ExpiredAt reports whether the latest version's expiry has passed at now.
func (d *Document) ExpiredAt(now time.Time) bool {
	return d.HasExpiry() && d.Latest.ExpiryDate.Before(now)
}

// FilingStatus is the lifecycle state of a regulatory filing.
type FilingStatus string

const (
	FilingDraft     FilingStatus = "draft"
	FilingPrepared  FilingStatus = "prepared"
	FilingSubmitted FilingStatus = "submitted"
	FilingApproved  FilingStatus = "approved"
	FilingOverdue   FilingStatus = "overdue"
)

// Outstanding reports whether the filing still needs action and thus is in
// scope for deadline reminders.
func (s FilingStatus) Outstanding() bool {
	return s == FilingDraft || s == FilingPrepared
}

// Done reports whether the filing has been completed.
func (s FilingStatus) Done() bool {
	return s == FilingSubmitted || s == FilingApproved
}

// FilingFrequency is how often a filing type recurs.
type FilingFrequency string

const (
	FrequencyMonthly   FilingFrequency = "monthly"
	FrequencyQuarterly FilingFrequency = "quarterly"
	FrequencyAnnual    FilingFrequency = "annual"
	FrequencyOnce      FilingFrequency = "once"
)

// Filing is one regulatory filing obligation of a client.
type Filing struct {
	ID        common.ID       `json:"id"`
	TenantID  common.TenantID `json:"tenant_id"`
	ClientID  common.ID       `json:"client_id"`
	TypeName  string          `json:"type_name"`
	Frequency FilingFrequency `json:"frequency"`
	Status    FilingStatus    `json:"status"`
	PeriodEnd time.Time       `json:"period_end"`
	DueDate   time.Time       `json:"due_date"`

	// UrgentFlaggedAt is set once when the filing first crosses the most
	// urgent reminder threshold; re-flagging is a no-op.
	UrgentFlaggedAt *time.Time `json:"urgent_flagged_at,omitempty"`
}

// Snapshot is the point-in-time view of a client used by one scoring run.
// Read fresh on every evaluation and never cached across runs, because
// document and filing state changes outside this core.
type Snapshot struct {
	Client    *Client     `json:"client"`
	Documents []*Document `json:"documents"`
	Filings   []*Filing   `json:"filings"`
}

// DocumentOfType returns the client's document with the given type name, or
// nil when none exists.
func (s *Snapshot) DocumentOfType(typeName string) *Document {
	for _, d := range s.Documents {
		if d.TypeName == typeName {
			return d
		}
	}
	return nil
}

// FilingsOfType returns the client's filings of the given type, most recent
// period first.
func (s *Snapshot) FilingsOfType(typeName string) []*Filing {
	var out []*Filing
	for _, f := range s.Filings {
		if f.TypeName == typeName {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PeriodEnd.After(out[j].PeriodEnd)
	})
	return out
}

// DaysUntil returns the whole days remaining from now until due, rounding up
// so any partial day still counts as a full day remaining. Negative when the
// due date has passed.
func DaysUntil(now, due time.Time) int {
	d := due.Sub(now)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) > 0 {
		days++
	}
	return days
}
