// internal/domain/client/entity_test.go

package client

import (
	"testing"
	"time"
)

func ts(daysFromNow int) time.Time {
	return time.Now().Add(time.Duration(daysFromNow) * 24 * time.Hour)
}

func TestDaysUntil_RoundsUp(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		due  time.Time
		want int
	}{
		{now.Add(7 * 24 * time.Hour), 7},
		{now.Add(6*24*time.Hour + time.Hour), 7}, // partial day counts as a full day
		{now.Add(time.Hour), 1},
		{now, 0},
		{now.Add(-2 * 24 * time.Hour), -2},
	}
	for _, tc := range cases {
		if got := DaysUntil(now, tc.due); got != tc.want {
			t.Errorf("DaysUntil(%v) = %d, want %d", tc.due.Sub(now), got, tc.want)
		}
	}
}

func TestFilingStatus_Outstanding(t *testing.T) {
	outstanding := []FilingStatus{FilingDraft, FilingPrepared}
	settled := []FilingStatus{FilingSubmitted, FilingApproved, FilingOverdue}
	for _, s := range outstanding {
		if !s.Outstanding() {
			t.Errorf("%s should be outstanding", s)
		}
	}
	for _, s := range settled {
		if s.Outstanding() {
			t.Errorf("%s should not be outstanding", s)
		}
	}
	if !FilingSubmitted.Done() || !FilingApproved.Done() || FilingOverdue.Done() {
		t.Error("Done classification wrong")
	}
}

func TestDocument_ExpiredAt(t *testing.T) {
	now := time.Now()
	past := now.Add(-10 * 24 * time.Hour)
	future := now.Add(400 * 24 * time.Hour)

	noVersion := &Document{}
	if noVersion.ExpiredAt(now) || noVersion.HasExpiry() {
		t.Error("document without a version cannot be expired")
	}

	noExpiry := &Document{Latest: &DocumentVersion{}}
	if noExpiry.ExpiredAt(now) {
		t.Error("document without expiry never goes stale")
	}

	expired := &Document{Latest: &DocumentVersion{ExpiryDate: &past}}
	if !expired.ExpiredAt(now) {
		t.Error("past expiry must report expired")
	}

	valid := &Document{Latest: &DocumentVersion{ExpiryDate: &future}}
	if valid.ExpiredAt(now) {
		t.Error("future expiry must not report expired")
	}
}

func TestSnapshot_FilingsOfType_MostRecentFirst(t *testing.T) {
	snap := &Snapshot{
		Filings: []*Filing{
			{TypeName: "vat_return", PeriodEnd: ts(-90)},
			{TypeName: "payroll", PeriodEnd: ts(-5)},
			{TypeName: "vat_return", PeriodEnd: ts(-2)},
			{TypeName: "vat_return", PeriodEnd: ts(-180)},
		},
	}
	got := snap.FilingsOfType("vat_return")
	if len(got) != 3 {
		t.Fatalf("expected 3 filings, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].PeriodEnd.After(got[i-1].PeriodEnd) {
			t.Error("filings must be sorted most recent first")
		}
	}
	if snap.DocumentOfType("missing") != nil {
		t.Error("unknown document type should return nil")
	}
}
