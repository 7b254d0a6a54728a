// Package repositories provides the PostgreSQL-backed implementations of the
// domain repository interfaces. Every query is tenant-scoped and
// parameterised; no SQL is ever built from user input.
package repositories

import (
	"database/sql"
	"time"
)

// nullTime converts a nullable column into a *time.Time.
func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// dayKey truncates a timestamp to its calendar date for the reminder log.
func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
