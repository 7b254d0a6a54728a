// pkg/types/common/types.go
//
// Shared primitive types used across domains: identifiers, pagination, the
// API response envelope, and batch result shapes.

package common

import (
	"time"

	"github.com/google/uuid"
)

// ID is a generic entity identifier.
type ID string

// NewID returns a fresh random identifier.
func NewID() ID {
	return ID(uuid.NewString())
}

func (id ID) String() string { return string(id) }

// TenantID identifies a tenant (a firm using the platform).
type TenantID string

func (t TenantID) String() string { return string(t) }

// UserID identifies a staff user within a tenant.
type UserID string

func (u UserID) String() string { return string(u) }

// BaseEntity carries the fields shared by all persisted aggregates.
type BaseEntity struct {
	ID        ID        `json:"id"`
	TenantID  TenantID  `json:"tenant_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Pagination describes a page request or response window.
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total,omitempty"`
}

// SortOrder is the direction of a sort field.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ErrorDetail is the wire shape of an error inside an API response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIResponse is the uniform envelope returned by every API endpoint.
type APIResponse[T any] struct {
	Success    bool         `json:"success"`
	Data       T            `json:"data,omitempty"`
	Error      *ErrorDetail `json:"error,omitempty"`
	Pagination *Pagination  `json:"pagination,omitempty"`
	RequestID  string       `json:"request_id,omitempty"`
	Timestamp  time.Time    `json:"timestamp"`
}

// TenantError records one tenant's failure inside a multi-tenant batch run.
// Batch operations isolate per-tenant failures into a slice of these instead
// of aborting the whole run.
type TenantError struct {
	TenantID TenantID `json:"tenant_id"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

// Progress reports how far a multi-tenant batch job has advanced. Emitted by
// workers while iterating tenants so long scans are observable mid-flight.
type Progress struct {
	Current  int      `json:"current"`
	Total    int      `json:"total"`
	TenantID TenantID `json:"tenant_id,omitempty"`
}

// HealthStatus classifies a component health probe result.
type HealthStatus string

const (
	HealthUp       HealthStatus = "up"
	HealthDown     HealthStatus = "down"
	HealthDegraded HealthStatus = "degraded"
)

// ComponentHealth is one dependency's probe result in a readiness response.
type ComponentHealth struct {
	Name    string        `json:"name"`
	Status  HealthStatus  `json:"status"`
	Latency time.Duration `json:"latency"`
	Message string        `json:"message,omitempty"`
}
