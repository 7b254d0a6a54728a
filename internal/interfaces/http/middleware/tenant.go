// internal/interfaces/http/middleware/tenant.go
//
// Tenant scoping for the API. Every /api/v1 request must carry a tenant
// identifier; handlers read it back from the request context so repository
// calls stay tenant-scoped at the entry point.

package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"time"

	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/pkg/errors"
	"github.com/fileready/fileready/pkg/types/common"
)

type tenantContextKey struct{}

type userContextKey struct{}

// TenantHeader carries the tenant identifier; the query parameter is the
// fallback for clients that cannot set headers.
const (
	TenantHeader     = "X-Tenant-ID"
	TenantQueryParam = "tenant_id"
	UserHeader       = "X-User-ID"
)

// identifierPattern bounds tenant and user identifiers.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// TenantFromContext returns the tenant set by RequireTenant.
func TenantFromContext(ctx context.Context) (common.TenantID, bool) {
	t, ok := ctx.Value(tenantContextKey{}).(common.TenantID)
	return t, ok
}

// UserFromContext returns the caller identity, when the request carried one.
func UserFromContext(ctx context.Context) (common.UserID, bool) {
	u, ok := ctx.Value(userContextKey{}).(common.UserID)
	return u, ok
}

// RequireTenant extracts and validates the tenant identifier, rejecting
// requests without one. The caller's user id is captured opportunistically;
// endpoints that need it enforce its presence themselves.
func RequireTenant(log logging.Logger) func(http.Handler) http.Handler {
	log = log.Named("tenant_middleware")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID := r.Header.Get(TenantHeader)
			if tenantID == "" {
				tenantID = r.URL.Query().Get(TenantQueryParam)
			}
			if tenantID == "" {
				rejectTenant(w, "tenant identifier missing")
				return
			}
			if !identifierPattern.MatchString(tenantID) {
				log.Warn("malformed tenant identifier rejected", logging.String("remote", r.RemoteAddr))
				rejectTenant(w, "tenant identifier malformed")
				return
			}

			ctx := context.WithValue(r.Context(), tenantContextKey{}, common.TenantID(tenantID))
			if userID := r.Header.Get(UserHeader); identifierPattern.MatchString(userID) {
				ctx = context.WithValue(ctx, userContextKey{}, common.UserID(userID))
			}

			w.Header().Set(TenantHeader, tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func rejectTenant(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(common.APIResponse[any]{
		Success: false,
		Error: &common.ErrorDetail{
			Code:    errors.ErrCodeBadRequest.String(),
			Message: message,
		},
		Timestamp: time.Now().UTC(),
	})
}
