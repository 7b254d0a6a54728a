package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/pkg/types/common"
)

func tenantEcho(t *testing.T) (http.Handler, *common.TenantID, *common.UserID) {
	t.Helper()
	var gotTenant common.TenantID
	var gotUser common.UserID
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant, ok := TenantFromContext(r.Context())
		require.True(t, ok)
		gotTenant = tenant
		if user, ok := UserFromContext(r.Context()); ok {
			gotUser = user
		}
		w.WriteHeader(http.StatusOK)
	})
	return RequireTenant(logging.NewNopLogger())(inner), &gotTenant, &gotUser
}

func TestRequireTenantFromHeader(t *testing.T) {
	h, tenant, user := tenantEcho(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TenantHeader, "t1")
	req.Header.Set(UserHeader, "u1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, common.TenantID("t1"), *tenant)
	assert.Equal(t, common.UserID("u1"), *user)
	assert.Equal(t, "t1", w.Header().Get(TenantHeader))
}

func TestRequireTenantQueryFallback(t *testing.T) {
	h, tenant, _ := tenantEcho(t)

	req := httptest.NewRequest(http.MethodGet, "/?tenant_id=t2", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, common.TenantID("t2"), *tenant)
}

func TestRequireTenantMissing(t *testing.T) {
	h, _, _ := tenantEcho(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp common.APIResponse[any]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "COMMON_002", resp.Error.Code)
}

func TestRequireTenantMalformed(t *testing.T) {
	h, _, _ := tenantEcho(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TenantHeader, "bad tenant!")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
