package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(t *testing.T, handler http.Handler, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	if userID != "" {
		req = req.WithContext(ContextWithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRequireAllAllows(t *testing.T) {
	store := newMockStore()
	store.addRole("role-admin", "admin", "ROLES_MANAGE")
	store.grant("user-1", "role-admin", nil)
	svc := newTestService(store)
	mw := Middleware{Service: svc, Logger: testLogger()}

	handler := mw.RequireAll("ROLES_MANAGE")(okHandler())
	rec := doRequest(t, handler, "user-1")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAllDeniesMissingPermission(t *testing.T) {
	store := newMockStore()
	store.addRole("role-viewer", "tour_viewer", "TOURS_VIEW")
	store.grant("user-1", "role-viewer", nil)
	svc := newTestService(store)
	mw := Middleware{Service: svc, Logger: testLogger()}

	handler := mw.RequireAll("ROLES_MANAGE")(okHandler())
	rec := doRequest(t, handler, "user-1")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestRequireAllDeniesAnonymous(t *testing.T) {
	svc := newTestService(newMockStore())
	mw := Middleware{Service: svc, Logger: testLogger()}

	handler := mw.RequireAll("ROLES_MANAGE")(okHandler())
	rec := doRequest(t, handler, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAnyAllowsPartialGrant(t *testing.T) {
	store := newMockStore()
	store.addRole("role-viewer", "tour_viewer", "TOURS_VIEW")
	store.grant("user-1", "role-viewer", nil)
	svc := newTestService(store)
	mw := Middleware{Service: svc, Logger: testLogger()}

	handler := mw.RequireAny("ROLES_MANAGE", "TOURS_VIEW")(okHandler())
	rec := doRequest(t, handler, "user-1")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireResourceAccess(t *testing.T) {
	store := newMockStore()
	store.addRole("role-manager", "tour_manager", "TOURS_VIEW")
	store.grant("user-1", "role-manager", ptr("tour-1"))
	svc := newTestService(store)
	mw := Middleware{Service: svc, Logger: testLogger()}

	extract := func(r *http.Request) (string, string, error) {
		userID, _ := UserIDFromContext(r.Context())
		return userID, r.URL.Query().Get("tour"), nil
	}

	handler := mw.RequireResourceAccess(ResourceTour, "TOURS_VIEW", extract)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/resource?tour=tour-1", nil)
	req = req.WithContext(ContextWithUserID(req.Context(), "user-1"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/resource?tour=tour-2", nil)
	req = req.WithContext(ContextWithUserID(req.Context(), "user-1"))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "access denied to tour tour-2")
}

func TestRequireResourceAccessDeniedDecisionsAudited(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	mw := Middleware{Service: svc, Logger: testLogger()}

	extract := HeaderExtractor(func(r *http.Request) string { return "tour-1" })
	handler := mw.RequireResourceAccess(ResourceTour, "TOURS_VIEW", extract)(okHandler())

	rec := doRequest(t, handler, "user-1")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	records := store.auditRecords()
	require.Len(t, records, 1)
	assert.False(t, records[0].Success)
	assert.Equal(t, "access", records[0].Action)
}

func TestUserIDContextRoundTrip(t *testing.T) {
	ctx := ContextWithUserID(t.Context(), "user-1")
	id, ok := UserIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "user-1", id)

	_, ok = UserIDFromContext(t.Context())
	assert.False(t, ok)
}
