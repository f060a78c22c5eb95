package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gerai-labs/backend-gerai/internal/auth"
	"github.com/gerai-labs/backend-gerai/internal/common"
)

func newService(now time.Time) *auth.Service {
	return &auth.Service{
		Secret: []byte("test-secret"),
		Issuer: "gerai",
		TTL:    15 * time.Minute,
		Now:    func() time.Time { return now },
	}
}

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newService(now)

	token, err := svc.IssueAccessToken("u1", common.RoleAdmin)
	require.NoError(t, err)

	userID, role, err := svc.ParseAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "u1", userID)
	require.Equal(t, common.RoleAdmin, role)
}

func TestRoleDefaultsToUser(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newService(now)

	token, err := svc.IssueAccessToken("u1", "")
	require.NoError(t, err)
	_, role, err := svc.ParseAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, common.RoleUser, role)
}

func TestExpiredTokenRejected(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newService(issued)
	token, err := svc.IssueAccessToken("u1", common.RoleUser)
	require.NoError(t, err)

	svc.Now = func() time.Time { return issued.Add(time.Hour) }
	_, _, err = svc.ParseAccessToken(token)
	require.Error(t, err)
}

func TestWrongSecretRejected(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newService(now)
	token, err := svc.IssueAccessToken("u1", common.RoleUser)
	require.NoError(t, err)

	other := newService(now)
	other.Secret = []byte("different")
	_, _, err = other.ParseAccessToken(token)
	require.Error(t, err)
}

func TestRequireAuthMiddleware(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newService(now)
	mw := auth.Middleware{Service: svc}

	var gotUser, gotRole string
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = common.UserID(r.Context())
		gotRole = common.Role(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := svc.IssueAccessToken("u1", common.RoleVendor)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "u1", gotUser)
	require.Equal(t, common.RoleVendor, gotRole)
}
