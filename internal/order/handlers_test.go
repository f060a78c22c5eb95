package order_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/gerai-labs/backend-gerai/internal/common"
	"github.com/gerai-labs/backend-gerai/internal/order"
	"github.com/gerai-labs/backend-gerai/internal/tenant"
)

func adminRequest(t *testing.T, method, target, body, role string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := tenant.With(req.Context(), "acme")
	ctx = common.WithUser(ctx, "admin-1", role)
	return req.WithContext(ctx)
}

func newAdminRouter(svc *order.Service) *chi.Mux {
	h := &order.AdminHandler{Svc: svc}
	r := chi.NewRouter()
	r.Patch("/admin/orders/{id}/status", h.PatchStatus)
	r.Delete("/admin/orders/{id}", h.Delete)
	r.Get("/admin/orders", h.List)
	return r
}

func TestPatchStatusResponseCodes(t *testing.T) {
	store := newFakeOrderStore()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	svc := &order.Service{Store: store, Now: func() time.Time { return now }}
	router := newAdminRouter(svc)

	store.put("acme", order.Order{ID: "ord-1", UserID: "u1", OrderStatus: order.StatusPending})

	cases := []struct {
		name   string
		target string
		body   string
		role   string
		want   int
	}{
		{"valid transition", "/admin/orders/ord-1/status", `{"status":"CONFIRMED"}`, common.RoleAdmin, http.StatusOK},
		{"invalid transition", "/admin/orders/ord-1/status", `{"status":"DELIVERED"}`, common.RoleAdmin, http.StatusConflict},
		{"unknown status", "/admin/orders/ord-1/status", `{"status":"confirmed"}`, common.RoleAdmin, http.StatusBadRequest},
		{"missing order", "/admin/orders/ghost/status", `{"status":"CONFIRMED"}`, common.RoleAdmin, http.StatusNotFound},
		{"non-admin", "/admin/orders/ord-1/status", `{"status":"PROCESSING"}`, common.RoleUser, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, adminRequest(t, http.MethodPatch, tc.target, tc.body, tc.role))
			require.Equal(t, tc.want, rr.Code)
		})
	}
}

func TestDeleteResponseCodes(t *testing.T) {
	store := newFakeOrderStore()
	svc := &order.Service{Store: store}
	router := newAdminRouter(svc)

	store.put("acme", order.Order{ID: "ord-1", UserID: "u1", OrderStatus: order.StatusShipped})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, adminRequest(t, http.MethodDelete, "/admin/orders/ord-1", "", common.RoleUser))
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, adminRequest(t, http.MethodDelete, "/admin/orders/ord-1", "", common.RoleAdmin))
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, adminRequest(t, http.MethodDelete, "/admin/orders/ord-1", "", common.RoleAdmin))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUserListRequiresAuth(t *testing.T) {
	store := newFakeOrderStore()
	svc := &order.Service{Store: store, DefaultLimit: 20}
	h := &order.Handler{Svc: svc}

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req = req.WithContext(tenant.With(req.Context(), "acme"))
	rr := httptest.NewRecorder()
	h.List(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUserListScopesToOwner(t *testing.T) {
	store := newFakeOrderStore()
	svc := &order.Service{Store: store, DefaultLimit: 20}
	h := &order.Handler{Svc: svc}

	store.put("acme", order.Order{ID: "ord-1", UserID: "u1", OrderStatus: order.StatusPending, CreatedAt: time.Now()})
	store.put("acme", order.Order{ID: "ord-2", UserID: "u2", OrderStatus: order.StatusPending, CreatedAt: time.Now()})

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	ctx := tenant.With(req.Context(), "acme")
	ctx = common.WithUser(ctx, "u1", common.RoleUser)
	rr := httptest.NewRecorder()
	h.List(rr, req.WithContext(ctx))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "1", rr.Header().Get("X-Total-Count"))
}
