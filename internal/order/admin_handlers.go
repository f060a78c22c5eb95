package order

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gerai-labs/backend-gerai/internal/common"
	"github.com/gerai-labs/backend-gerai/internal/tenant"
)

// StatusNotifier is called after a successful transition. Implementations
// must not block the request longer than their own timeout.
type StatusNotifier interface {
	OrderStatusChanged(ctx context.Context, tenantID string, o Order, from, to Status)
}

// AdminHandler provides administrative order management endpoints.
type AdminHandler struct {
	Svc      *Service
	Notifier StatusNotifier
}

type patchStatusRequest struct {
	Status string `json:"status"`
}

// PatchStatus moves the order through the status state machine.
func (h *AdminHandler) PatchStatus(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return
	}
	tenantID, ok := tenant.From(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "MISSING_TENANT", "missing tenant context", nil)
		return
	}
	orderID := strings.TrimSpace(chi.URLParam(r, "id"))
	if orderID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "order id is required", nil)
		return
	}
	var req patchStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	target, err := ParseStatus(req.Status)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown status", nil)
		return
	}

	before, err := h.Svc.Store.Get(r.Context(), tenantID, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	updated, err := h.Svc.Transition(r.Context(), tenantID, orderID, target, common.Role(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if h.Notifier != nil {
		h.Notifier.OrderStatusChanged(r.Context(), tenantID, updated, before.OrderStatus, target)
	}
	common.JSONData(w, http.StatusOK, updated)
}

// List returns a tenant-wide order listing with status filter and sorting.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return
	}
	tenantID, ok := tenant.From(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "MISSING_TENANT", "missing tenant context", nil)
		return
	}
	filters, ok := parseFilters(w, r)
	if !ok {
		return
	}
	page, perPage := common.ParsePagination(r, h.Svc.DefaultLimit)

	result, err := h.Svc.ListForAdmin(r.Context(), tenantID, filters, PageRequest{Page: page, Limit: perPage}, common.Role(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(result.Total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data": result.Orders,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: int(result.Total),
			TotalPages: result.TotalPages,
		},
	})
}

// Delete removes an order permanently, whatever its status.
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return
	}
	tenantID, ok := tenant.From(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "MISSING_TENANT", "missing tenant context", nil)
		return
	}
	orderID := strings.TrimSpace(chi.URLParam(r, "id"))
	if orderID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "order id is required", nil)
		return
	}
	if err := h.Svc.Delete(r.Context(), tenantID, orderID, common.Role(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
