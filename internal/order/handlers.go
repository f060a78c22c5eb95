package order

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gerai-labs/backend-gerai/internal/common"
	"github.com/gerai-labs/backend-gerai/internal/tenant"
)

// Handler exposes the customer-facing order endpoints.
type Handler struct {
	Svc *Service
}

// List returns the authenticated user's orders, newest first by default.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return
	}
	tenantID, ok := tenant.From(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "MISSING_TENANT", "missing tenant context", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok || userID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	filters, ok := parseFilters(w, r)
	if !ok {
		return
	}
	page, perPage := common.ParsePagination(r, h.Svc.DefaultLimit)

	result, err := h.Svc.ListForUser(r.Context(), tenantID, userID, filters, PageRequest{Page: page, Limit: perPage})
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

func parseFilters(w http.ResponseWriter, r *http.Request) (Filters, bool) {
	var f Filters
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := ParseStatus(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown status filter", nil)
			return Filters{}, false
		}
		f.Status = &status
	}
	f.SortKey = strings.TrimSpace(r.URL.Query().Get("sort"))
	f.SortDesc = !strings.EqualFold(r.URL.Query().Get("order"), "asc")
	return f, true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
	case errors.Is(err, ErrForbidden):
		common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient role", nil)
	case errors.Is(err, ErrInvalidTransition):
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
