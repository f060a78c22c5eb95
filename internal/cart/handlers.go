package cart

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/gerai-labs/backend-gerai/internal/common"
	"github.com/gerai-labs/backend-gerai/internal/tenant"
)

// Handler wires the cart service to HTTP.
type Handler struct {
	Svc          *Service
	Validate     *validator.Validate
	DefaultLimit int
	MaxLimit     int
}

type togglePayload struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// Toggle adds the product to the cart, or removes the whole line when it is
// already present.
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	tenantID, userID, ok := h.requestScope(w, r)
	if !ok {
		return
	}
	var payload togglePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
	}
	cart, action, err := h.Svc.Toggle(r.Context(), tenantID, userID, payload.ProductID, payload.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]any{
		"action": action,
		"cart":   cart,
	})
}

// RemoveItem deletes a product line from the cart.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	tenantID, userID, ok := h.requestScope(w, r)
	if !ok {
		return
	}
	productID := strings.TrimSpace(chi.URLParam(r, "productId"))
	if productID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "product id is required", nil)
		return
	}
	cart, err := h.Svc.RemoveItem(r.Context(), tenantID, userID, productID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]any{"cart": cart})
}

// List returns the user's cart lines joined against the catalog.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	tenantID, userID, ok := h.requestScope(w, r)
	if !ok {
		return
	}
	pageNum, limit := common.ParsePagination(r, h.DefaultLimit)
	if h.MaxLimit > 0 && limit > h.MaxLimit {
		limit = h.MaxLimit
	}
	page, err := h.Svc.ListPage(r.Context(), tenantID, userID, pageNum, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": page.Lines,
		"meta": map[string]any{
			"page":       pageNum,
			"limit":      limit,
			"totalPages": page.TotalPages,
		},
	})
}

func (h *Handler) requestScope(w http.ResponseWriter, r *http.Request) (tenantID, userID string, ok bool) {
	tenantID, ok = tenant.From(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "MISSING_TENANT", "missing tenant context", nil)
		return "", "", false
	}
	userID, ok = common.UserID(r.Context())
	if !ok || userID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return "", "", false
	}
	return tenantID, userID, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
