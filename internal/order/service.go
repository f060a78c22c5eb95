package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gerai-labs/backend-gerai/internal/common"
	"github.com/gerai-labs/backend-gerai/internal/obs"
)

// ErrNotFound indicates the requested order could not be located.
var ErrNotFound = errors.New("order not found")

// ErrForbidden is returned when the actor's role lacks rights for the operation.
var ErrForbidden = errors.New("forbidden")

// ErrInvalidTransition is returned when the target status is not reachable
// from the order's current status.
var ErrInvalidTransition = errors.New("invalid status transition")

// Line is a snapshot of a product at purchase time, embedded in the order.
// Later catalog changes never alter it.
type Line struct {
	ProductID       string `bson:"product_id" json:"productId"`
	Name            string `bson:"name" json:"name"`
	Quantity        int    `bson:"quantity" json:"quantity"`
	UnitPrice       int64  `bson:"unit_price" json:"unitPrice"`
	TotalPrice      int64  `bson:"total_price" json:"totalPrice"`
	Variant         string `bson:"variant,omitempty" json:"variant,omitempty"`
	DiscountApplied int64  `bson:"discount_applied,omitempty" json:"discountApplied,omitempty"`
}

// Shipment holds the delivery destination captured at checkout.
type Shipment struct {
	Address    string `bson:"address" json:"address"`
	City       string `bson:"city" json:"city"`
	PostalCode string `bson:"postal_code" json:"postalCode"`
	Phone      string `bson:"phone,omitempty" json:"phone,omitempty"`
}

// Order is a purchase inside one tenant partition.
type Order struct {
	ID            string    `bson:"_id" json:"id"`
	OrderNumber   string    `bson:"order_number" json:"orderNumber"`
	Products      []Line    `bson:"products" json:"products"`
	Shipment      Shipment  `bson:"shipment" json:"shipment"`
	UserID        string    `bson:"user_id" json:"userId"`
	VendorID      string    `bson:"vendor_id" json:"vendorId"`
	OrderStatus   Status    `bson:"order_status" json:"orderStatus"`
	OrderTotal    int64     `bson:"order_total" json:"orderTotal"`
	TotalDiscount int64     `bson:"total_discount" json:"totalDiscount"`
	CreatedAt     time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updatedAt"`
}

// Filters narrow and sort order listings.
type Filters struct {
	Status   *Status
	SortKey  string
	SortDesc bool
}

// PageRequest carries pagination parameters.
type PageRequest struct {
	Page  int
	Limit int
}

// Page is a paginated order listing.
type Page struct {
	Orders     []Order `json:"orders"`
	Total      int64   `json:"total"`
	TotalPages int     `json:"totalPages"`
}

// ListQuery is the store-level shape of a listing: optional owner and status
// filters plus sort and window.
type ListQuery struct {
	UserID   string
	Status   *Status
	SortKey  string
	SortDesc bool
	Skip     int64
	Limit    int64
}

// Store persists orders inside a tenant partition. Get and UpdateStatus
// return ErrNotFound when the order does not resolve. Writes are
// single-document and last-writer-wins.
type Store interface {
	Get(ctx context.Context, tenantID, orderID string) (Order, error)
	UpdateStatus(ctx context.Context, tenantID, orderID string, status Status, updatedAt time.Time) (Order, error)
	List(ctx context.Context, tenantID string, q ListQuery) ([]Order, int64, error)
	Delete(ctx context.Context, tenantID, orderID string) error
}

// Service governs the order lifecycle: the status state machine plus
// ownership-scoped and administrative listings.
type Service struct {
	Store        Store
	Now          func() time.Time
	DefaultLimit int
	MaxLimit     int
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Transition moves an order to target when the state machine allows it.
// Only the administrative role may transition orders. The write touches the
// status and updatedAt alone; totals, discounts and lines are untouched.
func (s *Service) Transition(ctx context.Context, tenantID, orderID string, target Status, actorRole string) (Order, error) {
	if s == nil || s.Store == nil {
		return Order{}, errors.New("order service not configured")
	}
	if actorRole != common.RoleAdmin {
		countTransition(target, "forbidden")
		return Order{}, fmt.Errorf("role %q may not change order status: %w", actorRole, ErrForbidden)
	}
	if !target.Valid() {
		countTransition(target, "invalid")
		return Order{}, fmt.Errorf("unknown target status %q: %w", target, ErrInvalidTransition)
	}

	current, err := s.Store.Get(ctx, tenantID, orderID)
	if err != nil {
		return Order{}, err
	}
	if !current.OrderStatus.CanTransition(target) {
		countTransition(target, "invalid")
		return Order{}, fmt.Errorf("cannot move %s order %s to %s: %w", current.OrderStatus, orderID, target, ErrInvalidTransition)
	}

	updated, err := s.Store.UpdateStatus(ctx, tenantID, orderID, target, s.now())
	if err != nil {
		return Order{}, err
	}
	countTransition(target, "ok")
	return updated, nil
}

// ListForAdmin returns a tenant-wide listing. Requires the administrative role.
func (s *Service) ListForAdmin(ctx context.Context, tenantID string, f Filters, p PageRequest, actorRole string) (Page, error) {
	if s == nil || s.Store == nil {
		return Page{}, errors.New("order service not configured")
	}
	if actorRole != common.RoleAdmin {
		return Page{}, fmt.Errorf("role %q may not list all orders: %w", actorRole, ErrForbidden)
	}
	return s.list(ctx, tenantID, "", f, p)
}

// ListForUser returns the listing restricted to orders owned by userID.
func (s *Service) ListForUser(ctx context.Context, tenantID, userID string, f Filters, p PageRequest) (Page, error) {
	if s == nil || s.Store == nil {
		return Page{}, errors.New("order service not configured")
	}
	if userID == "" {
		return Page{}, fmt.Errorf("user id required: %w", ErrNotFound)
	}
	return s.list(ctx, tenantID, userID, f, p)
}

// Delete removes an order outright. The state machine does not guard this:
// any status may be deleted. Administrative role required.
func (s *Service) Delete(ctx context.Context, tenantID, orderID, actorRole string) error {
	if s == nil || s.Store == nil {
		return errors.New("order service not configured")
	}
	if actorRole != common.RoleAdmin {
		return fmt.Errorf("role %q may not delete orders: %w", actorRole, ErrForbidden)
	}
	if err := s.Store.Delete(ctx, tenantID, orderID); err != nil {
		return err
	}
	if obs.OrderDeleteTotal != nil {
		obs.OrderDeleteTotal.Inc()
	}
	return nil
}

func (s *Service) list(ctx context.Context, tenantID, userID string, f Filters, p PageRequest) (Page, error) {
	page, limit := s.window(p)
	q := ListQuery{
		UserID:   userID,
		Status:   f.Status,
		SortKey:  f.SortKey,
		SortDesc: f.SortDesc,
		Skip:     int64(page-1) * int64(limit),
		Limit:    int64(limit),
	}
	orders, total, err := s.Store.List(ctx, tenantID, q)
	if err != nil {
		return Page{}, err
	}
	if orders == nil {
		orders = []Order{}
	}
	return Page{
		Orders:     orders,
		Total:      total,
		TotalPages: common.TotalPages(total, limit),
	}, nil
}

func (s *Service) window(p PageRequest) (page, limit int) {
	page = p.Page
	if page < 1 {
		page = 1
	}
	limit = p.Limit
	if limit < 1 {
		limit = s.DefaultLimit
	}
	if limit < 1 {
		limit = 20
	}
	if s.MaxLimit > 0 && limit > s.MaxLimit {
		limit = s.MaxLimit
	}
	return page, limit
}

func countTransition(target Status, result string) {
	if obs.OrderTransitionTotal != nil {
		obs.OrderTransitionTotal.WithLabelValues(string(target), result).Inc()
	}
}
