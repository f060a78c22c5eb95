package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gerai-labs/backend-gerai/internal/catalog"
	"github.com/gerai-labs/backend-gerai/internal/common"
	"github.com/gerai-labs/backend-gerai/internal/obs"
)

// ErrNotFound indicates the requested cart could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// Actions reported by Toggle.
const (
	ActionAdded   = "added"
	ActionRemoved = "removed"
)

// Line is a single cart entry. A cart holds at most one line per product,
// which the toggle semantics enforce.
type Line struct {
	ProductID string `bson:"product_id" json:"productId"`
	Quantity  int    `bson:"quantity" json:"quantity"`
}

// Cart is one user's cart inside one tenant partition.
type Cart struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"user_id" json:"userId"`
	Items     []Line    `bson:"items" json:"items"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Store persists carts inside a tenant partition. FindByUser returns
// ErrNotFound when the user has no cart. Writes are single-document and
// last-writer-wins; there is no optimistic locking anywhere in this flow.
type Store interface {
	FindByUser(ctx context.Context, tenantID, userID string) (Cart, error)
	FindPageByUser(ctx context.Context, tenantID, userID string, skip, limit int64) ([]Cart, error)
	CountByUser(ctx context.Context, tenantID, userID string) (int64, error)
	Insert(ctx context.Context, tenantID string, c Cart) error
	Update(ctx context.Context, tenantID string, c Cart) error
}

// ProductFinder resolves product display snapshots for cart lines.
type ProductFinder interface {
	FindByIDs(ctx context.Context, tenantID string, ids []string) (map[string]catalog.Product, error)
}

// ResolvedLine is a cart line joined against the product catalog. Product is
// nil when the referenced product no longer exists.
type ResolvedLine struct {
	ProductID string           `json:"productId"`
	Quantity  int              `json:"quantity"`
	Product   *catalog.Product `json:"product,omitempty"`
}

// Page is a paginated cart read. TotalPages is computed over the count of
// carts matching the user (0 or 1), not over individual lines.
type Page struct {
	Lines      []ResolvedLine `json:"lines"`
	TotalPages int            `json:"totalPages"`
}

// Service encapsulates cart domain operations.
type Service struct {
	Store    Store
	Products ProductFinder
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Toggle adds the product to the user's cart when absent and removes the
// whole line when present. The quantity argument only matters on add; on
// removal it is ignored. Calling Toggle twice with the same product returns
// the cart to its prior state. The cart is created lazily on first add.
func (s *Service) Toggle(ctx context.Context, tenantID, userID, productID string, quantity int) (Cart, string, error) {
	if s == nil || s.Store == nil {
		return Cart{}, "", errors.New("cart service not configured")
	}
	if userID == "" || productID == "" {
		return Cart{}, "", fmt.Errorf("user and product required: %w", ErrInvalidInput)
	}
	if quantity <= 0 {
		return Cart{}, "", fmt.Errorf("quantity must be positive: %w", ErrInvalidInput)
	}

	now := s.now()
	c, err := s.Store.FindByUser(ctx, tenantID, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return Cart{}, "", err
		}
		c = Cart{
			ID:        uuid.NewString(),
			UserID:    userID,
			Items:     []Line{{ProductID: productID, Quantity: quantity}},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.Store.Insert(ctx, tenantID, c); err != nil {
			return Cart{}, "", err
		}
		countToggle(ActionAdded)
		return c, ActionAdded, nil
	}

	action := ActionAdded
	if idx := lineIndex(c.Items, productID); idx >= 0 {
		c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
		action = ActionRemoved
	} else {
		c.Items = append(c.Items, Line{ProductID: productID, Quantity: quantity})
	}
	c.UpdatedAt = now
	if err := s.Store.Update(ctx, tenantID, c); err != nil {
		return Cart{}, "", err
	}
	countToggle(action)
	return c, action, nil
}

// RemoveItem unconditionally drops the line for the product if present.
// It fails with ErrNotFound when the user has no cart at all.
func (s *Service) RemoveItem(ctx context.Context, tenantID, userID, productID string) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	c, err := s.Store.FindByUser(ctx, tenantID, userID)
	if err != nil {
		return Cart{}, err
	}
	idx := lineIndex(c.Items, productID)
	if idx < 0 {
		return c, nil
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	c.UpdatedAt = s.now()
	if err := s.Store.Update(ctx, tenantID, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// ListPage returns the cart's lines joined against the catalog. Skip and
// limit apply to the count of carts matching the user, so an absent cart
// yields an empty, valid page rather than an error.
func (s *Service) ListPage(ctx context.Context, tenantID, userID string, page, limit int) (Page, error) {
	if s == nil || s.Store == nil {
		return Page{}, errors.New("cart service not configured")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	count, err := s.Store.CountByUser(ctx, tenantID, userID)
	if err != nil {
		return Page{}, err
	}
	result := Page{
		Lines:      []ResolvedLine{},
		TotalPages: common.TotalPages(count, limit),
	}

	skip := int64(page-1) * int64(limit)
	carts, err := s.Store.FindPageByUser(ctx, tenantID, userID, skip, int64(limit))
	if err != nil {
		return Page{}, err
	}
	if len(carts) == 0 {
		return result, nil
	}
	lines, err := s.resolve(ctx, tenantID, carts[0].Items)
	if err != nil {
		return Page{}, err
	}
	result.Lines = lines
	return result, nil
}

// ListAll returns the full unpaginated line list, or an empty list when the
// user has no cart. Intended for internal and administrative callers.
func (s *Service) ListAll(ctx context.Context, tenantID, userID string) ([]ResolvedLine, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("cart service not configured")
	}
	c, err := s.Store.FindByUser(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []ResolvedLine{}, nil
		}
		return nil, err
	}
	return s.resolve(ctx, tenantID, c.Items)
}

func (s *Service) resolve(ctx context.Context, tenantID string, items []Line) ([]ResolvedLine, error) {
	lines := make([]ResolvedLine, 0, len(items))
	if len(items) == 0 {
		return lines, nil
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	var products map[string]catalog.Product
	if s.Products != nil {
		var err error
		products, err = s.Products.FindByIDs(ctx, tenantID, ids)
		if err != nil {
			return nil, err
		}
	}
	for _, it := range items {
		line := ResolvedLine{ProductID: it.ProductID, Quantity: it.Quantity}
		if p, ok := products[it.ProductID]; ok {
			snapshot := p
			line.Product = &snapshot
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func lineIndex(items []Line, productID string) int {
	for i, it := range items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

func countToggle(action string) {
	if obs.CartToggleTotal != nil {
		obs.CartToggleTotal.WithLabelValues(action).Inc()
	}
}
