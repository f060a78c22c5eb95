package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gerai-labs/backend-gerai/internal/cart"
	"github.com/gerai-labs/backend-gerai/internal/partition"
)

// Carts is the mongo-backed cart store. Each operation resolves the tenant's
// typed accessor through the registry, which caches it after first use.
type Carts struct {
	Registry *partition.Registry
}

func (s Carts) collection(tenantID string) (*mongo.Collection, error) {
	a, err := s.Registry.Accessor(tenantID, accessorCarts, CartsDescriptor())
	if err != nil {
		return nil, err
	}
	return a.Collection(), nil
}

// FindByUser returns the user's cart or cart.ErrNotFound.
func (s Carts) FindByUser(ctx context.Context, tenantID, userID string) (cart.Cart, error) {
	coll, err := s.collection(tenantID)
	if err != nil {
		return cart.Cart{}, err
	}
	var c cart.Cart
	err = coll.FindOne(ctx, bson.M{"user_id": userID}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return cart.Cart{}, cart.ErrNotFound
	}
	if err != nil {
		return cart.Cart{}, fmt.Errorf("carts: find by user: %w", err)
	}
	return c, nil
}

// FindPageByUser applies skip/limit over the carts matching the user.
func (s Carts) FindPageByUser(ctx context.Context, tenantID, userID string, skip, limit int64) ([]cart.Cart, error) {
	coll, err := s.collection(tenantID)
	if err != nil {
		return nil, err
	}
	cursor, err := coll.Find(ctx, bson.M{"user_id": userID}, options.Find().SetSkip(skip).SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("carts: find page: %w", err)
	}
	var carts []cart.Cart
	if err := cursor.All(ctx, &carts); err != nil {
		return nil, fmt.Errorf("carts: decode page: %w", err)
	}
	return carts, nil
}

// CountByUser counts carts matching the user, in practice 0 or 1.
func (s Carts) CountByUser(ctx context.Context, tenantID, userID string) (int64, error) {
	coll, err := s.collection(tenantID)
	if err != nil {
		return 0, err
	}
	count, err := coll.CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("carts: count: %w", err)
	}
	return count, nil
}

// Insert stores a freshly created cart.
func (s Carts) Insert(ctx context.Context, tenantID string, c cart.Cart) error {
	coll, err := s.collection(tenantID)
	if err != nil {
		return err
	}
	if _, err := coll.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("carts: insert: %w", err)
	}
	return nil
}

// Update replaces the cart document. Last writer wins.
func (s Carts) Update(ctx context.Context, tenantID string, c cart.Cart) error {
	coll, err := s.collection(tenantID)
	if err != nil {
		return err
	}
	result, err := coll.ReplaceOne(ctx, bson.M{"_id": c.ID}, c)
	if err != nil {
		return fmt.Errorf("carts: update: %w", err)
	}
	if result.MatchedCount == 0 {
		return cart.ErrNotFound
	}
	return nil
}
