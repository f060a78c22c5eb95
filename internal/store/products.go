package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gerai-labs/backend-gerai/internal/catalog"
	"github.com/gerai-labs/backend-gerai/internal/partition"
)

// Products is the mongo-backed product snapshot store.
type Products struct {
	Registry *partition.Registry
}

func (s Products) collection(tenantID string) (*mongo.Collection, error) {
	a, err := s.Registry.Accessor(tenantID, accessorProducts, ProductsDescriptor())
	if err != nil {
		return nil, err
	}
	return a.Collection(), nil
}

// FindByIDs returns the products whose ids are in the given set. Unknown ids
// are silently absent.
func (s Products) FindByIDs(ctx context.Context, tenantID string, ids []string) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	coll, err := s.collection(tenantID)
	if err != nil {
		return nil, err
	}
	cursor, err := coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("products: find by ids: %w", err)
	}
	var products []catalog.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("products: decode: %w", err)
	}
	return products, nil
}

// Upsert stores or replaces a product snapshot, used by the seeder.
func (s Products) Upsert(ctx context.Context, tenantID string, p catalog.Product) error {
	coll, err := s.collection(tenantID)
	if err != nil {
		return err
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := coll.ReplaceOne(ctx, bson.M{"_id": p.ID}, p, opts); err != nil {
		return fmt.Errorf("products: upsert: %w", err)
	}
	return nil
}
