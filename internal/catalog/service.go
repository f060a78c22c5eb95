package catalog

import (
	"context"
	"errors"

	"github.com/gerai-labs/backend-gerai/internal/obs"
	"github.com/gerai-labs/backend-gerai/internal/tenant"
)

// Product is the current display snapshot of a catalog entry, used to
// populate cart lines. Orders never reference these live: they embed their
// own copies at checkout time.
type Product struct {
	ID        string `bson:"_id" json:"id"`
	Name      string `bson:"name" json:"name"`
	Price     int64  `bson:"price" json:"price"`
	Thumbnail string `bson:"thumbnail" json:"thumbnail"`
	Stock     int    `bson:"stock" json:"stock"`
}

// Store loads product snapshots from a tenant partition.
type Store interface {
	FindByIDs(ctx context.Context, tenantID string, ids []string) ([]Product, error)
}

// Service resolves product snapshots with a per-tenant cache in front of the store.
type Service struct {
	Store Store
	Cache *Cache
}

// FindByIDs returns the snapshots for the given product ids keyed by id.
// Unknown ids are simply absent from the result.
func (s *Service) FindByIDs(ctx context.Context, tenantID string, ids []string) (map[string]Product, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("catalog service not configured")
	}
	result := make(map[string]Product, len(ids))
	missing := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		var cached Product
		hit, err := s.Cache.GetJSON(ctx, s.cacheKey(tenantID, id), &cached)
		if err != nil {
			return nil, err
		}
		if hit {
			countCache("hit")
			result[id] = cached
			continue
		}
		countCache("miss")
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return result, nil
	}

	products, err := s.Store.FindByIDs(ctx, tenantID, missing)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		result[p.ID] = p
		_ = s.Cache.SetJSON(ctx, s.cacheKey(tenantID, p.ID), p)
	}
	return result, nil
}

func (s *Service) cacheKey(tenantID, productID string) string {
	return tenant.PrefixKey(tenantID, "product:"+productID)
}

func countCache(result string) {
	if obs.ProductCacheTotal != nil {
		obs.ProductCacheTotal.WithLabelValues(result).Inc()
	}
}
