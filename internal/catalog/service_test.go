package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/gerai-labs/backend-gerai/internal/catalog"
)

type fakeStore struct {
	products map[string]catalog.Product
	calls    [][]string
}

func (f *fakeStore) FindByIDs(ctx context.Context, tenantID string, ids []string) ([]catalog.Product, error) {
	f.calls = append(f.calls, ids)
	out := make([]catalog.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func newCache(t *testing.T) *catalog.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return catalog.NewCache(client, time.Minute)
}

func TestFindByIDsPopulatesAndUsesCache(t *testing.T) {
	store := &fakeStore{products: map[string]catalog.Product{
		"p1": {ID: "p1", Name: "Kopi", Price: 25000, Stock: 3},
		"p2": {ID: "p2", Name: "Teh", Price: 12000, Stock: 9},
	}}
	svc := &catalog.Service{Store: store, Cache: newCache(t)}
	ctx := context.Background()

	got, err := svc.FindByIDs(ctx, "shopa", []string{"p1", "p2", "unknown"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "Kopi", got["p1"].Name)
	require.Len(t, store.calls, 1)

	// Second lookup is served from the cache; only the unknown id misses.
	got, err = svc.FindByIDs(ctx, "shopa", []string{"p1", "p2"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Len(t, store.calls, 1)
}

func TestFindByIDsCacheIsTenantScoped(t *testing.T) {
	store := &fakeStore{products: map[string]catalog.Product{
		"p1": {ID: "p1", Name: "Kopi", Price: 25000},
	}}
	svc := &catalog.Service{Store: store, Cache: newCache(t)}
	ctx := context.Background()

	_, err := svc.FindByIDs(ctx, "shopa", []string{"p1"})
	require.NoError(t, err)
	_, err = svc.FindByIDs(ctx, "shopb", []string{"p1"})
	require.NoError(t, err)
	require.Len(t, store.calls, 2)
}

func TestFindByIDsWithoutCacheClient(t *testing.T) {
	store := &fakeStore{products: map[string]catalog.Product{
		"p1": {ID: "p1", Name: "Kopi"},
	}}
	svc := &catalog.Service{Store: store, Cache: catalog.NewCache(nil, 0)}

	got, err := svc.FindByIDs(context.Background(), "shopa", []string{"p1"})
	require.NoError(t, err)
	require.Equal(t, "Kopi", got["p1"].Name)
}
