package partition_test

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gerai-labs/backend-gerai/internal/partition"
)

// newClient returns a client that never dials; the registry only builds
// database and collection handles, which is pure bookkeeping in the driver.
func newClient(t *testing.T) *mongo.Client {
	t.Helper()
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI("mongodb://127.0.0.1:27017"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	return client
}

func newRegistry(t *testing.T) *partition.Registry {
	return partition.NewRegistry(newClient(t), "gerai_", zerolog.Nop())
}

func TestPartitionHandleIsCached(t *testing.T) {
	reg := newRegistry(t)

	first, err := reg.Partition("shopa")
	require.NoError(t, err)
	second, err := reg.Partition("shopa")
	require.NoError(t, err)
	require.Same(t, first, second)

	other, err := reg.Partition("shopb")
	require.NoError(t, err)
	require.NotSame(t, first, other)
	require.Equal(t, "gerai_shopa", first.Database().Name())
	require.Equal(t, "gerai_shopb", other.Database().Name())
}

func TestPartitionRequiresTenant(t *testing.T) {
	reg := newRegistry(t)
	_, err := reg.Partition("  ")
	require.ErrorIs(t, err, partition.ErrTenantRequired)
	_, err = reg.Accessor("", "carts", partition.Descriptor{})
	require.ErrorIs(t, err, partition.ErrTenantRequired)
}

func TestAccessorRegisteredOncePerName(t *testing.T) {
	reg := newRegistry(t)
	desc := partition.Descriptor{Collection: "carts"}

	first, err := reg.Accessor("shopa", "carts", desc)
	require.NoError(t, err)
	second, err := reg.Accessor("shopa", "carts", desc)
	require.NoError(t, err)
	require.Same(t, first, second)

	// A differing descriptor on re-registration is ignored.
	third, err := reg.Accessor("shopa", "carts", partition.Descriptor{
		Collection: "carts_v2",
		Indexes:    []mongo.IndexModel{{Keys: bson.D{{Key: "user_id", Value: 1}}}},
	})
	require.NoError(t, err)
	require.Same(t, first, third)
	require.Equal(t, "carts", third.Collection().Name())

	otherTenant, err := reg.Accessor("shopb", "carts", desc)
	require.NoError(t, err)
	require.NotSame(t, first, otherTenant)
	require.Equal(t, "gerai_shopb", otherTenant.Partition().Database().Name())
}

func TestConcurrentFirstAccessYieldsOneHandle(t *testing.T) {
	reg := newRegistry(t)

	const goroutines = 32
	partitions := make([]*partition.Partition, goroutines)
	accessors := make([]*partition.Accessor, goroutines)
	errs := make([]error, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := reg.Partition("shopa")
			if err != nil {
				errs[i] = err
				return
			}
			partitions[i] = p
			a, err := reg.Accessor("shopa", "orders", partition.Descriptor{Collection: "orders"})
			if err != nil {
				errs[i] = err
				return
			}
			accessors[i] = a
		}(i)
	}
	wg.Wait()

	for i := 0; i < goroutines; i++ {
		require.NoError(t, errs[i])
	}
	for i := 1; i < goroutines; i++ {
		require.Same(t, partitions[0], partitions[i])
		require.Same(t, accessors[0], accessors[i])
	}
}

func TestClearDropsHandles(t *testing.T) {
	reg := newRegistry(t)

	before, err := reg.Partition("shopa")
	require.NoError(t, err)
	reg.Clear()
	after, err := reg.Partition("shopa")
	require.NoError(t, err)
	require.NotSame(t, before, after)
}

func TestDatabaseNameSanitised(t *testing.T) {
	reg := newRegistry(t)
	p, err := reg.Partition("shop a.b/c")
	require.NoError(t, err)
	require.Equal(t, "gerai_shop_a_b_c", p.Database().Name())
}
