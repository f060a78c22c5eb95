package partition

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gerai-labs/backend-gerai/internal/obs"
)

// ErrTenantRequired indicates an empty tenant identifier was supplied.
var ErrTenantRequired = errors.New("partition: tenant id required")

// Descriptor describes the collection a typed accessor binds to and the
// indexes it expects. Descriptors are expected to be stable per accessor
// name for the life of the process; a differing descriptor supplied on a
// cache hit is ignored.
type Descriptor struct {
	Collection string
	Indexes    []mongo.IndexModel
}

// Partition is a tenant's logical database inside the shared client pool.
// Handles are cached for the life of the process and share the underlying
// connection pool; they own no connections of their own.
type Partition struct {
	tenantID string
	db       *mongo.Database
}

// TenantID returns the tenant identifier the partition is bound to.
func (p *Partition) TenantID() string { return p.tenantID }

// Database exposes the underlying mongo database handle.
func (p *Partition) Database() *mongo.Database { return p.db }

// Accessor is a typed handle over one collection inside one partition.
type Accessor struct {
	partition  *Partition
	name       string
	descriptor Descriptor
	coll       *mongo.Collection
}

// Name returns the accessor's registered name.
func (a *Accessor) Name() string { return a.name }

// Collection exposes the underlying mongo collection.
func (a *Accessor) Collection() *mongo.Collection { return a.coll }

// Partition returns the partition the accessor belongs to.
func (a *Accessor) Partition() *Partition { return a.partition }

// Registry caches one partition handle per tenant and one typed accessor per
// (tenant, name) pair on top of a single shared mongo client. Both caches are
// mutex guarded so that concurrent first access for the same tenant never
// constructs two diverging handles.
type Registry struct {
	client *mongo.Client
	prefix string
	logger zerolog.Logger

	mu         sync.Mutex
	partitions map[string]*Partition
	accessors  map[string]map[string]*Accessor
}

// NewRegistry constructs a registry over the shared client. The prefix is
// prepended to tenant identifiers to form database names.
func NewRegistry(client *mongo.Client, prefix string, logger zerolog.Logger) *Registry {
	return &Registry{
		client:     client,
		prefix:     prefix,
		logger:     logger,
		partitions: make(map[string]*Partition),
		accessors:  make(map[string]map[string]*Accessor),
	}
}

// Client exposes the shared mongo client, e.g. for health probes.
func (r *Registry) Client() *mongo.Client { return r.client }

// Partition returns the cached handle for the tenant, constructing and
// caching it on first access. The same handle is returned for a given tenant
// for the life of the process.
func (r *Registry) Partition(tenantID string) (*Partition, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, ErrTenantRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.partitionLocked(tenantID), nil
}

func (r *Registry) partitionLocked(tenantID string) *Partition {
	if p, ok := r.partitions[tenantID]; ok {
		return p
	}
	p := &Partition{
		tenantID: tenantID,
		db:       r.client.Database(r.databaseName(tenantID)),
	}
	r.partitions[tenantID] = p
	if obs.PartitionsActive != nil {
		obs.PartitionsActive.Set(float64(len(r.partitions)))
	}
	r.logger.Debug().Str("tenant_id", tenantID).Str("database", p.db.Name()).Msg("partition registered")
	return p
}

// Accessor returns the typed accessor registered under name for the tenant,
// constructing and caching it on first access. Re-registration under the same
// name returns the existing accessor; a differing descriptor is ignored and
// logged at warn level.
func (r *Registry) Accessor(tenantID, name string, d Descriptor) (*Accessor, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("partition: accessor name required")
	}
	if strings.TrimSpace(d.Collection) == "" {
		d.Collection = name
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	byName, ok := r.accessors[tenantID]
	if !ok {
		byName = make(map[string]*Accessor)
		r.accessors[tenantID] = byName
	}
	if existing, ok := byName[name]; ok {
		if existing.descriptor.Collection != d.Collection || len(existing.descriptor.Indexes) != len(d.Indexes) {
			r.logger.Warn().
				Str("tenant_id", tenantID).
				Str("accessor", name).
				Msg("accessor re-registered with a different descriptor; keeping the original")
		}
		return existing, nil
	}

	p := r.partitionLocked(tenantID)
	a := &Accessor{
		partition:  p,
		name:       name,
		descriptor: d,
		coll:       p.db.Collection(d.Collection),
	}
	byName[name] = a
	if obs.AccessorRegistrations != nil {
		obs.AccessorRegistrations.WithLabelValues(d.Collection).Inc()
	}
	return a, nil
}

// EnsureIndexes applies the index models of every registered accessor.
// Registration itself never touches the network; composition roots call this
// once after wiring their accessors.
func (r *Registry) EnsureIndexes(ctx context.Context) error {
	r.mu.Lock()
	accessors := make([]*Accessor, 0)
	for _, byName := range r.accessors {
		for _, a := range byName {
			accessors = append(accessors, a)
		}
	}
	r.mu.Unlock()

	for _, a := range accessors {
		if len(a.descriptor.Indexes) == 0 {
			continue
		}
		if _, err := a.coll.Indexes().CreateMany(ctx, a.descriptor.Indexes); err != nil {
			return fmt.Errorf("partition: ensure indexes for %s/%s: %w", a.partition.tenantID, a.name, err)
		}
	}
	return nil
}

// Clear drops all cached handles and accessors. Teardown only.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.partitions = make(map[string]*Partition)
	r.accessors = make(map[string]map[string]*Accessor)
	if obs.PartitionsActive != nil {
		obs.PartitionsActive.Set(0)
	}
}

func (r *Registry) databaseName(tenantID string) string {
	sanitized := strings.Map(func(c rune) rune {
		switch c {
		case '/', '\\', '.', ' ', '"', '$':
			return '_'
		}
		return c
	}, tenantID)
	return r.prefix + sanitized
}
