package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartToggleTotal counts cart toggle outcomes by action.
	CartToggleTotal *prometheus.CounterVec
	// OrderTransitionTotal counts order status transition attempts.
	OrderTransitionTotal *prometheus.CounterVec
	// OrderDeleteTotal counts administrative order deletions.
	OrderDeleteTotal prometheus.Counter
	// PartitionsActive tracks the number of cached tenant partitions.
	PartitionsActive prometheus.Gauge
	// AccessorRegistrations counts typed accessor registrations per tenant.
	AccessorRegistrations *prometheus.CounterVec
	// ProductCacheTotal counts product snapshot cache lookups by result.
	ProductCacheTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartToggleTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_toggle_total",
			Help:      "Count of cart toggle operations by resulting action.",
		}, []string{"action"})
		OrderTransitionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transition_total",
			Help:      "Count of order status transition attempts by target and result.",
		}, []string{"target", "result"})
		OrderDeleteTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_delete_total",
			Help:      "Count of administrative order deletions.",
		})
		PartitionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "partitions_active",
			Help:      "Number of tenant partitions currently cached.",
		})
		AccessorRegistrations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accessor_registrations_total",
			Help:      "Count of typed accessor registrations by collection.",
		}, []string{"collection"})
		ProductCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "product_cache_total",
			Help:      "Count of product snapshot cache lookups by result.",
		}, []string{"result"})

		reg.MustRegister(
			CartToggleTotal,
			OrderTransitionTotal,
			OrderDeleteTotal,
			PartitionsActive,
			AccessorRegistrations,
			ProductCacheTotal,
		)
	})
}
