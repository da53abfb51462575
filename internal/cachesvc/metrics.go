package cachesvc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts cache activity per variant.
type Metrics struct {
	Hits             *prometheus.CounterVec
	Misses           *prometheus.CounterVec
	Writes           *prometheus.CounterVec
	Expirations      *prometheus.CounterVec
	ProducerFailures *prometheus.CounterVec
}

// NewMetrics creates the cache counters and registers them with reg. A nil
// reg leaves them unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Hits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mediatrack_cache_hits_total",
			Help: "Total number of cache lookups answered by a valid entry",
		}, []string{"variant"}),
		Misses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mediatrack_cache_misses_total",
			Help: "Total number of cache lookups with no valid entry",
		}, []string{"variant", "reason"}), // "absent", "expired", "version"
		Writes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mediatrack_cache_writes_total",
			Help: "Total number of cache entries written",
		}, []string{"variant"}),
		Expirations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mediatrack_cache_expirations_total",
			Help: "Total number of cache entries explicitly invalidated",
		}, []string{"variant", "target"}), // "id", "key", "variant"
		ProducerFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mediatrack_cache_producer_failures_total",
			Help: "Total number of get-or-set producers that returned an error",
		}, []string{"variant"}),
	}
}
