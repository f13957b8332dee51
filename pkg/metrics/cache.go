package metrics

import "github.com/prometheus/client_golang/prometheus"

// CacheRequests counts cache lookups and writes; result is one of
// hit, miss, set, delete or error.
var CacheRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "requests_total",
		Help:      "Total number of cache operations by outcome",
	},
	[]string{"cache", "result"},
)

func init() {
	Registry.MustRegister(CacheRequests)
}
