package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "pelias_refine"

// Geocoder and refinement Prometheus metrics.
var (
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Total number of upstream geocoder requests",
		},
		[]string{"endpoint", "status"},
	)

	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream geocoder request duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"endpoint"},
	)

	CascadeStepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cascade_steps_total",
			Help:      "Cascade decisions taken",
		},
		[]string{"step"}, // reverse_hit / backup_used / wrong_city / upstream_error
	)

	QueryTypesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_types_total",
			Help:      "Refined queries by classification",
		},
		[]string{"kind", "type"},
	)

	AgencyFilterDisabled = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "agency_filter_disabled",
			Help:      "1 once the upstream rejected the agency exclusion filter",
		},
	)

	ResponseCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "response_cache_total",
			Help:      "Upstream response cache hits and misses",
		},
		[]string{"tier", "result"}, // tier: memory / shared; result: hit / miss
	)
)

var refineMetricsRegistered bool

// RegisterRefineMetrics registers the geocoder metrics. Must be called once from main.
func RegisterRefineMetrics() {
	if refineMetricsRegistered {
		return
	}
	prometheus.MustRegister(UpstreamRequestsTotal)
	prometheus.MustRegister(UpstreamRequestDuration)
	prometheus.MustRegister(CascadeStepsTotal)
	prometheus.MustRegister(QueryTypesTotal)
	prometheus.MustRegister(AgencyFilterDisabled)
	prometheus.MustRegister(ResponseCacheTotal)
	refineMetricsRegistered = true
}
