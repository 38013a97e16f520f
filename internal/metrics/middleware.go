package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/opentransittools/pelias-refine/internal/domain/api"
)

var httpLabels = []string{"method", "route", "api", "status"}

var (
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Refiner HTTP request duration in seconds, by route pattern and geocoder service",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		httpLabels,
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Refiner HTTP requests, by route pattern and geocoder service",
		},
		httpLabels,
	)
)

func init() {
	prometheus.MustRegister(httpRequestDuration, httpRequestsTotal)
}

// Middleware records request count and latency per chi route pattern. The
// {api} path parameter is reported as its own label.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			labels := []string{
				r.Method,
				routeLabel(chi.RouteContext(r.Context())),
				apiLabel(chi.URLParam(r, "api")),
				strconv.Itoa(status),
			}
			httpRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			httpRequestsTotal.WithLabelValues(labels...).Inc()
		})
	}
}

// routeLabel is the matched route pattern, never the raw path.
func routeLabel(rc *chi.Context) string {
	if rc == nil || rc.RoutePattern() == "" {
		return "unknown"
	}
	return rc.RoutePattern()
}

// apiLabel bounds the {api} parameter to the known service kinds.
func apiLabel(raw string) string {
	if raw == "" {
		return "none"
	}
	k, err := api.ParseKind(raw)
	if err != nil {
		return "other"
	}
	return string(k)
}
