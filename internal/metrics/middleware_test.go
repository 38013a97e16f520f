package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/pelias/v1/refine/{api}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{}"))
	})

	for _, api := range []string{"autocomplete", "search"} {
		req := httptest.NewRequest("GET", "/pelias/v1/refine/"+api+"?text=x", http.NoBody)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	for _, api := range []string{"autocomplete", "search"} {
		got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/pelias/v1/refine/{api}", api, "200"))
		if got < 1 {
			t.Errorf("expected http_requests_total for %s under the route pattern, got %f", api, got)
		}
	}
	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected http_request_duration_seconds to have observations")
	}
}

func TestMetricsMiddleware_DifferentStatusCodes(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/pelias/v1/{api}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	r.Get("/core/v1/info", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	tests := []struct {
		path           string
		pattern        string
		api            string
		expectedStatus string
	}{
		{"/health", "/health", "none", "200"},
		{"/pelias/v1/search", "/pelias/v1/{api}", "search", "502"},
		{"/pelias/v1/geojson", "/pelias/v1/{api}", "other", "502"},
		{"/core/v1/info", "/core/v1/info", "none", "500"},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			req := httptest.NewRequest("GET", tc.path, http.NoBody)
			r.ServeHTTP(httptest.NewRecorder(), req)

			val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", tc.pattern, tc.api, tc.expectedStatus))
			if val < 1 {
				t.Errorf("expected requests_total for %s with status %s >= 1, got %f", tc.pattern, tc.expectedStatus, val)
			}
		})
	}
}

func TestAPILabel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "none"},
		{"Search", "search"},
		{"reverse", "reverse"},
		{"../../etc", "other"},
	}

	for _, tc := range tests {
		if got := apiLabel(tc.input); got != tc.expected {
			t.Errorf("apiLabel(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestRouteLabel_NoRouteContext(t *testing.T) {
	if got := routeLabel(nil); got != "unknown" {
		t.Errorf("routeLabel(nil) = %q", got)
	}
	if got := routeLabel(chi.NewRouteContext()); got != "unknown" {
		t.Errorf("routeLabel(empty) = %q", got)
	}
}
