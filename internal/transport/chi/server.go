// Package chi exposes the refiner over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/opentransittools/pelias-refine/internal/domain"
	"github.com/opentransittools/pelias-refine/internal/domain/api"
	"github.com/opentransittools/pelias-refine/internal/domain/geocode"
	"github.com/opentransittools/pelias-refine/internal/domain/query"
	"github.com/opentransittools/pelias-refine/internal/logger"
	healthuc "github.com/opentransittools/pelias-refine/internal/usecase/health"
	refineuc "github.com/opentransittools/pelias-refine/internal/usecase/refine"
	"github.com/opentransittools/pelias-refine/internal/version"
)

// CacheControl is sent with every successful geocoder response.
const CacheControl = "public, max-age=500"

// Error codes written in the JSON error body.
const (
	codeBadRequest     = "bad_request"
	codeUnknownService = "unknown_service"
	codeUpstream       = "upstream_unavailable"
	codeUnauthorized   = "unauthorized"
	codeInternal       = "internal_error"
)

// Geocoder is the refinement entry point.
type Geocoder interface {
	Refine(ctx context.Context, carrier query.Carrier, kind api.Kind, opts refineuc.Options) (geocode.Response, error)
	Proxy(ctx context.Context, carrier query.Carrier, kind api.Kind, opts refineuc.Options) (geocode.Response, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the geocoder routes.
type Server struct {
	geocoder      Geocoder
	health        HealthChecker
	appName       string
	hostname      string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. hostname is echoed in every
// geocoding block; empty leaves it out.
func NewServer(geocoder Geocoder, health HealthChecker, appName, hostname string, logger *zap.Logger) *Server {
	s := &Server{
		geocoder: geocoder,
		health:   health,
		appName:  appName,
		hostname: hostname,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrMissingQueryText, http.StatusBadRequest, codeBadRequest),
		sentinelHandler(domain.ErrUnknownServiceKind, http.StatusNotFound, codeUnknownService),
		sentinelHandler(domain.ErrUpstreamUnavailable, http.StatusBadGateway, codeUpstream),
	}
	return s
}

// mode selects how a route treats the request.
type mode struct {
	refine bool
	opts   refineuc.Options
}

// Mount registers the geocoder, info, health and metrics routes on r.
func (s *Server) Mount(r chi.Router) {
	r.Route("/pelias/v1", func(r chi.Router) {
		r.Get("/refine/{api}", s.geocode(mode{refine: true}))
		r.Get("/calltaker/{api}", s.geocode(mode{refine: true, opts: refineuc.Options{Calltaker: true}}))
		r.Get("/rtp/{api}", s.geocode(mode{opts: refineuc.Options{RTP: true}}))
		r.Get("/{api}", s.geocode(mode{}))
	})
	r.Get("/core/v1/info", s.Info)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

func (s *Server) geocode(m mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, err := api.ParseKind(chi.URLParam(r, "api"))
		if err != nil {
			s.handleDomainError(w, err)
			return
		}

		carrier := query.NewRequestParams(r.URL.Query())
		var resp geocode.Response
		// Reverse and place carry coordinates or ids, never text to refine.
		if m.refine && kind != api.Reverse && kind != api.Place {
			resp, err = s.geocoder.Refine(r.Context(), carrier, kind, m.opts)
		} else {
			resp, err = s.geocoder.Proxy(r.Context(), carrier, kind, m.opts)
		}
		if err != nil {
			logger.FromContext(r.Context()).Warn("geocode failed",
				zap.String("api", string(kind)),
				zap.Bool("refine", m.refine),
				zap.Error(err),
			)
			s.handleDomainError(w, err)
			return
		}

		if s.hostname != "" {
			resp.SetHostname(s.hostname)
		}
		w.Header().Set("Cache-Control", CacheControl)
		writeJSON(w, http.StatusOK, resp)
	}
}

type infoResponse struct {
	AppName string `json:"app_name"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

// Info handles GET /core/v1/info.
func (s *Server) Info(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, infoResponse{
		AppName: s.appName,
		Version: version.Version,
		Commit:  version.Commit,
	})
}

type healthResponse struct {
	Status healthuc.Status                 `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: report.Status,
		Checks: report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrMissingQueryText,
		domain.ErrUnknownServiceKind,
		domain.ErrUpstreamUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("Unhandled error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternal, msg)
}
