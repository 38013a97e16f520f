// Package pelias is the HTTP client for the upstream Pelias geocoder.
package pelias

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/opentransittools/pelias-refine/internal/domain"
	"github.com/opentransittools/pelias-refine/internal/domain/api"
	"github.com/opentransittools/pelias-refine/internal/domain/geocode"
	"github.com/opentransittools/pelias-refine/internal/metrics"
)

// DefaultPathPrefix is the Pelias API version prefix.
const DefaultPathPrefix = "/v1"

// DefaultTimeout bounds one upstream call.
const DefaultTimeout = 10 * time.Second

// maxBody caps how much of an upstream body is read.
const maxBody = 8 << 20

// Config holds the upstream client settings.
type Config struct {
	BaseURL string
	// PathPrefix precedes /<api>; empty selects DefaultPathPrefix.
	PathPrefix string
	Timeout    time.Duration
	UserAgent  string
	Logger     *zap.Logger
}

// Client fetches and decodes geocoder responses.
type Client struct {
	http      *http.Client
	baseURL   string
	prefix    string
	userAgent string
	logger    *zap.Logger
}

// NewClient creates an upstream client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	prefix := cfg.PathPrefix
	if prefix == "" {
		prefix = DefaultPathPrefix
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		prefix:    "/" + strings.Trim(prefix, "/"),
		userAgent: cfg.UserAgent,
		logger:    log,
	}
}

// Routes returns the absolute URL of every service.
func (c *Client) Routes() api.Routes {
	return api.Routes{
		Autocomplete: c.route(api.Autocomplete),
		Search:       c.route(api.Search),
		Reverse:      c.route(api.Reverse),
		Place:        c.route(api.Place),
	}
}

func (c *Client) route(k api.Kind) string {
	return c.baseURL + c.prefix + "/" + string(k)
}

// Fetch implements cascade.Fetcher. Transport failures and non-2xx statuses
// wrap domain.ErrUpstreamUnavailable; undecodable bodies wrap
// domain.ErrUpstreamMalformedResponse.
func (c *Client) Fetch(ctx context.Context, endpoint string, params url.Values) (geocode.Response, error) {
	label := endpointLabel(endpoint)

	u, err := url.Parse(endpoint)
	if err != nil {
		return geocode.Response{}, fmt.Errorf("parse endpoint %q: %w", endpoint, domain.ErrUpstreamUnavailable)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return geocode.Response{}, fmt.Errorf("build request: %w: %w", domain.ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(label, "error").Inc()
		return geocode.Response{}, fmt.Errorf("geocoder request failed: %w: %w", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	metrics.UpstreamRequestDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(label, "error").Inc()
		return geocode.Response{}, fmt.Errorf("read geocoder body: %w: %w", domain.ErrUpstreamUnavailable, err)
	}

	metrics.UpstreamRequestsTotal.WithLabelValues(label, strconv.Itoa(resp.StatusCode)).Inc()

	// Pelias reports bad parameters as 400 with a regular geocoding body.
	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode < http.StatusOK ||
		(resp.StatusCode >= http.StatusMultipleChoices && resp.StatusCode != http.StatusBadRequest) {
		c.logger.Warn("Geocoder returned error status",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
		)
		return geocode.Response{}, domain.NewUpstreamStatus(endpoint, resp.StatusCode)
	}

	var out geocode.Response
	if err := json.Unmarshal(body, &out); err != nil {
		if resp.StatusCode == http.StatusBadRequest {
			return geocode.Response{}, domain.NewUpstreamStatus(endpoint, resp.StatusCode)
		}
		return geocode.Response{}, fmt.Errorf("decode %s: %w: %w", label, domain.ErrUpstreamMalformedResponse, err)
	}
	if out.Features == nil {
		out.Features = []geocode.Feature{}
	}
	return out, nil
}

// HealthCheck verifies the geocoder answers on its status endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", http.NoBody)
	if err != nil {
		return fmt.Errorf("build status request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("geocoder status: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))

	if resp.StatusCode != http.StatusOK {
		return errors.New("geocoder status " + strconv.Itoa(resp.StatusCode))
	}
	return nil
}

// endpointLabel keeps metric cardinality bounded to the service name.
func endpointLabel(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Path == "" {
		return "unknown"
	}
	return path.Base(u.Path)
}
