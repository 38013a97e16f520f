// Package respcache caches upstream geocoder responses in a local LRU tier
// backed by an optional shared Valkey/Redis tier.
package respcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/opentransittools/pelias-refine/internal/db"
	"github.com/opentransittools/pelias-refine/internal/domain/geo"
	"github.com/opentransittools/pelias-refine/internal/domain/geocode"
	"github.com/opentransittools/pelias-refine/internal/domain/query"
)

const cacheKeyPrefix = "pelias_refine:resp:"

// Cache tiers, used as metric labels.
const (
	tierMemory = "memory"
	tierShared = "shared"
)

// Defaults applied by New for zero Config fields.
const (
	DefaultSize         = 4096
	DefaultTTL          = 5 * time.Minute
	DefaultFetchTimeout = 10 * time.Second
)

// fetcher is the decorated upstream client.
type fetcher interface {
	Fetch(ctx context.Context, endpoint string, params url.Values) (geocode.Response, error)
}

// store is the consumer interface for the shared tier.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Config sizes the cache.
type Config struct {
	Size      int
	TTL       time.Duration
	SharedTTL time.Duration
	// FetchTimeout bounds a coalesced upstream call, which outlives any
	// single caller's cancellation.
	FetchTimeout time.Duration
	// CellLevel, when positive, snaps reverse-lookup points to an S2 cell so
	// nearby lookups share an entry. Zero keys on the exact point.
	CellLevel int
}

// CachedFetcher is a caching decorator over the upstream fetcher.
// Concurrent misses for the same key share one upstream call.
type CachedFetcher struct {
	inner        fetcher
	local        *expirable.LRU[string, geocode.Response]
	shared       store
	sharedTTL    time.Duration
	fetchTimeout time.Duration
	cellLevel    int
	group        singleflight.Group
	cacheTotal   *prometheus.CounterVec
	logger       *zap.Logger
}

// New creates a caching decorator. shared may be nil to run memory-only.
// cacheTotal is a counter vec with labels "tier" and "result", passed explicitly.
func New(
	inner fetcher,
	shared store,
	cfg Config,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedFetcher {
	if cfg.Size <= 0 {
		cfg.Size = DefaultSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.SharedTTL <= 0 {
		cfg.SharedTTL = cfg.TTL
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	return &CachedFetcher{
		inner:        inner,
		local:        expirable.NewLRU[string, geocode.Response](cfg.Size, nil, cfg.TTL),
		shared:       shared,
		sharedTTL:    cfg.SharedTTL,
		fetchTimeout: cfg.FetchTimeout,
		cellLevel:    cfg.CellLevel,
		cacheTotal:   cacheTotal,
		logger:       logger,
	}
}

// Fetch returns a cached response or calls the inner fetcher. Responses
// carrying upstream errors are never cached.
//
// Concurrent misses share one upstream call that runs detached from the
// callers' cancellation. A caller whose ctx ends stops waiting without
// failing the others.
func (c *CachedFetcher) Fetch(ctx context.Context, endpoint string, params url.Values) (geocode.Response, error) {
	key := c.cacheKey(endpoint, params)

	if resp, ok := c.local.Get(key); ok {
		c.incCache(tierMemory, "hit")
		return own(resp), nil
	}
	c.incCache(tierMemory, "miss")

	ch := c.group.DoChan(key, func() (any, error) {
		// A call that just finished may have filled the memory tier.
		if resp, ok := c.local.Peek(key); ok {
			return resp, nil
		}

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		if resp, ok := c.getShared(fetchCtx, key); ok {
			c.local.Add(key, resp)
			return resp, nil
		}

		resp, err := c.inner.Fetch(fetchCtx, endpoint, params)
		if err != nil {
			return geocode.Response{}, err
		}
		if len(resp.Errors()) == 0 {
			c.local.Add(key, resp)
			c.putShared(fetchCtx, key, resp)
		}
		return resp, nil
	})

	select {
	case <-ctx.Done():
		return geocode.Response{}, fmt.Errorf("fetch %s: %w", endpoint, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return geocode.Response{}, fmt.Errorf("fetch %s: %w", endpoint, res.Err)
		}
		resp, _ := res.Val.(geocode.Response)
		return own(resp), nil
	}
}

// own gives the caller a feature slice it may reorder freely.
func own(resp geocode.Response) geocode.Response {
	return resp.WithFeatures(slices.Clone(resp.Features))
}

func (c *CachedFetcher) incCache(tier, result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(tier, result).Inc()
	}
}

// cacheKey hashes the endpoint and the sorted parameters. A reverse point is
// keyed on its parsed value, or on its S2 cell when snapping is enabled.
func (c *CachedFetcher) cacheKey(endpoint string, params url.Values) string {
	params = query.CloneParams(params)
	lat, errLat := strconv.ParseFloat(params.Get(query.ParamPointLat), 64)
	lon, errLon := strconv.ParseFloat(params.Get(query.ParamPointLon), 64)
	if errLat == nil && errLon == nil && geo.ValidateCoordinates(lat, lon) {
		if c.cellLevel > 0 {
			params.Del(query.ParamPointLat)
			params.Del(query.ParamPointLon)
			params.Set("point.cell", geo.CellToken(geo.Point{Lat: lat, Lon: lon}, c.cellLevel))
		} else {
			params.Set(query.ParamPointLat, geo.FormatDegrees(lat))
			params.Set(query.ParamPointLon, geo.FormatDegrees(lon))
		}
	}

	h := sha256.New()
	h.Write([]byte(endpoint))
	h.Write([]byte{'?'})
	h.Write([]byte(params.Encode()))
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (c *CachedFetcher) getShared(ctx context.Context, key string) (geocode.Response, bool) {
	if c.shared == nil {
		return geocode.Response{}, false
	}
	data, err := c.shared.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached response", zap.String("key", key), zap.Error(err))
		}
		c.incCache(tierShared, "miss")
		return geocode.Response{}, false
	}

	var resp geocode.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		c.logger.Warn("Failed to parse cached response", zap.String("key", key), zap.Error(err))
		c.incCache(tierShared, "miss")
		return geocode.Response{}, false
	}
	c.incCache(tierShared, "hit")
	return resp, true
}

func (c *CachedFetcher) putShared(ctx context.Context, key string, resp geocode.Response) {
	if c.shared == nil {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Warn("Failed to encode response for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.shared.SetWithTTL(ctx, key, data, c.sharedTTL); err != nil {
		c.logger.Warn("Failed to cache response", zap.String("key", key), zap.Error(err))
	}
}
