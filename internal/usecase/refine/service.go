// Package refine classifies a geocoder query, narrows it to the layers it is
// most likely about and reorders the upstream results so the best match
// comes first.
package refine

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/opentransittools/pelias-refine/internal/domain"
	"github.com/opentransittools/pelias-refine/internal/domain/agency"
	"github.com/opentransittools/pelias-refine/internal/domain/api"
	"github.com/opentransittools/pelias-refine/internal/domain/geocode"
	"github.com/opentransittools/pelias-refine/internal/domain/query"
	"github.com/opentransittools/pelias-refine/internal/logger"
	"github.com/opentransittools/pelias-refine/internal/metrics"
	"github.com/opentransittools/pelias-refine/internal/usecase/cascade"
)

// DefaultMinBatch is the fewest candidates requested from the upstream.
const DefaultMinBatch = query.DefaultSize

// Options select the caller mode.
type Options struct {
	RTP       bool
	Calltaker bool
}

// Service is the refinement orchestrator.
type Service struct {
	cascade  Cascade
	routes   api.Routes
	agencies agency.Agencies
	minBatch int
}

// New creates a refine service. minBatch <= 0 selects DefaultMinBatch.
func New(c Cascade, routes api.Routes, agencies agency.Agencies, minBatch int) *Service {
	if minBatch <= 0 {
		minBatch = DefaultMinBatch
	}
	return &Service{cascade: c, routes: routes, agencies: agencies, minBatch: minBatch}
}

// Proxy runs the cascade for kind without any refinement.
func (s *Service) Proxy(
	ctx context.Context, carrier query.Carrier, kind api.Kind, opts Options,
) (geocode.Response, error) {
	ep, err := s.routes.For(kind)
	if err != nil {
		return geocode.Response{}, err
	}
	params := carrier.Params()
	resp, err := s.cascade.Invoke(ctx, ep, params, cascade.Options{
		Size:      query.ParseSize(params.Get(query.ParamSize)),
		RTP:       opts.RTP,
		Calltaker: opts.Calltaker,
	})
	if err != nil {
		return geocode.Response{}, fmt.Errorf("proxy %s: %w", kind, err)
	}
	return resp, nil
}

// Refine classifies the carrier's text, fetches with adjusted parameters and
// returns at most the requested number of features, best match first. The
// carrier holds its original parameters again when Refine returns.
func (s *Service) Refine(
	ctx context.Context, carrier query.Carrier, kind api.Kind, opts Options,
) (geocode.Response, error) {
	original := carrier.Params()
	defer carrier.SetParams(original)

	q := query.New(original)
	if q.Text() == "" {
		return geocode.Response{}, domain.ErrMissingQueryText
	}
	ep, err := s.routes.For(kind)
	if err != nil {
		return geocode.Response{}, err
	}

	log := logger.FromContext(ctx)

	qt, stopID := query.Classify(q.Text())
	metrics.QueryTypesTotal.WithLabelValues(string(kind), string(qt)).Inc()
	log.Debug("classified query",
		zap.String("text", q.Text()),
		zap.String("type", string(qt)),
		zap.Int("stop_id", stopID),
	)

	isStop, adjusted := AdjustLayers(qt, original, s.agencies)
	fetchSize := q.Size()
	if fetchSize < s.minBatch {
		fetchSize = s.minBatch
		adjusted.Set(query.ParamSize, strconv.Itoa(fetchSize))
	}
	carrier.SetParams(adjusted)

	copts := cascade.Options{Size: fetchSize, RTP: opts.RTP, Calltaker: opts.Calltaker}
	resp, err := s.cascade.Invoke(ctx, ep, adjusted, copts)
	if err != nil {
		return geocode.Response{}, fmt.Errorf("refine %s: %w", kind, err)
	}

	features := resp.Features
	if len(features) > 1 {
		features = Dedupe(features)
	}

	if len(features) == 0 && qt.RestrictsLayers() {
		log.Debug("no results with narrowed layers, retrying unfiltered", zap.String("type", string(qt)))
		carrier.SetParams(original)
		retry, err := s.cascade.Invoke(ctx, ep, original, copts)
		if err != nil {
			log.Warn("unfiltered retry failed", zap.Error(err))
		} else {
			resp = retry
			features = Dedupe(retry.Features)
		}
	}

	if len(features) > 1 {
		switch {
		case qt.IsStopLookup():
			features = PrioritizeStops(features, kind, opts.RTP, stopID, q.Text())
		case qt.IsAddressLookup():
			features = PrioritizeAddresses(features, q.Text(), qt, kind)
		}
	}

	if len(features) > q.Size() {
		features = features[:q.Size()]
	}

	log.Debug("refined",
		zap.Bool("stop_request", isStop),
		zap.Int("features", len(features)),
	)
	return resp.WithFeatures(features), nil
}
