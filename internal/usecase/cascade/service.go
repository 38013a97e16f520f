// Package cascade calls the upstream geocoder through its chain of fallbacks:
// reverse lookup, primary, backup and a single "wrong city" resubmission.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/opentransittools/pelias-refine/internal/domain"
	"github.com/opentransittools/pelias-refine/internal/domain/agency"
	"github.com/opentransittools/pelias-refine/internal/domain/api"
	"github.com/opentransittools/pelias-refine/internal/domain/geo"
	"github.com/opentransittools/pelias-refine/internal/domain/geocode"
	"github.com/opentransittools/pelias-refine/internal/domain/layer"
	"github.com/opentransittools/pelias-refine/internal/domain/query"
	"github.com/opentransittools/pelias-refine/internal/logger"
	"github.com/opentransittools/pelias-refine/internal/metrics"
)

// maxResubmits bounds the wrong-city correction.
const maxResubmits = 1

// Cascade steps, used as metric labels.
const (
	stepReverseHit    = "reverse_hit"
	stepBackupUsed    = "backup_used"
	stepWrongCity     = "wrong_city"
	stepUpstreamError = "upstream_error"
	stepFilterOff     = "agency_filter_disabled"
)

// Options tune one invocation.
type Options struct {
	// Size bounds how many features the cleaner rewrites; 0 means all.
	Size      int
	RTP       bool
	Calltaker bool
}

// Service runs the upstream cascade.
type Service struct {
	fetcher Fetcher
	filter  agency.FilterState
	cleaner Cleaner
}

// New creates a cascade service.
func New(fetcher Fetcher, filter agency.FilterState, cleaner Cleaner) *Service {
	return &Service{fetcher: fetcher, filter: filter, cleaner: cleaner}
}

// Invoke fetches a cleaned response for params. It fails only when every
// upstream call it needed failed.
func (s *Service) Invoke(
	ctx context.Context, ep api.Endpoints, params url.Values, opts Options,
) (geocode.Response, error) {
	log := logger.FromContext(ctx)

	params = query.CloneParams(params)
	filtered := false
	if !opts.RTP && params.Get(query.ParamLayers) == "" {
		if f, ok := s.filter.Filter(); ok {
			params.Set(query.ParamLayers, f)
			filtered = true
		}
	}

	var (
		result  geocode.Response
		fetched []geocode.Response
		current = params
	)
	for depth := 0; depth <= maxResubmits; depth++ {
		resp, seen, err := s.lookup(ctx, ep, current)
		fetched = append(fetched, seen...)
		if err != nil {
			if depth == 0 {
				return geocode.Response{}, err
			}
			log.Warn("wrong-city resubmission failed", zap.Error(err))
			break
		}

		if depth > 0 {
			if !resp.Empty() {
				result = resp
			}
			break
		}
		result = resp

		simplified, ok := wrongCity(&resp)
		if !ok {
			break
		}
		log.Debug("resubmitting wrong-city result",
			zap.String("text", current.Get(query.ParamText)),
			zap.String("simplified", simplified),
		)
		metrics.CascadeStepsTotal.WithLabelValues(stepWrongCity).Inc()
		current = query.CloneParams(current)
		current.Set(query.ParamText, simplified)
	}

	if filtered {
		s.adapt(ctx, fetched)
	}

	size := opts.Size
	if size <= 0 {
		size = result.Len()
	}
	return s.cleaner.Clean(result, size, opts.Calltaker, opts.RTP), nil
}

// lookup runs the reverse, primary and backup steps once. It returns every
// response it decoded so the caller can inspect upstream errors.
func (s *Service) lookup(
	ctx context.Context, ep api.Endpoints, params url.Values,
) (geocode.Response, []geocode.Response, error) {
	log := logger.FromContext(ctx)
	var seen []geocode.Response

	if ep.Reverse != "" {
		if p, ok := geo.ParseCoordinatePair(params.Get(query.ParamText)); ok {
			resp, err := s.fetch(ctx, ep.Reverse, reverseParams(params, p))
			switch {
			case err != nil:
				log.Warn("reverse lookup failed, continuing", zap.Error(err))
			case !resp.Empty():
				metrics.CascadeStepsTotal.WithLabelValues(stepReverseHit).Inc()
				return resp, append(seen, resp), nil
			default:
				seen = append(seen, resp)
			}
		}
	}

	primary, errPrimary := s.fetch(ctx, ep.Primary, params)
	if errPrimary == nil {
		seen = append(seen, primary)
		if !primary.Empty() {
			return primary, seen, nil
		}
	} else {
		log.Warn("primary geocoder failed", zap.String("endpoint", ep.Primary), zap.Error(errPrimary))
	}

	if ep.Backup == "" {
		if errPrimary != nil {
			return geocode.Response{}, seen, errPrimary
		}
		return primary, seen, nil
	}

	backup, errBackup := s.fetch(ctx, ep.Backup, params)
	if errBackup == nil {
		seen = append(seen, backup)
		if !backup.Empty() {
			metrics.CascadeStepsTotal.WithLabelValues(stepBackupUsed).Inc()
			log.Debug("backup geocoder used", zap.String("endpoint", ep.Backup))
			return backup, seen, nil
		}
	} else {
		log.Warn("backup geocoder failed", zap.String("endpoint", ep.Backup), zap.Error(errBackup))
	}

	switch {
	case errPrimary == nil:
		return primary, seen, nil
	case errBackup == nil:
		return backup, seen, nil
	}
	return geocode.Response{}, seen, fmt.Errorf("primary and backup failed: %w", errors.Join(errPrimary, errBackup))
}

// fetch treats a malformed body as an empty result.
func (s *Service) fetch(ctx context.Context, endpoint string, params url.Values) (geocode.Response, error) {
	resp, err := s.fetcher.Fetch(ctx, endpoint, params)
	if err == nil {
		return resp, nil
	}
	if errors.Is(err, domain.ErrUpstreamMalformedResponse) {
		logger.FromContext(ctx).Warn("malformed geocoder response treated as empty",
			zap.String("endpoint", endpoint), zap.Error(err))
		return geocode.Response{Features: []geocode.Feature{}}, nil
	}
	metrics.CascadeStepsTotal.WithLabelValues(stepUpstreamError).Inc()
	if errors.Is(err, domain.ErrUpstreamUnavailable) {
		return geocode.Response{}, fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	return geocode.Response{}, fmt.Errorf("fetch %s: %w: %w", endpoint, domain.ErrUpstreamUnavailable, err)
}

// adapt turns the agency filter off for good once the upstream rejects it.
func (s *Service) adapt(ctx context.Context, fetched []geocode.Response) {
	for i := range fetched {
		if !fetched[i].HasInvalidLayersError() {
			continue
		}
		if s.filter.Disable() {
			metrics.CascadeStepsTotal.WithLabelValues(stepFilterOff).Inc()
			metrics.AgencyFilterDisabled.Set(1)
			logger.FromContext(ctx).Info("upstream rejected agency filter, disabling it")
		}
		return
	}
}

// wrongCity detects a lone administrative record returned for an address the
// upstream parser did understand, and builds the simplified "<number> <street>".
func wrongCity(resp *geocode.Response) (string, bool) {
	if resp.Len() != 1 || !layer.IsRegion(resp.Features[0].Layer()) {
		return "", false
	}
	parsed := resp.ParsedText()
	number := parsed.StreetNumber()
	if number == "" || parsed.Street == "" {
		return "", false
	}
	return number + " " + parsed.Street, true
}

func reverseParams(params url.Values, p geo.Point) url.Values {
	out := query.CloneParams(params)
	out.Del(query.ParamText)
	out.Del(query.ParamLayers)
	out.Set(query.ParamPointLat, geo.FormatDegrees(p.Lat))
	out.Set(query.ParamPointLon, geo.FormatDegrees(p.Lon))
	return out
}
