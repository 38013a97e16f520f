package refine

import (
	"net/url"

	"github.com/opentransittools/pelias-refine/internal/domain/agency"
	"github.com/opentransittools/pelias-refine/internal/domain/layer"
	"github.com/opentransittools/pelias-refine/internal/domain/query"
)

// AdjustLayers narrows the upstream layers filter for t. It returns a new
// parameter set and whether t asks for a transit stop.
func AdjustLayers(t query.Type, params url.Values, agencies agency.Agencies) (bool, url.Values) {
	out := query.CloneParams(params)
	switch t {
	case query.StopRequest:
		out.Set(query.ParamLayers, agencies.StopLayers())
		return true, out
	case query.StreetAddress:
		out.Set(query.ParamLayers, layer.Address)
	case query.Intersection:
		out.Set(query.ParamLayers, layer.Intersection)
	case query.JustANumber, query.Unknown:
	}
	return false, out
}
