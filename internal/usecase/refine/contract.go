package refine

import (
	"context"
	"net/url"

	"github.com/opentransittools/pelias-refine/internal/domain/api"
	"github.com/opentransittools/pelias-refine/internal/domain/geocode"
	"github.com/opentransittools/pelias-refine/internal/usecase/cascade"
)

// Cascade fetches a cleaned upstream response.
type Cascade interface {
	Invoke(ctx context.Context, ep api.Endpoints, params url.Values, opts cascade.Options) (geocode.Response, error)
}
