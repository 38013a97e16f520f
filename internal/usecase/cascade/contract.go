package cascade

import (
	"context"
	"net/url"

	"github.com/opentransittools/pelias-refine/internal/domain/geocode"
)

// Fetcher calls one upstream geocoder endpoint.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string, params url.Values) (geocode.Response, error)
}

// Cleaner rewrites labels of the final response.
type Cleaner interface {
	Clean(resp geocode.Response, size int, calltaker, rtp bool) geocode.Response
}
