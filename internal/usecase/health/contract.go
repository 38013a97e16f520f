package health

import "context"

// GeocoderChecker checks upstream geocoder availability.
type GeocoderChecker interface {
	HealthCheck(ctx context.Context) error
}

// CachePinger checks the shared response cache.
type CachePinger interface {
	Ping(ctx context.Context) error
}
