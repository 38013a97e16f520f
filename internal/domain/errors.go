package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingQueryText signals a refine request without a text parameter.
	ErrMissingQueryText = errors.New("refine service requires 'text' query parameter")
	// ErrUnknownServiceKind signals an unsupported geocoder api (autocomplete, search, reverse, place).
	ErrUnknownServiceKind = errors.New("unknown service kind")
	// ErrUpstreamUnavailable signals a transport failure talking to the geocoder.
	ErrUpstreamUnavailable = errors.New("upstream geocoder unavailable")
	// ErrUpstreamMalformedResponse signals a geocoder body that could not be decoded.
	ErrUpstreamMalformedResponse = errors.New("upstream geocoder returned a malformed response")
)

// UpstreamStatusError wraps ErrUpstreamUnavailable with the HTTP status the geocoder returned.
type UpstreamStatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("%s: %s returned status %d", ErrUpstreamUnavailable.Error(), e.Endpoint, e.StatusCode)
}

func (e *UpstreamStatusError) Unwrap() error { return ErrUpstreamUnavailable }

// NewUpstreamStatus creates an upstream status error.
func NewUpstreamStatus(endpoint string, statusCode int) error {
	return &UpstreamStatusError{Endpoint: endpoint, StatusCode: statusCode}
}
