// Package api names the geocoder services the refiner fronts and how each
// maps onto upstream endpoints.
package api

import (
	"fmt"
	"strings"

	"github.com/opentransittools/pelias-refine/internal/domain"
)

// Kind is a geocoder service.
type Kind string

// Service kinds.
const (
	Autocomplete Kind = "autocomplete"
	Search       Kind = "search"
	Reverse      Kind = "reverse"
	Place        Kind = "place"
)

// ParseKind parses a service name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case Autocomplete, Search, Reverse, Place:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnknownServiceKind, s)
}

// Exhaustive reports whether results should be ordered by distance rather
// than by upstream relevance.
func (k Kind) Exhaustive() bool { return k == Search }

// Endpoints is one cascade's set of upstream URLs. Empty entries are skipped.
type Endpoints struct {
	Primary string
	Backup  string
	Reverse string
}

// Routes holds the absolute upstream URL of every service.
type Routes struct {
	Autocomplete string
	Search       string
	Reverse      string
	Place        string
}

// For returns the cascade endpoints of k. Autocomplete and search back each
// other up; reverse and place are single calls.
func (r Routes) For(k Kind) (Endpoints, error) {
	switch k {
	case Autocomplete:
		return Endpoints{Primary: r.Autocomplete, Backup: r.Search, Reverse: r.Reverse}, nil
	case Search:
		return Endpoints{Primary: r.Search, Backup: r.Autocomplete, Reverse: r.Reverse}, nil
	case Reverse:
		return Endpoints{Primary: r.Reverse}, nil
	case Place:
		return Endpoints{Primary: r.Place}, nil
	}
	return Endpoints{}, fmt.Errorf("%w: %q", domain.ErrUnknownServiceKind, k)
}
