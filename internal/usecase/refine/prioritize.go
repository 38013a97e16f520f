package refine

import (
	"slices"
	"strings"

	"github.com/opentransittools/pelias-refine/internal/domain/api"
	"github.com/opentransittools/pelias-refine/internal/domain/geocode"
	"github.com/opentransittools/pelias-refine/internal/domain/query"
	"github.com/opentransittools/pelias-refine/internal/domain/text"
)

// PrioritizeStops puts features whose stop id or code equals stopID first
// and drops the rest. Without such a match, stops whose name contains txt
// move to the front, ordered by distance. Search results are then ordered by
// distance as a whole.
func PrioritizeStops(
	features []geocode.Feature, kind api.Kind, _ bool, stopID int, txt string,
) []geocode.Feature {
	var exact, rest []geocode.Feature
	for _, f := range features {
		if stopID != query.NoID && f.MatchesStop(stopID) {
			exact = append(exact, f)
		} else {
			rest = append(rest, f)
		}
	}

	if len(exact) > 0 {
		byDistance(exact)
		return exact
	}

	rest = closeMatchesFirst(rest, txt)
	if kind.Exhaustive() {
		byDistance(rest)
	}
	return rest
}

// closeMatchesFirst moves features whose name contains txt, ignoring case
// and spaces, to the front. It is a substring match, not an exact one.
func closeMatchesFirst(features []geocode.Feature, txt string) []geocode.Feature {
	needle := text.JustChars(txt)
	var matches, others []geocode.Feature
	for _, f := range features {
		if strings.Contains(text.JustChars(f.Name()), needle) {
			matches = append(matches, f)
		} else {
			others = append(others, f)
		}
	}
	if len(matches) == 0 {
		return features
	}
	byDistance(matches)
	return append(matches, others...)
}

// PrioritizeAddresses keeps the features whose label contains the queried
// street (both streets for an intersection). When nothing matches the input
// is returned as is.
func PrioritizeAddresses(
	features []geocode.Feature, q string, t query.Type, kind api.Kind,
) []geocode.Feature {
	q = strings.ToLower(strings.TrimSpace(q))

	var kept []geocode.Feature
	switch t {
	case query.Intersection:
		left, right, ok := query.IntersectionParts(q)
		if !ok {
			break
		}
		left = strings.ToLower(text.NormalizeAddress(left))
		right = strings.ToLower(text.NormalizeAddress(right))
		for _, f := range features {
			label := strings.ToLower(text.NormalizeAddress(f.Label()))
			if strings.Contains(label, left) && strings.Contains(label, right) {
				kept = append(kept, f)
			}
		}
	case query.StreetAddress:
		for _, f := range features {
			if strings.Contains(strings.ToLower(f.Label()), q) {
				kept = append(kept, f)
			}
		}
	case query.JustANumber, query.StopRequest, query.Unknown:
	}

	if len(kept) == 0 {
		kept = slices.Clone(features)
	}
	if kind.Exhaustive() && len(kept) > 1 {
		byDistance(kept)
	}
	return kept
}

// byDistance sorts in place; a stable sort keeps upstream order on ties and
// leaves features without a distance at the end.
func byDistance(features []geocode.Feature) {
	slices.SortStableFunc(features, func(a, b geocode.Feature) int {
		da, db := a.Distance(), b.Distance()
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		}
		return 0
	})
}
