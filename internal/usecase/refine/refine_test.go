package refine

import (
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opentransittools/pelias-refine/internal/domain/agency"
	"github.com/opentransittools/pelias-refine/internal/domain/api"
	"github.com/opentransittools/pelias-refine/internal/domain/geocode"
	"github.com/opentransittools/pelias-refine/internal/domain/query"
)

var testAgencies = agency.Agencies{
	Primary:     "TRIMET",
	PrimaryName: "TriMet",
	List:        []string{"TRIMET", "CTRAN", "SAM"},
}

func labeled(label string) geocode.Feature {
	return geocode.Feature{Properties: &geocode.Properties{Label: label, Name: label}}
}

func stop(id string, distance float64) geocode.Feature {
	d := distance
	return geocode.Feature{Properties: &geocode.Properties{
		Layer:    "stops",
		Name:     "Stop " + id,
		Label:    "Stop " + id,
		Distance: &d,
		Addendum: &geocode.Addendum{GTFS: &geocode.Transit{StopID: geocode.FlexString(id)}},
	}}
}

func withDistance(label string, d float64) geocode.Feature {
	f := labeled(label)
	f.Properties.Distance = &d
	return f
}

func labels(fs []geocode.Feature) []string {
	out := make([]string, 0, len(fs))
	for i := range fs {
		out = append(out, fs[i].Label())
	}
	return out
}

// --- AdjustLayers ---

func TestAdjustLayers(t *testing.T) {
	in := url.Values{query.ParamText: {"x"}, "focus.point.lat": {"45.5"}}

	isStop, out := AdjustLayers(query.StopRequest, in, testAgencies)
	assert.True(t, isStop)
	assert.Equal(t, "trimet:stops,ctran:stops,sam:stops", out.Get(query.ParamLayers))
	assert.Equal(t, "45.5", out.Get("focus.point.lat"))

	isStop, out = AdjustLayers(query.StreetAddress, in, testAgencies)
	assert.False(t, isStop)
	assert.Equal(t, "address", out.Get(query.ParamLayers))

	_, out = AdjustLayers(query.Intersection, in, testAgencies)
	assert.Equal(t, "intersection", out.Get(query.ParamLayers))

	for _, qt := range []query.Type{query.JustANumber, query.Unknown} {
		isStop, out = AdjustLayers(qt, in, testAgencies)
		assert.False(t, isStop)
		_, set := out[query.ParamLayers]
		assert.False(t, set, "%s must leave layers unset", qt)
	}

	assert.Empty(t, in.Get(query.ParamLayers), "input must not be mutated")
}

// --- Dedupe ---

func TestDedupe_AbbreviationsCollapse(t *testing.T) {
	out := Dedupe([]geocode.Feature{labeled("Main St"), labeled("Main Street")})
	require.Len(t, out, 1)
	assert.Equal(t, "Main Street", out[0].Label(), "last seen wins")
}

func TestDedupe_WhitespaceInsensitive(t *testing.T) {
	out := Dedupe([]geocode.Feature{labeled("Pioneer Square"), labeled("PioneerSquare"), labeled("Oak")})
	assert.Equal(t, []string{"PioneerSquare", "Oak"}, labels(out))
}

func TestDedupe_KeepsFirstSeenOrder(t *testing.T) {
	out := Dedupe([]geocode.Feature{labeled("A St"), labeled("B St"), labeled("A Street")})
	assert.Equal(t, []string{"A Street", "B St"}, labels(out))
}

func TestDedupe_DropsLabelless(t *testing.T) {
	out := Dedupe([]geocode.Feature{{}, {Properties: &geocode.Properties{Name: "x"}}, labeled("Oak")})
	assert.Equal(t, []string{"Oak"}, labels(out))
}

func TestDedupe_Idempotent(t *testing.T) {
	in := []geocode.Feature{
		labeled("123 SW Main St"), labeled("123 Southwest Main Street"), labeled("Oak Ave"),
		labeled("Oak  Avenue"), labeled("Pioneer Square"), labeled("1st & Main"), {},
	}
	once := Dedupe(in)
	twice := Dedupe(once)
	assert.Equal(t, labels(once), labels(twice))
}

// --- PrioritizeStops ---

func TestPrioritizeStops_ExactMatchWins(t *testing.T) {
	in := []geocode.Feature{stop("2000", 100), stop("1234", 50)}
	out := PrioritizeStops(in, api.Autocomplete, false, 1234, "stop 1234")
	require.Len(t, out, 1)
	assert.Equal(t, geocode.FlexString("1234"), out[0].Transit().StopID)
}

func TestPrioritizeStops_MatchesStopCode(t *testing.T) {
	f := stop("9", 10)
	f.Properties.Addendum.GTFS.StopCode = "1234"
	out := PrioritizeStops([]geocode.Feature{stop("1", 1), f}, api.Autocomplete, false, 1234, "1234")
	require.Len(t, out, 1)
	assert.Equal(t, geocode.FlexString("1234"), out[0].Transit().StopCode)
}

func TestPrioritizeStops_ExactMatchesSortedByDistance(t *testing.T) {
	far, near := stop("1234", 300), stop("1234", 20)
	far.Properties.Label = "far"
	near.Properties.Label = "near"
	out := PrioritizeStops([]geocode.Feature{far, stop("5", 1), near}, api.Autocomplete, false, 1234, "")
	assert.Equal(t, []string{"near", "far"}, labels(out))
}

func TestPrioritizeStops_NameMatchesFirst(t *testing.T) {
	in := []geocode.Feature{
		withDistance("Oak St", 10),
		withDistance("Pioneer Square North", 300),
		withDistance("Elm St", 5),
		withDistance("Pioneer Square South", 100),
	}
	out := PrioritizeStops(in, api.Autocomplete, false, query.NoID, "pioneer square")
	assert.Equal(t, []string{"Pioneer Square South", "Pioneer Square North", "Oak St", "Elm St"}, labels(out))

	out = PrioritizeStops(in, api.Search, false, query.NoID, "pioneer square")
	assert.Equal(t, []string{"Elm St", "Oak St", "Pioneer Square South", "Pioneer Square North"}, labels(out))
}

func TestPrioritizeStops_MissingDistanceLast(t *testing.T) {
	in := []geocode.Feature{labeled("a"), withDistance("b", 3)}
	out := PrioritizeStops(in, api.Search, false, query.NoID, "zzz")
	assert.Equal(t, []string{"b", "a"}, labels(out))
}

// --- PrioritizeAddresses ---

func TestPrioritizeAddresses_Intersection(t *testing.T) {
	in := []geocode.Feature{
		labeled("SW Main St & SW 1st Ave, Portland"),
		labeled("Main Street, Portland"),
		labeled("SW 1st Ave & SW Main St, Portland"),
	}
	out := PrioritizeAddresses(in, "Main St & 1st Ave", query.Intersection, api.Autocomplete)
	assert.Equal(t, []string{"SW Main St & SW 1st Ave, Portland", "SW 1st Ave & SW Main St, Portland"}, labels(out))
}

func TestPrioritizeAddresses_Street(t *testing.T) {
	in := []geocode.Feature{labeled("12 Main St, Portland"), labeled("123 Main St, Portland"), labeled("123 Main St, Salem")}
	out := PrioritizeAddresses(in, " 123 MAIN ST ", query.StreetAddress, api.Autocomplete)
	assert.Equal(t, []string{"123 Main St, Portland", "123 Main St, Salem"}, labels(out))
}

func TestPrioritizeAddresses_NoMatchKeepsAll(t *testing.T) {
	in := []geocode.Feature{labeled("a"), labeled("b")}
	out := PrioritizeAddresses(in, "999 nowhere rd", query.StreetAddress, api.Autocomplete)
	assert.Equal(t, []string{"a", "b"}, labels(out))
}

func TestPrioritizeAddresses_SearchSortsByDistance(t *testing.T) {
	in := []geocode.Feature{withDistance("1 Oak St", 9), withDistance("1 Oak St, B", 2)}
	out := PrioritizeAddresses(in, "1 oak st", query.StreetAddress, api.Search)
	assert.Equal(t, []string{"1 Oak St, B", "1 Oak St"}, labels(out))

	out = PrioritizeAddresses(in, "1 oak st", query.StreetAddress, api.Autocomplete)
	assert.Equal(t, []string{"1 Oak St", "1 Oak St, B"}, labels(out))
}

func numbered(n int) []geocode.Feature {
	out := make([]geocode.Feature, 0, n)
	for i := range n {
		out = append(out, labeled(fmt.Sprintf("Place %d", i)))
	}
	return out
}
