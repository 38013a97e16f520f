// Package layer maps upstream layer names onto the closed set of categories
// the result cleaner understands.
package layer

import "strings"

// Category is a closed enumeration of layer kinds.
type Category int

// Layer categories. Other is the fallback for anything unrecognised.
const (
	Other Category = iota
	Venue
	Stop
	Route
	PostOffice
	Region
)

// Well-known upstream layer names.
const (
	Address       = "address"
	Intersection  = "intersection"
	Locality      = "locality"
	Neighbourhood = "neighbourhood"
	RegionLayer   = "region"
	County        = "county"
)

var (
	venueLayers  = map[string]bool{"venue": true, "major_employer": true, "fare": true, "fare_outlet": true}
	regionLayers = map[string]bool{Locality: true, Neighbourhood: true, RegionLayer: true, County: true}
)

// Categorize returns the category of an upstream layer name. Stop layers are
// recognised by substring because providers namespace them ("trimet:stops").
func Categorize(name string) Category {
	name = strings.ToLower(strings.TrimSpace(name))
	switch {
	case venueLayers[name]:
		return Venue
	case strings.Contains(name, "stops"):
		return Stop
	case name == "routes" || strings.HasSuffix(name, ":routes"):
		return Route
	case name == "post_office":
		return PostOffice
	case regionLayers[name]:
		return Region
	}
	return Other
}

// IsRegion reports whether name is an administrative area layer.
func IsRegion(name string) bool {
	return Categorize(name) == Region
}

func (c Category) String() string {
	switch c {
	case Venue:
		return "venue"
	case Stop:
		return "stop"
	case Route:
		return "route"
	case PostOffice:
		return "post_office"
	case Region:
		return "region"
	}
	return "other"
}
