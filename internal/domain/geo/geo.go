// Package geo parses caller coordinates and buckets them for caching.
package geo

import (
	"regexp"
	"strconv"

	"github.com/golang/geo/s2"
)

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64
	Lon float64
}

var pair = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?)\s*(?:,\s*|\s+)(-?\d+(?:\.\d+)?)\s*$`)

// ParseCoordinatePair reads "lat,lon" or "lat lon". If only the swapped
// order is a valid coordinate the pair is read as "lon,lat".
func ParseCoordinatePair(s string) (Point, bool) {
	m := pair.FindStringSubmatch(s)
	if m == nil {
		return Point{}, false
	}
	a, errA := strconv.ParseFloat(m[1], 64)
	b, errB := strconv.ParseFloat(m[2], 64)
	if errA != nil || errB != nil {
		return Point{}, false
	}
	switch {
	case ValidateCoordinates(a, b):
		return Point{Lat: a, Lon: b}, true
	case ValidateCoordinates(b, a):
		return Point{Lat: b, Lon: a}, true
	}
	return Point{}, false
}

// FormatDegrees renders a coordinate component for an upstream parameter.
func FormatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CellToken returns the S2 cell token containing p at level.
func CellToken(p Point, level int) string {
	return s2.CellIDFromLatLng(s2.LatLngFromDegrees(p.Lat, p.Lon)).Parent(level).ToToken()
}

// ValidateCoordinates checks that latitude is in [-90,90] and longitude in [-180,180].
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
