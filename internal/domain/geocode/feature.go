// Package geocode models the upstream geocoder's GeoJSON response.
package geocode

import (
	"bytes"
	"encoding/json"
	"math"
	"reflect"
	"strconv"
)

// Feature is a single geocoding candidate.
type Feature struct {
	Type       string      `json:"type,omitempty"`
	Geometry   *Geometry   `json:"geometry,omitempty"`
	Properties *Properties `json:"properties,omitempty"`
	BBox       []float64   `json:"bbox,omitempty"`

	extra map[string]json.RawMessage
}

// Geometry is a GeoJSON point: coordinates are [longitude, latitude].
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// Properties is the upstream property bag. Unknown keys survive a decode/encode round trip.
type Properties struct {
	ID            string    `json:"id,omitempty"`
	GID           string    `json:"gid,omitempty"`
	Layer         string    `json:"layer,omitempty"`
	Source        string    `json:"source,omitempty"`
	Name          string    `json:"name,omitempty"`
	Label         string    `json:"label,omitempty"`
	Distance      *float64  `json:"distance,omitempty"`
	Confidence    *float64  `json:"confidence,omitempty"`
	MatchType     string    `json:"match_type,omitempty"`
	HouseNumber   string    `json:"housenumber,omitempty"`
	Street        string    `json:"street,omitempty"`
	PostalCode    string    `json:"postalcode,omitempty"`
	Neighbourhood string    `json:"neighbourhood,omitempty"`
	Locality      string    `json:"locality,omitempty"`
	County        string    `json:"county,omitempty"`
	Addendum      *Addendum `json:"addendum,omitempty"`

	extra map[string]json.RawMessage
}

// Addendum carries provider-specific extensions; only the GTFS block is interpreted.
type Addendum struct {
	GTFS *Transit `json:"gtfs,omitempty"`

	extra map[string]json.RawMessage
}

// Transit is the GTFS addendum attached to stop features.
type Transit struct {
	AgencyID  FlexString `json:"agency_id,omitempty"`
	StopID    FlexString `json:"stop_id,omitempty"`
	StopCode  FlexString `json:"stop_code,omitempty"`
	Direction FlexString `json:"direction,omitempty"`
}

// FlexString decodes from either a JSON string or a JSON number.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err //nolint:wrapcheck // plain decode error
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err //nolint:wrapcheck // plain decode error
	}
	*f = FlexString(n.String())
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f Feature) MarshalJSON() ([]byte, error) {
	type plain Feature
	return mergeExtra(plain(f), f.extra)
}

// UnmarshalJSON implements json.Unmarshaler. A malformed geometry is kept
// verbatim and the feature stays usable.
func (f *Feature) UnmarshalJSON(b []byte) error {
	*f = Feature{}
	extra, err := decodeFields(b, map[string]any{
		"type":       &f.Type,
		"geometry":   &f.Geometry,
		"properties": &f.Properties,
		"bbox":       &f.BBox,
	})
	if err != nil {
		return err
	}
	f.extra = extra
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p Properties) MarshalJSON() ([]byte, error) {
	type plain Properties
	return mergeExtra(plain(p), p.extra)
}

// UnmarshalJSON implements json.Unmarshaler. Decoding is per field: a value of
// the wrong type is kept verbatim instead of failing the whole feature.
func (p *Properties) UnmarshalJSON(b []byte) error {
	*p = Properties{}
	extra, err := decodeFields(b, p.fields())
	if err != nil {
		return err
	}
	p.extra = extra
	return nil
}

func (p *Properties) fields() map[string]any {
	return map[string]any{
		"id":            &p.ID,
		"gid":           &p.GID,
		"layer":         &p.Layer,
		"source":        &p.Source,
		"name":          &p.Name,
		"label":         &p.Label,
		"distance":      &p.Distance,
		"confidence":    &p.Confidence,
		"match_type":    &p.MatchType,
		"housenumber":   &p.HouseNumber,
		"street":        &p.Street,
		"postalcode":    &p.PostalCode,
		"neighbourhood": &p.Neighbourhood,
		"locality":      &p.Locality,
		"county":        &p.County,
		"addendum":      &p.Addendum,
	}
}

// MarshalJSON implements json.Marshaler.
func (a Addendum) MarshalJSON() ([]byte, error) {
	type plain Addendum
	return mergeExtra(plain(a), a.extra)
}

// UnmarshalJSON implements json.Unmarshaler. A malformed gtfs block is dropped.
func (a *Addendum) UnmarshalJSON(b []byte) error {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return err //nolint:wrapcheck // plain decode error
	}
	*a = Addendum{}
	if raw, ok := all["gtfs"]; ok {
		var t Transit
		if json.Unmarshal(raw, &t) == nil {
			a.GTFS = &t
			delete(all, "gtfs")
		}
	}
	if len(all) > 0 {
		a.extra = all
	}
	return nil
}

// Clone returns a copy whose Properties can be changed without touching f.
func (f *Feature) Clone() Feature {
	out := *f
	if f.Properties != nil {
		p := *f.Properties
		out.Properties = &p
	}
	return out
}

// Label returns the feature label, or "" when there is no property bag.
func (f *Feature) Label() string {
	if f.Properties == nil {
		return ""
	}
	return f.Properties.Label
}

// Name returns the feature name, or "".
func (f *Feature) Name() string {
	if f.Properties == nil {
		return ""
	}
	return f.Properties.Name
}

// Layer returns the upstream layer, or "".
func (f *Feature) Layer() string {
	if f.Properties == nil {
		return ""
	}
	return f.Properties.Layer
}

// Distance returns the upstream distance; a missing value sorts last.
func (f *Feature) Distance() float64 {
	if f.Properties == nil || f.Properties.Distance == nil {
		return math.Inf(1)
	}
	return *f.Properties.Distance
}

// Transit returns the GTFS addendum, zero-valued when absent.
func (f *Feature) Transit() Transit {
	if f.Properties == nil || f.Properties.Addendum == nil || f.Properties.Addendum.GTFS == nil {
		return Transit{}
	}
	return *f.Properties.Addendum.GTFS
}

// MatchesStop reports whether the feature's stop_id or stop_code equals id.
func (f *Feature) MatchesStop(id int) bool {
	t := f.Transit()
	want := strconv.Itoa(id)
	return string(t.StopID) == want || string(t.StopCode) == want
}

func mergeExtra(known any, extra map[string]json.RawMessage) ([]byte, error) {
	b, err := json.Marshal(known)
	if err != nil || len(extra) == 0 {
		return b, err //nolint:wrapcheck // plain encode error
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err //nolint:wrapcheck // plain decode error
	}
	merged := make(map[string]json.RawMessage, len(fields)+len(extra))
	for k, v := range extra {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged) //nolint:wrapcheck // plain encode error
}

// decodeFields decodes each known key of the JSON object b into its target.
// Keys that are unknown or fail to decode are returned verbatim and their
// targets are left untouched.
func decodeFields(b []byte, fields map[string]any) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return nil, err //nolint:wrapcheck // plain decode error
	}
	for key, dst := range fields {
		raw, ok := all[key]
		if !ok {
			continue
		}
		target := reflect.ValueOf(dst).Elem()
		// json.Unmarshal allocates pointers before it fails on a type mismatch.
		tmp := reflect.New(target.Type())
		if json.Unmarshal(raw, tmp.Interface()) != nil {
			continue
		}
		target.Set(tmp.Elem())
		delete(all, key)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}
