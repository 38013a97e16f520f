package geocode

import (
	"encoding/json"
	"strings"
)

// invalidLayers is the upstream error text emitted when a layers filter names
// a layer the index does not know.
const invalidLayers = "invalid layers parameter"

// Response is the upstream FeatureCollection.
type Response struct {
	Geocoding *Geocoding `json:"geocoding,omitempty"`
	Type      string     `json:"type,omitempty"`
	Features  []Feature  `json:"features"`
	BBox      []float64  `json:"bbox,omitempty"`
}

// Geocoding is the upstream request echo.
type Geocoding struct {
	Version     string                     `json:"version,omitempty"`
	Attribution string                     `json:"attribution,omitempty"`
	Query       map[string]json.RawMessage `json:"query,omitempty"`
	Errors      []string                   `json:"errors,omitempty"`
	Warnings    []string                   `json:"warnings,omitempty"`
	Hostname    string                     `json:"hostname,omitempty"`

	extra map[string]json.RawMessage
}

// ParsedText is the subset of the upstream address parse the refiner reads.
type ParsedText struct {
	HouseNumber string `json:"housenumber"`
	Number      string `json:"number"`
	Street      string `json:"street"`
}

// StreetNumber returns the house number, whichever key the parser used.
func (p ParsedText) StreetNumber() string {
	if p.HouseNumber != "" {
		return p.HouseNumber
	}
	return p.Number
}

// UnmarshalJSON implements json.Unmarshaler. Features that fail to decode are
// skipped, so one bad element never empties the whole response.
func (r *Response) UnmarshalJSON(b []byte) error {
	*r = Response{}
	var raw []json.RawMessage
	if _, err := decodeFields(b, map[string]any{
		"geocoding": &r.Geocoding,
		"type":      &r.Type,
		"features":  &raw,
		"bbox":      &r.BBox,
	}); err != nil {
		return err
	}
	r.Features = make([]Feature, 0, len(raw))
	for _, item := range raw {
		var f Feature
		if json.Unmarshal(item, &f) != nil {
			continue
		}
		r.Features = append(r.Features, f)
	}
	return nil
}

// MarshalJSON implements json.Marshaler. Features always encode as an array.
func (r Response) MarshalJSON() ([]byte, error) {
	type plain Response
	if r.Features == nil {
		r.Features = []Feature{}
	}
	return json.Marshal(plain(r)) //nolint:wrapcheck // plain encode error
}

// MarshalJSON implements json.Marshaler.
func (g Geocoding) MarshalJSON() ([]byte, error) {
	type plain Geocoding
	return mergeExtra(plain(g), g.extra)
}

// UnmarshalJSON implements json.Unmarshaler.
func (g *Geocoding) UnmarshalJSON(b []byte) error {
	*g = Geocoding{}
	extra, err := decodeFields(b, map[string]any{
		"version":     &g.Version,
		"attribution": &g.Attribution,
		"query":       &g.Query,
		"errors":      &g.Errors,
		"warnings":    &g.Warnings,
		"hostname":    &g.Hostname,
	})
	if err != nil {
		return err
	}
	g.extra = extra
	return nil
}

// Len returns the number of features.
func (r *Response) Len() int { return len(r.Features) }

// Empty reports whether the response has no features.
func (r *Response) Empty() bool { return len(r.Features) == 0 }

// ParsedText returns the upstream parse of the query text, zero-valued when
// the echo is missing or malformed.
func (r *Response) ParsedText() ParsedText {
	var p ParsedText
	if r.Geocoding == nil {
		return p
	}
	raw, ok := r.Geocoding.Query["parsed_text"]
	if !ok {
		return p
	}
	// parser output is loosely typed; fall back field by field
	_, _ = decodeFields(raw, map[string]any{
		"housenumber": &p.HouseNumber,
		"number":      &p.Number,
		"street":      &p.Street,
	})
	return p
}

// Errors returns the upstream error list.
func (r *Response) Errors() []string {
	if r.Geocoding == nil {
		return nil
	}
	return r.Geocoding.Errors
}

// HasInvalidLayersError reports whether the upstream rejected the layers filter.
func (r *Response) HasInvalidLayersError() bool {
	for _, e := range r.Errors() {
		if strings.Contains(strings.ToLower(e), invalidLayers) {
			return true
		}
	}
	return false
}

// WithFeatures returns a shallow copy of r carrying features.
func (r *Response) WithFeatures(features []Feature) Response {
	out := *r
	out.Features = features
	return out
}

// SetHostname records the serving host in the echo, creating it if needed.
func (r *Response) SetHostname(host string) {
	if r.Geocoding == nil {
		r.Geocoding = &Geocoding{}
	} else {
		g := *r.Geocoding
		r.Geocoding = &g
	}
	r.Geocoding.Hostname = host
}
