// Package query holds the inbound geocoder query and its classification.
package query

import (
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// Upstream parameter names the refinement layer reads or rewrites.
const (
	ParamText   = "text"
	ParamSize   = "size"
	ParamLayers = "layers"

	ParamPointLat = "point.lat"
	ParamPointLon = "point.lon"
)

// DefaultSize is the result count assumed when the caller omits size.
const DefaultSize = 10

// Query is an immutable view of one inbound request.
type Query struct {
	raw    string
	text   string
	size   int
	params url.Values
}

// New creates a query from upstream parameters. The parameters are copied.
func New(params url.Values) Query {
	raw := params.Get(ParamText)
	return Query{
		raw:    raw,
		text:   strings.ToLower(strings.TrimSpace(raw)),
		size:   ParseSize(params.Get(ParamSize)),
		params: CloneParams(params),
	}
}

// Raw returns the text exactly as the caller sent it.
func (q *Query) Raw() string { return q.raw }

// Text returns the trimmed, lowercased text.
func (q *Query) Text() string { return q.text }

// Size returns the requested result count.
func (q *Query) Size() int { return q.size }

// HasLayers reports whether the caller supplied an explicit layers filter.
func (q *Query) HasLayers() bool { return q.params.Get(ParamLayers) != "" }

// Params returns a copy of all upstream parameters.
func (q *Query) Params() url.Values { return CloneParams(q.params) }

// ParseSize parses a size parameter, falling back to DefaultSize.
func ParseSize(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return DefaultSize
	}
	return n
}

// CloneParams deep-copies url.Values; a nil input yields an empty set.
func CloneParams(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

// Carrier is the mutable request-parameter holder shared with the transport.
type Carrier interface {
	Params() url.Values
	SetParams(params url.Values)
}

// RequestParams is a goroutine-safe Carrier.
type RequestParams struct {
	mu     sync.RWMutex
	params url.Values
}

// NewRequestParams creates a carrier holding a copy of params.
func NewRequestParams(params url.Values) *RequestParams {
	return &RequestParams{params: CloneParams(params)}
}

// Params returns a copy of the current parameters.
func (r *RequestParams) Params() url.Values {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return CloneParams(r.params)
}

// SetParams replaces the current parameters with a copy of params.
func (r *RequestParams) SetParams(params url.Values) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.params = CloneParams(params)
}
