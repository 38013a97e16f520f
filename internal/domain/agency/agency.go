// Package agency holds the participating transit agencies and the adaptive
// exclusion filter derived from them.
package agency

import (
	"strings"
	"sync"
)

// StopsSuffix is the layer suffix every agency publishes its stops under.
const StopsSuffix = ":stops"

// Agencies is the ordered list of participating agency codes plus the one
// whose results are preferred.
type Agencies struct {
	Primary     string
	PrimaryName string
	List        []string
}

// StopLayers returns every agency's stop layer, comma-joined.
//
//	trimet:stops,ctran:stops,...
func (a Agencies) StopLayers() string {
	layers := make([]string, 0, len(a.List))
	for _, code := range a.List {
		layers = append(layers, strings.ToLower(code)+StopsSuffix)
	}
	return strings.Join(layers, ",")
}

// ExclusionFilter returns "-<agency>:stops" for every non-primary agency.
func (a Agencies) ExclusionFilter() string {
	parts := make([]string, 0, len(a.List))
	for _, code := range a.List {
		if a.IsPrimary(code) {
			continue
		}
		parts = append(parts, "-"+strings.ToLower(code)+StopsSuffix)
	}
	return strings.Join(parts, ",")
}

// IsPrimary reports whether code names the primary agency.
func (a Agencies) IsPrimary(code string) bool {
	return a.Primary != "" && strings.EqualFold(strings.TrimSpace(code), a.Primary)
}

// OwnsID reports whether a composite upstream id ("trimet:stops:123",
// "123::TRIMET") carries the primary agency as one of its segments.
func (a Agencies) OwnsID(id string) bool {
	if a.Primary == "" {
		return false
	}
	for _, seg := range strings.Split(id, ":") {
		if strings.EqualFold(seg, a.Primary) {
			return true
		}
	}
	return false
}

// FilterState is the process-wide agency filter. The filter string is built
// once; Disable is permanent until Reset.
type FilterState interface {
	// Filter returns the exclusion filter and whether it should be applied.
	Filter() (string, bool)
	// Disable turns the filter off. It reports whether this call changed state.
	Disable() bool
	Disabled() bool
	Reset()
}

// State is a mutex-guarded FilterState.
type State struct {
	agencies Agencies

	mu       sync.Mutex
	filter   string
	computed bool
	disabled bool
}

// NewState creates a filter state for agencies.
func NewState(agencies Agencies) *State {
	return &State{agencies: agencies}
}

// Filter implements FilterState.
func (s *State) Filter() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disabled {
		return "", false
	}
	if !s.computed {
		s.filter = s.agencies.ExclusionFilter()
		s.computed = true
	}
	return s.filter, s.filter != ""
}

// Disable implements FilterState.
func (s *State) Disable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := !s.disabled
	s.disabled = true
	return changed
}

// Disabled implements FilterState.
func (s *State) Disabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disabled
}

// Reset returns the state to its initial, not yet computed form.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter, s.computed, s.disabled = "", false, false
}
