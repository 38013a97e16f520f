package refine

import (
	"strings"

	"github.com/opentransittools/pelias-refine/internal/domain/geocode"
	"github.com/opentransittools/pelias-refine/internal/domain/text"
)

// orderedSet keeps keys in first-seen order while later values overwrite.
type orderedSet struct {
	keys  []string
	items map[string]geocode.Feature
}

func newOrderedSet(n int) *orderedSet {
	return &orderedSet{keys: make([]string, 0, n), items: make(map[string]geocode.Feature, n)}
}

func (s *orderedSet) put(key string, f geocode.Feature) {
	if _, ok := s.items[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.items[key] = f
}

// Dedupe collapses features whose labels normalize to the same text, first
// by expanded label and then by that label without whitespace. The last
// duplicate wins. Features without a label are dropped.
func Dedupe(features []geocode.Feature) []geocode.Feature {
	byLabel := newOrderedSet(len(features))
	for _, f := range features {
		label := f.Label()
		if label == "" {
			continue
		}
		byLabel.put(text.NormalizeAddress(label), f)
	}

	compact := newOrderedSet(len(byLabel.keys))
	for _, key := range byLabel.keys {
		compact.put(text.StripSpace(strings.ToLower(key)), byLabel.items[key])
	}

	out := make([]geocode.Feature, 0, len(compact.keys))
	for _, key := range compact.keys {
		out = append(out, compact.items[key])
	}
	return out
}
