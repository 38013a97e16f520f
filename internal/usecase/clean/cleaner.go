// Package clean rewrites feature labels into the form riders expect.
package clean

import (
	"regexp"
	"strings"

	"github.com/opentransittools/pelias-refine/internal/domain/agency"
	"github.com/opentransittools/pelias-refine/internal/domain/geocode"
	"github.com/opentransittools/pelias-refine/internal/domain/layer"
	"github.com/opentransittools/pelias-refine/internal/domain/text"
)

const (
	sep           = ", "
	areaSep       = " - "
	interpolated  = "interpolated"
	approxMarker  = "*"
	minStopName   = 3
	legacyIDSep   = "::"
	transitSuffix = " (Transit Route)"
)

var stopWord = regexp.MustCompile(`(?i)^stop\s+`)

// Cleaner rewrites labels feature by feature, dispatching on layer category.
type Cleaner struct {
	agencies agency.Agencies
}

// New creates a Cleaner for the given agencies.
func New(agencies agency.Agencies) *Cleaner {
	return &Cleaner{agencies: agencies}
}

// Clean returns a copy of resp whose first size features carry rewritten
// labels. resp and its features are left untouched.
func (c *Cleaner) Clean(resp geocode.Response, size int, calltaker, rtp bool) geocode.Response {
	out := make([]geocode.Feature, len(resp.Features))
	copy(out, resp.Features)

	for i := range out {
		if i >= size {
			break
		}
		if out[i].Properties == nil {
			continue
		}
		f := out[i].Clone()
		c.rewrite(f.Properties, rtp)
		if calltaker && f.Properties.MatchType == interpolated && f.Properties.Label != "" {
			f.Properties.Label = approxMarker + f.Properties.Label
		}
		out[i] = f
	}

	return resp.WithFeatures(out)
}

func (c *Cleaner) rewrite(p *geocode.Properties, rtp bool) {
	switch layer.Categorize(p.Layer) {
	case layer.Venue:
		if p.Name != "" {
			p.Label = text.Append3(p.Name, p.Street, area(p), sep)
		}
	case layer.Stop:
		c.rewriteStop(p, rtp)
	case layer.Route:
		if p.Name != "" {
			p.Label = p.Name + c.routeSuffix(p.ID)
		}
	case layer.PostOffice:
		if p.Name != "" {
			p.Label = strings.TrimSpace(p.Name + " Post Office " + p.PostalCode)
		}
	case layer.Region, layer.Other:
		if p.Name != "" {
			p.Label = text.Append(p.Name, cityNeighbourhoodOrCounty(p), sep)
		}
	}
}

func (c *Cleaner) rewriteStop(p *geocode.Properties, rtp bool) {
	name := p.Name
	switch {
	case rtp:
		p.ID = stripLayerPrefix(p.ID)
	case c.agencies.OwnsID(p.ID):
		name = stopWord.ReplaceAllString(name, "")
		p.Name = name
		p.ID = c.legacyStopID(p.ID)
	}

	if name == "" {
		return
	}
	if len(name) > minStopName {
		p.Label = text.Append(name, area(p), sep)
		return
	}
	p.Label = name
}

// legacyStopID turns "trimet:stops:1234" into the "1234::TRIMET" form older
// clients key on.
func (c *Cleaner) legacyStopID(id string) string {
	id = stripLayerPrefix(id)
	if id == "" || strings.Contains(id, legacyIDSep) {
		return id
	}
	return id + legacyIDSep + strings.ToUpper(c.agencies.Primary)
}

func (c *Cleaner) routeSuffix(id string) string {
	if !c.agencies.OwnsID(id) {
		return transitSuffix
	}
	name := c.agencies.PrimaryName
	if name == "" {
		name = c.agencies.Primary
	}
	return " (" + name + " Route)"
}

// stripLayerPrefix drops a "<provider>:<stops layer>:" prefix.
func stripLayerPrefix(id string) string {
	parts := strings.SplitN(id, ":", 3)
	if len(parts) == 3 && strings.Contains(parts[1], "stops") {
		return parts[2]
	}
	return id
}

func area(p *geocode.Properties) string {
	return text.Append(p.Neighbourhood, p.Locality, areaSep)
}

func cityNeighbourhoodOrCounty(p *geocode.Properties) string {
	switch {
	case p.Locality != "":
		return p.Locality
	case p.Neighbourhood != "":
		return p.Neighbourhood
	}
	return p.County
}
