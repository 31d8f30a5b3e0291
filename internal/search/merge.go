package search

import "strings"

// Hit is a single match tagged with the document it came from.
type Hit struct {
	Path   string `json:"path"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// Location is a merged match and every document that reported it.
type Location struct {
	Path    string   `json:"path"`
	Value   string   `json:"value"`
	Sources []string `json:"sources"`
}

// Merger folds hits into locations. Paths related by substring containment
// collapse into one location: an existing shorter path absorbs the new
// source, a new shorter path replaces the existing location and inherits its
// sources. Only the first related location is considered, so the result
// depends on the order hits are added.
type Merger struct {
	cutoff    int
	locations []Location
}

// NewMerger creates a Merger that drops hits whose value has at least cutoff
// characters.
func NewMerger(cutoff int) *Merger {
	if cutoff <= 0 {
		cutoff = DefaultCutoff
	}
	return &Merger{cutoff: cutoff, locations: []Location{}}
}

// Add merges one hit. It reports whether the hit was kept.
func (m *Merger) Add(h Hit) bool {
	if length(h.Value) >= m.cutoff {
		return false
	}
	for i := range m.locations {
		u := &m.locations[i]
		if strings.Contains(h.Path, u.Path) {
			u.Sources = append(u.Sources, h.Source)
			return true
		}
		if strings.Contains(u.Path, h.Path) {
			sources := make([]string, 0, len(u.Sources)+1)
			sources = append(sources, h.Source)
			sources = append(sources, u.Sources...)
			m.locations[i] = Location{Path: h.Path, Value: h.Value, Sources: sources}
			return true
		}
	}
	m.locations = append(m.locations, Location{Path: h.Path, Value: h.Value, Sources: []string{h.Source}})
	return true
}

// Locations returns the merged locations in first-seen order.
func (m *Merger) Locations() []Location {
	return m.locations
}

// Merge folds hits in order and returns the resulting locations.
func Merge(hits []Hit, cutoff int) []Location {
	m := NewMerger(cutoff)
	for _, h := range hits {
		m.Add(h)
	}
	return m.Locations()
}

// Flatten expands locations back into one hit per source.
func Flatten(locations []Location) []Hit {
	var hits []Hit
	for _, l := range locations {
		for _, src := range l.Sources {
			hits = append(hits, Hit{Path: l.Path, Value: l.Value, Source: src})
		}
	}
	return hits
}
