// Package search finds string leaves matching a target inside hierarchical
// documents and merges the resulting locations across a corpus.
package search

import (
	"iter"
	"strings"

	"github.com/dgallion1/modsearch/internal/doctree"
)

// Searcher walks documents and names the path to every matching leaf.
type Searcher struct {
	opts Options
}

// NewSearcher creates a Searcher. Zero-valued options fall back to defaults.
func NewSearcher(opts Options) *Searcher {
	return &Searcher{opts: opts.withDefaults()}
}

// Options returns the effective options.
func (s *Searcher) Options() Options {
	return s.opts
}

// Search yields (path, value) for every string leaf of root that matches
// target, in document order. Values longer than the cutoff are truncated.
func (s *Searcher) Search(root any, target Target) iter.Seq2[string, string] {
	return s.SearchFrom(root, "", target)
}

// SearchFrom is Search for a subtree already reached through prefix.
func (s *Searcher) SearchFrom(node any, prefix string, target Target) iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		s.walk(node, prefix, target, yield)
	}
}

// walk returns false once the consumer has stopped.
func (s *Searcher) walk(node any, prefix string, target Target, yield func(string, string) bool) bool {
	if fields, ok := doctree.Fields(node); ok {
		path := s.nodePath(fields, prefix)
		for _, f := range fields {
			childPath := s.join(path, f.Key)
			if v, ok := f.Value.(string); ok {
				if !target.matches(v) {
					continue
				}
				if !yield(childPath, truncate(v, s.opts.Cutoff)) {
					return false
				}
				continue
			}
			if !s.walk(f.Value, childPath, target, yield) {
				return false
			}
		}
		return true
	}

	if elems, ok := doctree.Elements(node); ok {
		// Elements share the parent path; the index is not a segment.
		for _, e := range elems {
			if !s.walk(e, prefix, target, yield) {
				return false
			}
		}
	}
	return true
}

// nodePath names a mapping node. A node reached through a children field
// takes the place of that field in the path; any other node with an
// identifier appends it.
func (s *Searcher) nodePath(fields []doctree.Field, prefix string) string {
	id, hasID := s.identifier(fields)
	// Only a whole children segment is replaced: a prefix ending in
	// "->subcomponents" is left alone, unlike a plain suffix match.
	if parent, ok := s.trimChildren(prefix); ok {
		if !hasID {
			return prefix
		}
		return s.join(parent, id)
	}
	if hasID {
		return s.join(prefix, id)
	}
	return prefix
}

func (s *Searcher) identifier(fields []doctree.Field) (string, bool) {
	for _, f := range fields {
		if f.Key == s.opts.IDKey {
			return doctree.ScalarText(f.Value)
		}
	}
	return "", false
}

func (t Target) matches(v string) bool {
	if t.Exact {
		return v == t.Value
	}
	return strings.Contains(v, t.Value)
}
