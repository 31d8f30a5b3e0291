package search

import (
	"strings"
	"unicode/utf8"
)

// join appends a segment to a path, omitting the separator on an empty path.
func (s *Searcher) join(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return prefix + s.opts.Separator + segment
}

// trimChildren strips a trailing children segment from prefix.
func (s *Searcher) trimChildren(prefix string) (string, bool) {
	if prefix == s.opts.ChildrenKey {
		return "", true
	}
	suffix := s.opts.Separator + s.opts.ChildrenKey
	if strings.HasSuffix(prefix, suffix) {
		return strings.TrimSuffix(prefix, suffix), true
	}
	return prefix, false
}

// truncate shortens v to at most n characters.
func truncate(v string, n int) string {
	if utf8.RuneCountInString(v) <= n {
		return v
	}
	i := 0
	for pos := range v {
		if i == n {
			return v[:pos]
		}
		i++
	}
	return v
}

func length(v string) int {
	return utf8.RuneCountInString(v)
}
