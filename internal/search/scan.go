package search

import "github.com/dgallion1/modsearch/internal/doctree"

// Result is the outcome of scanning a corpus.
type Result struct {
	Documents int        `json:"documents"`
	Hits      int        `json:"hits"`
	Locations []Location `json:"locations"`
}

// Hits searches one document and tags every match with its ID.
func (s *Searcher) Hits(doc doctree.Document, target Target) []Hit {
	var hits []Hit
	for path, value := range s.Search(doc.Root, target) {
		hits = append(hits, Hit{Path: path, Value: value, Source: doc.ID})
	}
	return hits
}

// Scan searches every document, then merges all hits in a single pass.
func (s *Searcher) Scan(docs []doctree.Document, target Target) Result {
	var all []Hit
	for _, doc := range docs {
		all = append(all, s.Hits(doc, target)...)
	}
	return Result{
		Documents: len(docs),
		Hits:      len(all),
		Locations: Merge(all, s.opts.Cutoff),
	}
}
