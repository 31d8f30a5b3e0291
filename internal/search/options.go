package search

// Defaults for the path-naming convention of exported module definitions.
const (
	DefaultCutoff      = 10000
	DefaultSeparator   = "->"
	DefaultChildrenKey = "components"
	DefaultIDKey       = "key"
)

// Options controls path naming and value truncation.
type Options struct {
	Cutoff      int    // Maximum value length in characters.
	Separator   string // Joins path segments.
	ChildrenKey string // Field holding a component's child components.
	IDKey       string // Field holding a component's identifier.
}

// DefaultOptions returns the conventions used by exported definitions.
func DefaultOptions() Options {
	return Options{
		Cutoff:      DefaultCutoff,
		Separator:   DefaultSeparator,
		ChildrenKey: DefaultChildrenKey,
		IDKey:       DefaultIDKey,
	}
}

func (o Options) withDefaults() Options {
	if o.Cutoff <= 0 {
		o.Cutoff = DefaultCutoff
	}
	if o.Separator == "" {
		o.Separator = DefaultSeparator
	}
	if o.ChildrenKey == "" {
		o.ChildrenKey = DefaultChildrenKey
	}
	if o.IDKey == "" {
		o.IDKey = DefaultIDKey
	}
	return o
}

// Target is the string being searched for.
type Target struct {
	Value string
	Exact bool // Whole-value equality instead of substring containment.
}
