package doctree

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Document is one parsed definition in a corpus.
type Document struct {
	ID   string // Source identifier, e.g. the definition file name
	Root any    // Object, Array, or scalar
}

// Object is a keyed mapping that keeps the key order of its source.
type Object []Field

// Array is an ordered sequence of nodes.
type Array []any

// Field is a single key/value entry of an Object.
type Field struct {
	Key   string
	Value any
}

// Get returns the value of the first field named key.
func (o Object) Get(key string) (any, bool) {
	for _, f := range o {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Fields returns the entries of a mapping node in iteration order. Plain Go
// maps have no order of their own, so their keys are sorted.
func Fields(node any) ([]Field, bool) {
	switch n := node.(type) {
	case Object:
		return n, true
	case map[string]any:
		keys := make([]string, 0, len(n))
		for k := range n {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]Field, 0, len(keys))
		for _, k := range keys {
			fields = append(fields, Field{Key: k, Value: n[k]})
		}
		return fields, true
	}
	return nil, false
}

// Elements returns the children of a sequence node.
func Elements(node any) ([]any, bool) {
	switch n := node.(type) {
	case Array:
		return n, true
	case []any:
		return n, true
	}
	return nil, false
}

// ScalarText renders a scalar identifier value. Strings are returned verbatim,
// numbers and booleans in their canonical form. Null and compound values
// report false.
func ScalarText(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case json.Number:
		return s.String(), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case bool:
		return strconv.FormatBool(s), true
	}
	return "", false
}
