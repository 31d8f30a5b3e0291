package parser

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dgallion1/modsearch/internal/doctree"
	"gopkg.in/yaml.v3"
)

// YAMLParser decodes YAML definitions through the yaml.v3 node tree so that
// mapping order survives.
type YAMLParser struct{}

func (p *YAMLParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if err == io.EOF {
			return &doctree.Document{ID: filename}, nil
		}
		return nil, fmt.Errorf("parse yaml %s: %w", filename, err)
	}
	c := &converter{expanding: make(map[*yaml.Node]bool)}
	v, err := c.convert(&root)
	if err != nil {
		return nil, fmt.Errorf("parse yaml %s: %w", filename, err)
	}
	return &doctree.Document{ID: filename, Root: v}, nil
}

// maxAliasExpansions bounds how many aliases one document may expand.
const maxAliasExpansions = 10000

// converter turns a yaml.Node tree into doctree values. It tracks the
// anchors being expanded so self-referencing aliases fail instead of
// recursing forever.
type converter struct {
	expanding map[*yaml.Node]bool
	aliases   int
}

func (c *converter) convert(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return c.convert(n.Content[0])
	case yaml.MappingNode:
		obj := make(doctree.Object, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: non-scalar mapping key", k.Line)
			}
			val, err := c.convert(v)
			if err != nil {
				return nil, err
			}
			obj = append(obj, doctree.Field{Key: k.Value, Value: val})
		}
		return obj, nil
	case yaml.SequenceNode:
		arr := make(doctree.Array, 0, len(n.Content))
		for _, child := range n.Content {
			val, err := c.convert(child)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		return arr, nil
	case yaml.AliasNode:
		target := n.Alias
		if target == nil {
			return nil, fmt.Errorf("line %d: unknown anchor %q", n.Line, n.Value)
		}
		if c.expanding[target] {
			return nil, fmt.Errorf("line %d: anchor %q contains itself", n.Line, n.Value)
		}
		c.aliases++
		if c.aliases > maxAliasExpansions {
			return nil, fmt.Errorf("line %d: more than %d alias expansions", n.Line, maxAliasExpansions)
		}
		c.expanding[target] = true
		v, err := c.convert(target)
		delete(c.expanding, target)
		return v, err
	case yaml.ScalarNode:
		return convertScalar(n)
	}
	return nil, fmt.Errorf("line %d: unsupported yaml node kind %d", n.Line, n.Kind)
}

func convertScalar(n *yaml.Node) (any, error) {
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		b, err := strconv.ParseBool(n.Value)
		if err != nil {
			var v bool
			if err := n.Decode(&v); err != nil {
				return nil, fmt.Errorf("line %d: %w", n.Line, err)
			}
			return v, nil
		}
		return b, nil
	case "!!int", "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return f, nil
	default:
		return n.Value, nil
	}
}
