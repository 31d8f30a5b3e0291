package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/dgallion1/modsearch/internal/doctree"
)

func TestYAMLParser_MatchesJSONShape(t *testing.T) {
	input := `
key: root
components:
  - key: grid1
    type: dynamicGrid
    hidden: true
    width: 12
  - key: grid2
    label: null
`
	doc, err := (&YAMLParser{}).Parse(strings.NewReader(input), "root.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	obj, ok := doc.Root.(doctree.Object)
	if !ok {
		t.Fatalf("expected Object root, got %T", doc.Root)
	}
	if obj[0].Key != "key" || obj[0].Value != "root" {
		t.Errorf("expected key=root first, got %s=%v", obj[0].Key, obj[0].Value)
	}
	comps, ok := obj[1].Value.(doctree.Array)
	if !ok || len(comps) != 2 {
		t.Fatalf("expected 2 components, got %#v", obj[1].Value)
	}
	grid := comps[0].(doctree.Object)
	if v, _ := grid.Get("hidden"); v != true {
		t.Errorf("expected hidden=true, got %#v", v)
	}
	if v, _ := grid.Get("width"); v != 12.0 {
		t.Errorf("expected width=12, got %#v", v)
	}
	if v, ok := comps[1].(doctree.Object).Get("label"); !ok || v != nil {
		t.Errorf("expected label=null, got %#v", v)
	}
}

func TestYAMLParser_QuotedScalarsStayStrings(t *testing.T) {
	doc, err := (&YAMLParser{}).Parse(strings.NewReader(`a: "42"`+"\n"+`b: 'true'`), "q.yml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	obj := doc.Root.(doctree.Object)
	if obj[0].Value != "42" {
		t.Errorf("expected string 42, got %#v", obj[0].Value)
	}
	if obj[1].Value != "true" {
		t.Errorf("expected string true, got %#v", obj[1].Value)
	}
}

func TestYAMLParser_Anchors(t *testing.T) {
	input := "base: &b\n  type: dynamicGrid\ncopy: *b\n"
	doc, err := (&YAMLParser{}).Parse(strings.NewReader(input), "a.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	obj := doc.Root.(doctree.Object)
	cp, ok := obj[1].Value.(doctree.Object)
	if !ok {
		t.Fatalf("expected alias to resolve to Object, got %T", obj[1].Value)
	}
	if v, _ := cp.Get("type"); v != "dynamicGrid" {
		t.Errorf("expected type=dynamicGrid, got %#v", v)
	}
}

func TestYAMLParser_EmptyInput(t *testing.T) {
	doc, err := (&YAMLParser{}).Parse(strings.NewReader(""), "empty.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Root != nil {
		t.Errorf("expected nil root, got %#v", doc.Root)
	}
}

func TestYAMLParser_Invalid(t *testing.T) {
	if _, err := (&YAMLParser{}).Parse(strings.NewReader("a: [1, 2"), "bad.yaml"); err == nil {
		t.Error("expected error for unterminated flow sequence")
	}
}

func TestYAMLParser_RecursiveAlias(t *testing.T) {
	_, err := (&YAMLParser{}).Parse(strings.NewReader("a: &x [*x]\n"), "loop.yaml")
	if err == nil {
		t.Fatal("expected error for self-referencing anchor")
	}
	if !strings.Contains(err.Error(), `anchor "x" contains itself`) {
		t.Errorf("expected anchor error, got %v", err)
	}
}

func TestYAMLParser_AliasReusedBySiblings(t *testing.T) {
	input := "base: &b [dynamicGrid]\none: *b\ntwo: *b\nnested:\n  three: *b\n"
	doc, err := (&YAMLParser{}).Parse(strings.NewReader(input), "a.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	obj := doc.Root.(doctree.Object)
	if len(obj) != 4 {
		t.Fatalf("expected 4 fields, got %d", len(obj))
	}
	if arr, ok := obj[2].Value.(doctree.Array); !ok || len(arr) != 1 || arr[0] != "dynamicGrid" {
		t.Errorf("expected second alias to expand, got %#v", obj[2].Value)
	}
}

func TestYAMLParser_AliasExpansionLimit(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("l0: &l0 [x, x, x, x, x, x, x, x, x, x]\n")
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&sb, "l%d: &l%d [", i, i)
		for j := range 10 {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "*l%d", i-1)
		}
		sb.WriteString("]\n")
	}
	_, err := (&YAMLParser{}).Parse(strings.NewReader(sb.String()), "laughs.yaml")
	if err == nil || !strings.Contains(err.Error(), "alias expansions") {
		t.Errorf("expected alias expansion limit error, got %v", err)
	}
}
