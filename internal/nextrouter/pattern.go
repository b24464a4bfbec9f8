package nextrouter

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/codemod/internal/jsast"
)

// Leaf is one local binding produced by flattening a destructuring pattern.
type Leaf struct {
	Local string
	// Path is the chain of property keys from the pattern root to the value.
	Path []string
	// Rest marks a rest element, bound to the whole object at Path.
	Rest    bool
	Default *sitter.Node
}

// Accessor synthesizes the expression reading a leaf from the destructured
// value.
type Accessor func(path []string, rest bool) string

// FlattenedBinding is a leaf with its accessor expression.
type FlattenedBinding struct {
	Leaf
	Expr string
}

// FlattenPattern turns an object pattern into one binding per leaf, reading
// each through acc. It reports false, without calling acc, when the pattern
// has a shape it cannot flatten (computed keys, array patterns).
func FlattenPattern(f *jsast.File, pattern *sitter.Node, acc Accessor) ([]FlattenedBinding, bool) {
	var leaves []Leaf
	if !collectLeaves(f, pattern, nil, &leaves) {
		return nil, false
	}
	out := make([]FlattenedBinding, 0, len(leaves))
	for _, l := range leaves {
		out = append(out, FlattenedBinding{Leaf: l, Expr: acc(l.Path, l.Rest)})
	}
	return out, true
}

func collectLeaves(f *jsast.File, pattern *sitter.Node, prefix []string, out *[]Leaf) bool {
	if jsast.Kind(pattern) != "object_pattern" {
		return false
	}
	path := func(key string) []string {
		p := make([]string, len(prefix), len(prefix)+1)
		copy(p, prefix)
		return append(p, key)
	}
	for _, el := range jsast.NamedChildren(pattern) {
		switch el.Type() {
		case "shorthand_property_identifier_pattern":
			name := f.Text(el)
			*out = append(*out, Leaf{Local: name, Path: path(name)})
		case "object_assignment_pattern":
			left := jsast.Field(el, "left")
			if jsast.Kind(left) != "shorthand_property_identifier_pattern" {
				return false
			}
			name := f.Text(left)
			*out = append(*out, Leaf{Local: name, Path: path(name), Default: jsast.Field(el, "right")})
		case "pair_pattern":
			key, ok := propertyKey(f, jsast.Field(el, "key"))
			if !ok {
				return false
			}
			value := jsast.Field(el, "value")
			switch jsast.Kind(value) {
			case "identifier":
				*out = append(*out, Leaf{Local: f.Text(value), Path: path(key)})
			case "assignment_pattern":
				left := jsast.Field(value, "left")
				if jsast.Kind(left) != "identifier" {
					return false
				}
				*out = append(*out, Leaf{Local: f.Text(left), Path: path(key), Default: jsast.Field(value, "right")})
			case "object_pattern":
				if !collectLeaves(f, value, path(key), out) {
					return false
				}
			default:
				return false
			}
		case "rest_pattern":
			id := jsast.FirstNamedChild(el)
			if jsast.Kind(id) != "identifier" {
				return false
			}
			*out = append(*out, Leaf{Local: f.Text(id), Path: append([]string(nil), prefix...), Rest: true})
		default:
			return false
		}
	}
	return true
}

// propertyKey returns the static name of an object key.
func propertyKey(f *jsast.File, key *sitter.Node) (string, bool) {
	switch jsast.Kind(key) {
	case "property_identifier", "number":
		return f.Text(key), true
	case "string":
		return jsast.StringValue(f.Src, key)
	}
	return "", false
}
