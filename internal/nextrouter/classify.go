package nextrouter

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/codemod/internal/jsast"
)

// UsageKind is the syntactic shape of one use of a router value. The set of
// kinds is closed; handlers switch over it exhaustively.
type UsageKind interface {
	usageKind()
}

// PropertyAccess is `router.Name`. For query, Sub names the property read
// from it (`router.query.Sub`) and SubMember is that member expression.
type PropertyAccess struct {
	Name      string
	Member    *sitter.Node
	Sub       string
	SubMember *sitter.Node
}

// MethodInvocation is `router.Name(args)` for a navigation method.
type MethodInvocation struct {
	Name string
	Call *sitter.Node
	Args []*sitter.Node
}

// ElementAccess is `router.Property[Key]`.
type ElementAccess struct {
	Property  string
	Member    *sitter.Node
	Subscript *sitter.Node
	Key       *sitter.Node
}

// SpreadInObject is `{ ...router.Property }`.
type SpreadInObject struct {
	Property string
	Member   *sitter.Node
}

// CallArgument is `fn(router.Property)`.
type CallArgument struct {
	Property string
	Member   *sitter.Node
}

// DestructuredProperty is one element of `{ Name: Alias = Default } = router`.
// An empty Alias marks an element that cannot be rewritten (rest elements,
// nested array patterns).
type DestructuredProperty struct {
	Name    string
	Alias   string
	Default *sitter.Node
	Element *sitter.Node
	group   *destructure
}

// NestedDestructure is `{ Name: { ...Pattern } } = router`.
type NestedDestructure struct {
	Name    string
	Pattern *sitter.Node
	Element *sitter.Node
	group   *destructure
}

// Alias is `const other = router`; the new binding is classified in turn.
type Alias struct {
	Declarator *sitter.Node
}

// ArrayElement is `[router]`, typically a hook dependency list.
type ArrayElement struct{}

// DirectUsage is any other use; the router object is kept.
type DirectUsage struct{}

func (PropertyAccess) usageKind()       {}
func (MethodInvocation) usageKind()     {}
func (ElementAccess) usageKind()        {}
func (SpreadInObject) usageKind()       {}
func (CallArgument) usageKind()         {}
func (DestructuredProperty) usageKind() {}
func (NestedDestructure) usageKind()    {}
func (Alias) usageKind()                {}
func (ArrayElement) usageKind()         {}
func (DirectUsage) usageKind()          {}

// UsageSite is one classified use of a router value.
type UsageSite struct {
	Ref  *sitter.Node
	Kind UsageKind
}

// destructure collects the outcome of every element of one object pattern
// whose value is a router. The declaration is rewritten once all elements
// have been handled.
type destructure struct {
	stmt    *sitter.Node
	value   *sitter.Node
	keyword string
	kept    []*sitter.Node
	lines   []jsast.RenderFunc
	changed bool
}

var navigationMethods = map[string]bool{"push": true, "replace": true}

// Classify returns the usage sites for ref, an expression that evaluates to
// the legacy router: a useRouter() call or a reference to a variable
// holding one. Object destructuring yields one site per pattern element.
func Classify(f *jsast.File, ref *sitter.Node) []UsageSite {
	site := func(k UsageKind) []UsageSite { return []UsageSite{{Ref: ref, Kind: k}} }

	if ref.Type() == "shorthand_property_identifier" {
		return site(DirectUsage{})
	}
	p := ref.Parent()
	switch jsast.Kind(p) {
	case "member_expression":
		if !jsast.IsField(p, "object", ref) {
			break
		}
		name := f.Text(jsast.Field(p, "property"))
		if call := p.Parent(); navigationMethods[name] && jsast.Kind(call) == "call_expression" && jsast.IsField(call, "function", p) {
			return site(MethodInvocation{Name: name, Call: call, Args: jsast.NamedChildren(jsast.Field(call, "arguments"))})
		}
		return site(classifyProperty(f, name, p))
	case "subscript_expression":
		if !jsast.IsField(p, "object", ref) {
			break
		}
		name, ok := jsast.StringValue(f.Src, jsast.Field(p, "index"))
		if !ok {
			break
		}
		return site(classifyProperty(f, name, p))
	case "variable_declarator":
		if !jsast.IsField(p, "value", ref) {
			break
		}
		switch name := jsast.Field(p, "name"); jsast.Kind(name) {
		case "identifier":
			return site(Alias{Declarator: p})
		case "object_pattern":
			if sites := classifyPattern(f, ref, p, name); sites != nil {
				return sites
			}
		}
	case "array":
		return site(ArrayElement{})
	}
	return site(DirectUsage{})
}

// classifyProperty refines a read of router.name by the context it appears
// in. Only query has sub-shapes of its own.
func classifyProperty(f *jsast.File, name string, member *sitter.Node) UsageKind {
	if name != "query" {
		return PropertyAccess{Name: name, Member: member}
	}
	p := member.Parent()
	switch jsast.Kind(p) {
	case "member_expression":
		if jsast.IsField(p, "object", member) {
			return PropertyAccess{Name: name, Member: member, Sub: f.Text(jsast.Field(p, "property")), SubMember: p}
		}
	case "subscript_expression":
		if jsast.IsField(p, "object", member) {
			return ElementAccess{Property: name, Member: member, Subscript: p, Key: jsast.Field(p, "index")}
		}
	case "spread_element":
		return SpreadInObject{Property: name, Member: member}
	case "arguments":
		return CallArgument{Property: name, Member: member}
	}
	return PropertyAccess{Name: name, Member: member}
}

// classifyPattern splits `{ ... } = ref` into one site per element. It
// returns nil when the declaration cannot be rewritten as a whole.
func classifyPattern(f *jsast.File, ref, declarator, pattern *sitter.Node) []UsageSite {
	stmt := declarator.Parent()
	elements := jsast.NamedChildren(pattern)
	if !rewritableDeclaration(stmt) || len(elements) == 0 {
		return nil
	}
	g := &destructure{stmt: stmt, value: ref, keyword: declarationKeyword(f, stmt)}
	sites := make([]UsageSite, 0, len(elements))
	for _, el := range elements {
		k := DestructuredProperty{Element: el, group: g}
		switch el.Type() {
		case "shorthand_property_identifier_pattern":
			k.Name, k.Alias = f.Text(el), f.Text(el)
		case "object_assignment_pattern":
			if left := jsast.Field(el, "left"); jsast.Kind(left) == "shorthand_property_identifier_pattern" {
				k.Name, k.Alias, k.Default = f.Text(left), f.Text(left), jsast.Field(el, "right")
			}
		case "pair_pattern":
			key, ok := propertyKey(f, jsast.Field(el, "key"))
			if !ok {
				break
			}
			k.Name = key
			switch value := jsast.Field(el, "value"); jsast.Kind(value) {
			case "identifier":
				k.Alias = f.Text(value)
			case "assignment_pattern":
				if left := jsast.Field(value, "left"); jsast.Kind(left) == "identifier" {
					k.Alias, k.Default = f.Text(left), jsast.Field(value, "right")
				}
			case "object_pattern":
				sites = append(sites, UsageSite{Ref: el, Kind: NestedDestructure{Name: key, Pattern: value, Element: el, group: g}})
				continue
			}
		}
		sites = append(sites, UsageSite{Ref: el, Kind: k})
	}
	return sites
}

// rewritableDeclaration reports whether stmt is a single-declarator
// variable declaration sitting directly in a statement list, so it can be
// replaced by several statements.
func rewritableDeclaration(stmt *sitter.Node) bool {
	switch jsast.Kind(stmt) {
	case "lexical_declaration", "variable_declaration":
	default:
		return false
	}
	if !jsast.IsStatementContainer(stmt.Parent()) {
		return false
	}
	declarators := 0
	for _, c := range jsast.NamedChildren(stmt) {
		if c.Type() == "variable_declarator" {
			declarators++
		}
	}
	return declarators == 1
}

// declarationKeyword returns const, let or var.
func declarationKeyword(f *jsast.File, stmt *sitter.Node) string {
	if stmt.ChildCount() > 0 {
		if kw := f.Text(stmt.Child(0)); kw == "let" || kw == "var" {
			return kw
		}
	}
	return "const"
}

// isWriteTarget reports whether n is assigned, updated or deleted.
func isWriteTarget(f *jsast.File, n *sitter.Node) bool {
	p := jsast.UnwrapParens(n).Parent()
	switch jsast.Kind(p) {
	case "assignment_expression", "augmented_assignment_expression":
		return jsast.IsField(p, "left", jsast.UnwrapParens(n))
	case "update_expression":
		return true
	case "unary_expression":
		return f.Text(jsast.Field(p, "operator")) == "delete"
	}
	return false
}
