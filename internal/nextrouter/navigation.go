package nextrouter

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/codemod/internal/jsast"
)

const searchParamsVar = "urlSearchParams"

// navigation is the object argument of router.push / router.replace.
type navigation struct {
	pathname *sitter.Node
	query    *sitter.Node
	// entries is set when query is an object literal.
	entries []queryEntry
}

type queryEntry struct {
	key   string
	value *sitter.Node
}

// handleNavigation rewrites the argument of router.push / router.replace.
// String arguments are kept; an object with pathname and query becomes a
// URL built from a URLSearchParams declared before the call. The router is
// always kept.
func (rw *rewriter) handleNavigation(k MethodInvocation) {
	call := k.Call
	if aw := call.Parent(); jsast.Kind(aw) == "await_expression" {
		rw.buf.Delete(jsast.Start(aw), jsast.Start(call))
	}
	if len(k.Args) == 0 || k.Args[0].Type() != "object" {
		return
	}
	arg := k.Args[0]
	nav, ok := parseNavigation(rw.f, arg)
	if !ok {
		return
	}
	if nav.query == nil || (nav.entries != nil && len(nav.entries) == 0) {
		rw.buf.ReplaceNodeFunc(arg, func(r jsast.Renderer) string {
			return r.Node(nav.pathname)
		})
		return
	}

	name, ok := rw.insertSetup(call, func(r jsast.Renderer, name string) []string {
		if nav.entries == nil {
			return []string{"const " + name + " = new URLSearchParams(" + r.Node(nav.query) + ")" + rw.semi()}
		}
		lines := []string{"const " + name + " = new URLSearchParams()" + rw.semi()}
		for _, e := range nav.entries {
			lines = append(lines, name+".set("+rw.str(e.key)+", "+r.Node(e.value)+")"+rw.semi())
		}
		return lines
	})
	if !ok {
		return
	}
	rw.buf.ReplaceNodeFunc(arg, func(r jsast.Renderer) string {
		return "`" + templatePath(rw.f, r, nav.pathname) + "?${" + name + ".toString()}`"
	})
}

// parseNavigation accepts an object literal with a pathname and an optional
// query, and nothing else.
func parseNavigation(f *jsast.File, obj *sitter.Node) (navigation, bool) {
	var nav navigation
	for _, c := range jsast.NamedChildren(obj) {
		var key string
		var value *sitter.Node
		switch c.Type() {
		case "pair":
			k, ok := propertyKey(f, jsast.Field(c, "key"))
			if !ok {
				return nav, false
			}
			key, value = k, jsast.Field(c, "value")
		case "shorthand_property_identifier":
			key, value = f.Text(c), c
		default:
			return nav, false
		}
		switch key {
		case "pathname":
			nav.pathname = value
		case "query":
			nav.query = value
		default:
			return nav, false
		}
	}
	if nav.pathname == nil {
		return nav, false
	}
	if nav.query == nil || nav.query.Type() != "object" {
		return nav, true
	}
	nav.entries = []queryEntry{}
	for _, c := range jsast.NamedChildren(nav.query) {
		switch c.Type() {
		case "pair":
			k, ok := propertyKey(f, jsast.Field(c, "key"))
			if !ok {
				return nav, false
			}
			nav.entries = append(nav.entries, queryEntry{key: k, value: jsast.Field(c, "value")})
		case "shorthand_property_identifier":
			nav.entries = append(nav.entries, queryEntry{key: f.Text(c), value: c})
		default:
			return nav, false
		}
	}
	return nav, true
}

// templatePath renders the pathname as the head of a template literal.
func templatePath(f *jsast.File, r jsast.Renderer, pathname *sitter.Node) string {
	switch pathname.Type() {
	case "string":
		s, _ := jsast.StringValue(f.Src, pathname)
		s = strings.ReplaceAll(s, "`", "\\`")
		return strings.ReplaceAll(s, "${", "\\${")
	case "template_string":
		t := r.Node(pathname)
		return t[1 : len(t)-1]
	}
	return "${" + r.Node(pathname) + "}"
}

// insertSetup places setup statements right before the statement holding
// call. A statement that is the body of if/else/loop is wrapped in a block,
// and an arrow function expression body becomes a block that returns it.
// The returned name is unique within the statement list it lands in.
func (rw *rewriter) insertSetup(call *sitter.Node, setup func(r jsast.Renderer, name string) []string) (string, bool) {
	for cur := call; ; cur = cur.Parent() {
		p := cur.Parent()
		if p == nil {
			return "", false
		}
		switch {
		case jsast.IsStatementContainer(p):
			name := rw.uniqueName(p)
			indent := jsast.LineIndent(rw.f.Src, jsast.Start(cur))
			rw.buf.InsertFunc(jsast.Start(cur), func(r jsast.Renderer) string {
				return strings.Join(setup(r, name), "\n"+indent) + "\n" + indent
			})
			return name, true
		case p.Type() == "arrow_function" && jsast.IsField(p, "body", cur):
			return rw.wrapBlock(cur, true).add(rw.uniqueName(cur), setup), true
		case jsast.IsFunction(p):
			return "", false
		case isStatement(cur):
			return rw.wrapBlock(cur, false).add(rw.uniqueName(cur), setup), true
		}
	}
}

// wrap collects the setup statements of every navigation call inside one
// node that is turned into a block.
type wrap struct {
	setups []func(r jsast.Renderer) []string
}

func (w *wrap) add(name string, setup func(r jsast.Renderer, name string) []string) string {
	w.setups = append(w.setups, func(r jsast.Renderer) []string { return setup(r, name) })
	return name
}

// wrapBlock returns the block conversion of n, queueing the single edit
// that renders it on first use. An expression n is returned from the block.
func (rw *rewriter) wrapBlock(n *sitter.Node, expr bool) *wrap {
	key := spanOf(n)
	if w, ok := rw.wraps[key]; ok {
		return w
	}
	w := &wrap{}
	rw.wraps[key] = w
	indent := jsast.LineIndent(rw.f.Src, jsast.Start(n))
	inner := indent + "  "
	rw.buf.ReplaceNodeFunc(n, func(r jsast.Renderer) string {
		var lines []string
		for _, setup := range w.setups {
			lines = append(lines, setup(r)...)
		}
		if expr {
			lines = append(lines, "return "+r.Node(n)+rw.semi())
		} else {
			lines = append(lines, r.Node(n))
		}
		return "{\n" + inner + strings.Join(lines, "\n"+inner) + "\n" + indent + "}"
	})
	return w
}

func (rw *rewriter) uniqueName(container *sitter.Node) string {
	key := spanOf(container)
	rw.names[key]++
	if n := rw.names[key]; n > 1 {
		return searchParamsVar + strconv.Itoa(n)
	}
	return searchParamsVar
}

func isStatement(n *sitter.Node) bool {
	return strings.HasSuffix(n.Type(), "_statement")
}
