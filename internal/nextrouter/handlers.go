package nextrouter

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/codemod/internal/jsast"
)

// handle rewrites one usage site. It reports whether the router value is
// still referenced afterwards.
func (rw *rewriter) handle(s UsageSite, a *anchor) bool {
	switch k := s.Kind.(type) {
	case PropertyAccess:
		return rw.handleProperty(k, a)
	case ElementAccess:
		if isWriteTarget(rw.f, k.Subscript) {
			return true
		}
		sp := rw.use(a, hookSearchParams)
		key := k.Key
		rw.buf.ReplaceNodeFunc(k.Subscript, func(r jsast.Renderer) string {
			return sp + "?.get(" + r.Node(key) + ")"
		})
		return false
	case SpreadInObject:
		rw.buf.ReplaceNode(k.Member, allParams(rw.use(a, hookSearchParams)))
		return false
	case CallArgument:
		rw.buf.ReplaceNode(k.Member, allParams(rw.use(a, hookSearchParams)))
		return false
	case MethodInvocation:
		rw.handleNavigation(k)
		return true
	case DestructuredProperty:
		rw.handleDestructuredProperty(k, a)
		return false
	case NestedDestructure:
		rw.handleNestedDestructure(k, a)
		return false
	case Alias:
		return rw.handleAlias(k, a)
	case ArrayElement, DirectUsage:
		return true
	}
	return true
}

// allParams is the plain-object form of the search params.
func allParams(sp string) string {
	return "Object.fromEntries(" + sp + "?.entries() ?? [])"
}

func (rw *rewriter) getParam(sp, key string) string {
	return sp + "?.get(" + rw.str(key) + ")"
}

// queryAccessor reads flattened query leaves through the search params.
func (rw *rewriter) queryAccessor(a *anchor) Accessor {
	return func(path []string, rest bool) string {
		sp := rw.use(a, hookSearchParams)
		if len(path) == 0 {
			return allParams(sp)
		}
		expr := rw.getParam(sp, path[0])
		for _, key := range path[1:] {
			if jsast.IsIdentifierName(key) {
				expr += "?." + key
			} else {
				expr += "?.[" + rw.str(key) + "]"
			}
		}
		return expr
	}
}

func (rw *rewriter) handleProperty(k PropertyAccess, a *anchor) bool {
	if isWriteTarget(rw.f, k.Member) {
		return true
	}
	switch k.Name {
	case "query":
		if k.SubMember != nil {
			if isWriteTarget(rw.f, k.SubMember) {
				return true
			}
			rw.buf.ReplaceNode(k.SubMember, rw.getParam(rw.use(a, hookSearchParams), k.Sub))
			return false
		}
		return rw.handleQueryValue(k.Member, a)
	case "pathname", "asPath", "href":
		if rw.bindsPathname(k.Member) {
			return false
		}
		rw.buf.ReplaceNode(k.Member, rw.use(a, hookPathname))
		return false
	case "isReady":
		rw.replaceIsReady(k.Member, a)
		return false
	case "isFallback":
		rw.buf.ReplaceNode(k.Member, "false")
		return false
	}
	return true
}

// bindsPathname rewrites `const pathname = router.pathname` to declare the
// usePathname binding of its block in place.
func (rw *rewriter) bindsPathname(member *sitter.Node) bool {
	decl := member.Parent()
	if jsast.Kind(decl) != "variable_declarator" || !jsast.IsField(decl, "value", member) ||
		rw.f.Text(jsast.Field(decl, "name")) != hookPathname.binding() {
		return false
	}
	rw.usage.ReportPathnameUsed()
	rw.buf.ReplaceNode(member, hookPathname.call())
	if stmt := decl.Parent(); declarationKeyword(rw.f, stmt) == "const" && jsast.IsStatementContainer(stmt.Parent()) {
		rw.blockFor(stmt.Parent()).has[hookPathname] = true
	}
	return true
}

// handleQueryValue rewrites router.query used as a whole: assigned to a
// variable or destructured. Other contexts keep the router.
func (rw *rewriter) handleQueryValue(member *sitter.Node, a *anchor) bool {
	decl := member.Parent()
	if jsast.Kind(decl) != "variable_declarator" || !jsast.IsField(decl, "value", member) {
		return true
	}
	switch name := jsast.Field(decl, "name"); jsast.Kind(name) {
	case "identifier":
		rw.buf.ReplaceNode(member, allParams(rw.use(a, hookSearchParams)))
		return false
	case "object_pattern":
		stmt := decl.Parent()
		if !rewritableDeclaration(stmt) {
			return true
		}
		bindings, ok := FlattenPattern(rw.f, name, rw.queryAccessor(a))
		if !ok || len(bindings) == 0 {
			return true
		}
		kw := declarationKeyword(rw.f, stmt)
		indent := jsast.LineIndent(rw.f.Src, jsast.Start(stmt))
		rw.dropped = append(rw.dropped, spanOf(stmt))
		rw.buf.ReplaceNodeFunc(stmt, func(r jsast.Renderer) string {
			lines := make([]string, 0, len(bindings))
			for _, b := range bindings {
				lines = append(lines, rw.declare(r, kw, b.Local, b.Expr, b.Default))
			}
			return strings.Join(lines, "\n"+indent)
		})
		return false
	}
	return true
}

// declare renders `kw local = expr ?? default;`.
func (rw *rewriter) declare(r jsast.Renderer, kw, local, expr string, def *sitter.Node) string {
	if def != nil {
		d := r.Node(def)
		if !isPrimary(def) {
			d = "(" + d + ")"
		}
		expr += " ?? " + d
	}
	return kw + " " + local + " = " + expr + rw.semi()
}

// isPrimary reports whether n can be an operand of ?? without parentheses.
func isPrimary(n *sitter.Node) bool {
	switch n.Type() {
	case "identifier", "string", "number", "template_string", "true", "false", "null", "undefined",
		"array", "object", "member_expression", "subscript_expression", "call_expression", "parenthesized_expression":
		return true
	}
	return false
}

// replaceIsReady rewrites router.isReady, folding a surrounding `!` into
// the comparison so the result is never doubly negated.
func (rw *rewriter) replaceIsReady(member *sitter.Node, a *anchor) {
	sp := rw.use(a, hookSearchParams)
	target, op := member, "!=="
	if u := jsast.UnwrapParens(member).Parent(); jsast.Kind(u) == "unary_expression" && rw.f.Text(jsast.Field(u, "operator")) == "!" {
		target, op = u, "==="
	}
	expr := sp + " " + op + " null"
	if rw.needsParens(target) {
		expr = "(" + expr + ")"
	}
	rw.buf.ReplaceNode(target, expr)
}

// needsParens reports whether an equality expression put in place of n
// must be parenthesized.
func (rw *rewriter) needsParens(n *sitter.Node) bool {
	p := n.Parent()
	switch jsast.Kind(p) {
	case "parenthesized_expression", "variable_declarator", "arguments", "return_statement",
		"expression_statement", "array", "pair", "jsx_expression", "ternary_expression",
		"arrow_function", "assignment_expression":
		return false
	case "binary_expression":
		switch rw.f.Text(jsast.Field(p, "operator")) {
		case "&&", "||", "??":
			return false
		}
	}
	return true
}

func (rw *rewriter) handleAlias(k Alias, a *anchor) bool {
	if rw.processBinding(k.Declarator, a) {
		return true
	}
	stmt := k.Declarator.Parent()
	if !rewritableDeclaration(stmt) {
		return true
	}
	rw.dropped = append(rw.dropped, spanOf(stmt))
	rw.buf.Delete(jsast.StatementSpan(rw.f.Src, jsast.Start(stmt), jsast.End(stmt)))
	return false
}

func (rw *rewriter) handleDestructuredProperty(k DestructuredProperty, a *anchor) {
	g := k.group
	if k.Alias == "" {
		g.kept = append(g.kept, k.Element)
		return
	}
	kw := g.keyword
	switch k.Name {
	case "query":
		g.add(kw + " " + k.Alias + " = " + allParams(rw.use(a, hookSearchParams)) + rw.semi())
	case "pathname", "asPath", "href":
		rw.usage.ReportPathnameUsed()
		block := rw.blockFor(g.stmt.Parent())
		if k.Alias == hookPathname.binding() {
			if block.has[hookPathname] {
				g.changed = true
				return
			}
			block.has[hookPathname] = true
		}
		g.add(kw + " " + k.Alias + " = " + hookPathname.call() + rw.semi())
	case "isReady":
		rw.usage.ReportSearchParamsUsed()
		g.add(kw + " " + k.Alias + " = " + hookSearchParams.call() + " !== null" + rw.semi())
	case "isFallback":
		g.add(kw + " " + k.Alias + " = false" + rw.semi())
	default:
		g.kept = append(g.kept, k.Element)
	}
}

func (rw *rewriter) handleNestedDestructure(k NestedDestructure, a *anchor) {
	g := k.group
	if k.Name != "query" {
		g.kept = append(g.kept, k.Element)
		return
	}
	bindings, ok := FlattenPattern(rw.f, k.Pattern, rw.queryAccessor(a))
	if !ok {
		g.kept = append(g.kept, k.Element)
		return
	}
	g.changed = true
	for _, b := range bindings {
		g.lines = append(g.lines, func(r jsast.Renderer) string {
			return rw.declare(r, g.keyword, b.Local, b.Expr, b.Default)
		})
	}
}

func (g *destructure) add(line string) {
	g.changed = true
	g.lines = append(g.lines, func(jsast.Renderer) string { return line })
}

// finishDestructure replaces a destructuring of the router with the new
// declarations, keeping a residual pattern for elements that still need the
// router. A pattern with nothing rewritten is left untouched.
func (rw *rewriter) finishDestructure(g *destructure) bool {
	if !g.changed {
		return true
	}
	rw.dropped = append(rw.dropped, spanOf(g.stmt))
	if len(g.kept) == 0 && len(g.lines) == 0 {
		rw.buf.Delete(jsast.StatementSpan(rw.f.Src, jsast.Start(g.stmt), jsast.End(g.stmt)))
		return false
	}
	indent := jsast.LineIndent(rw.f.Src, jsast.Start(g.stmt))
	rw.buf.ReplaceNodeFunc(g.stmt, func(r jsast.Renderer) string {
		var lines []string
		if len(g.kept) > 0 {
			kept := make([]string, 0, len(g.kept))
			for _, el := range g.kept {
				kept = append(kept, r.Node(el))
			}
			lines = append(lines, g.keyword+" { "+strings.Join(kept, ", ")+" } = "+r.Node(g.value)+rw.semi())
		}
		for _, fn := range g.lines {
			lines = append(lines, fn(r))
		}
		return strings.Join(lines, "\n"+indent)
	})
	return len(g.kept) > 0
}
