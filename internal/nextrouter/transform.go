package nextrouter

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/codemod/internal/jsast"
)

// HandleSourceFile rewrites f from next/router to next/navigation. It
// returns changed == false, the no-op result, when the file does not import
// useRouter or NextRouter from next/router. Running it on its own output is
// therefore always a no-op.
func HandleSourceFile(f *jsast.File) (out string, changed bool, err error) {
	table := ReadImports(f)
	if len(table.Bindings) == 0 {
		return "", false, nil
	}

	rw := newRewriter(f, table)
	for _, b := range table.Bindings {
		if b.ImportedName == HookName {
			rw.processHook(b)
		}
	}
	rw.finishAnchors()
	for _, b := range table.Bindings {
		if b.ImportedName == LegacyTypeName {
			rw.processRouterType(b)
		}
	}
	rw.synthesizeImports(PlanImports(rw.usage, table))

	text, err := rw.buf.String()
	if err != nil {
		return "", false, fmt.Errorf("nextrouter: %s: %w", f.Path, err)
	}
	if text == string(f.Src) {
		return "", false, nil
	}
	return text, true, nil
}

// hook is a modern hook whose result gets a block-scoped binding.
type hook int

const (
	hookSearchParams hook = iota
	hookPathname
)

func (h hook) binding() string {
	if h == hookPathname {
		return "pathname"
	}
	return "searchParams"
}

func (h hook) call() string {
	if h == hookPathname {
		return PathnameHook + "()"
	}
	return SearchParamHook + "()"
}

// blockScope tracks which hook bindings a statement list already provides
// and which binding names it declares for something else.
type blockScope struct {
	has   map[hook]bool
	taken map[string]bool
}

// anchor is the statement a router value comes from. Hook bindings needed
// by its uses are declared right before it, or in its place when the router
// binding itself goes away.
type anchor struct {
	stmt   *sitter.Node
	block  *blockScope
	indent string
	remove bool
	inits  []hook
}

type span struct{ start, end int }

func spanOf(n *sitter.Node) span { return span{jsast.Start(n), jsast.End(n)} }

type rewriter struct {
	f     *jsast.File
	buf   *jsast.Buffer
	usage *UsageManager
	table *ImportTable

	blocks  map[span]*blockScope
	anchors map[span]*anchor
	order   []*anchor
	names   map[span]int
	wraps   map[span]*wrap
	// dropped holds ranges whose text is replaced wholesale.
	dropped []span
}

func newRewriter(f *jsast.File, table *ImportTable) *rewriter {
	return &rewriter{
		f:       f,
		buf:     jsast.NewBuffer(f.Src),
		usage:   NewUsageManager(table.Existing),
		table:   table,
		blocks:  map[span]*blockScope{},
		anchors: map[span]*anchor{},
		names:   map[span]int{},
		wraps:   map[span]*wrap{},
	}
}

func (rw *rewriter) semi() string  { return rw.table.semi }
func (rw *rewriter) quote() string { return rw.table.quote }

func (rw *rewriter) str(s string) string { return jsast.Quote(s, rw.quote()) }

// processHook handles every reference to the local useRouter binding.
func (rw *rewriter) processHook(b ImportBinding) {
	for _, ref := range jsast.References(rw.f, b.LocalAlias, b.Local, rw.f.Root) {
		call := ref.Parent()
		if jsast.Kind(call) == "call_expression" && jsast.IsField(call, "function", ref) {
			rw.processHookCall(call)
			continue
		}
		rw.usage.ReportRouterUsed()
	}
}

func (rw *rewriter) processHookCall(call *sitter.Node) {
	rw.usage.IncreaseUseRouterCount()

	decl := call.Parent()
	if jsast.Kind(decl) == "variable_declarator" && jsast.IsField(decl, "value", call) &&
		jsast.Kind(jsast.Field(decl, "name")) == "identifier" {
		stmt := decl.Parent()
		if rewritableDeclaration(stmt) {
			a := rw.anchorFor(stmt, stmt.Parent())
			if rw.processBinding(decl, a) {
				rw.usage.ReportRouterUsed()
				return
			}
			a.remove = true
			rw.dropped = append(rw.dropped, spanOf(stmt))
			return
		}
	}

	var a *anchor
	if stmt, block := jsast.EnclosingStatement(call); stmt != nil {
		a = rw.anchorFor(stmt, block)
	}
	if rw.dispatch(Classify(rw.f, call), a) {
		rw.usage.ReportRouterUsed()
	}
}

// processBinding classifies every reference to the variable declared by
// declarator. It reports whether the router value is still needed.
func (rw *rewriter) processBinding(declarator *sitter.Node, a *anchor) bool {
	name := jsast.Field(declarator, "name")
	scope := jsast.DeclarationScope(declarator.Parent())
	retained := false
	for _, ref := range jsast.References(rw.f, rw.f.Text(name), name, scope) {
		if rw.dispatch(Classify(rw.f, ref), a) {
			retained = true
		}
	}
	return retained
}

// dispatch runs the handler for each site and finishes any destructuring
// they belong to. It reports whether the router value is still needed.
func (rw *rewriter) dispatch(sites []UsageSite, a *anchor) bool {
	retained := false
	var groups []*destructure
	for _, s := range sites {
		if rw.handle(s, a) {
			retained = true
		}
		if g := groupOf(s.Kind); g != nil && (len(groups) == 0 || groups[len(groups)-1] != g) {
			groups = append(groups, g)
		}
	}
	for _, g := range groups {
		if rw.finishDestructure(g) {
			retained = true
		}
	}
	return retained
}

func groupOf(k UsageKind) *destructure {
	switch k := k.(type) {
	case DestructuredProperty:
		return k.group
	case NestedDestructure:
		return k.group
	}
	return nil
}

// anchorFor returns the anchor for a statement in container, creating it on
// first use.
func (rw *rewriter) anchorFor(stmt, container *sitter.Node) *anchor {
	key := spanOf(stmt)
	if a, ok := rw.anchors[key]; ok {
		return a
	}
	a := &anchor{
		stmt:   stmt,
		block:  rw.blockFor(container),
		indent: jsast.LineIndent(rw.f.Src, jsast.Start(stmt)),
	}
	rw.anchors[key] = a
	rw.order = append(rw.order, a)
	return a
}

// blockFor returns the scope state of a statement list, noting hook
// bindings it already declares (`const pathname = usePathname()`) and
// declarations that claim a hook binding name for another value.
func (rw *rewriter) blockFor(container *sitter.Node) *blockScope {
	key := spanOf(container)
	if b, ok := rw.blocks[key]; ok {
		return b
	}
	b := &blockScope{has: map[hook]bool{}, taken: map[string]bool{}}
	for _, stmt := range jsast.NamedChildren(container) {
		if stmt.Type() != "lexical_declaration" && stmt.Type() != "variable_declaration" {
			continue
		}
		for _, d := range jsast.NamedChildren(stmt) {
			if d.Type() != "variable_declarator" {
				continue
			}
			name, value := jsast.Field(d, "name"), jsast.Field(d, "value")
			for _, h := range []hook{hookSearchParams, hookPathname} {
				if !jsast.PatternBinds(rw.f, name, h.binding()) {
					continue
				}
				if jsast.Kind(name) == "identifier" && jsast.Kind(value) == "call_expression" &&
					rw.f.Text(jsast.Field(value, "function"))+"()" == h.call() {
					b.has[h] = true
				} else {
					b.taken[h.binding()] = true
				}
			}
		}
	}
	rw.blocks[key] = b
	return b
}

// use returns the expression for a modern hook value at a use site of the
// router anchored at a, requesting the block binding when there is one. A
// block that already uses the binding name for something else gets the
// hook call inline.
func (rw *rewriter) use(a *anchor, h hook) string {
	switch h {
	case hookSearchParams:
		rw.usage.ReportSearchParamsUsed()
	case hookPathname:
		rw.usage.ReportPathnameUsed()
	}
	if a == nil {
		return h.call()
	}
	if a.block.has[h] {
		return h.binding()
	}
	if a.block.taken[h.binding()] {
		return h.call()
	}
	a.block.has[h] = true
	a.inits = append(a.inits, h)
	return h.binding()
}

func (rw *rewriter) finishAnchors() {
	for _, a := range rw.order {
		lines := make([]string, 0, len(a.inits))
		for _, h := range a.inits {
			lines = append(lines, "const "+h.binding()+" = "+h.call()+rw.semi())
		}
		start, end := jsast.Start(a.stmt), jsast.End(a.stmt)
		switch {
		case a.remove && len(lines) == 0:
			rw.buf.Delete(jsast.StatementSpan(rw.f.Src, start, end))
		case a.remove:
			rw.buf.Replace(start, end, strings.Join(lines, "\n"+a.indent))
		case len(lines) > 0:
			rw.buf.Insert(start, strings.Join(lines, "\n"+a.indent)+"\n"+a.indent)
		}
	}
}

// processRouterType renames references to the NextRouter type.
func (rw *rewriter) processRouterType(b ImportBinding) {
	for _, n := range jsast.FindAll(rw.f.Root, "type_identifier") {
		if rw.f.Text(n) != b.LocalAlias || rw.isDropped(n) {
			continue
		}
		rw.buf.ReplaceNode(n, ModernTypeName)
		rw.usage.ReportRouterTypeUsed()
	}
}

func (rw *rewriter) isDropped(n *sitter.Node) bool {
	s := spanOf(n)
	for _, d := range rw.dropped {
		if s.start >= d.start && s.end <= d.end {
			return true
		}
	}
	return false
}
