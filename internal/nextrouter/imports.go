package nextrouter

import (
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/codemod/internal/jsast"
)

// ImportPlan is the import decision for one file.
type ImportPlan struct {
	// Named lists the next/navigation specifiers to add, sorted by imported
	// name, e.g. "usePathname", "useRouter as useNextRouter".
	Named []string
	// RouterType requests `import type { AppRouterInstance }`.
	RouterType bool
	// Legacy holds the next/router import statements to shrink or remove.
	Legacy []*sitter.Node
}

// PlanImports decides the imports once every usage site has been handled.
func PlanImports(m *UsageManager, t *ImportTable) ImportPlan {
	var plan ImportPlan
	type named struct{ imported, text string }
	var add []named

	seen := map[span]bool{}
	for _, b := range t.Bindings {
		if key := spanOf(b.Statement); !seen[key] {
			seen[key] = true
			plan.Legacy = append(plan.Legacy, b.Statement)
		}
		if b.ImportedName != HookName || !m.ShouldImportUseRouter() || t.Existing[HookName] {
			continue
		}
		text := HookName
		if b.LocalAlias != HookName {
			text += " as " + b.LocalAlias
		}
		add = append(add, named{HookName, text})
	}
	if m.ShouldImportUseSearchParams() {
		add = append(add, named{SearchParamHook, SearchParamHook})
	}
	if m.ShouldImportUsePathname() {
		add = append(add, named{PathnameHook, PathnameHook})
	}
	sort.SliceStable(add, func(i, j int) bool { return add[i].imported < add[j].imported })
	for _, n := range add {
		plan.Named = append(plan.Named, n.text)
	}
	plan.RouterType = m.ShouldImportRouterType() && !t.HasModernType
	return plan
}

// synthesizeImports adds the planned imports above the first import and
// drops useRouter / NextRouter from the legacy imports, removing a legacy
// import that has nothing left.
func (rw *rewriter) synthesizeImports(plan ImportPlan) {
	var lines []string
	if len(plan.Named) > 0 {
		lines = append(lines, "import { "+strings.Join(plan.Named, ", ")+" } from "+rw.str(ModernModule)+rw.semi())
	}
	if plan.RouterType {
		lines = append(lines, "import type { "+ModernTypeName+" } from "+rw.str(RouterTypeModule)+rw.semi())
	}
	insertAt := -1
	if len(lines) > 0 && rw.table.First != nil {
		insertAt, _ = jsast.StatementSpan(rw.f.Src, jsast.Start(rw.table.First), jsast.End(rw.table.First))
		rw.buf.Insert(insertAt, strings.Join(lines, "\n")+"\n")
	}

	for _, stmt := range plan.Legacy {
		rw.shrinkLegacyImport(stmt, insertAt)
	}
}

// shrinkLegacyImport removes the next/router specifiers from stmt. A removed
// import that opens the file or follows a blank line takes the blank lines
// after it along, unless the new imports are inserted in its place.
func (rw *rewriter) shrinkLegacyImport(stmt *sitter.Node, insertAt int) {
	var clause *sitter.Node
	for _, c := range jsast.NamedChildren(stmt) {
		if c.Type() == "import_clause" {
			clause = c
		}
	}
	if clause == nil {
		return
	}

	var parts []string
	for _, part := range jsast.NamedChildren(clause) {
		if part.Type() != "named_imports" {
			parts = append(parts, rw.f.Text(part))
			continue
		}
		var kept []string
		for _, spec := range jsast.NamedChildren(part) {
			name := rw.f.Text(jsast.Field(spec, "name"))
			if spec.Type() == "import_specifier" && (name == HookName || name == LegacyTypeName) {
				continue
			}
			kept = append(kept, rw.f.Text(spec))
		}
		if len(kept) > 0 {
			parts = append(parts, "{ "+strings.Join(kept, ", ")+" }")
		}
	}
	if len(parts) == 0 {
		start, end := jsast.StatementSpan(rw.f.Src, jsast.Start(stmt), jsast.End(stmt))
		if start != insertAt && afterBlankLine(rw.f.Src, start) {
			end = skipBlankLines(rw.f.Src, end)
		}
		rw.buf.Delete(start, end)
		return
	}
	rw.buf.ReplaceNode(clause, strings.Join(parts, ", "))
}

// skipBlankLines returns the offset of the first line at or after i that
// holds more than whitespace.
func skipBlankLines(src []byte, i int) int {
	for j := i; j < len(src); j++ {
		switch src[j] {
		case ' ', '\t', '\r':
		case '\n':
			i = j + 1
		default:
			return i
		}
	}
	return len(src)
}

// afterBlankLine reports whether the line starting at i opens the file or
// follows a line holding only whitespace.
func afterBlankLine(src []byte, i int) bool {
	if i == 0 {
		return true
	}
	if src[i-1] != '\n' {
		return false
	}
	j := i - 1
	for j > 0 && (src[j-1] == ' ' || src[j-1] == '\t' || src[j-1] == '\r') {
		j--
	}
	return j == 0 || src[j-1] == '\n'
}
