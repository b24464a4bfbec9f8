// Package nextrouter migrates files from the legacy next/router hook to the
// next/navigation hooks.
//
// The rewrite is a whole-file analysis: every use of the router returned by
// useRouter is classified by its syntactic shape and rewritten in place,
// while a [UsageManager] accumulates which modern hooks the file ends up
// needing. Imports are decided only after every use has been seen, because a
// later use can require a hook an earlier one did not.
package nextrouter

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/codemod/internal/jsast"
)

// Module specifiers involved in the migration.
const (
	LegacyModule     = "next/router"
	ModernModule     = "next/navigation"
	RouterTypeModule = "next/dist/shared/lib/app-router-context"
)

// Names imported from the legacy and modern modules.
const (
	HookName        = "useRouter"
	LegacyTypeName  = "NextRouter"
	ModernTypeName  = "AppRouterInstance"
	SearchParamHook = "useSearchParams"
	PathnameHook    = "usePathname"
)

// ImportBinding is one named import of interest from the legacy module.
type ImportBinding struct {
	ImportedName    string
	LocalAlias      string
	ModuleSpecifier string

	// Local is the identifier the import binds in this file.
	Local *sitter.Node
	// Specifier is the import_specifier node.
	Specifier *sitter.Node
	// Statement is the import_statement holding the specifier.
	Statement *sitter.Node
}

// ImportTable summarizes the import declarations of one file.
type ImportTable struct {
	Bindings []ImportBinding

	// Existing holds names already imported from next/navigation.
	Existing map[string]bool
	// HasModernType is set when AppRouterInstance is already imported.
	HasModernType bool
	// First is the first import statement of the file, if any.
	First *sitter.Node

	quote string
	semi  string
}

// FindLegacyBindings returns the useRouter and NextRouter imports from
// next/router, honouring `as` renames. An empty result means the file does
// not use the legacy router.
func FindLegacyBindings(f *jsast.File) []ImportBinding {
	return ReadImports(f).Bindings
}

// ReadImports scans the top-level import statements of f.
func ReadImports(f *jsast.File) *ImportTable {
	t := &ImportTable{Existing: map[string]bool{}, quote: `"`, semi: ";"}
	for _, stmt := range jsast.NamedChildren(f.Root) {
		if stmt.Type() != "import_statement" {
			continue
		}
		if t.First == nil {
			t.First = stmt
		}
		source := jsast.Field(stmt, "source")
		module, ok := jsast.StringValue(f.Src, source)
		if !ok {
			continue
		}
		for _, spec := range importSpecifiers(stmt) {
			name := jsast.Field(spec, "name")
			if name == nil {
				continue
			}
			local := name
			if alias := jsast.Field(spec, "alias"); alias != nil {
				local = alias
			}
			imported := f.Text(name)
			if imported == ModernTypeName {
				t.HasModernType = true
			}
			switch module {
			case ModernModule:
				t.Existing[imported] = true
			case LegacyModule:
				if imported != HookName && imported != LegacyTypeName {
					continue
				}
				if len(t.Bindings) == 0 {
					t.quote = jsast.QuoteOf(f.Src, source)
					if !strings.HasSuffix(strings.TrimSpace(f.Text(stmt)), ";") {
						t.semi = ""
					}
				}
				t.Bindings = append(t.Bindings, ImportBinding{
					ImportedName:    imported,
					LocalAlias:      f.Text(local),
					ModuleSpecifier: module,
					Local:           local,
					Specifier:       spec,
					Statement:       stmt,
				})
			}
		}
	}
	return t
}

// importSpecifiers returns the import_specifier nodes of an import statement.
func importSpecifiers(stmt *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for _, c := range jsast.NamedChildren(stmt) {
		if c.Type() != "import_clause" {
			continue
		}
		for _, part := range jsast.NamedChildren(c) {
			if part.Type() != "named_imports" {
				continue
			}
			for _, spec := range jsast.NamedChildren(part) {
				if spec.Type() == "import_specifier" {
					out = append(out, spec)
				}
			}
		}
	}
	return out
}
