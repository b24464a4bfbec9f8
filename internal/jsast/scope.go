package jsast

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// scopeKinds are the nodes that own block-level declarations.
var scopeKinds = []string{"statement_block", "program", "switch_case", "switch_default", "class_body"}

// functionKinds are nodes that introduce parameters.
var functionKinds = map[string]bool{
	"function_declaration":           true,
	"function_expression":            true,
	"function":                       true,
	"generator_function_declaration": true,
	"generator_function":             true,
	"arrow_function":                 true,
	"method_definition":              true,
}

// IsFunction reports whether n introduces a function scope.
func IsFunction(n *sitter.Node) bool {
	return n != nil && functionKinds[n.Type()]
}

// IsStatementContainer reports whether n holds a list of statements.
func IsStatementContainer(n *sitter.Node) bool {
	switch Kind(n) {
	case "statement_block", "program", "switch_case", "switch_default":
		return true
	}
	return false
}

// DeclarationScope returns the node whose subtree a declaration is visible in:
// the closest enclosing block, program or function body.
func DeclarationScope(decl *sitter.Node) *sitter.Node {
	if p := decl.Parent(); p != nil && p.Type() == "export_statement" {
		decl = p
	}
	if p := Ancestor(decl, scopeKinds...); p != nil {
		return p
	}
	return decl.Parent()
}

// EnclosingStatement returns the closest ancestor-or-self of n that sits
// directly in a statement container, together with that container. It stops
// at function boundaries and returns nils when n is not inside a statement
// of the innermost function, e.g. in an arrow function expression body.
func EnclosingStatement(n *sitter.Node) (stmt, container *sitter.Node) {
	for cur := n; cur != nil; cur = cur.Parent() {
		p := cur.Parent()
		if p == nil {
			return nil, nil
		}
		if IsStatementContainer(p) {
			return cur, p
		}
		if IsFunction(p) {
			return nil, nil
		}
	}
	return nil, nil
}

// References returns the identifiers in scope that refer to the binding
// named name declared by decl. Inner scopes that redeclare the name (as a
// parameter or a block-level declaration) hide the binding. The declaring
// identifier itself is excluded. Results are in document order.
func References(f *File, name string, decl, scope *sitter.Node) []*sitter.Node {
	var refs []*sitter.Node
	Walk(scope, func(n *sitter.Node) bool {
		switch n.Type() {
		case "identifier", "shorthand_property_identifier":
		default:
			return true
		}
		if Same(n, decl) || f.Text(n) != name {
			return true
		}
		if isDeclaringName(n) {
			return true
		}
		if shadowed(f, n, scope, name, decl) {
			return true
		}
		refs = append(refs, n)
		return true
	})
	return refs
}

// isDeclaringName reports whether the identifier n is the binding name of
// a declarator, parameter, function, class or import rather than a use.
func isDeclaringName(n *sitter.Node) bool {
	p := n.Parent()
	switch Kind(p) {
	case "variable_declarator":
		return IsField(p, "name", n)
	case "function_declaration", "class_declaration", "generator_function_declaration", "function_expression", "function", "class":
		return IsField(p, "name", n)
	case "import_specifier", "import_clause", "namespace_import":
		return true
	case "required_parameter", "optional_parameter":
		return IsField(p, "pattern", n)
	case "formal_parameters":
		return true
	case "arrow_function":
		return IsField(p, "parameter", n)
	case "pair_pattern":
		return IsField(p, "value", n)
	case "array_pattern", "rest_pattern":
		return true
	case "assignment_pattern", "object_assignment_pattern":
		return IsField(p, "left", n)
	}
	return false
}

// shadowed reports whether some scope between ref and the binding's scope
// redeclares name.
func shadowed(f *File, ref, scope *sitter.Node, name string, decl *sitter.Node) bool {
	for p := ref.Parent(); p != nil && !Same(p, scope); p = p.Parent() {
		if declaresName(f, p, name, decl) {
			return true
		}
	}
	return false
}

// declaresName reports whether the node n introduces a binding called name
// for its subtree, other than the declaring identifier own.
func declaresName(f *File, n *sitter.Node, name string, own *sitter.Node) bool {
	switch {
	case IsFunction(n):
		if params := Field(n, "parameters"); params != nil && PatternBinds(f, params, name) {
			return true
		}
		if param := Field(n, "parameter"); param != nil && PatternBinds(f, param, name) {
			return true
		}
		if n.Type() == "function_expression" || n.Type() == "function" {
			if id := Field(n, "name"); id != nil && f.Text(id) == name {
				return true
			}
		}
	case IsStatementContainer(n):
		for _, stmt := range NamedChildren(n) {
			if statementDeclares(f, stmt, name, own) {
				return true
			}
		}
	case n.Type() == "for_statement":
		if init := Field(n, "initializer"); init != nil && statementDeclares(f, init, name, own) {
			return true
		}
	case n.Type() == "for_in_statement":
		if left := Field(n, "left"); left != nil && Field(n, "kind") != nil && PatternBinds(f, left, name) {
			return true
		}
	case n.Type() == "catch_clause":
		if param := Field(n, "parameter"); param != nil && PatternBinds(f, param, name) {
			return true
		}
	}
	return false
}

func statementDeclares(f *File, stmt *sitter.Node, name string, own *sitter.Node) bool {
	if stmt.Type() == "export_statement" {
		if d := Field(stmt, "declaration"); d != nil {
			stmt = d
		}
	}
	switch stmt.Type() {
	case "lexical_declaration", "variable_declaration":
		for _, d := range NamedChildren(stmt) {
			if d.Type() != "variable_declarator" {
				continue
			}
			id := Field(d, "name")
			if id == nil || Same(id, own) {
				continue
			}
			if PatternBinds(f, id, name) {
				return true
			}
		}
	case "function_declaration", "class_declaration", "generator_function_declaration":
		if id := Field(stmt, "name"); id != nil && f.Text(id) == name {
			return true
		}
	}
	return false
}

// PatternBinds reports whether a binding pattern (identifier, object or
// array pattern, or parameter list) declares name. Default values and type
// annotations are not bindings.
func PatternBinds(f *File, n *sitter.Node, name string) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "identifier", "shorthand_property_identifier_pattern":
		return f.Text(n) == name
	case "pair_pattern":
		return PatternBinds(f, Field(n, "value"), name)
	case "assignment_pattern", "object_assignment_pattern":
		return PatternBinds(f, Field(n, "left"), name)
	case "required_parameter", "optional_parameter":
		return PatternBinds(f, Field(n, "pattern"), name)
	case "rest_pattern", "object_pattern", "array_pattern", "formal_parameters":
		for _, c := range NamedChildren(n) {
			if PatternBinds(f, c, name) {
				return true
			}
		}
	}
	return false
}
