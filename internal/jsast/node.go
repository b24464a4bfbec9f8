package jsast

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Kind returns the node type, or "" for a nil node.
func Kind(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Type()
}

// Same reports whether a and b denote the same syntax node. Node pointers
// are not stable across Parent/Child navigation, so identity is the range
// plus the type.
func Same(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

// Start returns the start byte offset of n as an int.
func Start(n *sitter.Node) int { return int(n.StartByte()) }

// End returns the end byte offset of n as an int.
func End(n *sitter.Node) int { return int(n.EndByte()) }

// Field returns the child of n stored under the given field name.
func Field(n *sitter.Node, name string) *sitter.Node {
	if n == nil {
		return nil
	}
	return n.ChildByFieldName(name)
}

// IsField reports whether child is the node stored under the given field of parent.
func IsField(parent *sitter.Node, name string, child *sitter.Node) bool {
	return Same(Field(parent, name), child)
}

// Children returns all children of n, named and anonymous.
func Children(n *sitter.Node) []*sitter.Node {
	count := int(n.ChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, n.Child(i))
	}
	return out
}

// NamedChildren returns the named children of n, skipping comments.
func NamedChildren(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		c := n.NamedChild(i)
		if c.Type() == "comment" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// FirstNamedChild returns the first non-comment named child of n, or nil.
func FirstNamedChild(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	kids := NamedChildren(n)
	if len(kids) == 0 {
		return nil
	}
	return kids[0]
}

// HasToken reports whether n has a direct anonymous child with the given text,
// e.g. the "type" keyword of `import type { X } from "y"`.
func HasToken(n *sitter.Node, token string) bool {
	for _, c := range Children(n) {
		if !c.IsNamed() && c.Type() == token {
			return true
		}
	}
	return false
}

// Walk visits n and its descendants in document order. Returning false from
// fn skips the children of the visited node.
func Walk(n *sitter.Node, fn func(*sitter.Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		Walk(n.Child(i), fn)
	}
}

// FindAll returns every descendant of n (including n) whose type is one of kinds.
func FindAll(n *sitter.Node, kinds ...string) []*sitter.Node {
	var out []*sitter.Node
	Walk(n, func(c *sitter.Node) bool {
		for _, k := range kinds {
			if c.Type() == k {
				out = append(out, c)
				break
			}
		}
		return true
	})
	return out
}

// Ancestor returns the closest proper ancestor of n whose type is one of kinds.
func Ancestor(n *sitter.Node, kinds ...string) *sitter.Node {
	for p := n.Parent(); p != nil; p = p.Parent() {
		for _, k := range kinds {
			if p.Type() == k {
				return p
			}
		}
	}
	return nil
}

// UnwrapParens returns the outermost parenthesized_expression wrapping n, or n.
func UnwrapParens(n *sitter.Node) *sitter.Node {
	for {
		p := n.Parent()
		if p == nil || p.Type() != "parenthesized_expression" {
			return n
		}
		n = p
	}
}

// StringValue returns the content of a string literal node without quotes.
// Escapes are kept as written.
func StringValue(src []byte, n *sitter.Node) (string, bool) {
	if n == nil || n.Type() != "string" {
		return "", false
	}
	text := n.Content(src)
	if len(text) < 2 {
		return "", false
	}
	return text[1 : len(text)-1], true
}

// QuoteOf returns the quote character used by a string literal node, or a
// double quote when n is not a string.
func QuoteOf(src []byte, n *sitter.Node) string {
	if n != nil && n.Type() == "string" {
		text := n.Content(src)
		if strings.HasPrefix(text, "'") {
			return "'"
		}
	}
	return `"`
}

// Quote wraps s in the given quote character, escaping embedded quotes.
func Quote(s, quote string) string {
	return quote + strings.ReplaceAll(s, quote, `\`+quote) + quote
}

// IsIdentifierName reports whether s can be written after a dot in a member
// expression.
func IsIdentifierName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// LineIndent returns the leading whitespace of the line containing offset.
func LineIndent(src []byte, offset int) string {
	lineStart := offset
	for lineStart > 0 && src[lineStart-1] != '\n' {
		lineStart--
	}
	end := lineStart
	for end < len(src) && (src[end] == ' ' || src[end] == '\t') {
		end++
	}
	return string(src[lineStart:end])
}

// StatementSpan widens [start, end) to cover whole lines when the range is
// the only non-blank content on its lines, so that deleting it leaves no
// empty line behind. Otherwise trailing spaces after end are included.
func StatementSpan(src []byte, start, end int) (int, int) {
	lineStart := start
	for lineStart > 0 && (src[lineStart-1] == ' ' || src[lineStart-1] == '\t') {
		lineStart--
	}
	lineEnd := end
	for lineEnd < len(src) && (src[lineEnd] == ' ' || src[lineEnd] == '\t') {
		lineEnd++
	}
	atLineStart := lineStart == 0 || src[lineStart-1] == '\n'
	atLineEnd := lineEnd == len(src) || src[lineEnd] == '\n' || src[lineEnd] == '\r'
	if atLineStart && atLineEnd {
		if lineEnd < len(src) && src[lineEnd] == '\r' {
			lineEnd++
		}
		if lineEnd < len(src) && src[lineEnd] == '\n' {
			lineEnd++
		}
		return lineStart, lineEnd
	}
	return start, lineEnd
}
