// Package jsast is the syntax-tree layer shared by every codemod: it parses
// JavaScript and TypeScript with tree-sitter, answers structural questions
// about the concrete syntax tree, finds lexically scoped references, and
// collects text edits that are applied to the original source in one pass.
//
// Trees are never mutated. A codemod records replacements and insertions on a
// [Buffer] keyed by byte offsets of the original source; printing applies
// them, leaving every unrelated byte untouched.
package jsast

import (
	"context"
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// ErrSyntax reports a file tree-sitter could only parse with error
// recovery. Codemods refuse to rewrite such files.
var ErrSyntax = errors.New("jsast: syntax error")

// File is one parsed source file. It owns the tree-sitter tree for the
// duration of a single codemod invocation.
type File struct {
	Path string
	Lang Language
	Src  []byte
	Tree *sitter.Tree
	Root *sitter.Node
}

// Parse parses src using the grammar selected by the extension of path.
func Parse(ctx context.Context, path string, src []byte) (*File, error) {
	lang, ok := LanguageForFile(path)
	if !ok {
		return nil, fmt.Errorf("jsast: unsupported file %s", path)
	}
	f, err := ParseLanguage(ctx, src, lang)
	if err != nil {
		return nil, fmt.Errorf("jsast: parse %s: %w", path, err)
	}
	f.Path = path
	return f, nil
}

// ParseLanguage parses src with an explicit grammar.
func ParseLanguage(ctx context.Context, src []byte, lang Language) (*File, error) {
	grammar, ok := GrammarFor(lang)
	if !ok {
		return nil, fmt.Errorf("jsast: unsupported language %q", lang)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("jsast: tree-sitter parse failed: %w", err)
	}
	return &File{
		Lang: lang,
		Src:  src,
		Tree: tree,
		Root: tree.RootNode(),
	}, nil
}

// CheckSyntax returns an error wrapping ErrSyntax when the tree contains
// error or missing nodes, naming the first one.
func (f *File) CheckSyntax() error {
	if !f.Root.HasError() {
		return nil
	}
	var bad *sitter.Node
	Walk(f.Root, func(n *sitter.Node) bool {
		if bad != nil {
			return false
		}
		if n.IsError() || n.IsMissing() {
			bad = n
			return false
		}
		return n.HasError()
	})
	if bad == nil {
		return fmt.Errorf("%w in %s", ErrSyntax, f.Path)
	}
	p := bad.StartPoint()
	return fmt.Errorf("%w in %s at %d:%d", ErrSyntax, f.Path, p.Row+1, p.Column+1)
}

// Close releases the tree-sitter tree.
func (f *File) Close() {
	if f.Tree != nil {
		f.Tree.Close()
		f.Tree = nil
	}
}

// Text returns the source text covered by n.
func (f *File) Text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(f.Src)
}

// Slice returns the source text in [start, end).
func (f *File) Slice(start, end int) string {
	if start < 0 || end > len(f.Src) || start > end {
		return ""
	}
	return string(f.Src[start:end])
}

// Grammar returns the tree-sitter grammar the file was parsed with.
func (f *File) Grammar() *sitter.Language {
	g, _ := GrammarFor(f.Lang)
	return g
}
