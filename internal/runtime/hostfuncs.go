package runtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/codemod/internal/jsast"
)

// sourceStore maps the root node of every tree a script can reach to the
// parsed file it came from. smacker/go-tree-sitter caches Node values per
// tree, so a root found by walking Parent() is pointer-equal to the one
// registered here.
type sourceStore struct {
	mu    sync.RWMutex
	files map[*sitter.Node]*jsast.File
}

func newSourceStore() *sourceStore {
	return &sourceStore{files: make(map[*sitter.Node]*jsast.File)}
}

func (s *sourceStore) add(f *jsast.File) {
	s.mu.Lock()
	s.files[f.Root] = f
	s.mu.Unlock()
}

// rootOf walks a node up to its root via Parent().
func rootOf(node *sitter.Node) *sitter.Node {
	for node.Parent() != nil {
		node = node.Parent()
	}
	return node
}

func (s *sourceStore) fileFor(node *sitter.Node) (*jsast.File, bool) {
	root := rootOf(node)
	s.mu.RLock()
	f, ok := s.files[root]
	s.mu.RUnlock()
	return f, ok
}

// makeParseSrcFn creates "parse_src": accepts source string directly (for testing).
//
// parse_src(source, language) → *sitter.Tree
func makeParseSrcFn(ss *sourceStore) *object.Builtin {
	return object.NewBuiltin("parse_src", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("parse_src", 2, len(args))
		}

		srcStr, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("parse_src: source must be a string, got %s", args[0].Type())
		}

		langStr, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("parse_src: language must be a string, got %s", args[1].Type())
		}

		return parseSource(ctx, ss, []byte(srcStr.Value()), langStr.Value())
	})
}

// parseSource parses src and registers the tree so node_text and query can
// recover its source and grammar.
func parseSource(ctx context.Context, ss *sourceStore, src []byte, langName string) object.Object {
	f, err := jsast.ParseLanguage(ctx, src, jsast.Language(langName))
	if err != nil {
		return object.Errorf("parse_src: %v", err)
	}

	ss.add(f)

	proxy, err := object.NewProxy(f.Tree)
	if err != nil {
		return object.Errorf("parse_src: proxy error: %v", err)
	}
	return proxy
}

// makeNodeTextFn creates the "node_text" host function. Risor proxies
// cannot pass []byte to node.Content, so scripts read text through here.
//
// node_text(node) → string
func makeNodeTextFn(ss *sourceStore) *object.Builtin {
	return object.NewBuiltin("node_text", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("node_text", 1, len(args))
		}
		node, f, errObj := nodeAndFile(ss, "node_text", args[0])
		if errObj != nil {
			return errObj
		}
		return object.NewString(f.Text(node))
	})
}

// makeQueryFn creates the "query" host function. Each match is a map from
// capture name to node. Predicates such as #eq? are applied.
//
// query(pattern, node) → [{capture: node}]
func makeQueryFn(ss *sourceStore) *object.Builtin {
	return object.NewBuiltin("query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("query", 2, len(args))
		}
		pattern, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("query: pattern must be a string, got %s", args[0].Type())
		}
		node, f, errObj := nodeAndFile(ss, "query", args[1])
		if errObj != nil {
			return errObj
		}

		q, err := sitter.NewQuery([]byte(pattern.Value()), f.Grammar())
		if err != nil {
			return object.Errorf("query: invalid pattern: %v", err)
		}
		defer q.Close()

		cursor := sitter.NewQueryCursor()
		defer cursor.Close()
		cursor.Exec(q, node)

		results := []object.Object{}
		for {
			match, ok := cursor.NextMatch()
			if !ok {
				break
			}
			match = cursor.FilterPredicates(match, f.Src)
			if len(match.Captures) == 0 {
				continue
			}
			captures := make(map[string]object.Object, len(match.Captures))
			for _, c := range match.Captures {
				name := q.CaptureNameForId(c.Index)
				p, err := object.NewProxy(c.Node)
				if err != nil {
					return object.Errorf("query: proxy error for capture %q: %v", name, err)
				}
				captures[name] = p
			}
			results = append(results, object.NewMap(captures))
		}
		return object.NewList(results)
	})
}

// makeNodeChildFn creates "node_child": the child in a named field, or nil.
// Calling ChildByFieldName through the proxy would hand scripts a proxied
// Go nil instead.
//
// node_child(node, field) → node or nil
func makeNodeChildFn() *object.Builtin {
	return object.NewBuiltin("node_child", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("node_child", 2, len(args))
		}
		node, errObj := toNode("node_child", args[0])
		if errObj != nil {
			return errObj
		}
		field, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("node_child: field must be a string, got %s", args[1].Type())
		}

		child := jsast.Field(node, field.Value())
		if child == nil {
			return object.Nil
		}
		p, err := object.NewProxy(child)
		if err != nil {
			return object.Errorf("node_child: proxy error: %v", err)
		}
		return p
	})
}

// makeStringValueFn creates "string_value": the content of a string
// literal node without its quotes, or nil for any other node.
//
// string_value(node) → string or nil
func makeStringValueFn(ss *sourceStore) *object.Builtin {
	return object.NewBuiltin("string_value", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("string_value", 1, len(args))
		}
		node, f, errObj := nodeAndFile(ss, "string_value", args[0])
		if errObj != nil {
			return errObj
		}
		v, ok := jsast.StringValue(f.Src, node)
		if !ok {
			return object.Nil
		}
		return object.NewString(v)
	})
}

// makeQuoteLikeFn creates "quote_like": quotes a string with the same
// quote character as an existing string literal node.
//
// quote_like(node, value) → string
func makeQuoteLikeFn(ss *sourceStore) *object.Builtin {
	return object.NewBuiltin("quote_like", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("quote_like", 2, len(args))
		}
		node, f, errObj := nodeAndFile(ss, "quote_like", args[0])
		if errObj != nil {
			return errObj
		}
		value, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("quote_like: value must be a string, got %s", args[1].Type())
		}
		return object.NewString(jsast.Quote(value.Value(), jsast.QuoteOf(f.Src, node)))
	})
}

// nodeAndFile unwraps a proxied node and finds the file its tree belongs to.
func nodeAndFile(ss *sourceStore, fn string, arg object.Object) (*sitter.Node, *jsast.File, object.Object) {
	node, errObj := toNode(fn, arg)
	if errObj != nil {
		return nil, nil, errObj
	}
	f, found := ss.fileFor(node)
	if !found {
		return nil, nil, object.Errorf("%s: node does not belong to a parsed file", fn)
	}
	return node, f, nil
}

func toNode(fn string, arg object.Object) (*sitter.Node, object.Object) {
	proxy, ok := arg.(*object.Proxy)
	if !ok {
		return nil, object.Errorf("%s: expected proxy (Node), got %s", fn, arg.Type())
	}
	node, ok := proxy.Interface().(*sitter.Node)
	if !ok {
		return nil, object.Errorf("%s: expected *sitter.Node, got %T", fn, proxy.Interface())
	}
	return node, nil
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg, "source", "script")
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg, "source", "script")
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg, "source", "script")
}
