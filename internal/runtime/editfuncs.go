package runtime

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/codemod/internal/jsast"
)

// editRecorder collects the edits and data a codemod script produces for a
// single file. Risor scripts cannot hold Go edit values, so the host
// functions take proxied nodes and strings and queue the edits on the Go
// side.
type editRecorder struct {
	src  []byte
	root *sitter.Node
	buf  *jsast.Buffer
	data map[string]any
}

func newEditRecorder(f *jsast.File) *editRecorder {
	return &editRecorder{
		src:  f.Src,
		root: f.Root,
		buf:  jsast.NewBuffer(f.Src),
		data: map[string]any{},
	}
}

func (e *editRecorder) globals() map[string]any {
	return map[string]any{
		"replace":       e.makeReplaceFn(),
		"insert_before": e.makeInsertBeforeFn(),
		"remove":        e.makeRemoveFn(),
		"emit":          e.makeEmitFn(),
	}
}

// fileNode unwraps a node and checks it belongs to the file being edited.
func (e *editRecorder) fileNode(fn string, arg object.Object) (*sitter.Node, object.Object) {
	node, errObj := toNode(fn, arg)
	if errObj != nil {
		return nil, errObj
	}
	if rootOf(node) != e.root {
		return nil, object.Errorf("%s: node does not belong to the file being edited", fn)
	}
	return node, nil
}

// replace(node, text)
func (e *editRecorder) makeReplaceFn() *object.Builtin {
	return object.NewBuiltin("replace", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("replace", 2, len(args))
		}
		node, errObj := e.fileNode("replace", args[0])
		if errObj != nil {
			return errObj
		}
		text, err := toString(args[1])
		if err != nil {
			return object.Errorf("replace: %v", err)
		}
		e.buf.ReplaceNode(node, text)
		return object.Nil
	})
}

// insert_before(node, text)
func (e *editRecorder) makeInsertBeforeFn() *object.Builtin {
	return object.NewBuiltin("insert_before", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("insert_before", 2, len(args))
		}
		node, errObj := e.fileNode("insert_before", args[0])
		if errObj != nil {
			return errObj
		}
		text, err := toString(args[1])
		if err != nil {
			return object.Errorf("insert_before: %v", err)
		}
		e.buf.Insert(jsast.Start(node), text)
		return object.Nil
	})
}

// remove(node) deletes a node. Statements that sit alone on their lines take
// the whole lines with them.
func (e *editRecorder) makeRemoveFn() *object.Builtin {
	return object.NewBuiltin("remove", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("remove", 1, len(args))
		}
		node, errObj := e.fileNode("remove", args[0])
		if errObj != nil {
			return errObj
		}
		start, end := jsast.StatementSpan(e.src, jsast.Start(node), jsast.End(node))
		e.buf.Delete(start, end)
		return object.Nil
	})
}

// emit(key, value) records a value in the run's data for this file.
func (e *editRecorder) makeEmitFn() *object.Builtin {
	return object.NewBuiltin("emit", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("emit", 2, len(args))
		}
		key, err := toString(args[0])
		if err != nil {
			return object.Errorf("emit: key: %v", err)
		}
		e.data[key] = args[1].Interface()
		return object.Nil
	})
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}
