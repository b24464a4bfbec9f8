package codemod

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/jward/codemod/internal/nextrouter"
	"github.com/jward/codemod/internal/runtime"
)

// Codemod describes a catalog entry. Exactly one of Transform and Script is
// set: Go codemods carry their Transform, scripted ones the name of a Risor
// script resolved with runtime.CodemodScriptPath.
type Codemod struct {
	Name        string
	Description string
	Transform   Transform
	Script      bool
}

var catalog = map[string]Codemod{
	"next/13/replace-next-router": {
		Name:        "next/13/replace-next-router",
		Description: "Replace next/router useRouter and NextRouter with next/navigation hooks",
		Transform:   TransformFunc(replaceNextRouter),
	},
	"next/13/next-image-to-legacy-image": {
		Name:        "next/13/next-image-to-legacy-image",
		Description: "Rename next/image imports to next/legacy/image and next/future/image to next/image",
		Script:      true,
	},
	"next/13/built-in-next-font": {
		Name:        "next/13/built-in-next-font",
		Description: "Move @next/font imports to the built-in next/font",
		Script:      true,
	},
}

// Catalog returns the built-in codemods sorted by name.
func Catalog() []Codemod {
	out := make([]Codemod, 0, len(catalog))
	for _, c := range catalog {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the built-in codemod called name.
func Lookup(name string) (Codemod, error) {
	c, ok := catalog[name]
	if !ok {
		return Codemod{}, fmt.Errorf("%w: %q", ErrUnknownCodemod, name)
	}
	return c, nil
}

func replaceNextRouter(_ context.Context, in *FileInput) ([]Command, error) {
	out, changed, err := nextrouter.HandleSourceFile(in.File)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, nil
	}
	return []Command{UpsertFile{Path: in.Path, Data: []byte(out)}}, nil
}

// scriptTransform runs a Risor codemod script. Data the script emits is
// returned as UpsertData, with or without a rewritten file.
type scriptTransform struct {
	rt     *runtime.Runtime
	script string
}

func (s *scriptTransform) Transform(ctx context.Context, in *FileInput) ([]Command, error) {
	res, err := s.rt.RunCodemod(ctx, s.script, in.File)
	if err != nil {
		return nil, err
	}
	var cmds []Command
	if res.Edits > 0 && !bytes.Equal(res.Output, in.File.Src) {
		cmds = append(cmds, UpsertFile{Path: in.Path, Data: res.Output})
	}
	if len(res.Data) > 0 {
		cmds = append(cmds, UpsertData{Path: in.Path, Data: res.Data})
	}
	return cmds, nil
}
