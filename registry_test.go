package codemod

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/codemod/internal/jsast"
	"github.com/jward/codemod/internal/runtime"
)

func TestScriptTransform_Commands(t *testing.T) {
	t.Parallel()

	const src = "import Image from \"next/image\";\n"
	tests := []struct {
		name     string
		script   string
		wantFile string
		wantData map[string]any
	}{
		{
			name:     "emit without edits",
			script:   `emit("kind", "image")`,
			wantData: map[string]any{"kind": "image"},
		},
		{
			name: "edit and emit",
			script: `
m := query("(import_statement source: (string) @source)", root)[0]
replace(m["source"], quote_like(m["source"], "next/legacy/image"))
emit("kind", "image")
`,
			wantFile: "import Image from \"next/legacy/image\";\n",
			wantData: map[string]any{"kind": "image"},
		},
		{
			name: "edit that restores the input",
			script: `
m := query("(import_statement source: (string) @source)", root)[0]
replace(m["source"], node_text(m["source"]))
`,
		},
		{
			name:   "nothing",
			script: `x := language`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rt := runtime.NewRuntime("", runtime.WithRuntimeFS(fstest.MapFS{
				"codemods/test.risor": &fstest.MapFile{Data: []byte(tt.script)},
			}))
			f, err := jsast.Parse(context.Background(), "/repo/a.tsx", []byte(src))
			require.NoError(t, err)
			t.Cleanup(f.Close)

			st := &scriptTransform{rt: rt, script: "codemods/test.risor"}
			cmds, err := st.Transform(context.Background(), &FileInput{Path: "/repo/a.tsx", Rel: "a.tsx", File: f})
			require.NoError(t, err)

			var want []Command
			if tt.wantFile != "" {
				want = append(want, UpsertFile{Path: "/repo/a.tsx", Data: []byte(tt.wantFile)})
			}
			if tt.wantData != nil {
				want = append(want, UpsertData{Path: "/repo/a.tsx", Data: tt.wantData})
			}
			assert.Equal(t, want, cmds)
		})
	}
}
