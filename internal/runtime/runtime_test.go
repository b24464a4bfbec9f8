package runtime

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/codemod/internal/jsast"
)

const tsxSource = `import Image from 'next/image';
import { Inter } from "@next/font/google";

export function Avatar({ src }: { src: string }) {
  return <Image src={src} width={32} height={32} />;
}
`

func parseFile(t *testing.T, path, src string) *jsast.File {
	t.Helper()
	f, err := jsast.Parse(context.Background(), path, []byte(src))
	require.NoError(t, err)
	t.Cleanup(f.Close)
	return f
}

func codemodFS(script string) fstest.MapFS {
	return fstest.MapFS{
		"codemods/test.risor": &fstest.MapFile{Data: []byte(script)},
	}
}

// runScript runs script as a codemod over avatar.tsx holding tsxSource.
func runScript(t *testing.T, script string, opts ...RuntimeOption) (*Result, error) {
	t.Helper()
	rt := NewRuntime("", append([]RuntimeOption{WithRuntimeFS(codemodFS(script))}, opts...)...)
	return rt.RunCodemod(context.Background(), "codemods/test.risor", parseFile(t, "avatar.tsx", tsxSource))
}

// --- Host function tests ---

func TestHostFuncs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		script  string
		wantErr bool
	}{
		{
			name: "parse_src and node_text",
			script: `
tree := parse_src(source, "tsx")
root := tree.RootNode()
assert(root.Type() == "program", 'expected program, got {root.Type()}')

names := []
count := int(root.NamedChildCount())
for i := 0; i < count; i++ {
    child := root.NamedChild(i)
    if child.Type() == "import_statement" {
        names.append(node_text(child.ChildByFieldName("source")))
    }
}
assert(len(names) == 2, 'expected 2 imports, got {len(names)}')
assert(names[0] == "'next/image'", 'got {names[0]}')
`,
		},
		{
			name:    "parse_src unknown language",
			script:  `parse_src("x := 1", "go")`,
			wantErr: true,
		},
		{
			name: "query captures",
			script: `
matches := query("(import_statement source: (string) @source)", root)
assert(len(matches) == 2, 'expected 2 matches, got {len(matches)}')
assert(string_value(matches[0]["source"]) == "next/image")
assert(string_value(matches[1]["source"]) == "@next/font/google")
assert(string_value(root) == nil)
`,
		},
		{
			name: "query invalid pattern",
			script: `
other := parse_src("const a = 1;", "typescript").RootNode()
query("(not_a_real_node_type @x)", other)
`,
			wantErr: true,
		},
		{
			name: "quote_like",
			script: `
matches := query("(import_statement source: (string) @source)", root)
single := quote_like(matches[0]["source"], "next/legacy/image")
double := quote_like(matches[1]["source"], "next/font/google")
assert(single == "'next/legacy/image'", 'got {single}')
assert(double == "\"next/font/google\"", 'got {double}')
`,
		},
		{
			name: "node_child missing field",
			script: `
other := parse_src("const a = 1;", "javascript").RootNode()
assert(node_child(other, "name") == nil)
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := runScript(t, tt.script)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Zero(t, res.Edits)
		})
	}
}

func TestHostFuncs_LogForwardsToLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	_, err := runScript(t, `log.Warn("careful")`, WithRuntimeLogger(logger))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "msg=careful")
	assert.Contains(t, buf.String(), "source=script")
}

// --- Codemod tests ---

func TestRunCodemod_ReplaceAndEmit(t *testing.T) {
	t.Parallel()

	script := `
matches := query("(import_statement source: (string) @source)", root)
for _, m := range matches {
    s := m["source"]
    if string_value(s) == "next/image" {
        replace(s, quote_like(s, "next/legacy/image"))
    }
}
emit("imports", len(matches))
emit("path", file_path)
`
	rt := NewRuntime("", WithRuntimeFS(codemodFS(script)))
	f := parseFile(t, "avatar.tsx", tsxSource)

	res, err := rt.RunCodemod(context.Background(), "codemods/test.risor", f)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Edits)
	assert.Contains(t, string(res.Output), "import Image from 'next/legacy/image';\n")
	assert.Contains(t, string(res.Output), `import { Inter } from "@next/font/google";`)
	assert.EqualValues(t, 2, res.Data["imports"])
	assert.Equal(t, "avatar.tsx", res.Data["path"])
}

func TestRunCodemod_RemoveAndInsertBefore(t *testing.T) {
	t.Parallel()

	script := `
matches := query("(import_statement source: (string) @source) @import", root)
for _, m := range matches {
    if string_value(m["source"]) == "@next/font/google" {
        remove(m["import"])
        insert_before(matches[0]["import"], "import { Inter } from 'next/font/google';\n")
    }
}
`
	rt := NewRuntime("", WithRuntimeFS(codemodFS(script)))
	f := parseFile(t, "avatar.tsx", tsxSource)

	res, err := rt.RunCodemod(context.Background(), "codemods/test.risor", f)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Edits)
	assert.Equal(t, `import { Inter } from 'next/font/google';
import Image from 'next/image';

export function Avatar({ src }: { src: string }) {
  return <Image src={src} width={32} height={32} />;
}
`, string(res.Output))
}

func TestRunCodemod_NoEditsReturnsInput(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("", WithRuntimeFS(codemodFS(`x := language`)))
	f := parseFile(t, "avatar.tsx", tsxSource)

	res, err := rt.RunCodemod(context.Background(), "codemods/test.risor", f)
	require.NoError(t, err)
	assert.Zero(t, res.Edits)
	assert.Equal(t, tsxSource, string(res.Output))
	assert.Empty(t, res.Data)
}

func TestRunCodemod_RejectsForeignNodes(t *testing.T) {
	t.Parallel()

	script := `
other := parse_src("const a = 1;", "tsx").RootNode()
replace(other, "x")
`
	rt := NewRuntime("", WithRuntimeFS(codemodFS(script)))
	f := parseFile(t, "avatar.tsx", tsxSource)

	_, err := rt.RunCodemod(context.Background(), "codemods/test.risor", f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not belong to the file being edited")
}

func TestRunCodemod_NestedEditsAbsorbed(t *testing.T) {
	t.Parallel()

	script := `
m := query("(import_statement source: (string) @source) @import", root)[0]
replace(m["source"], "c")
replace(m["import"], "a")
`
	rt := NewRuntime("", WithRuntimeFS(codemodFS(script)))
	f := parseFile(t, "a.tsx", "import X from \"y\";\nimport Z from \"w\";\n")

	res, err := rt.RunCodemod(context.Background(), "codemods/test.risor", f)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Edits)
	assert.Equal(t, "a\nimport Z from \"w\";\n", string(res.Output))
}

func TestRunCodemod_MissingScript(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("", WithRuntimeFS(fstest.MapFS{}))
	f := parseFile(t, "a.ts", "const a = 1;\n")
	_, err := rt.RunCodemod(context.Background(), "codemods/nope.risor", f)
	require.Error(t, err)
}

// --- Script loading tests ---

func TestRunCodemod_LoadsFromDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.risor"), []byte(`emit("lang", language)`), 0644))

	rt := NewRuntime(dir)
	res, err := rt.RunCodemod(context.Background(), "ok.risor", parseFile(t, "a.ts", "const a = 1;\n"))
	require.NoError(t, err)
	assert.Equal(t, "typescript", res.Data["lang"])
}

func TestRunCodemod_MissingFileOnDisk(t *testing.T) {
	t.Parallel()

	rt := NewRuntime(t.TempDir())
	_, err := rt.RunCodemod(context.Background(), "missing.risor", parseFile(t, "a.ts", "const a = 1;\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading script")
}

func TestLoadScript_FromFSFS(t *testing.T) {
	t.Parallel()

	content := `x := 42`
	rt := NewRuntime("", WithRuntimeFS(fstest.MapFS{
		"codemods/a.risor": &fstest.MapFile{Data: []byte(content)},
	}))

	got, err := rt.LoadScript("codemods/a.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	got, err = rt.LoadScript("/codemods/a.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	_, err = rt.LoadScript("codemods/b.risor")
	require.Error(t, err)
}

func TestLoadScript_FallsBackToDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "codemods"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "codemods", "a.risor"), []byte(`y := 1`), 0644))

	rt := NewRuntime(dir)
	got, err := rt.LoadScript(filepath.Join("codemods", "a.risor"))
	require.NoError(t, err)
	assert.Equal(t, `y := 1`, got)
}

func TestCodemodScriptPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		filepath.Join("codemods", "next-13-built-in-next-font.risor"),
		CodemodScriptPath("next/13/built-in-next-font"))
}

func TestImport_FSImporter(t *testing.T) {
	t.Parallel()

	// The importer resolves "helpers" as "helpers.risor" at the FS root.
	mapFS := codemodFS(`
import helpers
emit("renamed", helpers.legacy("next/image"))
`)
	mapFS["helpers.risor"] = &fstest.MapFile{Data: []byte(`
func legacy(name) {
	return name + "/legacy"
}
`)}
	rt := NewRuntime("", WithRuntimeFS(mapFS))

	res, err := rt.RunCodemod(context.Background(), "codemods/test.risor", parseFile(t, "a.ts", "const a = 1;\n"))
	require.NoError(t, err)
	assert.Equal(t, "next/image/legacy", res.Data["renamed"])
}

func TestImport_GlobalsAvailableInImportedModules(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "helpers.risor"), []byte(`
func kinds(src) {
	return parse_src(src, "javascript").RootNode().Type()
}
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.risor"), []byte(`
import helpers
assert(helpers.kinds("let a;") == "program")
`), 0644))
	rt := NewRuntime(dir)

	_, err := rt.RunCodemod(context.Background(), "main.risor", parseFile(t, "a.js", "let b;\n"))
	require.NoError(t, err)
}
