package codemod

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/codemod/internal/metrics"
	"github.com/jward/codemod/internal/store"
	"github.com/jward/codemod/scripts"
)

const routerPage = `import { useRouter } from "next/router";

export default function Page() {
  const router = useRouter();
  return router.query.id;
}
`

const routerPageOut = `import { useSearchParams } from "next/navigation";

export default function Page() {
  const searchParams = useSearchParams();
  return searchParams?.get("id");
}
`

const replaceRouter = "next/13/replace-next-router"

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	opts = append([]Option{WithScriptsFS(scripts.FS)}, opts...)
	e, err := New(dbPath, "", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

// writeTree creates files under a fresh directory and returns its path.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestNew_InvalidPath(t *testing.T) {
	t.Parallel()
	_, err := New("/nonexistent/dir/db.sqlite", "")
	require.Error(t, err)
}

func TestNew_InvalidGlob(t *testing.T) {
	t.Parallel()
	_, err := New(filepath.Join(t.TempDir(), "x.db"), "", WithInclude("src/["))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "glob")
}

func TestRun_UnknownCodemod(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	_, err := e.Run(context.Background(), "next/99/nope", t.TempDir())
	require.ErrorIs(t, err, ErrUnknownCodemod)
}

func TestRun_RewritesFiles(t *testing.T) {
	t.Parallel()

	for _, parallel := range []bool{true, false} {
		root := writeTree(t, map[string]string{
			"app/page.tsx":            routerPage,
			"app/other.ts":            "export const a = 1;\n",
			"README.md":               "# not code\n",
			"node_modules/x/index.js": routerPage,
			"types/global.d.ts":       "declare const x: number;\n",
		})
		e := newTestEngine(t, WithParallel(parallel))

		summary, err := e.Run(context.Background(), replaceRouter, root)
		require.NoError(t, err)
		require.NoError(t, summary.Err())

		assert.Equal(t, 1, summary.Changed, "parallel=%v", parallel)
		assert.Equal(t, 1, summary.Unchanged)
		require.Len(t, summary.Files, 2)
		assert.Equal(t, "app/other.ts", summary.Files[0].Path)
		assert.Equal(t, "app/page.tsx", summary.Files[1].Path)

		assert.Equal(t, routerPageOut, readFile(t, filepath.Join(root, "app/page.tsx")))
		assert.Equal(t, routerPage, readFile(t, filepath.Join(root, "node_modules/x/index.js")))

		results, err := e.FileResults(summary.RunID)
		require.NoError(t, err)
		require.Len(t, results, 2)
		for _, r := range results {
			if r.Status == StatusChanged {
				assert.Equal(t, store.HashContent([]byte(routerPage)), r.HashBefore)
				assert.Equal(t, store.HashContent([]byte(routerPageOut)), r.HashAfter)
			}
		}

		runs, err := e.History(0)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, 2, runs[0].FilesTotal)
		assert.Equal(t, 1, runs[0].FilesChanged)
		assert.NotNil(t, runs[0].FinishedAt)
	}
}

func TestRun_HonorsGitignoreOutsideGit(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		".gitignore":          "generated/\n*.gen.tsx\n",
		"app/page.tsx":        routerPage,
		"app/page.gen.tsx":    routerPage,
		"generated/page.tsx":  routerPage,
		".storybook/page.tsx": routerPage,
	})
	e := newTestEngine(t)

	summary, err := e.Run(context.Background(), replaceRouter, root)
	require.NoError(t, err)
	require.Len(t, summary.Files, 1)
	assert.Equal(t, "app/page.tsx", summary.Files[0].Path)
	assert.Equal(t, routerPage, readFile(t, filepath.Join(root, "generated/page.tsx")))
	assert.Equal(t, routerPage, readFile(t, filepath.Join(root, "app/page.gen.tsx")))
}

func TestRun_SingleFile(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"page.jsx": routerPage, "b.jsx": routerPage})
	e := newTestEngine(t)

	summary, err := e.Run(context.Background(), replaceRouter, filepath.Join(root, "page.jsx"))
	require.NoError(t, err)
	require.Len(t, summary.Files, 1)
	assert.Equal(t, "page.jsx", summary.Files[0].Path)
	assert.Equal(t, routerPage, readFile(t, filepath.Join(root, "b.jsx")))
}

func TestRun_DryRunWithDiff(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"page.tsx": routerPage})
	e := newTestEngine(t, WithDryRun(true), WithDiff(true))

	summary, err := e.Run(context.Background(), replaceRouter, root)
	require.NoError(t, err)
	require.Len(t, summary.Files, 1)
	assert.True(t, summary.DryRun)

	out := summary.Files[0]
	assert.Equal(t, StatusChanged, out.Status)
	require.Len(t, out.Commands, 1)
	assert.Equal(t, "upsert_file", out.Commands[0].Kind())
	assert.Contains(t, out.Diff, "--- a/page.tsx\n+++ b/page.tsx\n")
	assert.Contains(t, out.Diff, "-import { useRouter } from \"next/router\";\n")
	assert.Contains(t, out.Diff, "+  return searchParams?.get(\"id\");\n")

	assert.Equal(t, routerPage, readFile(t, filepath.Join(root, "page.tsx")), "dry run leaves files alone")

	runs, err := e.History(1)
	require.NoError(t, err)
	assert.True(t, runs[0].DryRun)
}

func TestRun_Incremental(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"a.tsx": routerPage,
		"b.ts":  "export const b = 1;\n",
	})
	e := newTestEngine(t, WithIncremental(true))
	ctx := context.Background()

	first, err := e.Run(ctx, replaceRouter, root)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Changed)
	assert.Equal(t, 1, first.Unchanged)

	second, err := e.Run(ctx, replaceRouter, root)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Skipped)

	// Editing a file makes it eligible again.
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.ts"), []byte(routerPage), 0o644))
	third, err := e.Run(ctx, replaceRouter, root)
	require.NoError(t, err)
	assert.Equal(t, 1, third.Changed)
	assert.Equal(t, 1, third.Skipped)
}

func TestRun_IncludeExclude(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"src/a.tsx":     routerPage,
		"src/gen/b.tsx": routerPage,
		"lib/c.tsx":     routerPage,
	})
	e := newTestEngine(t, WithInclude("src/**"), WithExclude("**/gen/**"))

	summary, err := e.Run(context.Background(), replaceRouter, root)
	require.NoError(t, err)
	require.Len(t, summary.Files, 1)
	assert.Equal(t, "src/a.tsx", summary.Files[0].Path)
	assert.Equal(t, routerPage, readFile(t, filepath.Join(root, "lib/c.tsx")))
}

func TestRun_FailuresAreIsolated(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"bad.ts":  "const = ;\n",
		"good.ts": routerPage,
	})
	var logs bytes.Buffer
	e := newTestEngine(t, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	summary, err := e.Run(context.Background(), replaceRouter, root)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Changed)

	runErr := summary.Err()
	require.Error(t, runErr)
	assert.Contains(t, runErr.Error(), "had 1 error(s)")
	assert.Contains(t, runErr.Error(), "bad.ts")
	assert.Contains(t, logs.String(), "file failed")
}

func TestRun_CustomTransformCommands(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"old.js":  "var a = 1;\n",
		"keep.js": "let b = 2;\n",
	})
	dataDir := t.TempDir()
	split := TransformFunc(func(_ context.Context, in *FileInput) ([]Command, error) {
		if in.Rel != "old.js" {
			return nil, nil
		}
		next := filepath.Join(filepath.Dir(in.Path), "new", "old.mjs")
		return []Command{
			UpsertFile{Path: next, Data: in.File.Src},
			UpsertData{Path: in.Path, Data: map[string]any{"moved_to": "new/old.mjs"}},
			DeleteFile{Path: in.Path},
		}, nil
	})
	e := newTestEngine(t, WithTransform("move", split), WithDataDir(dataDir), WithParallel(false))

	summary, err := e.Run(context.Background(), "move", root)
	require.NoError(t, err)
	require.NoError(t, summary.Err())
	assert.Equal(t, 1, summary.Changed)

	_, err = os.Stat(filepath.Join(root, "old.js"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Equal(t, "var a = 1;\n", readFile(t, filepath.Join(root, "new", "old.mjs")))
	assert.JSONEq(t, `{"moved_to": "new/old.mjs"}`, readFile(t, filepath.Join(dataDir, "old.js.json")))

	results, err := e.FileResults(summary.RunID)
	require.NoError(t, err)
	for _, r := range results {
		if filepath.Base(r.Path) == "old.js" {
			assert.Empty(t, r.HashAfter, "deleted file has no content hash")
		}
	}
}

func TestRun_RejectsCommandsOutsideRoot(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"a.js": "a;\n"})
	outside := filepath.Join(t.TempDir(), "escaped.js")
	escape := TransformFunc(func(_ context.Context, in *FileInput) ([]Command, error) {
		return []Command{UpsertFile{Path: outside, Data: []byte("x")}}, nil
	})
	e := newTestEngine(t, WithTransform("escape", escape))

	summary, err := e.Run(context.Background(), "escape", root)
	require.NoError(t, err)
	require.Len(t, summary.Files, 1)
	assert.Equal(t, StatusFailed, summary.Files[0].Status)
	assert.ErrorIs(t, summary.Files[0].Err, errOutsideRoot)
	_, err = os.Stat(outside)
	assert.True(t, os.IsNotExist(err))
}

func TestRun_ScriptedCodemod(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"layout.tsx": "import { Inter } from \"@next/font/google\";\n",
	})
	e := newTestEngine(t, WithIncremental(true))
	ctx := context.Background()
	assert.True(t, e.ScriptsChanged())

	summary, err := e.Run(ctx, "next/13/built-in-next-font", root)
	require.NoError(t, err)
	require.NoError(t, summary.Err())
	assert.Equal(t, 1, summary.Changed)
	assert.Equal(t, "import { Inter } from \"next/font/google\";\n", readFile(t, filepath.Join(root, "layout.tsx")))
	assert.False(t, e.ScriptsChanged())

	kinds := map[string]bool{}
	for _, c := range summary.Files[0].Commands {
		kinds[c.Kind()] = true
	}
	assert.True(t, kinds["upsert_file"])
	assert.True(t, kinds["upsert_data"])
}

func TestRun_Metrics(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"a.tsx": routerPage, "b.ts": "b;\n"})
	rec := metrics.NewRecorder()
	e := newTestEngine(t, WithMetrics(rec))

	_, err := e.Run(context.Background(), replaceRouter, root)
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(rec.Registry(), "codemod_files_total", "codemod_runs_total", "codemod_commands_total")
	require.NoError(t, err)
	assert.Equal(t, 4, count, "changed + unchanged files, one run, one command kind")
}

func TestCatalog(t *testing.T) {
	t.Parallel()

	var names []string
	for _, c := range Catalog() {
		names = append(names, c.Name)
		assert.NotEmpty(t, c.Description)
		assert.True(t, c.Script != (c.Transform != nil), c.Name)
	}
	assert.Equal(t, []string{
		"next/13/built-in-next-font",
		"next/13/next-image-to-legacy-image",
		"next/13/replace-next-router",
	}, names)

	_, err := Lookup("missing")
	require.ErrorIs(t, err, ErrUnknownCodemod)
}
