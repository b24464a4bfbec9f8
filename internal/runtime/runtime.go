package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	"github.com/jward/codemod/internal/jsast"
)

// Runtime embeds a Risor VM and provides tree-sitter host functions and an
// edit queue to codemod scripts. A Runtime holds no per-file state and may
// be shared by concurrent workers.
type Runtime struct {
	scriptsDir string
	fsys       fs.FS
	logger     *slog.Logger
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Also configures the Risor importer to use
// FSImporter for import statement resolution.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithRuntimeLogger sets the logger behind the scripts' log object.
func WithRuntimeLogger(l *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = l
	}
}

// NewRuntime creates a Runtime loading scripts from scriptsDir.
// Accepts optional RuntimeOptions for configuration such as fs.FS-based script loading.
func NewRuntime(scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		scriptsDir: scriptsDir,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result is the outcome of running a codemod script on one file.
type Result struct {
	// Output is the rewritten source. It equals the input when Edits is 0.
	Output []byte
	// Edits is the number of edits the script recorded.
	Edits int
	// Data holds values the script emitted with emit(key, value).
	Data map[string]any
}

// RunCodemod runs the script at scriptPath against f. The script sees the
// globals source, file_path, language and root (the syntax tree root), and
// records edits with replace, insert_before and remove. Edits are applied
// to the original source once the script returns.
func (r *Runtime) RunCodemod(ctx context.Context, scriptPath string, f *jsast.File) (*Result, error) {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return nil, err
	}

	sources := newSourceStore()
	sources.add(f)
	edits := newEditRecorder(f)

	root, err := object.NewProxy(f.Root)
	if err != nil {
		return nil, fmt.Errorf("runtime: proxy root: %w", err)
	}
	globals := edits.globals()
	globals["source"] = object.NewString(string(f.Src))
	globals["file_path"] = object.NewString(f.Path)
	globals["language"] = object.NewString(string(f.Lang))
	globals["root"] = root

	if err := r.eval(ctx, sources, src, scriptPath, globals); err != nil {
		return nil, err
	}

	res := &Result{Output: f.Src, Edits: edits.buf.Len(), Data: edits.data}
	if res.Edits == 0 {
		return res, nil
	}
	out, err := edits.buf.Bytes()
	if err != nil {
		return nil, fmt.Errorf("runtime: script %s: %w", scriptPath, err)
	}
	res.Output = out
	return res, nil
}

func (r *Runtime) eval(ctx context.Context, ss *sourceStore, source, label string, extraGlobals map[string]any) error {
	globals := r.buildGlobals(ss, extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Wire importer so Risor import statements resolve correctly.
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	_, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return nil
}

// buildImporter returns a Risor importer configured for the Runtime's script source.
// Returns nil if neither fs.FS nor scriptsDir is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code.
// When an fs.FS is configured, uses fs.ReadFile on the embedded filesystem.
// Otherwise, uses os.ReadFile with scriptsDir as the base directory.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		// For fs.FS, strip any leading path separator so the path is
		// relative within the FS (e.g., "/codemods/x.risor" -> "codemods/x.risor").
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.scriptsDir, path)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// CodemodScriptPath returns the script path of a scripted codemod, e.g.
// "next/13/built-in-next-font" -> "codemods/next-13-built-in-next-font.risor".
func CodemodScriptPath(name string) string {
	return filepath.Join("codemods", strings.ReplaceAll(name, "/", "-")+".risor")
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
func (r *Runtime) buildGlobals(ss *sourceStore, extra map[string]any) map[string]any {
	globals := map[string]any{
		"parse_src":    makeParseSrcFn(ss),
		"node_text":    makeNodeTextFn(ss),
		"node_child":   makeNodeChildFn(),
		"query":        makeQueryFn(ss),
		"string_value": makeStringValueFn(ss),
		"quote_like":   makeQuoteLikeFn(ss),
		"log":          mustProxy(&logObject{logger: r.logger}),
	}
	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
