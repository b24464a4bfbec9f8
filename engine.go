package codemod

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/jward/codemod/internal/jsast"
	"github.com/jward/codemod/internal/metrics"
	"github.com/jward/codemod/internal/runtime"
	"github.com/jward/codemod/internal/store"
)

// Engine orchestrates codemod runs: file discovery, filtering, incremental
// skipping, transformation, command application and the run ledger.
type Engine struct {
	store      *store.Store
	runtime    *runtime.Runtime
	scriptsDir string
	scriptsFS  fs.FS
	logger     *slog.Logger
	metrics    *metrics.Recorder
	transforms map[string]Transform

	include []glob.Glob
	exclude []glob.Glob
	optErr  error

	useParallel bool
	workers     int
	dryRun      bool
	diff        bool
	incremental bool
	dataDir     string
}

// Option configures an Engine.
type Option func(*Engine)

// WithParallel controls the worker pool. When true (default), files are
// parsed and transformed concurrently and their results committed to
// SQLite in one transaction. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithWorkers caps the worker pool. n <= 0 means one worker per CPU.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithScriptsFS configures the Engine to load Risor scripts from the given
// filesystem instead of from the scriptsDir path on disk. This enables
// embedding scripts via go:embed.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// WithLogger sets the logger for the engine and its scripts.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMetrics records run metrics on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(e *Engine) {
		e.metrics = r
	}
}

// WithDryRun leaves the filesystem untouched. Commands are still computed
// and the run is recorded in the ledger as a dry run.
func WithDryRun(dryRun bool) Option {
	return func(e *Engine) {
		e.dryRun = dryRun
	}
}

// WithDiff attaches a unified diff to every changed file outcome.
func WithDiff(diff bool) Option {
	return func(e *Engine) {
		e.diff = diff
	}
}

// WithIncremental skips files whose current content was produced (or left
// unchanged) by an earlier run of the same codemod.
func WithIncremental(incremental bool) Option {
	return func(e *Engine) {
		e.incremental = incremental
	}
}

// WithInclude restricts runs to files whose root-relative path matches one
// of the glob patterns.
func WithInclude(patterns ...string) Option {
	return func(e *Engine) {
		e.include = append(e.include, e.compileGlobs(patterns)...)
	}
}

// WithExclude skips files whose root-relative path matches one of the glob
// patterns.
func WithExclude(patterns ...string) Option {
	return func(e *Engine) {
		e.exclude = append(e.exclude, e.compileGlobs(patterns)...)
	}
}

// WithDataDir makes UpsertData commands write <dir>/<rel>.json.
func WithDataDir(dir string) Option {
	return func(e *Engine) {
		e.dataDir = dir
	}
}

// WithTransform registers a codemod that is not part of the catalog, or
// overrides one that is.
func WithTransform(name string, t Transform) Option {
	return func(e *Engine) {
		e.transforms[name] = t
	}
}

func (e *Engine) compileGlobs(patterns []string) []glob.Glob {
	var out []glob.Glob
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			e.optErr = errors.Join(e.optErr, fmt.Errorf("glob %q: %w", p, err))
			continue
		}
		out = append(out, g)
	}
	return out
}

// New creates an Engine backed by a SQLite ledger at dbPath.
// Script loading priority:
//  1. If WithScriptsFS is set, use the provided fs.FS
//  2. Otherwise, use scriptsDir on disk
//
// The scriptsDir parameter may be empty when WithScriptsFS is used.
func New(dbPath string, scriptsDir string, opts ...Option) (*Engine, error) {
	e := &Engine{
		scriptsDir:  scriptsDir,
		logger:      slog.Default(),
		transforms:  make(map[string]Transform),
		useParallel: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.optErr != nil {
		return nil, fmt.Errorf("codemod: options: %w", e.optErr)
	}

	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("codemod: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("codemod: migrate: %w", err)
	}
	e.store = s

	rtOpts := []runtime.RuntimeOption{runtime.WithRuntimeLogger(e.logger)}
	if e.scriptsFS != nil {
		rtOpts = append(rtOpts, runtime.WithRuntimeFS(e.scriptsFS))
	}
	e.runtime = runtime.NewRuntime(scriptsDir, rtOpts...)

	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying ledger for direct access.
func (e *Engine) Store() *store.Store {
	return e.store
}

// History returns the most recent runs first. limit <= 0 returns all.
func (e *Engine) History(limit int) ([]*Run, error) {
	return e.store.Runs(limit)
}

// FileResults returns the per-file ledger of a run.
func (e *Engine) FileResults(runID string) ([]*FileResult, error) {
	return e.store.FileResultsByRun(runID)
}

// transform resolves name against registered transforms, then the catalog.
func (e *Engine) transform(name string) (Transform, bool, error) {
	if t, ok := e.transforms[name]; ok {
		return t, false, nil
	}
	c, err := Lookup(name)
	if err != nil {
		return nil, false, err
	}
	if c.Script {
		return &scriptTransform{rt: e.runtime, script: runtime.CodemodScriptPath(name)}, true, nil
	}
	return c.Transform, false, nil
}

// scriptsHash fingerprints the codemod scripts the runtime loads, so
// incremental runs notice edited scripts.
func (e *Engine) scriptsHash() string {
	fsys := e.scriptsFS
	if fsys == nil {
		if e.scriptsDir == "" {
			return ""
		}
		fsys = os.DirFS(e.scriptsDir)
	}
	// fs.Glob returns matches in lexical order.
	paths, err := fs.Glob(fsys, "codemods/*.risor")
	if err != nil {
		return ""
	}
	h := sha256.New()
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			continue
		}
		fmt.Fprintf(h, "%s\x00%d\x00", p, len(data))
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ScriptsChanged reports whether the scripts differ from the ones used by
// the last run that wrote to disk. Incremental runs of scripted codemods
// ignore the ledger while this is true.
func (e *Engine) ScriptsChanged() bool {
	current := e.scriptsHash()
	stored, err := e.store.GetMetadata("scripts_hash")
	if err != nil || stored == "" {
		return true
	}
	return current != stored
}

func (e *Engine) storeScriptsHash() {
	_ = e.store.SetMetadata("scripts_hash", e.scriptsHash())
}

// Run applies the codemod called name to every supported file under root
// (a directory or a single file). Per-file failures do not stop the run;
// they are recorded in the summary (see RunSummary.Err) and the ledger.
func (e *Engine) Run(ctx context.Context, name, root string) (*RunSummary, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("codemod: resolve %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("codemod: %w", err)
	}

	var paths []string
	base := abs
	if info.IsDir() {
		paths, err = e.gitListFiles(ctx, abs)
		if err != nil {
			e.logger.Debug("git ls-files unavailable, walking directory", "root", abs, "err", err)
			paths, err = e.walkListFiles(abs)
			if err != nil {
				return nil, fmt.Errorf("codemod: %w", err)
			}
		}
	} else {
		base = filepath.Dir(abs)
		paths = []string{abs}
	}
	return e.RunFiles(ctx, name, base, paths)
}

// RunFiles applies the codemod called name to paths. root anchors the
// relative paths used for globs, diffs and data output; commands may not
// touch files outside it.
func (e *Engine) RunFiles(ctx context.Context, name, root string, paths []string) (*RunSummary, error) {
	t, scripted, err := e.transform(name)
	if err != nil {
		return nil, err
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("codemod: resolve %s: %w", root, err)
	}

	start := time.Now()
	run := &store.Run{Codemod: name, Root: root, DryRun: e.dryRun, StartedAt: start}
	if _, err := e.store.InsertRun(run); err != nil {
		return nil, fmt.Errorf("codemod: %w", err)
	}

	useLedger := e.incremental && !(scripted && e.ScriptsChanged())
	r := &runner{
		e:         e,
		name:      name,
		root:      root,
		runID:     run.ID,
		transform: t,
		useLedger: useLedger,
	}

	var outcomes []FileOutcome
	if e.useParallel {
		outcomes, err = r.runParallel(ctx, paths)
	} else {
		outcomes, err = r.runSerial(ctx, paths)
	}
	if err != nil {
		return nil, fmt.Errorf("codemod: %w", err)
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Path < outcomes[j].Path })

	summary := &RunSummary{
		RunID:    run.ID,
		Codemod:  name,
		Root:     root,
		DryRun:   e.dryRun,
		Files:    outcomes,
		Duration: time.Since(start),
	}
	for _, o := range outcomes {
		switch o.Status {
		case StatusChanged:
			summary.Changed++
		case StatusUnchanged:
			summary.Unchanged++
		case StatusFailed:
			summary.Failed++
		case StatusSkipped:
			summary.Skipped++
		}
	}

	run.FilesTotal = len(outcomes)
	run.FilesChanged = summary.Changed
	run.FilesFailed = summary.Failed
	run.FilesSkipped = summary.Skipped
	if err := e.store.FinishRun(run); err != nil {
		return nil, fmt.Errorf("codemod: %w", err)
	}
	if scripted && !e.dryRun {
		e.storeScriptsHash()
	}
	if e.metrics != nil {
		e.metrics.ObserveRun(name, summary.Duration)
	}

	e.logger.Info("run finished",
		"codemod", name,
		"run_id", run.ID,
		"files", len(outcomes),
		"changed", summary.Changed,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"dry_run", e.dryRun,
		"duration", summary.Duration.Round(time.Millisecond),
	)
	return summary, nil
}

// defaultIgnores are skipped by the directory walk on top of the root
// .gitignore.
var defaultIgnores = []string{
	"node_modules/",
	"vendor/",
	".git/",
	".next/",
}

// gitListFiles lists tracked and untracked, non-ignored files under root
// through git ls-files, keeping the ones with a supported extension.
func (e *Engine) gitListFiles(ctx context.Context, root string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "ls-files", "-z", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var paths []string
	for _, rel := range strings.Split(stdout.String(), "\x00") {
		if rel == "" {
			continue
		}
		if _, ok := jsast.LanguageForFile(rel); ok {
			paths = append(paths, filepath.Join(root, filepath.FromSlash(rel)))
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem when git is not
// available. It honors the root .gitignore plus defaultIgnores and skips
// hidden directories.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	patterns := defaultIgnores
	if data, err := os.ReadFile(filepath.Join(root, ".gitignore")); err == nil {
		patterns = append(append([]string{}, defaultIgnores...), strings.Split(string(data), "\n")...)
	}
	matcher := ignore.CompileIgnoreLines(patterns...)

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") || matcher.MatchesPath(filepath.ToSlash(rel)+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if matcher.MatchesPath(filepath.ToSlash(rel)) {
			return nil
		}
		if _, ok := jsast.LanguageForFile(path); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

// selected applies the include and exclude globs to a root-relative path.
func (e *Engine) selected(rel string) bool {
	for _, g := range e.exclude {
		if g.Match(rel) {
			return false
		}
	}
	if len(e.include) == 0 {
		return true
	}
	for _, g := range e.include {
		if g.Match(rel) {
			return true
		}
	}
	return false
}
