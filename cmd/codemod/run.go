package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/codemod"
	"github.com/jward/codemod/internal/config"
	"github.com/jward/codemod/internal/metrics"
	"github.com/jward/codemod/scripts"
)

var (
	flagDryRun      bool
	flagDiff        bool
	flagIncremental bool
	flagParallel    bool
	flagWorkers     int
	flagInclude     []string
	flagExclude     []string
	flagScriptsDir  string
	flagDataDir     string
	flagMetricsFile string
)

var runCmd = &cobra.Command{
	Use:   "run <codemod> [path]",
	Short: "Run a codemod over a file or directory",
	Long:  "Runs the named codemod over every JavaScript and TypeScript file under path (default: the current directory) and records the outcome of each file.",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runRun,
}

func init() {
	f := runCmd.Flags()
	f.BoolVar(&flagDryRun, "dry-run", false, "compute changes without writing files")
	f.BoolVar(&flagDiff, "diff", false, "print a unified diff of each change (requires --dry-run)")
	f.BoolVar(&flagIncremental, "incremental", false, "skip files this codemod already processed at their current content")
	f.BoolVar(&flagParallel, "parallel", true, "transform files on a worker pool")
	f.IntVar(&flagWorkers, "workers", 0, "worker count for --parallel (default: one per CPU)")
	f.StringSliceVar(&flagInclude, "include", nil, "only process paths matching these globs")
	f.StringSliceVar(&flagExclude, "exclude", nil, "skip paths matching these globs")
	f.StringVar(&flagScriptsDir, "scripts-dir", "", "load codemod scripts from disk path instead of embedded")
	f.StringVar(&flagDataDir, "data-dir", "", "write data emitted by codemods as JSON under this directory")
	f.StringVar(&flagMetricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after the run")
}

// applyRunFlags overrides cfg with the run flags the user set explicitly.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("dry-run") {
		cfg.Run.DryRun = flagDryRun
	}
	if flags.Changed("diff") {
		cfg.Run.Diff = flagDiff
	}
	if flags.Changed("incremental") {
		cfg.Run.Incremental = flagIncremental
	}
	if flags.Changed("parallel") {
		cfg.Run.Parallel = flagParallel
	}
	if flags.Changed("workers") {
		cfg.Run.Workers = flagWorkers
	}
	if flags.Changed("include") {
		cfg.Run.Include = flagInclude
	}
	if flags.Changed("exclude") {
		cfg.Run.Exclude = flagExclude
	}
	if flags.Changed("scripts-dir") {
		cfg.ScriptsDir = flagScriptsDir
	}
	if flags.Changed("metrics-file") {
		cfg.Metrics.Textfile = flagMetricsFile
	}
	return cfg.Validate()
}

func runRun(cmd *cobra.Command, args []string) error {
	name := args[0]
	if _, err := codemod.Lookup(name); err != nil {
		return outputError("run", err)
	}

	target, err := resolveTarget(args[1:])
	if err != nil {
		return outputError("run", err)
	}
	startDir := target
	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		startDir = filepath.Dir(target)
	}
	repoRoot := findRepoRoot(startDir)

	cfg, err := loadConfig(repoRoot)
	if err != nil {
		return outputError("run", err)
	}
	if err := applyRunFlags(cmd, cfg); err != nil {
		return outputError("run", fmt.Errorf("config: %w", err))
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return outputError("run", err)
	}

	dbPath := resolveDBPath(repoRoot, cfg)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return outputError("run", fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err))
	}

	rec := metrics.NewRecorder()
	opts := []codemod.Option{
		codemod.WithLogger(logger),
		codemod.WithMetrics(rec),
		codemod.WithParallel(cfg.Run.Parallel),
		codemod.WithWorkers(cfg.Run.Workers),
		codemod.WithDryRun(cfg.Run.DryRun),
		codemod.WithDiff(cfg.Run.Diff),
		codemod.WithIncremental(cfg.Run.Incremental),
		codemod.WithInclude(cfg.Run.Include...),
		codemod.WithExclude(cfg.Run.Exclude...),
	}
	if flagDataDir != "" {
		opts = append(opts, codemod.WithDataDir(flagDataDir))
	}

	// Script source: scripts_dir overrides embedded FS.
	scriptsDir := cfg.ScriptsDir
	if scriptsDir == "" {
		opts = append(opts, codemod.WithScriptsFS(scripts.FS))
	} else if !filepath.IsAbs(scriptsDir) {
		scriptsDir = filepath.Join(repoRoot, scriptsDir)
	}

	engine, err := codemod.New(dbPath, scriptsDir, opts...)
	if err != nil {
		return outputError("run", fmt.Errorf("creating engine: %w", err))
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	summary, err := engine.Run(ctx, name, target)
	if err != nil {
		return outputError("run", err)
	}

	if cfg.Metrics.Textfile != "" {
		if err := rec.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn("writing metrics textfile", "path", cfg.Metrics.Textfile, "error", err)
		}
	}

	fmt.Fprintf(os.Stderr, "Ran %s on %s in %s (changed: %d, unchanged: %d, failed: %d, skipped: %d)\n",
		name, target, summary.Duration.Round(time.Millisecond),
		summary.Changed, summary.Unchanged, summary.Failed, summary.Skipped)
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)

	if err := outputResult("run", toCLIRun(summary)); err != nil {
		return err
	}
	return summary.Err()
}
