package codemod

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	goruntime "runtime"
	"sync"
	"time"

	"github.com/jward/codemod/internal/jsast"
	"github.com/jward/codemod/internal/store"
)

// runner carries the per-run state shared by the three phases.
type runner struct {
	e         *Engine
	name      string
	root      string
	runID     string
	transform Transform
	useLedger bool
}

// workItem holds everything a transform worker needs.
type workItem struct {
	path string
	rel  string
	src  []byte
	hash string
}

// workResult is what a worker hands to the commit phase.
type workResult struct {
	item    workItem
	cmds    []Command
	err     error
	elapsed time.Duration
}

// runParallel processes files using a three-phase parallel pipeline:
//
//	Phase A (serial):   Filter, read, hash and incremental check.
//	Phase B (parallel): Parse and transform via worker pool.
//	Phase C (serial):   Apply commands, then commit the ledger in one batch.
func (r *runner) runParallel(ctx context.Context, paths []string) ([]FileOutcome, error) {
	batch := store.NewBatch()

	// ---- Phase A: Serial file preparation ----
	var items []workItem
	var outcomes []FileOutcome
	for _, path := range paths {
		item, done, ok := r.prepare(path)
		if !ok {
			continue
		}
		if done != nil {
			outcomes = append(outcomes, r.record(batch, item, *done, 0))
			continue
		}
		items = append(items, item)
	}

	if len(items) > 0 {
		// ---- Phase B: Parallel transformation ----
		numWorkers := r.e.workers
		if numWorkers <= 0 {
			numWorkers = goruntime.NumCPU()
		}
		numWorkers = max(1, min(numWorkers, len(items)))

		workCh := make(chan workItem, len(items))
		for _, item := range items {
			workCh <- item
		}
		close(workCh)

		resultCh := make(chan workResult, len(items))

		var wg sync.WaitGroup
		for range numWorkers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				// Each work item gets its own parser and Risor VM.
				for item := range workCh {
					resultCh <- r.process(ctx, item)
				}
			}()
		}

		go func() {
			wg.Wait()
			close(resultCh)
		}()

		// ---- Phase C: Serial commit ----
		for res := range resultCh {
			outcomes = append(outcomes, r.commit(batch, res))
		}
	}

	if err := r.e.store.CommitBatch(batch); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// runSerial runs the same phases one file at a time, writing each result
// to the ledger as soon as it is known.
func (r *runner) runSerial(ctx context.Context, paths []string) ([]FileOutcome, error) {
	var outcomes []FileOutcome
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item, done, ok := r.prepare(path)
		if !ok {
			continue
		}
		if done != nil {
			outcomes = append(outcomes, r.record(r.e.store, item, *done, 0))
			continue
		}
		outcomes = append(outcomes, r.commit(r.e.store, r.process(ctx, item)))
	}
	return outcomes, nil
}

// prepare does Phase A work for a single file. ok is false for files the
// globs filter out; a non-nil outcome means the file is already settled
// (skipped or unreadable) and needs no transform.
func (r *runner) prepare(path string) (item workItem, done *FileOutcome, ok bool) {
	rel, err := filepath.Rel(r.root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	if !r.e.selected(rel) {
		return workItem{}, nil, false
	}
	item = workItem{path: path, rel: rel}

	content, err := os.ReadFile(path)
	if err != nil {
		return item, &FileOutcome{Path: rel, Status: StatusFailed, Err: fmt.Errorf("read %s: %w", rel, err)}, true
	}
	item.src = content
	item.hash = store.HashContent(content)

	if r.useLedger {
		seen, err := r.e.store.AlreadyProcessed(r.name, path, item.hash)
		if err != nil {
			return item, &FileOutcome{Path: rel, Status: StatusFailed, Err: err}, true
		}
		if seen {
			return item, &FileOutcome{Path: rel, Status: StatusSkipped}, true
		}
	}
	return item, nil, true
}

// process is Phase B: parse and transform one file.
func (r *runner) process(ctx context.Context, item workItem) (res workResult) {
	start := time.Now()
	res.item = item
	defer func() { res.elapsed = time.Since(start) }()

	f, err := jsast.Parse(ctx, item.path, item.src)
	if err != nil {
		res.err = err
		return res
	}
	defer f.Close()
	if err := f.CheckSyntax(); err != nil {
		res.err = err
		return res
	}

	res.cmds, res.err = r.transform.Transform(ctx, &FileInput{Path: item.path, Rel: item.rel, File: f})
	return res
}

// commit is Phase C for one transformed file: apply its commands and
// record the outcome.
func (r *runner) commit(w store.ResultWriter, res workResult) FileOutcome {
	rel := res.item.rel
	if res.err != nil {
		return r.record(w, res.item, FileOutcome{Path: rel, Status: StatusFailed, Err: fmt.Errorf("%s: %w", rel, res.err)}, res.elapsed)
	}

	cmds := dropNoops(res.item, res.cmds)
	if len(cmds) == 0 {
		return r.record(w, res.item, FileOutcome{Path: rel, Status: StatusUnchanged}, res.elapsed)
	}

	out := FileOutcome{Path: rel, Status: StatusChanged, Commands: cmds}
	diff, err := r.apply(res.item, cmds)
	if err != nil {
		out.Status = StatusFailed
		out.Err = fmt.Errorf("%s: %w", rel, err)
	}
	out.Diff = diff
	return r.record(w, res.item, out, res.elapsed)
}

// record writes the ledger row, metrics and log line for an outcome.
func (r *runner) record(w store.ResultWriter, item workItem, out FileOutcome, elapsed time.Duration) FileOutcome {
	fr := &store.FileResult{
		RunID:      r.runID,
		Path:       item.path,
		Codemod:    r.name,
		HashBefore: item.hash,
		Status:     out.Status,
	}
	switch out.Status {
	case StatusUnchanged:
		fr.HashAfter = item.hash
	case StatusChanged:
		fr.HashAfter = hashAfter(item, out.Commands)
	}
	if out.Err != nil {
		fr.Error = out.Err.Error()
	}
	if err := w.RecordResult(fr); err != nil && out.Err == nil {
		out.Status = StatusFailed
		out.Err = fmt.Errorf("%s: %w", out.Path, err)
	}

	if r.e.metrics != nil {
		r.e.metrics.ObserveFile(r.name, out.Status, elapsed)
		for _, c := range out.Commands {
			r.e.metrics.ObserveCommand(r.name, c.Kind())
		}
	}

	if out.Err != nil {
		r.e.logger.Warn("file failed", "codemod", r.name, "path", out.Path, "err", out.Err)
	} else {
		r.e.logger.Debug("file processed", "codemod", r.name, "path", out.Path, "status", out.Status)
	}
	return out
}
