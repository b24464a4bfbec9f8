package main

import (
	"time"

	"github.com/jward/codemod"
)

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLICodemod is a catalog entry.
type CLICodemod struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

// CLIFileOutcome is one file of a finished run.
type CLIFileOutcome struct {
	Path     string   `json:"path"`
	Status   string   `json:"status"`
	Commands []string `json:"commands,omitempty"`
	Diff     string   `json:"diff,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// CLIRun is the result of the run command.
type CLIRun struct {
	RunID      string           `json:"run_id"`
	Codemod    string           `json:"codemod"`
	Root       string           `json:"root"`
	DryRun     bool             `json:"dry_run"`
	DurationMs int64            `json:"duration_ms"`
	Changed    int              `json:"changed"`
	Unchanged  int              `json:"unchanged"`
	Failed     int              `json:"failed"`
	Skipped    int              `json:"skipped"`
	Files      []CLIFileOutcome `json:"files"`
}

// CLIRunRecord is a run read back from the database.
type CLIRunRecord struct {
	ID         string     `json:"id"`
	Codemod    string     `json:"codemod"`
	Root       string     `json:"root"`
	DryRun     bool       `json:"dry_run"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Total      int        `json:"files_total"`
	Changed    int        `json:"files_changed"`
	Failed     int        `json:"files_failed"`
	Skipped    int        `json:"files_skipped"`
}

// CLIFileResult is a recorded file result.
type CLIFileResult struct {
	Path       string `json:"path"`
	Status     string `json:"status"`
	HashBefore string `json:"hash_before,omitempty"`
	HashAfter  string `json:"hash_after,omitempty"`
	Error      string `json:"error,omitempty"`
}

func toCLIRun(s *codemod.RunSummary) CLIRun {
	out := CLIRun{
		RunID:      s.RunID,
		Codemod:    s.Codemod,
		Root:       s.Root,
		DryRun:     s.DryRun,
		DurationMs: s.Duration.Milliseconds(),
		Changed:    s.Changed,
		Unchanged:  s.Unchanged,
		Failed:     s.Failed,
		Skipped:    s.Skipped,
		Files:      make([]CLIFileOutcome, 0, len(s.Files)),
	}
	for _, f := range s.Files {
		fo := CLIFileOutcome{Path: f.Path, Status: f.Status, Diff: f.Diff}
		for _, c := range f.Commands {
			fo.Commands = append(fo.Commands, c.Kind())
		}
		if f.Err != nil {
			fo.Error = f.Err.Error()
		}
		out.Files = append(out.Files, fo)
	}
	return out
}

func toCLIRunRecord(r *codemod.Run) CLIRunRecord {
	return CLIRunRecord{
		ID:         r.ID,
		Codemod:    r.Codemod,
		Root:       r.Root,
		DryRun:     r.DryRun,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Total:      r.FilesTotal,
		Changed:    r.FilesChanged,
		Failed:     r.FilesFailed,
		Skipped:    r.FilesSkipped,
	}
}

func toCLIFileResult(r *codemod.FileResult) CLIFileResult {
	return CLIFileResult{
		Path:       r.Path,
		Status:     r.Status,
		HashBefore: r.HashBefore,
		HashAfter:  r.HashAfter,
		Error:      r.Error,
	}
}
