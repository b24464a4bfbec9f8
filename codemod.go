package codemod

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jward/codemod/internal/jsast"
)

// ErrUnknownCodemod is returned for names that are not in the catalog.
var ErrUnknownCodemod = errors.New("codemod: unknown codemod")

// FileInput is what a Transform sees of one file.
type FileInput struct {
	// Path is the absolute path of the file.
	Path string
	// Rel is Path relative to the run root, with forward slashes.
	Rel  string
	File *jsast.File
}

// Transform rewrites a single file. It must not touch the filesystem; it
// returns the Commands the engine applies during the commit phase. A nil
// slice means the file is left unchanged.
type Transform interface {
	Transform(ctx context.Context, in *FileInput) ([]Command, error)
}

// TransformFunc adapts a function to Transform.
type TransformFunc func(ctx context.Context, in *FileInput) ([]Command, error)

func (f TransformFunc) Transform(ctx context.Context, in *FileInput) ([]Command, error) {
	return f(ctx, in)
}

// Command is a filesystem change requested by a Transform. The set of
// commands is closed: UpsertFile, UpsertData and DeleteFile.
type Command interface {
	// Kind names the command for logs, metrics and CLI output.
	Kind() string
	command()
}

// UpsertFile writes Data to Path, creating parent directories.
type UpsertFile struct {
	Path string
	Data []byte
}

// UpsertData records side output for Path. The engine writes it as JSON
// under its data directory when one is configured.
type UpsertData struct {
	Path string
	Data map[string]any
}

// DeleteFile removes Path.
type DeleteFile struct {
	Path string
}

func (UpsertFile) Kind() string { return "upsert_file" }
func (UpsertData) Kind() string { return "upsert_data" }
func (DeleteFile) Kind() string { return "delete_file" }

func (UpsertFile) command() {}
func (UpsertData) command() {}
func (DeleteFile) command() {}

// FileOutcome is the result of one file in a run.
type FileOutcome struct {
	Path     string    `json:"path"`
	Status   string    `json:"status"`
	Commands []Command `json:"-"`
	Diff     string    `json:"diff,omitempty"`
	Err      error     `json:"-"`
}

// RunSummary describes a finished run.
type RunSummary struct {
	RunID    string        `json:"run_id"`
	Codemod  string        `json:"codemod"`
	Root     string        `json:"root"`
	DryRun   bool          `json:"dry_run"`
	Files    []FileOutcome `json:"files"`
	Duration time.Duration `json:"duration"`

	Changed   int `json:"changed"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Err aggregates the per-file failures of the run, or returns nil.
func (s *RunSummary) Err() error {
	var errs []error
	for _, f := range s.Files {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("codemod: run had %d error(s): %w", len(errs), errs[0])
}
