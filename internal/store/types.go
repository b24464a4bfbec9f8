package store

import "time"

// Status values of a FileResult.
const (
	StatusChanged   = "changed"
	StatusUnchanged = "unchanged"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// Run is one invocation of a codemod over a directory tree.
type Run struct {
	ID           string
	Codemod      string
	Root         string
	DryRun       bool
	StartedAt    time.Time
	FinishedAt   *time.Time
	FilesTotal   int
	FilesChanged int
	FilesFailed  int
	FilesSkipped int
}

// FileResult records what a run did to one file. HashAfter equals
// HashBefore for unchanged files and is empty for failed ones.
type FileResult struct {
	ID          int64
	RunID       string
	Path        string
	Codemod     string
	HashBefore  string
	HashAfter   string
	Status      string
	Error       string
	ProcessedAt time.Time
}
