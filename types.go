package codemod

import "github.com/jward/codemod/internal/store"

// Public aliases for the ledger types returned by History and
// FileResults.

type Run = store.Run
type FileResult = store.FileResult

// Result statuses recorded per file.
const (
	StatusChanged   = store.StatusChanged
	StatusUnchanged = store.StatusUnchanged
	StatusFailed    = store.StatusFailed
	StatusSkipped   = store.StatusSkipped
)
