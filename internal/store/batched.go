package store

import "sync"

// Batch buffers file results produced by concurrent workers until the
// serial commit phase writes them with CommitBatch.
type Batch struct {
	mu      sync.Mutex
	Results []FileResult
}

// NewBatch returns an empty Batch.
func NewBatch() *Batch {
	return &Batch{}
}

// RecordResult buffers a copy of r.
func (b *Batch) RecordResult(r *FileResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Results = append(b.Results, *r)
	return nil
}

// Len returns the number of buffered results.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Results)
}
