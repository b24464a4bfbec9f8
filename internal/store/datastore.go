package store

// ResultWriter records per-file results. Store writes them straight to
// SQLite; Batch buffers them for a single transactional commit.
type ResultWriter interface {
	RecordResult(r *FileResult) error
}

// Compile-time checks.
var (
	_ ResultWriter = (*Store)(nil)
	_ ResultWriter = (*Batch)(nil)
)
