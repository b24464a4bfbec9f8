package store

import (
	"database/sql"
	"fmt"
	"time"
)

// RecordResult inserts a single file result.
func (s *Store) RecordResult(r *FileResult) error {
	id, err := insertFileResultTx(s.db, r)
	if err != nil {
		return fmt.Errorf("record result %s: %w", r.Path, err)
	}
	r.ID = id
	return nil
}

// CommitBatch inserts all buffered results within a single transaction.
// Either every result of the batch is stored or none is.
func (s *Store) CommitBatch(batch *Batch) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	batch.mu.Lock()
	defer batch.mu.Unlock()
	for i := range batch.Results {
		r := &batch.Results[i]
		id, err := insertFileResultTx(tx, r)
		if err != nil {
			return fmt.Errorf("commit batch: %s: %w", r.Path, err)
		}
		r.ID = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertFileResultTx(db execer, r *FileResult) (int64, error) {
	if r.ProcessedAt.IsZero() {
		r.ProcessedAt = time.Now()
	}
	res, err := db.Exec(
		`INSERT INTO file_results (run_id, path, codemod, hash_before, hash_after, status, error, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Path, r.Codemod, r.HashBefore, r.HashAfter, r.Status, r.Error, r.ProcessedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
