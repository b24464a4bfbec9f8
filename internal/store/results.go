package store

import "fmt"

// FileResultsByRun returns a run's results ordered by path.
func (s *Store) FileResultsByRun(runID string) ([]*FileResult, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, path, codemod, hash_before, hash_after, status, error, processed_at
		 FROM file_results WHERE run_id = ? ORDER BY path, id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("file results by run: %w", err)
	}
	defer rows.Close()

	var results []*FileResult
	for rows.Next() {
		r := &FileResult{}
		if err := rows.Scan(&r.ID, &r.RunID, &r.Path, &r.Codemod, &r.HashBefore, &r.HashAfter,
			&r.Status, &r.Error, &r.ProcessedAt); err != nil {
			return nil, fmt.Errorf("file results by run: scan: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// AlreadyProcessed reports whether content with the given hash at path is
// the outcome of an earlier successful run of codemod that wrote to disk:
// either its output or input it left unchanged.
func (s *Store) AlreadyProcessed(codemod, path, hash string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM file_results fr JOIN runs r ON r.id = fr.run_id
		 WHERE fr.codemod = ? AND fr.path = ? AND fr.hash_after = ?
		   AND fr.status IN (?, ?) AND r.dry_run = FALSE`,
		codemod, path, hash, StatusChanged, StatusUnchanged,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("already processed: %w", err)
	}
	return n > 0, nil
}

// StatusCounts returns the number of results per status for a run.
func (s *Store) StatusCounts(runID string) (map[string]int, error) {
	rows, err := s.db.Query(
		"SELECT status, COUNT(*) FROM file_results WHERE run_id = ? GROUP BY status", runID,
	)
	if err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("status counts: scan: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
