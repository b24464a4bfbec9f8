package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InsertRun records the start of a run. An empty ID is replaced with a new
// UUID, which is returned.
func (s *Store) InsertRun(r *Run) (string, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	_, err := s.db.Exec(
		"INSERT INTO runs (id, codemod, root, dry_run, started_at) VALUES (?, ?, ?, ?, ?)",
		r.ID, r.Codemod, r.Root, r.DryRun, r.StartedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return r.ID, nil
}

// FinishRun stores the final counts of a run and stamps its finish time.
func (s *Store) FinishRun(r *Run) error {
	now := time.Now()
	r.FinishedAt = &now
	res, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, files_total = ?, files_changed = ?, files_failed = ?, files_skipped = ?
		 WHERE id = ?`,
		now, r.FilesTotal, r.FilesChanged, r.FilesFailed, r.FilesSkipped, r.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run: unknown run %q", r.ID)
	}
	return nil
}

const runColumns = "id, codemod, root, dry_run, started_at, finished_at, files_total, files_changed, files_failed, files_skipped"

func scanRun(scanner interface{ Scan(...any) error }) (*Run, error) {
	r := &Run{}
	var finished sql.NullTime
	if err := scanner.Scan(&r.ID, &r.Codemod, &r.Root, &r.DryRun, &r.StartedAt, &finished,
		&r.FilesTotal, &r.FilesChanged, &r.FilesFailed, &r.FilesSkipped); err != nil {
		return nil, err
	}
	if finished.Valid {
		r.FinishedAt = &finished.Time
	}
	return r, nil
}

// RunByID returns a run, or nil if it does not exist.
func (s *Store) RunByID(id string) (*Run, error) {
	r, err := scanRun(s.db.QueryRow("SELECT "+runColumns+" FROM runs WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("run by id: %w", err)
	}
	return r, nil
}

// Runs returns the most recent runs first. limit <= 0 returns all runs.
func (s *Store) Runs(limit int) ([]*Run, error) {
	q := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, rowid DESC"
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("runs: scan: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
