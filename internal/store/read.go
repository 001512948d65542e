package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/kickoff/internal/submission"
)

// Get retrieves a single submission by id.
// Returns ErrNotFound if no row has that id.
func (s *Store) Get(ctx context.Context, id string) (submission.Submission, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE id = ?
	`, id)

	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return submission.Submission{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return submission.Submission{}, fmt.Errorf("get %s: %w", id, err)
	}
	return sub, nil
}

// Exists reports whether a submission with id is stored.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", id, err)
	}
	return count > 0, nil
}

// Count returns the number of stored submissions.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return count, nil
}

// ListPending returns every pending submission, newest first.
// Ties on created_at are broken by id so the order is deterministic.
//
// Returns an empty slice (not nil) when nothing is pending.
func (s *Store) ListPending(ctx context.Context) ([]submission.Submission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE status = 'pending'
		ORDER BY created_at DESC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query pending: %w", err)
	}
	return scanSubmissions(rows)
}

// ListPendingBefore returns pending submissions created strictly before
// cutoff, newest first.
func (s *Store) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]submission.Submission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE status = 'pending' AND created_at < ?
		ORDER BY created_at DESC, id COLLATE BINARY ASC
	`, toUnix(cutoff))
	if err != nil {
		return nil, fmt.Errorf("query pending before: %w", err)
	}
	return scanSubmissions(rows)
}

// Stats computes aggregate counts from the current rows in one scan.
// Nothing is cached, so the result cannot drift from the records.
func (s *Store) Stats(ctx context.Context) (submission.Stats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, category, COUNT(*)
		FROM submissions
		GROUP BY status, category
	`)
	if err != nil {
		return submission.Stats{}, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	stats := submission.Stats{PerCategory: map[string]int{}}
	for rows.Next() {
		var (
			status   string
			category string
			n        int
		)
		if err := rows.Scan(&status, &category, &n); err != nil {
			return submission.Stats{}, fmt.Errorf("scan stats: %w", err)
		}

		stats.Total += n
		stats.PerCategory[category] += n
		switch submission.Status(status) {
		case submission.StatusPending:
			stats.Pending += n
		case submission.StatusApproved:
			stats.Approved += n
		case submission.StatusRejected:
			stats.Rejected += n
		}
	}

	if err := rows.Err(); err != nil {
		return submission.Stats{}, fmt.Errorf("iterate stats: %w", err)
	}

	return stats, nil
}

// ExportAll returns every submission, optionally filtered by status,
// oldest first.
//
// The rows are read inside one transaction, so the result is a single
// point-in-time view. Submissions ingested while the export runs may or
// may not be included.
func (s *Store) ExportAll(ctx context.Context, filter *submission.Status) ([]submission.Submission, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("export: begin tx: %w", err)
	}
	defer tx.Rollback() // Read-only; never committed

	query := `SELECT ` + submissionColumns + ` FROM submissions`
	var args []any
	if filter != nil {
		query += ` WHERE status = ?`
		args = append(args, string(*filter))
	}
	query += ` ORDER BY created_at ASC, id COLLATE BINARY ASC`

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("export: query: %w", err)
	}
	return scanSubmissions(rows)
}
