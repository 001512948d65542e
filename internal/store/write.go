package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/roach88/kickoff/internal/submission"
)

// Put inserts a submission or overwrites the row with the same id.
//
// Overwriting is not an error: it is how idempotent re-ingestion and
// restore-without-duplication are expressed. The whole row is replaced,
// including status, so callers must only Put records they own.
func (s *Store) Put(ctx context.Context, sub submission.Submission) error {
	if sub.ID == "" {
		return fmt.Errorf("put submission: empty id")
	}
	if (sub.Status == submission.StatusPending) != (sub.DecidedAt == nil) {
		return fmt.Errorf("put submission %s: decided_at must be set iff status is terminal", sub.ID)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions
		(id, category, status, payload, created_at, decided_at, backup_ref)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category   = excluded.category,
			status     = excluded.status,
			payload    = excluded.payload,
			created_at = excluded.created_at,
			decided_at = excluded.decided_at,
			backup_ref = excluded.backup_ref
	`,
		sub.ID,
		sub.Category,
		string(sub.Status),
		string(sub.Payload),
		toUnix(sub.CreatedAt),
		decidedAtArg(sub.DecidedAt),
		sub.BackupRef,
	)
	if err != nil {
		return fmt.Errorf("put submission %s: %w", sub.ID, err)
	}

	return nil
}

// SetStatus moves a pending submission to a terminal status.
//
// The transition is a single conditional UPDATE, so two concurrent callers
// on the same id cannot both succeed: the loser finds no pending row and
// receives ErrInvalidTransition. ErrNotFound is returned when the id does
// not exist at all.
func (s *Store) SetStatus(ctx context.Context, id string, status submission.Status, decidedAt time.Time) error {
	if !submission.StatusPending.CanTransition(status) {
		return fmt.Errorf("set status %s to %q: %w", id, status, ErrInvalidTransition)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set status %s: begin tx: %w", id, err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		UPDATE submissions
		SET status = ?, decided_at = ?
		WHERE id = ? AND status = 'pending'
	`, string(status), toUnix(decidedAt), id)
	if err != nil {
		return fmt.Errorf("set status %s: update: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set status %s: rows affected: %w", id, err)
	}

	if rowsAffected == 0 {
		// Distinguish a missing row from one that was already decided.
		var current string
		err := tx.QueryRowContext(ctx, `SELECT status FROM submissions WHERE id = ?`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("set status %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("set status %s: select current: %w", id, err)
		}
		return fmt.Errorf("set status %s: already %s: %w", id, current, ErrInvalidTransition)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("set status %s: commit: %w", id, err)
	}

	return nil
}

// DeleteOlderThan removes decided submissions created before cutoff.
// Pending submissions are never deleted, whatever their age.
// Returns the number of rows removed.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ids, err := s.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

// PurgeOlderThan is DeleteOlderThan returning the removed ids, so the
// caller can prune matching journal entries.
func (s *Store) PurgeOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		DELETE FROM submissions
		WHERE created_at < ? AND status != 'pending'
		RETURNING id
	`, toUnix(cutoff))
	if err != nil {
		return nil, fmt.Errorf("delete older than %s: %w", cutoff.Format(time.RFC3339), err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("delete older than: scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("delete older than: iterate: %w", err)
	}

	sort.Strings(ids)
	return ids, nil
}

// DeleteAll removes every submission. Used to simulate store loss in
// tests and by the harness; the journal is unaffected.
func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM submissions`)
	if err != nil {
		return 0, fmt.Errorf("delete all: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete all: rows affected: %w", err)
	}
	return n, nil
}
