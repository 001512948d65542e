package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/kickoff/internal/journal"
	"github.com/roach88/kickoff/internal/submission"
)

// DefaultRetention is how long decided submissions are kept.
const DefaultRetention = 30 * 24 * time.Hour

// Cleanup deletes decided submissions created more than window ago, and
// their journal entries, returning the number of store rows removed.
//
// Pending submissions are never touched, so cleanup can run at any time
// alongside ingestion and moderation. Repeated runs are no-ops.
//
// Journal entries are otherwise write-once. Removing them here keeps a
// later Restore from bringing purged submissions back as pending.
func (e *Engine) Cleanup(ctx context.Context, window time.Duration) (int, error) {
	if window <= 0 {
		return 0, fmt.Errorf("cleanup: retention window must be positive, got %s", window)
	}
	cutoff := e.clock.Now().Add(-window)

	ids, err := e.store.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, newError(CodeStoreUnavailable, "", "cleanup", err)
	}

	// Without this, Restore would bring purged submissions back as pending.
	for _, id := range ids {
		if err := e.journal.Remove(id); err != nil {
			e.logger.Warn("journal entry not pruned", "submission", id, "error", err)
		}
	}

	if len(ids) > 0 {
		e.logger.Info("old submissions removed", "count", len(ids), "cutoff", cutoff)
	}
	return len(ids), nil
}

// RestoreResult summarizes a journal replay.
type RestoreResult struct {
	Scanned  int           `json:"scanned"`
	Restored int           `json:"restored"`
	Skipped  int           `json:"skipped"`
	Failed   []ItemFailure `json:"failed,omitempty"`
}

// FailedIDs returns the journal refs or ids of entries that could not be
// restored.
func (r RestoreResult) FailedIDs() []string {
	return failedIDs(r.Failed)
}

// Restore rebuilds missing submissions from the journal.
//
// Every entry whose id is absent from the store becomes a pending
// submission (category re-derived from the payload, created_at taken from
// the entry). Entries whose id is present are left untouched, which makes
// the operation idempotent: a second run restores nothing. Unreadable
// entries are reported in Failed and skipped; a store failure aborts.
func (e *Engine) Restore(ctx context.Context) (RestoreResult, error) {
	var res RestoreResult

	err := e.journal.Scan(func(ref string, entry journal.Entry, readErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		res.Scanned++

		if readErr != nil {
			e.logger.Error("journal entry unreadable", "backup", ref, "error", readErr)
			res.Failed = append(res.Failed, ItemFailure{ID: ref, Err: readErr})
			return nil
		}

		exists, err := e.store.Exists(ctx, entry.ID)
		if err != nil {
			return newError(CodeStoreUnavailable, entry.ID, "restore lookup", err)
		}
		if exists {
			res.Skipped++
			return nil
		}

		payload, err := submission.Decode(entry.Payload)
		if err != nil {
			e.logger.Error("journal payload undecodable", "backup", ref, "error", err)
			res.Failed = append(res.Failed, ItemFailure{ID: entry.ID, Err: err})
			return nil
		}

		createdAt := entry.Timestamp
		if createdAt.IsZero() {
			createdAt = e.clock.Now()
		}

		sub := submission.Submission{
			ID:        entry.ID,
			Category:  payload.Category(),
			Status:    submission.StatusPending,
			Payload:   entry.Payload,
			CreatedAt: createdAt,
			BackupRef: ref,
		}
		if err := e.store.Put(ctx, sub); err != nil {
			return newError(CodeStoreUnavailable, entry.ID, "restore write", err)
		}

		res.Restored++
		e.logger.Info("submission restored", "submission", entry.ID, "category", sub.Category)
		return nil
	})
	if err != nil {
		var ee *Error
		if errors.As(err, &ee) {
			return res, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		return res, newError(CodeStoreUnavailable, "", "journal scan", err)
	}

	e.logger.Info("restore finished",
		"scanned", res.Scanned,
		"restored", res.Restored,
		"skipped", res.Skipped,
		"failed", len(res.Failed),
	)
	return res, nil
}
