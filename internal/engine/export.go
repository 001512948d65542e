package engine

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/roach88/kickoff/internal/submission"
)

// ExportHeader is the column order of Export.
var ExportHeader = []string{"id", "category", "status", "created_at", "decided_at", "payload"}

// Stats returns aggregate counts computed from the current store rows.
func (e *Engine) Stats(ctx context.Context) (submission.Stats, error) {
	stats, err := e.store.Stats(ctx)
	if err != nil {
		return submission.Stats{}, newError(CodeStoreUnavailable, "", "stats", err)
	}
	return stats, nil
}

// List returns submissions with the given status. The pending queue is
// newest first; any other listing, including a nil filter, is oldest first.
func (e *Engine) List(ctx context.Context, filter *submission.Status) ([]submission.Submission, error) {
	if filter != nil && *filter == submission.StatusPending {
		return e.ListPending(ctx)
	}
	subs, err := e.store.ExportAll(ctx, filter)
	if err != nil {
		return nil, newError(CodeStoreUnavailable, "", "list", err)
	}
	return subs, nil
}

// Export writes matching submissions to w as CSV, oldest first, and
// returns the number of records written. A nil filter exports everything.
//
// The rows come from one store snapshot. Submissions ingested while the
// export runs may or may not appear; callers must not rely on either.
func (e *Engine) Export(ctx context.Context, w io.Writer, filter *submission.Status) (int, error) {
	subs, err := e.store.ExportAll(ctx, filter)
	if err != nil {
		return 0, newError(CodeStoreUnavailable, "", "export", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return 0, fmt.Errorf("export: write header: %w", err)
	}
	for _, sub := range subs {
		if err := cw.Write(exportRow(sub)); err != nil {
			return 0, fmt.Errorf("export %s: %w", sub.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("export: flush: %w", err)
	}

	return len(subs), nil
}

func exportRow(sub submission.Submission) []string {
	decided := ""
	if sub.DecidedAt != nil {
		decided = sub.DecidedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		sub.ID,
		sub.Category,
		string(sub.Status),
		sub.CreatedAt.UTC().Format(time.RFC3339),
		decided,
		string(sub.Payload),
	}
}
