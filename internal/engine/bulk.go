package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/kickoff/internal/submission"
)

// ItemFailure records one item a batch operation could not process.
type ItemFailure struct {
	ID  string `json:"id"`
	Err error  `json:"-"`
}

// BulkResult summarizes a bulk decision.
type BulkResult struct {
	Matched   int           `json:"matched"`
	Succeeded int           `json:"succeeded"`
	Failed    []ItemFailure `json:"failed,omitempty"`
}

// FailedIDs returns the ids of failed items in processing order.
func (r BulkResult) FailedIDs() []string {
	return failedIDs(r.Failed)
}

func failedIDs(failed []ItemFailure) []string {
	ids := make([]string, len(failed))
	for i, f := range failed {
		ids[i] = f.ID
	}
	return ids
}

// BulkApprove approves every pending submission in category, one at a
// time. An empty category matches every pending submission.
//
// Items go through Decide, so a concurrent moderator decision on the same
// id simply shows up as a failed item. The batch continues past failures;
// only ctx cancellation stops it early, returning the partial result.
func (e *Engine) BulkApprove(ctx context.Context, category string) (BulkResult, error) {
	pending, err := e.store.ListPending(ctx)
	if err != nil {
		return BulkResult{}, newError(CodeStoreUnavailable, "", "list pending", err)
	}

	want := submission.NormalizeCategory(category)
	var targets []string
	for _, sub := range pending {
		if want == "" || submission.NormalizeCategory(sub.Category) == want {
			targets = append(targets, sub.ID)
		}
	}

	e.logger.Info("bulk approve started", "category", want, "matched", len(targets))
	res, err := e.decideAll(ctx, targets, submission.DecisionApprove, e.bulkDelay)
	e.logger.Info("bulk approve finished",
		"category", want,
		"succeeded", res.Succeeded,
		"failed", len(res.Failed),
	)
	return res, err
}

// BulkReject rejects every pending submission created more than olderThan
// ago. Nothing is published. olderThan must be positive.
func (e *Engine) BulkReject(ctx context.Context, olderThan time.Duration) (BulkResult, error) {
	if olderThan <= 0 {
		return BulkResult{}, fmt.Errorf("bulk reject: age must be positive, got %s", olderThan)
	}
	cutoff := e.clock.Now().Add(-olderThan)

	pending, err := e.store.ListPendingBefore(ctx, cutoff)
	if err != nil {
		return BulkResult{}, newError(CodeStoreUnavailable, "", "list pending", err)
	}

	targets := make([]string, len(pending))
	for i, sub := range pending {
		targets[i] = sub.ID
	}

	e.logger.Info("bulk reject started", "older_than", olderThan, "matched", len(targets))
	res, err := e.decideAll(ctx, targets, submission.DecisionReject, 0)
	e.logger.Info("bulk reject finished",
		"older_than", olderThan,
		"succeeded", res.Succeeded,
		"failed", len(res.Failed),
	)
	return res, err
}

// decideAll applies decision to ids sequentially, pausing delay between
// successful items.
func (e *Engine) decideAll(ctx context.Context, ids []string, decision submission.Decision, delay time.Duration) (BulkResult, error) {
	res := BulkResult{Matched: len(ids)}

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if _, err := e.Decide(ctx, id, decision); err != nil {
			e.logger.Warn("bulk item failed", "submission", id, "decision", decision, "error", err)
			res.Failed = append(res.Failed, ItemFailure{ID: id, Err: err})
			continue
		}
		res.Succeeded++

		if delay > 0 && i < len(ids)-1 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return res, ctx.Err()
			case <-t.C:
			}
		}
	}

	return res, nil
}
