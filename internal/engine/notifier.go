package engine

import (
	"context"

	"github.com/roach88/kickoff/internal/submission"
)

// Notifier is the outbound port to the chat layer.
//
// Both calls are best-effort. The engine invokes them in the background
// after the corresponding state change has committed; an error is logged
// as NOTIFIER_FAILURE and never reverses that state.
//
// Implementations render the structured values themselves; the engine
// never produces display text.
type Notifier interface {
	// NotifyModerators asks a moderator to review a newly ingested submission.
	NotifyModerators(ctx context.Context, sub submission.Submission) error

	// PublishDecision publishes an approved submission to the public channel.
	PublishDecision(ctx context.Context, pub submission.Publication) error
}

// dispatch runs fn in the background with its own timeout.
// The caller's context is deliberately not used: the state change that
// triggered the notification has already committed.
func (e *Engine) dispatch(op, id string, fn func(ctx context.Context, n Notifier) error) {
	if e.notifier == nil {
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), e.notifyTimeout)
		defer cancel()

		if err := fn(ctx, e.notifier); err != nil {
			e.notifyFailures.Add(1)
			e.logger.Error("notification failed",
				"op", op,
				"submission", id,
				"error", newError(CodeNotifierFailure, id, op, err),
			)
			return
		}
		e.logger.Debug("notification delivered", "op", op, "submission", id)
	}()
}
