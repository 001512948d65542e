package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/kickoff/internal/engine"
	"github.com/roach88/kickoff/internal/submission"
)

// Multi delivers to every notifier in order. A failing notifier does not
// stop the others; their errors are joined.
type Multi []engine.Notifier

// NotifyModerators implements engine.Notifier.
func (m Multi) NotifyModerators(ctx context.Context, sub submission.Submission) error {
	var errs []error
	for i, n := range m {
		if err := n.NotifyModerators(ctx, sub); err != nil {
			errs = append(errs, fmt.Errorf("notifier %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// PublishDecision implements engine.Notifier.
func (m Multi) PublishDecision(ctx context.Context, pub submission.Publication) error {
	var errs []error
	for i, n := range m {
		if err := n.PublishDecision(ctx, pub); err != nil {
			errs = append(errs, fmt.Errorf("notifier %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
