package notify

import (
	"context"
	"log/slog"

	"github.com/roach88/kickoff/internal/render"
	"github.com/roach88/kickoff/internal/submission"
)

// Log records notifications as structured log lines.
// Used when no chat credentials are configured.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a Log notifier. A nil logger means slog.Default().
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// NotifyModerators logs the moderator prompt.
func (l *Log) NotifyModerators(ctx context.Context, sub submission.Submission) error {
	l.logger.InfoContext(ctx, "moderation requested",
		"submission", sub.ID,
		"category", sub.Category,
	)
	l.logger.DebugContext(ctx, "moderator prompt", "submission", sub.ID, "text", render.ModeratorPrompt(sub))
	return nil
}

// PublishDecision logs the public message.
func (l *Log) PublishDecision(ctx context.Context, pub submission.Publication) error {
	l.logger.InfoContext(ctx, "submission published",
		"submission", pub.SubmissionID,
		"category", pub.Category,
		"text", render.PublicMessage(pub),
	)
	return nil
}
