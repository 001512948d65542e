package testutil

import (
	"context"
	"sync"

	"github.com/roach88/kickoff/internal/submission"
)

// RecordingNotifier captures every notification for assertions.
//
// Set FailNotify or FailPublish to make the corresponding call return
// that error after recording it.
//
// Thread-safety: safe for concurrent use; the engine calls it from
// background goroutines.
type RecordingNotifier struct {
	mu          sync.Mutex
	prompts     []submission.Submission
	published   []submission.Publication
	FailNotify  error
	FailPublish error
}

// NewRecordingNotifier creates an empty recorder.
func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

// NotifyModerators records sub.
func (n *RecordingNotifier) NotifyModerators(_ context.Context, sub submission.Submission) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.prompts = append(n.prompts, sub)
	return n.FailNotify
}

// PublishDecision records pub.
func (n *RecordingNotifier) PublishDecision(_ context.Context, pub submission.Publication) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.published = append(n.published, pub)
	return n.FailPublish
}

// Prompts returns a copy of the recorded moderator prompts.
func (n *RecordingNotifier) Prompts() []submission.Submission {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]submission.Submission(nil), n.prompts...)
}

// Published returns a copy of the recorded publications.
func (n *RecordingNotifier) Published() []submission.Publication {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]submission.Publication(nil), n.published...)
}

// PublishedIDs returns the submission ids of recorded publications.
func (n *RecordingNotifier) PublishedIDs() []string {
	pubs := n.Published()
	ids := make([]string, len(pubs))
	for i, p := range pubs {
		ids[i] = p.SubmissionID
	}
	return ids
}
