package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/kickoff/internal/journal"
	"github.com/roach88/kickoff/internal/store"
	"github.com/roach88/kickoff/internal/submission"
)

// Store is the durable submission record the engine drives.
// Implemented by *store.Store.
type Store interface {
	Put(ctx context.Context, sub submission.Submission) error
	Get(ctx context.Context, id string) (submission.Submission, error)
	Exists(ctx context.Context, id string) (bool, error)
	SetStatus(ctx context.Context, id string, status submission.Status, decidedAt time.Time) error
	ListPending(ctx context.Context) ([]submission.Submission, error)
	ListPendingBefore(ctx context.Context, cutoff time.Time) ([]submission.Submission, error)
	Stats(ctx context.Context) (submission.Stats, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) ([]string, error)
	ExportAll(ctx context.Context, filter *submission.Status) ([]submission.Submission, error)
}

// Journal is the independent backup written before every store insert.
// Implemented by *journal.Journal.
type Journal interface {
	Write(id string, ts time.Time, payload []byte) (string, error)
	Remove(id string) error
	Scan(fn func(ref string, entry journal.Entry, err error) error) error
}

const (
	// DefaultBulkDelay spaces bulk approvals to respect chat rate limits.
	DefaultBulkDelay = 500 * time.Millisecond

	// DefaultNotifyTimeout bounds each background notification.
	DefaultNotifyTimeout = 30 * time.Second
)

// Engine is the submission lifecycle state machine.
//
// Thread-safety: every method is safe for concurrent use. Atomicity of
// decisions is delegated to Store.SetStatus.
type Engine struct {
	store    Store
	journal  Journal
	notifier Notifier
	clock    Clock
	ids      submission.IDGenerator
	logger   *slog.Logger

	bulkDelay     time.Duration
	notifyTimeout time.Duration

	wg             sync.WaitGroup
	notifyFailures atomic.Int64
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithNotifier sets the outbound chat port. Without one, no
// notifications are sent.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithClock overrides the wall clock (tests use testutil.ManualClock).
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithIDGenerator overrides id assignment (tests use submission.FixedGenerator).
func WithIDGenerator(g submission.IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithBulkDelay sets the pause between bulk approvals.
//
// Default: 500ms (DefaultBulkDelay). Use WithBulkDelay(0) in tests.
func WithBulkDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.bulkDelay = d
	}
}

// WithNotifyTimeout bounds each background notification.
func WithNotifyTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.notifyTimeout = d
	}
}

// New creates an Engine over the given store and journal.
func New(s Store, j Journal, opts ...Option) *Engine {
	e := &Engine{
		store:         s,
		journal:       j,
		clock:         SystemClock{},
		ids:           submission.RandomIDGenerator{},
		logger:        slog.Default(),
		bulkDelay:     DefaultBulkDelay,
		notifyTimeout: DefaultNotifyTimeout,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Outcome is the result of a successful decision.
type Outcome struct {
	Submission submission.Submission

	// Publication is set for approvals whose payload could be decoded.
	Publication *submission.Publication
}

// Ingest validates raw, records it and returns the new pending submission.
//
// Exactly one journal entry and one store row are created per successful
// call; a payload that fails validation creates neither. The journal is
// written first, so the only possible partial failure is a journal entry
// without a store row, which Restore repairs.
func (e *Engine) Ingest(ctx context.Context, raw []byte) (submission.Submission, error) {
	payload, err := submission.Parse(raw)
	if err != nil {
		e.logger.Warn("payload rejected", "error", err, "size", len(raw))
		return submission.Submission{}, newError(CodeInvalidPayload, "", "payload failed validation", err)
	}

	id := e.ids.Generate()
	now := e.clock.Now()

	ref, err := e.journal.Write(id, now, raw)
	if err != nil {
		e.logger.Error("journal write failed", "submission", id, "error", err)
		return submission.Submission{}, newError(CodeStoreUnavailable, id, "journal write failed", err)
	}

	sub := submission.Submission{
		ID:        id,
		Category:  payload.Category(),
		Status:    submission.StatusPending,
		Payload:   append([]byte(nil), raw...),
		CreatedAt: now,
		BackupRef: ref,
	}
	if err := e.store.Put(ctx, sub); err != nil {
		e.logger.Error("store write failed", "submission", id, "backup", ref, "error", err)
		return submission.Submission{}, newError(CodeStoreUnavailable, id, "store write failed", err)
	}

	e.logger.Info("submission ingested",
		"submission", id,
		"category", sub.Category,
		"fields", len(payload.Data.Fields),
	)

	e.dispatch("notify_moderators", id, func(ctx context.Context, n Notifier) error {
		return n.NotifyModerators(ctx, sub)
	})

	return sub, nil
}

// Decide applies a moderator decision to a pending submission.
//
// Returns NOT_FOUND for an unknown id and ALREADY_DECIDED when the
// submission is no longer pending; neither changes any state. When two
// callers race on one id, exactly one succeeds.
//
// For approvals the publication is dispatched after the status commit.
func (e *Engine) Decide(ctx context.Context, id string, decision submission.Decision) (Outcome, error) {
	status := decision.Status()

	sub, err := e.store.Get(ctx, id)
	if err != nil {
		return Outcome{}, e.storeError(id, "lookup failed", err)
	}
	if sub.Status != submission.StatusPending {
		return Outcome{}, newError(CodeAlreadyDecided, id, "already "+string(sub.Status), nil)
	}

	decidedAt := e.clock.Now()
	if err := e.store.SetStatus(ctx, id, status, decidedAt); err != nil {
		return Outcome{}, e.storeError(id, "status update failed", err)
	}

	sub.Status = status
	sub.DecidedAt = &decidedAt
	out := Outcome{Submission: sub}

	e.logger.Info("submission decided",
		"submission", id,
		"status", status,
		"category", sub.Category,
	)

	if decision == submission.DecisionApprove {
		pub, err := submission.NewPublication(sub)
		if err != nil {
			// Committed regardless; a moderator can republish by hand.
			e.notifyFailures.Add(1)
			e.logger.Error("publication not built",
				"submission", id,
				"error", newError(CodeNotifierFailure, id, "build publication", err),
			)
			return out, nil
		}
		out.Publication = &pub
		e.dispatch("publish_decision", id, func(ctx context.Context, n Notifier) error {
			return n.PublishDecision(ctx, pub)
		})
	}

	return out, nil
}

// Get returns a submission by id.
func (e *Engine) Get(ctx context.Context, id string) (submission.Submission, error) {
	sub, err := e.store.Get(ctx, id)
	if err != nil {
		return submission.Submission{}, e.storeError(id, "lookup failed", err)
	}
	return sub, nil
}

// ListPending returns the moderation queue, newest first.
func (e *Engine) ListPending(ctx context.Context) ([]submission.Submission, error) {
	subs, err := e.store.ListPending(ctx)
	if err != nil {
		return nil, newError(CodeStoreUnavailable, "", "list pending", err)
	}
	return subs, nil
}

// Wait blocks until every dispatched notification has finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// NotifierFailures returns how many notifications have failed since start.
func (e *Engine) NotifierFailures() int64 {
	return e.notifyFailures.Load()
}

// storeError maps store sentinels onto engine error codes.
func (e *Engine) storeError(id, message string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return newError(CodeNotFound, id, "unknown submission", nil)
	case errors.Is(err, store.ErrInvalidTransition):
		return newError(CodeAlreadyDecided, id, "submission already decided", nil)
	default:
		return newError(CodeStoreUnavailable, id, message, err)
	}
}
