package engine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/kickoff/internal/journal"
	"github.com/roach88/kickoff/internal/store"
	"github.com/roach88/kickoff/internal/submission"
	"github.com/roach88/kickoff/internal/testutil"
)

// testEnv wires an engine over a real SQLite store and journal in a
// temp directory.
type testEnv struct {
	engine   *Engine
	store    *store.Store
	journal  *journal.Journal
	notifier *testutil.RecordingNotifier
	clock    *testutil.ManualClock
}

func newTestEnv(t *testing.T, ids ...string) *testEnv {
	t.Helper()
	return newTestEnvWith(t, nil, nil, ids...)
}

// newTestEnvWith lets a test wrap the store or journal with a fault injector.
func newTestEnvWith(t *testing.T, wrapStore func(*store.Store) Store, wrapJournal func(*journal.Journal) Journal, ids ...string) *testEnv {
	t.Helper()
	dir := t.TempDir()

	st, err := store.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	jr, err := journal.Open(filepath.Join(dir, "backups"))
	require.NoError(t, err)

	env := &testEnv{
		store:    st,
		journal:  jr,
		notifier: testutil.NewRecordingNotifier(),
		clock:    testutil.NewManualClock(),
	}

	var s Store = st
	if wrapStore != nil {
		s = wrapStore(st)
	}
	var j Journal = jr
	if wrapJournal != nil {
		j = wrapJournal(jr)
	}

	env.engine = New(s, j,
		WithNotifier(env.notifier),
		WithClock(env.clock),
		WithIDGenerator(submission.NewFixedGenerator(ids...)),
		WithLogger(discardLogger()),
		WithBulkDelay(0),
		WithNotifyTimeout(time.Second),
	)
	t.Cleanup(env.engine.Wait)
	return env
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// formPayload builds a minimal valid webhook body for category.
func formPayload(category string) []byte {
	body := map[string]any{
		"eventId":   "evt-" + category,
		"eventType": "FORM_RESPONSE",
		"data": map[string]any{
			"formName": category,
			"fields": []any{
				map[string]any{"key": "question_name", "label": "Name", "type": "INPUT_TEXT", "value": "Ada"},
			},
		},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		panic(err)
	}
	return raw
}

func (env *testEnv) ingest(t *testing.T, category string) submission.Submission {
	t.Helper()
	sub, err := env.engine.Ingest(context.Background(), formPayload(category))
	require.NoError(t, err)
	return sub
}

func (env *testEnv) decide(t *testing.T, id string, d submission.Decision) Outcome {
	t.Helper()
	out, err := env.engine.Decide(context.Background(), id, d)
	require.NoError(t, err)
	return out
}

func (env *testEnv) status(t *testing.T, id string) submission.Status {
	t.Helper()
	sub, err := env.store.Get(context.Background(), id)
	require.NoError(t, err)
	return sub.Status
}

var errInjected = errors.New("injected failure")

// failingJournal rejects every write.
type failingJournal struct {
	*journal.Journal
}

func (failingJournal) Write(string, time.Time, []byte) (string, error) {
	return "", errInjected
}

// failingPutStore rejects every insert.
type failingPutStore struct {
	*store.Store
}

func (failingPutStore) Put(context.Context, submission.Submission) error {
	return errInjected
}

// staleStore serves ListPending from a snapshot, as if a moderator
// decided items between the listing and the bulk loop.
type staleStore struct {
	*store.Store
	snapshot []submission.Submission
}

func (s *staleStore) ListPending(context.Context) ([]submission.Submission, error) {
	return s.snapshot, nil
}
