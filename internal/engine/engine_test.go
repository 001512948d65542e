package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kickoff/internal/journal"
	"github.com/roach88/kickoff/internal/store"
	"github.com/roach88/kickoff/internal/submission"
	"github.com/roach88/kickoff/internal/testutil"
)

func TestIngest_Valid(t *testing.T) {
	env := newTestEnv(t, "a1b2c3d4")
	ctx := context.Background()

	raw := formPayload("Student")
	sub, err := env.engine.Ingest(ctx, raw)
	require.NoError(t, err)

	assert.Equal(t, "a1b2c3d4", sub.ID)
	assert.Equal(t, "Student", sub.Category)
	assert.Equal(t, submission.StatusPending, sub.Status)
	assert.Nil(t, sub.DecidedAt)
	assert.Equal(t, testutil.DefaultEpoch, sub.CreatedAt)
	assert.Equal(t, "backup_a1b2c3d4.json", sub.BackupRef)
	assert.Equal(t, string(raw), string(sub.Payload))

	stored, err := env.store.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.Category, stored.Category)
	assert.Equal(t, string(raw), string(stored.Payload))

	entry, err := env.journal.Read(sub.ID)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(entry.Payload))
	assert.True(t, entry.Timestamp.Equal(sub.CreatedAt))

	env.engine.Wait()
	prompts := env.notifier.Prompts()
	require.Len(t, prompts, 1)
	assert.Equal(t, sub.ID, prompts[0].ID)
}

func TestIngest_InvalidPayload(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{"eventType":`},
		{"wrong event type", `{"eventType":"FORM_CREATED","data":{"fields":[]}}`},
		{"missing event type", `{"data":{"fields":[]}}`},
		{"missing data", `{"eventType":"FORM_RESPONSE"}`},
		{"missing fields", `{"eventType":"FORM_RESPONSE","data":{"formName":"Student"}}`},
		{"fields not a list", `{"eventType":"FORM_RESPONSE","data":{"fields":{}}}`},
		{"array body", `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// No ids declared: generating one would panic.
			env := newTestEnv(t)
			ctx := context.Background()

			_, err := env.engine.Ingest(ctx, []byte(tt.raw))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidPayload)
			assert.True(t, IsBenign(err))

			n, err := env.store.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)

			ids, err := env.journal.IDs()
			require.NoError(t, err)
			assert.Empty(t, ids)

			env.engine.Wait()
			assert.Empty(t, env.notifier.Prompts())
		})
	}
}

func TestIngest_MissingFormNameGivesEmptyCategory(t *testing.T) {
	env := newTestEnv(t, "nocat001")

	sub, err := env.engine.Ingest(context.Background(),
		[]byte(`{"eventType":"FORM_RESPONSE","data":{"fields":[]}}`))
	require.NoError(t, err)
	assert.Equal(t, "", sub.Category)
}

func TestIngest_NonStringInformationalFields(t *testing.T) {
	env := newTestEnv(t, "numid001")
	raw := `{"eventType":"FORM_RESPONSE","eventId":12345,"createdAt":1709287200,` +
		`"data":{"formId":9,"formName":"Student","fields":[]}}`

	sub, err := env.engine.Ingest(context.Background(), []byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "numid001", sub.ID)
	assert.Equal(t, "Student", sub.Category)
	assert.Equal(t, submission.StatusPending, env.status(t, sub.ID))
}

func TestIngest_CollidingIDOverwrites(t *testing.T) {
	env := newTestEnv(t, "dup00001", "dup00001")
	ctx := context.Background()

	env.ingest(t, "Student")
	env.clock.Advance(time.Minute)
	env.ingest(t, "Mentor")

	n, err := env.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	sub, err := env.store.Get(ctx, "dup00001")
	require.NoError(t, err)
	assert.Equal(t, "Mentor", sub.Category)

	ids, err := env.journal.IDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"dup00001"}, ids)
}

func TestIngest_JournalFailure(t *testing.T) {
	env := newTestEnvWith(t, nil, func(j *journal.Journal) Journal {
		return failingJournal{j}
	}, "jfail001")
	ctx := context.Background()

	_, err := env.engine.Ingest(ctx, formPayload("Student"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, errInjected)

	var ee *Error
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "jfail001", ee.SubmissionID)

	n, err := env.store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	env.engine.Wait()
	assert.Empty(t, env.notifier.Prompts())
}

func TestIngest_StoreFailureLeavesRecoverableJournalEntry(t *testing.T) {
	env := newTestEnvWith(t, func(s *store.Store) Store {
		return failingPutStore{s}
	}, nil, "orphan01")
	ctx := context.Background()

	_, err := env.engine.Ingest(ctx, formPayload("Student"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	ids, err := env.journal.IDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"orphan01"}, ids)

	// A healthy engine over the same journal repairs the orphan.
	healthy := New(env.store, env.journal, WithClock(env.clock), WithLogger(discardLogger()))
	res, err := healthy.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Restored)
	assert.Equal(t, submission.StatusPending, env.status(t, "orphan01"))
}

func TestIngest_Concurrent(t *testing.T) {
	ids := make([]string, 20)
	for i := range ids {
		ids[i] = fmt.Sprintf("conc%04d", i)
	}
	env := newTestEnv(t, ids...)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, len(ids))
	for range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.engine.Ingest(ctx, formPayload("Student"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	stats, err := env.engine.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(ids), stats.Total)
	assert.Equal(t, len(ids), stats.Pending)
}

func TestDecide_ApprovePublishes(t *testing.T) {
	env := newTestEnv(t, "stud0001")
	sub := env.ingest(t, "Student")

	env.clock.Advance(5 * time.Minute)
	out := env.decide(t, sub.ID, submission.DecisionApprove)

	assert.Equal(t, submission.StatusApproved, out.Submission.Status)
	require.NotNil(t, out.Submission.DecidedAt)
	assert.Equal(t, testutil.DefaultEpoch.Add(5*time.Minute), *out.Submission.DecidedAt)

	require.NotNil(t, out.Publication)
	assert.Equal(t, sub.ID, out.Publication.SubmissionID)
	assert.Equal(t, "Student", out.Publication.Category)
	assert.Equal(t, []submission.DisplayField{
		{Key: "question_name", Label: "Name", Type: "INPUT_TEXT", Value: "Ada"},
	}, out.Publication.Fields)

	stored, err := env.store.Get(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, submission.StatusApproved, stored.Status)
	require.NotNil(t, stored.DecidedAt)
	assert.True(t, stored.DecidedAt.Equal(*out.Submission.DecidedAt))

	env.engine.Wait()
	assert.Equal(t, []string{sub.ID}, env.notifier.PublishedIDs())
}

func TestDecide_RejectDoesNotPublish(t *testing.T) {
	env := newTestEnv(t, "rej00001")
	sub := env.ingest(t, "Student")

	out := env.decide(t, sub.ID, submission.DecisionReject)
	assert.Equal(t, submission.StatusRejected, out.Submission.Status)
	assert.Nil(t, out.Publication)

	env.engine.Wait()
	assert.Empty(t, env.notifier.Published())
}

func TestDecide_RepeatIsAlreadyDecided(t *testing.T) {
	env := newTestEnv(t, "rep00001")
	ctx := context.Background()
	sub := env.ingest(t, "Student")

	first := env.decide(t, sub.ID, submission.DecisionApprove)
	env.clock.Advance(time.Hour)

	for _, d := range []submission.Decision{submission.DecisionApprove, submission.DecisionReject} {
		_, err := env.engine.Decide(ctx, sub.ID, d)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAlreadyDecided)
		assert.True(t, IsBenign(err))
		assert.Contains(t, err.Error(), sub.ID)
	}

	stored, err := env.store.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, submission.StatusApproved, stored.Status)
	assert.True(t, stored.DecidedAt.Equal(*first.Submission.DecidedAt))

	env.engine.Wait()
	assert.Len(t, env.notifier.Published(), 1)
}

func TestDecide_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.Decide(context.Background(), "missing1", submission.DecisionApprove)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, CodeNotFound, CodeOf(err))
	assert.Contains(t, err.Error(), "missing1")
}

// Approve and reject racing on one id: exactly one wins.
func TestDecide_RaceHasOneWinner(t *testing.T) {
	const rounds = 20
	ids := make([]string, rounds)
	for i := range ids {
		ids[i] = fmt.Sprintf("race%04d", i)
	}
	env := newTestEnv(t, ids...)
	ctx := context.Background()

	for _, id := range ids {
		env.ingest(t, "Student")

		var wg sync.WaitGroup
		results := make([]error, 2)
		for i, d := range []submission.Decision{submission.DecisionApprove, submission.DecisionReject} {
			i, d := i, d
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, results[i] = env.engine.Decide(ctx, id, d)
			}()
		}
		wg.Wait()

		var wins, already int
		for _, err := range results {
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrAlreadyDecided):
				already++
			default:
				t.Fatalf("%s: unexpected error: %v", id, err)
			}
		}
		assert.Equal(t, 1, wins, id)
		assert.Equal(t, 1, already, id)

		status := env.status(t, id)
		if results[0] == nil {
			assert.Equal(t, submission.StatusApproved, status, id)
		} else {
			assert.Equal(t, submission.StatusRejected, status, id)
		}
	}

	env.engine.Wait()
	stats, err := env.engine.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats.Approved, len(env.notifier.Published()))
	assert.Zero(t, stats.Pending)
}

// Every decided record stays decided whatever is thrown at it.
func TestDecide_TransitionClosure(t *testing.T) {
	env := newTestEnv(t, "clos0001", "clos0002")
	ctx := context.Background()

	approved := env.ingest(t, "Student")
	rejected := env.ingest(t, "Student")
	env.decide(t, approved.ID, submission.DecisionApprove)
	env.decide(t, rejected.ID, submission.DecisionReject)

	for i := 0; i < 3; i++ {
		for _, id := range []string{approved.ID, rejected.ID} {
			for _, d := range []submission.Decision{submission.DecisionApprove, submission.DecisionReject} {
				_, err := env.engine.Decide(ctx, id, d)
				assert.ErrorIs(t, err, ErrAlreadyDecided)
			}
		}
		_, err := env.engine.BulkApprove(ctx, "")
		require.NoError(t, err)
		_, err = env.engine.BulkReject(ctx, 0)
		require.NoError(t, err)
		_, err = env.engine.Restore(ctx)
		require.NoError(t, err)
	}

	assert.Equal(t, submission.StatusApproved, env.status(t, approved.ID))
	assert.Equal(t, submission.StatusRejected, env.status(t, rejected.ID))
}

func TestDecide_PublishFailureKeepsApproval(t *testing.T) {
	env := newTestEnv(t, "pubf0001")
	env.notifier.FailPublish = errInjected
	sub := env.ingest(t, "Student")

	out, err := env.engine.Decide(context.Background(), sub.ID, submission.DecisionApprove)
	require.NoError(t, err)
	assert.NotNil(t, out.Publication)

	env.engine.Wait()
	assert.Equal(t, submission.StatusApproved, env.status(t, sub.ID))
	assert.Equal(t, int64(1), env.engine.NotifierFailures())
	assert.Len(t, env.notifier.Published(), 1)
}

func TestDecide_UndecodablePayloadStillCommits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.Put(ctx, submission.Submission{
		ID:        "legacy01",
		Category:  "Student",
		Status:    submission.StatusPending,
		Payload:   []byte(`not json`),
		CreatedAt: testutil.DefaultEpoch,
	}))

	out, err := env.engine.Decide(ctx, "legacy01", submission.DecisionApprove)
	require.NoError(t, err)
	assert.Nil(t, out.Publication)
	assert.Equal(t, submission.StatusApproved, env.status(t, "legacy01"))

	env.engine.Wait()
	assert.Empty(t, env.notifier.Published())
	assert.Equal(t, int64(1), env.engine.NotifierFailures())
}

func TestListPending_NewestFirst(t *testing.T) {
	env := newTestEnv(t, "list0001", "list0002", "list0003")
	ctx := context.Background()

	env.ingest(t, "Student")
	env.clock.Advance(time.Minute)
	env.ingest(t, "Student")
	env.clock.Advance(time.Minute)
	env.ingest(t, "Student")
	env.decide(t, "list0002", submission.DecisionReject)

	pending, err := env.engine.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "list0003", pending[0].ID)
	assert.Equal(t, "list0001", pending[1].ID)
}

func TestGet_NotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNoNotifier(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(dir + "/test.db")
	require.NoError(t, err)
	defer st.Close()
	jr, err := journal.Open(dir + "/backups")
	require.NoError(t, err)

	e := New(st, jr,
		WithIDGenerator(submission.NewFixedGenerator("silent01")),
		WithLogger(discardLogger()),
	)
	sub, err := e.Ingest(context.Background(), formPayload("Student"))
	require.NoError(t, err)
	_, err = e.Decide(context.Background(), sub.ID, submission.DecisionApprove)
	require.NoError(t, err)
	e.Wait()
	assert.Zero(t, e.NotifierFailures())
}
