package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kickoff/internal/store"
	"github.com/roach88/kickoff/internal/submission"
)

func TestBulkApprove_ByCategory(t *testing.T) {
	env := newTestEnv(t, "a0000001", "a0000002", "a0000003", "b0000001", "b0000002")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		env.ingest(t, "A")
	}
	env.ingest(t, "B")
	env.ingest(t, "B")

	res, err := env.engine.BulkApprove(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Matched)
	assert.Equal(t, 3, res.Succeeded)
	assert.Empty(t, res.Failed)

	stats, err := env.engine.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Approved)
	assert.Equal(t, 2, stats.Pending)

	env.engine.Wait()
	assert.ElementsMatch(t, []string{"a0000001", "a0000002", "a0000003"}, env.notifier.PublishedIDs())
}

func TestBulkApprove_EmptyCategoryMatchesAll(t *testing.T) {
	env := newTestEnv(t, "all00001", "all00002", "all00003")
	ctx := context.Background()

	env.ingest(t, "A")
	env.ingest(t, "B")
	env.ingest(t, "")

	res, err := env.engine.BulkApprove(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Succeeded)

	stats, err := env.engine.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Pending)
}

func TestBulkApprove_NormalizesFilter(t *testing.T) {
	env := newTestEnv(t, "cafe0001", "cafe0002")
	ctx := context.Background()

	env.ingest(t, "Café")
	env.ingest(t, "Café")

	res, err := env.engine.BulkApprove(ctx, "  Café ")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)
}

func TestBulkApprove_NoMatches(t *testing.T) {
	env := newTestEnv(t, "none0001")
	env.ingest(t, "A")

	res, err := env.engine.BulkApprove(context.Background(), "Z")
	require.NoError(t, err)
	assert.Zero(t, res.Matched)
	assert.Zero(t, res.Succeeded)
	assert.Equal(t, submission.StatusPending, env.status(t, "none0001"))
}

// An item decided between listing and processing shows up as a failure
// and the rest of the batch still runs.
func TestBulkApprove_ConcurrentDecisionIsItemFailure(t *testing.T) {
	var stale *staleStore
	env := newTestEnvWith(t, func(s *store.Store) Store {
		stale = &staleStore{Store: s}
		return stale
	}, nil, "stal0001", "stal0002", "stal0003")
	ctx := context.Background()

	env.ingest(t, "A")
	env.ingest(t, "A")
	env.ingest(t, "A")

	snapshot, err := env.store.ListPending(ctx)
	require.NoError(t, err)
	stale.snapshot = snapshot

	env.decide(t, "stal0002", submission.DecisionReject)

	res, err := env.engine.BulkApprove(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Matched)
	assert.Equal(t, 2, res.Succeeded)
	require.Equal(t, []string{"stal0002"}, res.FailedIDs())
	assert.True(t, errors.Is(res.Failed[0].Err, ErrAlreadyDecided))

	assert.Equal(t, submission.StatusRejected, env.status(t, "stal0002"))
}

func TestBulkApprove_Cancelled(t *testing.T) {
	env := newTestEnv(t, "canc0001", "canc0002")
	env.ingest(t, "A")
	env.ingest(t, "A")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := env.engine.BulkApprove(ctx, "A")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Succeeded)
}

func TestBulkApprove_DelayHonorsCancellation(t *testing.T) {
	env := newTestEnv(t, "slow0001", "slow0002")
	env.engine.bulkDelay = time.Hour
	env.ingest(t, "A")
	env.ingest(t, "A")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	res, err := env.engine.BulkApprove(ctx, "A")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, res.Succeeded)
	assert.Less(t, time.Since(start), time.Minute)

	stats, err := env.engine.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Approved)
	assert.Equal(t, 1, stats.Pending)
}

func TestBulkReject_ByAge(t *testing.T) {
	env := newTestEnv(t, "old00001", "old00002", "new00001")
	ctx := context.Background()

	env.ingest(t, "A")
	env.ingest(t, "B")
	env.clock.Advance(8 * 24 * time.Hour)
	env.ingest(t, "A")

	res, err := env.engine.BulkReject(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)
	assert.Empty(t, res.Failed)

	assert.Equal(t, submission.StatusRejected, env.status(t, "old00001"))
	assert.Equal(t, submission.StatusRejected, env.status(t, "old00002"))
	assert.Equal(t, submission.StatusPending, env.status(t, "new00001"))

	env.engine.Wait()
	assert.Empty(t, env.notifier.Published())

	// Second run finds nothing left to reject.
	res, err = env.engine.BulkReject(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, res.Matched)
}

func TestBulkReject_RejectsNonPositiveAge(t *testing.T) {
	env := newTestEnv(t, "fresh001")
	env.ingest(t, "A")

	for _, age := range []time.Duration{0, -time.Hour} {
		_, err := env.engine.BulkReject(context.Background(), age)
		assert.Error(t, err)
	}
	assert.Equal(t, submission.StatusPending, env.status(t, "fresh001"))
}
