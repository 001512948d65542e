package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kickoff/internal/submission"
)

func TestPut_InsertAndGet(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	sub := createTestSubmission("abc12345", "Student", baseTime)
	require.NoError(t, s.Put(ctx, sub))

	got, err := s.Get(ctx, "abc12345")
	require.NoError(t, err)
	assert.Equal(t, sub.ID, got.ID)
	assert.Equal(t, "Student", got.Category)
	assert.Equal(t, submission.StatusPending, got.Status)
	assert.JSONEq(t, string(sub.Payload), string(got.Payload))
	assert.True(t, baseTime.Equal(got.CreatedAt))
	assert.Nil(t, got.DecidedAt)
	assert.Equal(t, "backup_abc12345.json", got.BackupRef)
}

func TestPut_OverwritesSameID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := createTestSubmission("dup00001", "Student", baseTime)
	second := createTestSubmission("dup00001", "Startup", baseTime.Add(time.Minute))

	require.NoError(t, s.Put(ctx, first))
	require.NoError(t, s.Put(ctx, second))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.Get(ctx, "dup00001")
	require.NoError(t, err)
	assert.Equal(t, "Startup", got.Category)
}

func TestPut_RejectsInconsistentDecidedAt(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	sub := createTestSubmission("bad00001", "x", baseTime)
	sub.Status = submission.StatusApproved
	assert.Error(t, s.Put(ctx, sub))

	sub = createTestSubmission("bad00002", "x", baseTime)
	now := baseTime
	sub.DecidedAt = &now
	assert.Error(t, s.Put(ctx, sub))
}

func TestSetStatus_Approve(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, createTestSubmission("s1", "A", baseTime)))

	decided := baseTime.Add(time.Hour)
	require.NoError(t, s.SetStatus(ctx, "s1", submission.StatusApproved, decided))

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, submission.StatusApproved, got.Status)
	require.NotNil(t, got.DecidedAt)
	assert.True(t, decided.Equal(*got.DecidedAt))
}

func TestSetStatus_NotFound(t *testing.T) {
	s := createTestStore(t)

	err := s.SetStatus(context.Background(), "missing", submission.StatusRejected, baseTime)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetStatus_TerminalIsClosed(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, createTestSubmission("s1", "A", baseTime)))
	first := baseTime.Add(time.Hour)
	require.NoError(t, s.SetStatus(ctx, "s1", submission.StatusRejected, first))

	err := s.SetStatus(ctx, "s1", submission.StatusApproved, first.Add(time.Hour))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, submission.StatusRejected, got.Status)
	assert.True(t, first.Equal(*got.DecidedAt))
}

func TestSetStatus_RejectsPendingTarget(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, createTestSubmission("s1", "A", baseTime)))
	err := s.SetStatus(ctx, "s1", submission.StatusPending, baseTime)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSetStatus_ConcurrentCallersOneWins(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for round := 0; round < 20; round++ {
		id := "race" + string(rune('a'+round))
		require.NoError(t, s.Put(ctx, createTestSubmission(id, "A", baseTime)))

		var wg sync.WaitGroup
		errs := make([]error, 2)
		statuses := []submission.Status{submission.StatusApproved, submission.StatusRejected}
		for i := range statuses {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = s.SetStatus(ctx, id, statuses[i], baseTime.Add(time.Minute))
			}(i)
		}
		wg.Wait()

		wins := 0
		for _, err := range errs {
			if err == nil {
				wins++
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			}
		}
		assert.Equal(t, 1, wins, "round %d", round)
	}
}

func TestDeleteOlderThan_KeepsPending(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	old := baseTime.Add(-60 * 24 * time.Hour)
	require.NoError(t, s.Put(ctx, createTestSubmission("old-pending", "A", old)))
	require.NoError(t, s.Put(ctx, createTestSubmission("old-approved", "A", old)))
	require.NoError(t, s.Put(ctx, createTestSubmission("old-rejected", "A", old)))
	require.NoError(t, s.Put(ctx, createTestSubmission("new-approved", "A", baseTime)))

	require.NoError(t, s.SetStatus(ctx, "old-approved", submission.StatusApproved, old))
	require.NoError(t, s.SetStatus(ctx, "old-rejected", submission.StatusRejected, old))
	require.NoError(t, s.SetStatus(ctx, "new-approved", submission.StatusApproved, baseTime))

	n, err := s.DeleteOlderThan(ctx, baseTime.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for id, want := range map[string]bool{
		"old-pending":  true,
		"old-approved": false,
		"old-rejected": false,
		"new-approved": true,
	} {
		ok, err := s.Exists(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, ok, id)
	}

	// Repeating is a no-op.
	n, err = s.DeleteOlderThan(ctx, baseTime.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestPurgeOlderThan_ReturnsIDs(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	old := baseTime.Add(-60 * 24 * time.Hour)
	for _, id := range []string{"b", "a", "p"} {
		require.NoError(t, s.Put(ctx, createTestSubmission(id, "A", old)))
	}
	require.NoError(t, s.SetStatus(ctx, "a", submission.StatusApproved, old))
	require.NoError(t, s.SetStatus(ctx, "b", submission.StatusRejected, old))

	ids, err := s.PurgeOlderThan(ctx, baseTime)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestDeleteAll(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, createTestSubmission("a", "A", baseTime)))
	require.NoError(t, s.Put(ctx, createTestSubmission("b", "B", baseTime)))

	n, err := s.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
