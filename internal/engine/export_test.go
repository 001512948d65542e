package engine

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kickoff/internal/submission"
)

const (
	studentRaw = `{"eventType":"FORM_RESPONSE","data":{"formName":"Student","fields":[]}}`
	mentorRaw  = `{"eventType":"FORM_RESPONSE","data":{"formName":"Mentor","fields":[{"label":"Note","value":"a, b"}]}}`
)

func seedExport(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t, "exp00001", "exp00002")
	ctx := context.Background()

	_, err := env.engine.Ingest(ctx, []byte(studentRaw))
	require.NoError(t, err)
	env.clock.Advance(time.Hour)
	_, err = env.engine.Ingest(ctx, []byte(mentorRaw))
	require.NoError(t, err)
	env.clock.Advance(time.Hour)
	env.decide(t, "exp00001", submission.DecisionApprove)
	return env
}

func TestExport_Golden(t *testing.T) {
	env := seedExport(t)
	pending := submission.StatusPending

	tests := []struct {
		name   string
		filter *submission.Status
		want   int
	}{
		{"export_all", nil, 2},
		{"export_pending", &pending, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := env.engine.Export(context.Background(), &buf, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)

			g := goldie.New(t,
				goldie.WithFixtureDir("testdata/golden"),
				goldie.WithNameSuffix(".golden"),
			)
			g.Assert(t, tt.name, buf.Bytes())
		})
	}
}

func TestExport_PayloadSurvivesCSV(t *testing.T) {
	env := seedExport(t)

	var buf bytes.Buffer
	_, err := env.engine.Export(context.Background(), &buf, nil)
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, ExportHeader, records[0])
	assert.Equal(t, studentRaw, records[1][5])
	assert.Equal(t, mentorRaw, records[2][5])
}

func TestExport_Empty(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	n, err := env.engine.Export(context.Background(), &buf, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "id,category,status,created_at,decided_at,payload\n", buf.String())
}

// Counters are derived, so they always add up.
func TestStats_Consistency(t *testing.T) {
	env := newTestEnv(t, "st000001", "st000002", "st000003", "st000004", "st000005", "st000006")
	ctx := context.Background()

	check := func() submission.Stats {
		t.Helper()
		stats, err := env.engine.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, stats.Total, stats.Pending+stats.Approved+stats.Rejected)
		sum := 0
		for _, n := range stats.PerCategory {
			sum += n
		}
		assert.Equal(t, stats.Total, sum)
		return stats
	}

	assert.Zero(t, check().Total)

	for _, c := range []string{"A", "A", "B", "B", "C", ""} {
		env.ingest(t, c)
		check()
	}

	env.decide(t, "st000001", submission.DecisionApprove)
	check()
	env.decide(t, "st000003", submission.DecisionReject)
	check()
	_, err := env.engine.BulkApprove(ctx, "B")
	require.NoError(t, err)

	env.clock.Advance(40 * 24 * time.Hour)
	_, err = env.engine.Cleanup(ctx, DefaultRetention)
	require.NoError(t, err)

	stats := check()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.Pending)
	assert.Equal(t, map[string]int{"A": 1, "C": 1, "": 1}, stats.PerCategory)
}

func TestList(t *testing.T) {
	env := seedExport(t)
	ctx := context.Background()

	all, err := env.engine.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "exp00001", all[0].ID)

	approved := submission.StatusApproved
	got, err := env.engine.List(ctx, &approved)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "exp00001", got[0].ID)

	pending := submission.StatusPending
	got, err = env.engine.List(ctx, &pending)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "exp00002", got[0].ID)
}
