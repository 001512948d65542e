package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/roach88/kickoff/internal/engine"
	"github.com/roach88/kickoff/internal/journal"
	"github.com/roach88/kickoff/internal/store"
	"github.com/roach88/kickoff/internal/submission"
	"github.com/roach88/kickoff/internal/testutil"
)

// Harness executes scenario steps against one engine instance.
type Harness struct {
	store    *store.Store
	journal  *journal.Journal
	engine   *engine.Engine
	clock    *testutil.ManualClock
	notifier *testutil.RecordingNotifier
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh store and journal in a temporary
// directory that is removed afterwards. The returned error reports
// infrastructure failures only; step and assertion failures are recorded
// in the Result.
func Run(scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "kickoff-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario dir: %w", err)
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(filepath.Join(dir, "applications.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	jr, err := journal.Open(filepath.Join(dir, "backups"))
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	h := &Harness{
		store:    st,
		journal:  jr,
		clock:    testutil.NewManualClock(),
		notifier: testutil.NewRecordingNotifier(),
	}
	h.engine = engine.New(st, jr,
		engine.WithNotifier(h.notifier),
		engine.WithClock(h.clock),
		engine.WithIDGenerator(newSequenceIDs(scenario.IDs)),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithBulkDelay(0),
	)

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Action, err)
		}
		// Notifications run in the background; drain them so traces and
		// counts do not depend on scheduling.
		h.engine.Wait()
	}

	result.Prompts = len(h.notifier.Prompts())
	result.Published = len(h.notifier.Published())

	actx := &AssertionContext{
		Ctx:      ctx,
		Engine:   h.engine,
		Notifier: h.notifier,
	}
	for _, errMsg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeStep runs one step and appends its trace event. Engine errors
// are outcomes, not failures of the harness.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	var (
		args     string
		outcome  string
		counters map[string]int
		stepErr  error
	)

	switch step.Action {
	case StepIngest:
		raw := []byte(step.Payload)
		if step.Payload == "" {
			raw = formPayload(step.Category)
			args = "category=" + step.Category
		} else {
			args = "payload=raw"
		}
		sub, err := h.engine.Ingest(ctx, raw)
		stepErr = err
		if err == nil {
			outcome = fmt.Sprintf("ok id=%s status=%s", sub.ID, sub.Status)
		}

	case StepDecide:
		decision, err := submission.ParseDecision(step.Decision)
		if err != nil {
			return err
		}
		args = fmt.Sprintf("id=%s decision=%s", step.ID, decision)
		out, err := h.engine.Decide(ctx, step.ID, decision)
		stepErr = err
		if err == nil {
			outcome = fmt.Sprintf("ok status=%s", out.Submission.Status)
		}

	case StepBulkApprove:
		args = "category=" + step.Category
		if step.Category == "" {
			args = "category=*"
		}
		res, err := h.engine.BulkApprove(ctx, step.Category)
		stepErr = err
		counters = bulkCounters(res)

	case StepBulkReject:
		d := mustDuration(step.Duration)
		args = "older_than=" + step.Duration
		res, err := h.engine.BulkReject(ctx, d)
		stepErr = err
		counters = bulkCounters(res)

	case StepCleanup:
		d := mustDuration(step.Duration)
		args = "retention=" + step.Duration
		n, err := h.engine.Cleanup(ctx, d)
		stepErr = err
		counters = map[string]int{"deleted": n}

	case StepRestore:
		res, err := h.engine.Restore(ctx)
		stepErr = err
		counters = map[string]int{
			"scanned":  res.Scanned,
			"restored": res.Restored,
			"skipped":  res.Skipped,
			"failed":   len(res.Failed),
		}

	case StepWipeStore:
		n, err := h.store.DeleteAll(ctx)
		if err != nil {
			return fmt.Errorf("wipe store: %w", err)
		}
		counters = map[string]int{"deleted": int(n)}

	case StepAdvance:
		args = "by=" + step.Duration
		now := h.clock.Advance(mustDuration(step.Duration))
		outcome = "now=" + now.Format(time.RFC3339)

	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}

	switch {
	case stepErr != nil:
		outcome = "error " + errorLabel(stepErr)
	case counters != nil:
		outcome = formatCounters(counters)
	}
	result.AddTrace(step.Action, args, outcome)

	checkExpectations(i, step, stepErr, counters, result)
	return nil
}

func checkExpectations(i int, step Step, stepErr error, counters map[string]int, result *Result) {
	prefix := fmt.Sprintf("steps[%d] %s", i, step.Action)

	if step.ExpectError != "" {
		if stepErr == nil {
			result.AddError(fmt.Sprintf("%s: expected error %s, got success", prefix, step.ExpectError))
		} else if got := string(engine.CodeOf(stepErr)); got != step.ExpectError {
			result.AddError(fmt.Sprintf("%s: expected error %s, got %s", prefix, step.ExpectError, errorLabel(stepErr)))
		}
		return
	}
	if stepErr != nil {
		result.AddError(fmt.Sprintf("%s: unexpected error: %v", prefix, stepErr))
		return
	}

	keys := make([]string, 0, len(step.Expect))
	for k := range step.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		got, ok := counters[k]
		if !ok {
			result.AddError(fmt.Sprintf("%s: no counter %q", prefix, k))
			continue
		}
		if got != step.Expect[k] {
			result.AddError(fmt.Sprintf("%s: expected %s=%d, got %d", prefix, k, step.Expect[k], got))
		}
	}
}

func bulkCounters(res engine.BulkResult) map[string]int {
	return map[string]int{
		"matched":   res.Matched,
		"succeeded": res.Succeeded,
		"failed":    len(res.Failed),
	}
}

// formatCounters renders counters sorted by key.
func formatCounters(counters map[string]int) string {
	keys := make([]string, 0, len(counters))
	for k := range counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counters[k])
	}
	return strings.Join(parts, " ")
}

func errorLabel(err error) string {
	if code := engine.CodeOf(err); code != "" {
		return string(code)
	}
	return err.Error()
}

// mustDuration parses a duration already checked by validateStep.
func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		panic(fmt.Sprintf("harness: unvalidated duration %q", s))
	}
	return d
}

// formPayload builds a minimal valid webhook body for category.
func formPayload(category string) []byte {
	body := map[string]any{
		"eventId":   "evt-scenario",
		"eventType": submission.EventFormResponse,
		"data": map[string]any{
			"formName": category,
			"fields": []any{
				map[string]any{
					"key":   "question_name",
					"label": "Name",
					"type":  "INPUT_TEXT",
					"value": "Scenario Applicant",
				},
			},
		},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		panic(err)
	}
	return raw
}

// sequenceIDs hands out the scenario's declared ids, then sub00001,
// sub00002 and so on.
type sequenceIDs struct {
	mu    sync.Mutex
	fixed []string
	n     int
}

func newSequenceIDs(fixed []string) *sequenceIDs {
	return &sequenceIDs{fixed: fixed}
}

func (g *sequenceIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	i := g.n
	g.n++
	if i < len(g.fixed) {
		return g.fixed[i]
	}
	return fmt.Sprintf("sub%05d", i-len(g.fixed)+1)
}
