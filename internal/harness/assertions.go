package harness

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"

	"github.com/roach88/kickoff/internal/engine"
	"github.com/roach88/kickoff/internal/testutil"
)

// AssertionContext provides what assertions read final state from.
type AssertionContext struct {
	Ctx      context.Context
	Engine   *engine.Engine
	Notifier *testutil.RecordingNotifier
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions checks every assertion and returns one message per
// failure. An empty slice means all assertions held.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertStats:
		return assertStats(a, actx)
	case AssertStatus:
		return assertStatus(a, actx)
	case AssertPublishCount:
		return assertCount(a.Type, a.Count, len(actx.Notifier.Published()))
	case AssertPromptCount:
		return assertCount(a.Type, a.Count, len(actx.Notifier.Prompts()))
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertStats(a Assertion, actx *AssertionContext) error {
	stats, err := actx.Engine.Stats(actx.Ctx)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}

	actual := map[string]int{
		"total":    stats.Total,
		"pending":  stats.Pending,
		"approved": stats.Approved,
		"rejected": stats.Rejected,
	}
	keys := make([]string, 0, len(a.Expect))
	for k := range a.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		got, ok := actual[k]
		if !ok {
			return fmt.Errorf("unknown stats counter %q", k)
		}
		if got != a.Expect[k] {
			return &AssertionError{
				Type:     AssertStats,
				Expected: fmt.Sprintf("%s=%d", k, a.Expect[k]),
				Actual:   fmt.Sprintf("%s=%d", k, got),
			}
		}
	}

	if a.PerCategory != nil && !maps.Equal(a.PerCategory, stats.PerCategory) {
		return &AssertionError{
			Type:     AssertStats,
			Expected: "per_category " + formatCounters(a.PerCategory),
			Actual:   "per_category " + formatCounters(stats.PerCategory),
		}
	}
	return nil
}

func assertStatus(a Assertion, actx *AssertionContext) error {
	sub, err := actx.Engine.Get(actx.Ctx, a.ID)
	actual := ""
	switch {
	case engine.CodeOf(err) == engine.CodeNotFound:
		actual = StatusAbsent
	case err != nil:
		return fmt.Errorf("get %s: %w", a.ID, err)
	default:
		actual = string(sub.Status)
	}

	if !strings.EqualFold(actual, a.Status) {
		return &AssertionError{
			Type:     AssertStatus,
			Expected: fmt.Sprintf("%s %s", a.ID, a.Status),
			Actual:   fmt.Sprintf("%s %s", a.ID, actual),
		}
	}
	return nil
}

func assertCount(kind string, want, got int) error {
	if want != got {
		return &AssertionError{
			Type:     kind,
			Expected: fmt.Sprint(want),
			Actual:   fmt.Sprint(got),
		}
	}
	return nil
}
