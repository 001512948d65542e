package harness

import (
	"fmt"
	"strings"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq     int    `json:"seq"`
	Action  string `json:"action"`
	Args    string `json:"args,omitempty"`
	Outcome string `json:"outcome"`
}

// String renders the event as one golden-file line.
func (e TraceEvent) String() string {
	if e.Args == "" {
		return fmt.Sprintf("%03d %s -> %s", e.Seq, e.Action, e.Outcome)
	}
	return fmt.Sprintf("%03d %s %s -> %s", e.Seq, e.Action, e.Args, e.Outcome)
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step met its expectation and every
	// assertion held.
	Pass bool `json:"pass"`

	// Trace holds one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Prompts and Published count delivered notifications.
	Prompts   int `json:"prompts"`
	Published int `json:"published"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step event.
func (r *Result) AddTrace(action, args, outcome string) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:     len(r.Trace) + 1,
		Action:  action,
		Args:    args,
		Outcome: outcome,
	})
}

// TraceText renders the trace followed by a notification summary, one
// line each, newline-terminated.
func (r *Result) TraceText() string {
	var b strings.Builder
	for _, e := range r.Trace {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "notifications prompts=%d published=%d\n", r.Prompts, r.Published)
	return b.String()
}
