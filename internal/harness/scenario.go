package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/kickoff/internal/engine"
	"github.com/roach88/kickoff/internal/submission"
)

// Scenario defines one moderation scenario.
type Scenario struct {
	// Name uniquely identifies this scenario in reports.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// IDs are handed out to ingested submissions in order. Once exhausted,
	// ids continue as sub00001, sub00002, ...
	IDs []string `yaml:"ids,omitempty"`

	Steps []Step `yaml:"steps"`

	Assertions []Assertion `yaml:"assertions"`
}

// Step is one engine operation.
type Step struct {
	Action string `yaml:"action"`

	// Category is used by ingest and bulk_approve.
	Category string `yaml:"category,omitempty"`

	// Payload is a raw webhook body for ingest. Overrides Category.
	Payload string `yaml:"payload,omitempty"`

	// ID and Decision are used by decide.
	ID       string `yaml:"id,omitempty"`
	Decision string `yaml:"decision,omitempty"`

	// Duration is a Go duration used by advance, bulk_reject and cleanup.
	Duration string `yaml:"duration,omitempty"`

	// ExpectError is the engine error code the step must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Expect holds result counters the step must report.
	Expect map[string]int `yaml:"expect,omitempty"`
}

// Step actions.
const (
	StepIngest      = "ingest"
	StepDecide      = "decide"
	StepBulkApprove = "bulk_approve"
	StepBulkReject  = "bulk_reject"
	StepCleanup     = "cleanup"
	StepRestore     = "restore"
	StepWipeStore   = "wipe_store"
	StepAdvance     = "advance"
)

// Assertion validates final state.
type Assertion struct {
	// Type is one of stats, status, publish_count, prompt_count.
	Type string `yaml:"type"`

	// ID and Status are used by status.
	ID     string `yaml:"id,omitempty"`
	Status string `yaml:"status,omitempty"`

	// Count is used by publish_count and prompt_count.
	Count int `yaml:"count,omitempty"`

	// Expect holds stats counters (total, pending, approved, rejected).
	Expect map[string]int `yaml:"expect,omitempty"`

	// PerCategory is the exact expected per-category breakdown.
	PerCategory map[string]int `yaml:"per_category,omitempty"`
}

// Assertion types.
const (
	AssertStats        = "stats"
	AssertStatus       = "status"
	AssertPublishCount = "publish_count"
	AssertPromptCount  = "prompt_count"
)

// StatusAbsent asserts that a submission no longer exists.
const StatusAbsent = "absent"

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps must not be empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step) error {
	needDuration := func() error {
		if step.Duration == "" {
			return fmt.Errorf("steps[%d]: duration is required for %s", i, step.Action)
		}
		if _, err := time.ParseDuration(step.Duration); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		return nil
	}

	switch step.Action {
	case StepIngest, StepBulkApprove, StepRestore, StepWipeStore:
	case StepDecide:
		if step.ID == "" {
			return fmt.Errorf("steps[%d]: id is required for decide", i)
		}
		if _, err := submission.ParseDecision(step.Decision); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	case StepBulkReject, StepCleanup, StepAdvance:
		if err := needDuration(); err != nil {
			return err
		}
	case "":
		return fmt.Errorf("steps[%d]: action is required", i)
	default:
		return fmt.Errorf("steps[%d]: unknown action %q", i, step.Action)
	}

	if step.ExpectError != "" && !knownCode(step.ExpectError) {
		return fmt.Errorf("steps[%d]: unknown error code %q", i, step.ExpectError)
	}
	return nil
}

func knownCode(code string) bool {
	switch engine.ErrorCode(code) {
	case engine.CodeInvalidPayload, engine.CodeNotFound, engine.CodeAlreadyDecided,
		engine.CodeStoreUnavailable, engine.CodeNotifierFailure:
		return true
	}
	return false
}

func validateAssertion(i int, a Assertion) error {
	switch a.Type {
	case AssertStats:
		if len(a.Expect) == 0 && a.PerCategory == nil {
			return fmt.Errorf("assertions[%d]: expect or per_category is required for stats", i)
		}
	case AssertStatus:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for status", i)
		}
		if a.Status != StatusAbsent {
			if _, err := submission.ParseStatus(a.Status); err != nil {
				return fmt.Errorf("assertions[%d]: %w", i, err)
			}
		}
	case AssertPublishCount, AssertPromptCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", i)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", i)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
	}
	return nil
}
