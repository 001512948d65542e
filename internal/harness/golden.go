package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// GoldenPath returns where the golden trace of a scenario file lives:
// golden/<file name>.golden beside the scenario.
func GoldenPath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// RunWithGolden loads and executes the scenario at path and compares its
// trace against GoldenPath(path).
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass and Errors.
func RunWithGolden(t *testing.T, path string) (*Result, error) {
	t.Helper()

	scenario, err := LoadScenario(path)
	if err != nil {
		return nil, err
	}
	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	golden := GoldenPath(path)
	name := strings.TrimSuffix(filepath.Base(golden), ".golden")
	AssertGolden(t, filepath.Dir(golden), name, result)
	return result, nil
}

// AssertGolden compares an existing result's trace against
// dir/name.golden without re-running the scenario.
func AssertGolden(t *testing.T, dir, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir(dir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(result.TraceText()))
}
