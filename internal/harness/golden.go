package harness

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/readtrack/internal/ir"
)

// Snapshot builds the canonical golden form of a result: the scenario name,
// every trace event, and the final buffer as a parsed value.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	final, err := ir.ParseValue(result.Final)
	if err != nil {
		return nil, fmt.Errorf("parse final buffer: %w", err)
	}

	trace := make(ir.Array, len(result.Trace))
	for i, event := range result.Trace {
		trace[i] = ir.Obj(
			ir.O("seq", ir.Int(event.Seq)),
			ir.O("op", ir.String(event.Op)),
			ir.O("input", event.Input),
			ir.O("outcome", event.Outcome),
		)
	}

	return ir.MarshalCanonical(ir.Obj(
		ir.O("scenario_name", ir.String(scenarioName)),
		ir.O("trace", trace),
		ir.O("final", final),
	))
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, snapshot)

	return nil
}
