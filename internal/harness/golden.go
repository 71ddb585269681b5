package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/hawkstract/nsc/internal/ir"
)

// CheckSnapshot captures the check outcome for a scenario. The unit
// hash stays out of the snapshot: it covers the fixture's file
// identity, not the behavior under test, and has its own coverage.
// All fields use canonical JSON serialization for deterministic
// comparison.
type CheckSnapshot struct {
	ScenarioName string
	Unit         string
	Diagnostics  []ir.Diagnostic
}

// toCanonicalMap converts a CheckSnapshot to a map[string]any for
// canonical JSON serialization.
func (s *CheckSnapshot) toCanonicalMap() map[string]any {
	diagList := make([]any, len(s.Diagnostics))
	for i, d := range s.Diagnostics {
		diagMap := map[string]any{
			"severity": string(d.Severity),
			"kind":     string(d.Kind),
			"code":     d.Code,
			"line":     d.Pos.Line,
			"column":   d.Pos.Column,
			"message":  d.Message,
		}
		if d.Grant != "" {
			diagMap["grant"] = d.Grant
		}
		diagList[i] = diagMap
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"unit":          s.Unit,
		"diagnostics":   diagList,
	}
}

// RunWithGolden executes a scenario and compares the check outcome
// against a golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the outcome doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result against a golden file. This is
// useful when a scenario has already run and the result should be
// compared without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := CheckSnapshot{
		ScenarioName: scenarioName,
		Unit:         result.Unit,
		Diagnostics:  result.Diagnostics,
	}

	outcomeJSON, err := ir.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, outcomeJSON)
	return nil
}
