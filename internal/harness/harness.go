package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/hawkstract/nsc/internal/cli"
	"github.com/hawkstract/nsc/internal/compiler"
	"github.com/hawkstract/nsc/internal/store"
)

// Harness executes one scenario against the checking pipeline and a
// fresh in-memory run database.
type Harness struct {
	store  *store.Store
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation. The
// database is part of the contract under test: the run is persisted,
// read back, and cross-checked against the in-process diagnostics.
//
// Execution flow:
//  1. Create a fresh in-memory store
//  2. Load the CUE unit file
//  3. Run the full checking pipeline
//  4. Persist and re-read the run
//  5. Evaluate the expect clause and assertions
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	return h.run(context.Background(), scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	unit, err := cli.LoadUnit(scenario.Unit)
	if err != nil {
		return nil, fmt.Errorf("loading unit: %w", err)
	}

	h.logger.Info("checking unit", "scenario", scenario.Name, "unit", unit.Name)
	check, err := compiler.CheckUnit(ctx, unit)
	if err != nil {
		return nil, fmt.Errorf("checking unit: %w", err)
	}

	result := NewResult()
	result.Unit = unit.Name
	result.UnitHash = check.UnitHash
	result.Diagnostics = check.Diagnostics
	result.Check = check

	if err := h.persistAndVerify(ctx, unit.Name, check, result); err != nil {
		return nil, err
	}

	evaluateExpect(scenario, check, result)
	for i, assertion := range scenario.Assertions {
		if err := evaluateAssertion(assertion, check); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return result, nil
}

// persistAndVerify writes the run and reads it back. A mismatch between
// the stored and in-process finding counts is an infrastructure failure,
// not a scenario failure.
func (h *Harness) persistAndVerify(ctx context.Context, unitName string, check *compiler.Result, result *Result) error {
	run, err := h.store.WriteRun(ctx, unitName, check.UnitHash, check.Diagnostics)
	if err != nil {
		return fmt.Errorf("persisting run: %w", err)
	}
	result.RunID = run.ID

	stored, err := h.store.ReadDiagnostics(ctx, run.ID, nil)
	if err != nil {
		return fmt.Errorf("re-reading run: %w", err)
	}
	if len(stored) != len(check.Diagnostics) {
		return fmt.Errorf("store round-trip lost diagnostics: wrote %d, read %d",
			len(check.Diagnostics), len(stored))
	}
	return nil
}

// evaluateExpect checks the scenario's expect clause against the
// pipeline result.
func evaluateExpect(scenario *Scenario, check *compiler.Result, result *Result) {
	if scenario.Expect.Clean {
		if !check.Clean() {
			result.AddError(fmt.Sprintf("expected clean unit, got %d finding(s)", len(check.Diagnostics)))
			for _, d := range check.Diagnostics {
				result.AddError("  unexpected: " + d.Error())
			}
		}
		return
	}

	// clean: false is a claim on its own: the unit must report
	// findings even when no specific diagnostics are listed.
	if check.Clean() {
		result.AddError("expected findings, unit checked clean")
		return
	}

	for i, want := range scenario.Expect.Diagnostics {
		if !diagnosticPresent(check, want) {
			result.AddError(fmt.Sprintf("expect.diagnostics[%d]: no %s finding matching %+v", i, want.Code, want))
		}
	}
}

func diagnosticPresent(check *compiler.Result, want ExpectedDiagnostic) bool {
	for _, d := range check.Diagnostics {
		if d.Code != want.Code {
			continue
		}
		if want.Line != 0 && d.Pos.Line != want.Line {
			continue
		}
		if want.Column != 0 && d.Pos.Column != want.Column {
			continue
		}
		if want.Grant != "" && d.Grant != want.Grant {
			continue
		}
		return true
	}
	return false
}
