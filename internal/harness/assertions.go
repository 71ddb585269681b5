package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hawkstract/nsc/internal/compiler"
	"github.com/hawkstract/nsc/internal/ir"
)

// AssertionError is returned when an assertion fails. It includes the
// full finding list to help debug the failure.
type AssertionError struct {
	Type        string          // Assertion type for categorization
	Expected    string          // Human-readable expected outcome
	Actual      string          // Human-readable actual outcome
	Diagnostics []ir.Diagnostic // Full finding set for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Diagnostics) > 0 {
		fmt.Fprintf(&buf, "\nAll findings:\n")
		for i, d := range e.Diagnostics {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, d.Error())
		}
	}
	return buf.String()
}

// evaluateAssertion dispatches one assertion against the pipeline result.
func evaluateAssertion(a Assertion, check *compiler.Result) error {
	switch a.Type {
	case AssertDiagContains:
		return assertDiagContains(check, a)
	case AssertDiagCount:
		return assertDiagCount(check, a)
	case AssertEffectReachable:
		return assertEffectReachable(check, a)
	case AssertVaultBlock:
		return assertVaultBlock(check, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertDiagContains checks that a finding with the given code (and
// optional position and message substring) was reported.
func assertDiagContains(check *compiler.Result, a Assertion) error {
	for _, d := range check.Diagnostics {
		if d.Code != a.Code {
			continue
		}
		if a.Line != 0 && d.Pos.Line != a.Line {
			continue
		}
		if a.Column != 0 && d.Pos.Column != a.Column {
			continue
		}
		if a.MessageContains != "" && !strings.Contains(d.Message, a.MessageContains) {
			continue
		}
		return nil
	}

	return &AssertionError{
		Type:        AssertDiagContains,
		Expected:    describeDiagMatch(a),
		Actual:      "no matching finding",
		Diagnostics: check.Diagnostics,
	}
}

// assertDiagCount checks that the code appears exactly Count times.
func assertDiagCount(check *compiler.Result, a Assertion) error {
	count := 0
	for _, d := range check.Diagnostics {
		if d.Code == a.Code {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:        AssertDiagCount,
			Expected:    fmt.Sprintf("%s reported %d time(s)", a.Code, a.Count),
			Actual:      fmt.Sprintf("reported %d time(s)", count),
			Diagnostics: check.Diagnostics,
		}
	}
	return nil
}

// assertEffectReachable checks that the function's converged effect
// closure contains a site with the given kind (and optional target).
func assertEffectReachable(check *compiler.Result, a Assertion) error {
	set, ok := check.EffectSets[a.Function]
	if !ok {
		return &AssertionError{
			Type:     AssertEffectReachable,
			Expected: fmt.Sprintf("effect closure for function %q", a.Function),
			Actual:   "function has no effect closure",
		}
	}

	var seen []string
	for _, site := range set.Sites() {
		if string(site.Kind) == a.Kind && (a.Target == "" || site.Target == a.Target) {
			return nil
		}
		seen = append(seen, fmt.Sprintf("%s(%s)", site.Kind, site.Target))
	}

	return &AssertionError{
		Type:     AssertEffectReachable,
		Expected: fmt.Sprintf("%s effect on %q reachable from %q", a.Kind, a.Target, a.Function),
		Actual:   fmt.Sprintf("closure contains: %s", strings.Join(seen, ", ")),
	}
}

// assertVaultBlock checks that the scope metadata records the safe block
// with exactly the given live vault bindings.
func assertVaultBlock(check *compiler.Result, a Assertion) error {
	if check.Scope == nil {
		return &AssertionError{
			Type:     AssertVaultBlock,
			Expected: fmt.Sprintf("scope metadata for block %q", a.Block),
			Actual:   "no scope metadata produced",
		}
	}
	block := check.Scope.BlockByID(a.Block)
	if block == nil {
		var ids []string
		for _, b := range check.Scope.Blocks {
			ids = append(ids, b.ID)
		}
		return &AssertionError{
			Type:     AssertVaultBlock,
			Expected: fmt.Sprintf("safe block %q recorded", a.Block),
			Actual:   fmt.Sprintf("known blocks: %s", strings.Join(ids, ", ")),
		}
	}

	want := append([]string(nil), a.Bindings...)
	got := append([]string(nil), block.Bindings...)
	sort.Strings(want)
	sort.Strings(got)
	if !equalStrings(want, got) {
		return &AssertionError{
			Type:     AssertVaultBlock,
			Expected: fmt.Sprintf("block %q live bindings %v", a.Block, want),
			Actual:   fmt.Sprintf("live bindings %v", got),
		}
	}
	return nil
}

func describeDiagMatch(a Assertion) string {
	var parts []string
	parts = append(parts, "code "+a.Code)
	if a.Line != 0 {
		parts = append(parts, fmt.Sprintf("line %d", a.Line))
	}
	if a.Column != 0 {
		parts = append(parts, fmt.Sprintf("column %d", a.Column))
	}
	if a.MessageContains != "" {
		parts = append(parts, fmt.Sprintf("message containing %q", a.MessageContains))
	}
	return strings.Join(parts, ", ")
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
