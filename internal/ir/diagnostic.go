package ir

import (
	"fmt"
	"sort"
)

// Severity of a diagnostic. The security core only emits errors today;
// warnings exist for front-ends that downgrade checks during migration.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// DiagnosticKind is the taxonomy of the four compile-time error classes.
type DiagnosticKind string

const (
	DiagDeclaration DiagnosticKind = "DeclarationError"
	DiagCapability  DiagnosticKind = "CapabilityViolation"
	DiagVaultScope  DiagnosticKind = "VaultScopeError"
	DiagMutability  DiagnosticKind = "MutabilityError"
)

// Diagnostic is one finding from a checking pass, in the shape the build
// tool consumes. Grant names the nearest related capability grant, when
// one exists.
type Diagnostic struct {
	Severity Severity       `json:"severity"`
	Kind     DiagnosticKind `json:"kind"`
	Code     string         `json:"code"`
	Pos      Pos            `json:"pos"`
	Message  string         `json:"message"`
	Grant    string         `json:"grant,omitempty"`
}

// Error implements the error interface.
func (d Diagnostic) Error() string {
	if d.Pos.IsValid() {
		return fmt.Sprintf("[%s] %s: %s: %s", d.Code, d.Pos, d.Kind, d.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Code, d.Kind, d.Message)
}

// SortDiagnostics orders diagnostics ascending by source position, then
// by code, then by message. Every pass may append in its own order; this
// single sort is what makes a compilation's output reproducible.
func SortDiagnostics(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		if diags[i].Pos != diags[j].Pos {
			return diags[i].Pos.Before(diags[j].Pos)
		}
		if diags[i].Code != diags[j].Code {
			return diags[i].Code < diags[j].Code
		}
		return diags[i].Message < diags[j].Message
	})
}

// HasErrors reports whether any diagnostic has error severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
