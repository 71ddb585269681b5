package harness

import (
	"github.com/hawkstract/nsc/internal/compiler"
	"github.com/hawkstract/nsc/internal/ir"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success. True if the expect
	// clause and every assertion hold.
	Pass bool `json:"pass"`

	// Unit is the checked unit's name.
	Unit string `json:"unit"`

	// UnitHash is the content-addressed identity of the checked unit.
	UnitHash string `json:"unit_hash"`

	// RunID is the persisted run's content-addressed id.
	RunID string `json:"run_id"`

	// Diagnostics is the pipeline's full sorted finding set.
	Diagnostics []ir.Diagnostic `json:"diagnostics"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Check is the raw pipeline result, for assertions over effect
	// closures and scope metadata.
	Check *compiler.Result `json:"-"`
}

// NewResult creates a new passing result. Used as the starting point
// for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
