package query

// Predicate represents a filter condition over stored runs or
// diagnostics.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and
// enables exhaustive type switches in the compiler.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Equals is field = value.
type Equals struct {
	Field string
	Value any
}

func (Equals) predicateNode() {}

// And requires every sub-predicate to hold.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// RunFields are the columns a run filter may reference.
var RunFields = map[string]bool{
	"id":        true,
	"unit_name": true,
	"unit_hash": true,
	"seq":       true,
	"clean":     true,
}

// DiagnosticFields are the columns a diagnostic filter may reference.
var DiagnosticFields = map[string]bool{
	"run_id":   true,
	"severity": true,
	"kind":     true,
	"code":     true,
	"line":     true,
}
