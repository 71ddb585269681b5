package ir

import "fmt"

// Pos is a source position in a compilation unit.
// Line and Column are 1-based; the zero Pos means "no position".
type Pos struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// IsValid reports whether the position refers to an actual source location.
func (p Pos) IsValid() bool {
	return p.Line > 0
}

// Before reports whether p sorts strictly before q in source order.
// Used to order diagnostics deterministically.
func (p Pos) Before(q Pos) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Column < q.Column
}

// String renders the position as "line:column", or "-" for the zero Pos.
func (p Pos) String() string {
	if !p.IsValid() {
		return "-"
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}
