package compiler

import (
	"fmt"

	"github.com/hawkstract/nsc/internal/ir"
)

// assignState is the definite-assignment lattice for a lock binding.
type assignState int

const (
	assignedNo assignState = iota
	assignedMaybe
	assignedYes
)

// merge joins two branch states: a binding assigned on only one path is
// "maybe" afterwards, which is still enough to reject a later assignment
// (some path would see two).
func (s assignState) merge(o assignState) assignState {
	if s == o {
		return s
	}
	return assignedMaybe
}

// ValidateMutability enforces the binding discipline over every function:
// lock bindings take exactly one initializing assignment on any control
// path, and stract bindings keep the type fixed by their first assignment.
func ValidateMutability(u *ir.Unit) []ir.Diagnostic {
	var diags []ir.Diagnostic
	for i := range u.Functions {
		v := &mutabilityValidator{vars: make(map[string]*mutState)}
		v.walk(u.Functions[i].Body)
		diags = append(diags, v.diags...)
	}
	return diags
}

type mutState struct {
	kind      ir.BindingKind
	assigned  assignState
	fixedType string // stract: type fixed at first assignment
}

type mutabilityValidator struct {
	vars  map[string]*mutState
	diags []ir.Diagnostic
}

func (v *mutabilityValidator) walk(stmts []ir.Stmt) {
	for i := range stmts {
		v.walkStmt(&stmts[i])
	}
}

func (v *mutabilityValidator) walkStmt(s *ir.Stmt) {
	switch s.Kind {
	case ir.StmtDecl:
		st := &mutState{kind: s.Binding}
		if s.Value != nil {
			st.assigned = assignedYes
			st.fixedType = s.Type
		}
		v.vars[s.Name] = st
		v.walkValueClosure(s.Value)

	case ir.StmtAssign:
		v.checkAssign(s)
		v.walkValueClosure(s.Value)

	case ir.StmtSafe:
		v.walk(s.Body)

	case ir.StmtIf:
		// Walk both branches from a snapshot, then join.
		before := v.snapshot()
		v.walk(s.Body)
		thenStates := v.snapshot()
		v.restore(before)
		v.walk(s.Else)
		v.join(thenStates)

	case ir.StmtReturn, ir.StmtExpr:
		v.walkValueClosure(s.Value)
	}
}

func (v *mutabilityValidator) checkAssign(s *ir.Stmt) {
	st, known := v.vars[s.Name]
	if !known {
		return // front-end rejects assignment to undeclared bindings
	}
	switch st.kind {
	case ir.BindingLock:
		if st.assigned != assignedNo {
			v.diags = append(v.diags, errorDiag(ir.DiagMutability, ErrLockReassigned, s.Pos,
				fmt.Sprintf("lock %q reassigned; lock bindings take exactly one assignment", s.Name)))
			return
		}
		st.assigned = assignedYes

	case ir.BindingStract:
		if st.assigned == assignedNo || st.fixedType == "" {
			st.assigned = assignedYes
			st.fixedType = s.Type
			return
		}
		if s.Type != "" && s.Type != st.fixedType {
			v.diags = append(v.diags, errorDiag(ir.DiagMutability, ErrStractRetyped, s.Pos,
				fmt.Sprintf("stract retyped: %q fixed as %s, reassigned with %s", s.Name, st.fixedType, s.Type)))
		}
	}
}

// walkValueClosure validates statements nested inside closure literals.
// A closure body may run any number of times, so an assignment in one to
// an outer lock binding counts as a potential reassignment.
func (v *mutabilityValidator) walkValueClosure(e *ir.Expr) {
	if e == nil || len(e.Closure) == 0 {
		return
	}
	before := v.snapshot()
	v.walk(e.Closure)
	// The closure may run zero times: a binding it assigned is only
	// "maybe" assigned from the enclosing function's perspective.
	for name, prev := range before {
		cur := v.vars[name]
		if cur != nil && cur.assigned != prev.assigned {
			cur.assigned = prev.assigned.merge(cur.assigned)
		}
	}
}

func (v *mutabilityValidator) snapshot() map[string]mutState {
	snap := make(map[string]mutState, len(v.vars))
	for name, st := range v.vars {
		snap[name] = *st
	}
	return snap
}

func (v *mutabilityValidator) restore(snap map[string]mutState) {
	for name, st := range snap {
		s := st
		v.vars[name] = &s
	}
}

// join merges the current (else-branch) states with the then-branch
// snapshot, leaving the post-conditional state in v.vars.
func (v *mutabilityValidator) join(thenStates map[string]mutState) {
	for name, thenSt := range thenStates {
		cur, ok := v.vars[name]
		if !ok {
			continue // declared only inside the then branch
		}
		cur.assigned = cur.assigned.merge(thenSt.assigned)
		if cur.fixedType == "" {
			cur.fixedType = thenSt.fixedType
		}
	}
}
