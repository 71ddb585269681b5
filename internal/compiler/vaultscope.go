package compiler

import (
	"fmt"
	"sort"

	"github.com/hawkstract/nsc/internal/ir"
)

// AnalyzeVaultScopes runs the static vault scoping check over every
// function body and produces the scope metadata the runtime guard needs.
//
// The discipline:
//   - referencing a vault binding requires an enclosing safe block
//   - a decrypted value is tainted; it may not be assigned to a binding
//     declared outside the active safe scope, returned out of it, or
//     captured by a closure that leaves it
//   - nested safe blocks share plaintext: a binding stays valid until
//     the outermost block referencing it exits
//   - a tainted value passed to an effectful call is only permitted when
//     the callee's capabilities are declared (cross-check against the
//     capability environment)
func AnalyzeVaultScopes(u *ir.Unit, env *ir.CapabilityEnvironment, sets EffectSets) ([]ir.Diagnostic, *ir.ScopeMetadata) {
	a := &vaultAnalyzer{env: env, sets: sets}
	for i := range u.Functions {
		a.checkFunction(&u.Functions[i])
	}
	a.freezeMetadata()
	return a.diags, &a.meta
}

type vaultAnalyzer struct {
	env   *ir.CapabilityEnvironment
	sets  EffectSets
	diags []ir.Diagnostic
	meta  ir.ScopeMetadata

	// collected behind pointers during the walk; materialized into meta
	// by freezeMetadata once nothing appends anymore
	blocks   []*ir.SafeBlockInfo
	bindings []*ir.VaultBinding

	// per-function walk state
	fn       *ir.Function
	vars     map[string]*bindingState
	blockSeq int
}

// bindingState tracks what the walker knows about one binding.
type bindingState struct {
	kind      ir.BindingKind
	declBlock string // innermost safe block at declaration, "" if outside
	tainted   bool   // holds a decrypted vault-derived value
	vault     *ir.VaultBinding
}

// scopeFrame is one active safe block during the walk.
type scopeFrame struct {
	id   string
	info *ir.SafeBlockInfo
}

func (a *vaultAnalyzer) checkFunction(fn *ir.Function) {
	a.fn = fn
	a.vars = make(map[string]*bindingState)
	a.blockSeq = 0
	a.walkStmts(fn.Body, nil)
}

func (a *vaultAnalyzer) walkStmts(stmts []ir.Stmt, stack []*scopeFrame) {
	for i := range stmts {
		a.walkStmt(&stmts[i], stack)
	}
}

func (a *vaultAnalyzer) walkStmt(s *ir.Stmt, stack []*scopeFrame) {
	switch s.Kind {
	case ir.StmtDecl:
		tainted := a.exprTaint(s.Value, stack, s.Pos)
		st := &bindingState{kind: s.Binding, tainted: tainted}
		if len(stack) > 0 {
			st.declBlock = stack[len(stack)-1].id
		}
		if s.Binding == ir.BindingVault {
			vb := &ir.VaultBinding{Name: s.Name, Type: s.Type, Fn: a.fn.Name, Pos: s.Pos}
			a.bindings = append(a.bindings, vb)
			st.vault = vb
			// A vault declaration stores ciphertext; the declaration
			// itself does not put plaintext in scope.
			st.tainted = false
		}
		a.vars[s.Name] = st

	case ir.StmtAssign:
		tainted := a.exprTaint(s.Value, stack, s.Pos)
		target, known := a.vars[s.Name]
		if tainted && known && !blockActive(target.declBlock, stack) {
			a.report(ErrVaultEscapes, s.Pos,
				fmt.Sprintf("vault value escapes safe scope: assigned to %q declared outside the block", s.Name))
		}
		if known {
			target.tainted = tainted
		}

	case ir.StmtReturn:
		if a.exprTaint(s.Value, stack, s.Pos) {
			a.report(ErrVaultEscapes, s.Pos, "vault value escapes safe scope: returned from safe block")
		}

	case ir.StmtExpr:
		a.exprTaint(s.Value, stack, s.Pos)

	case ir.StmtSafe:
		id := s.BlockID
		if id == "" {
			a.blockSeq++
			id = fmt.Sprintf("%s.safe%d", a.fn.Name, a.blockSeq)
		}
		info := &ir.SafeBlockInfo{ID: id, Fn: a.fn.Name, Pos: s.Pos}
		if len(stack) > 0 {
			info.Parent = stack[len(stack)-1].id
		}
		a.blocks = append(a.blocks, info)
		frame := &scopeFrame{id: id, info: info}
		a.walkStmts(s.Body, append(stack, frame))

	case ir.StmtIf:
		a.exprTaint(s.Cond, stack, s.Pos)
		a.walkStmts(s.Body, stack)
		a.walkStmts(s.Else, stack)
	}
}

// exprTaint evaluates an expression skeleton: emits scope diagnostics
// for its vault references and reports whether the resulting value is
// tainted (derived from decrypted vault plaintext).
func (a *vaultAnalyzer) exprTaint(e *ir.Expr, stack []*scopeFrame, pos ir.Pos) bool {
	if e == nil {
		return false
	}
	tainted := false
	for _, ref := range e.Refs {
		st, known := a.vars[ref]
		if !known {
			continue // parameter or unit-external name, front-end resolved
		}
		if st.kind == ir.BindingVault {
			if len(stack) == 0 {
				a.report(ErrVaultOutsideSafe, pos,
					fmt.Sprintf("vault %q accessed outside safe scope", ref))
				continue
			}
			a.recordLiveness(st, stack)
			tainted = true
			continue
		}
		if st.tainted {
			tainted = true
		}
	}

	if len(e.Closure) > 0 {
		if a.closureCaptures(e.Closure, stack, pos) {
			// The closure value carries plaintext; the generic escape
			// rules on assignment/return decide whether it outlives
			// the block.
			tainted = true
		}
	}

	if e.Call != "" && tainted {
		a.checkTaintedCall(e.Call, pos)
	}
	return tainted
}

// closureCaptures scans a closure body for captures of vault bindings or
// tainted bindings from the enclosing function. The body is lexical code
// inside the current scope stack, so a vault reference with no active
// safe block is reported here exactly as it would be inline.
func (a *vaultAnalyzer) closureCaptures(body []ir.Stmt, stack []*scopeFrame, pos ir.Pos) bool {
	captured := false
	var scan func(stmts []ir.Stmt)
	scanExpr := func(e *ir.Expr) {
		if e == nil {
			return
		}
		for _, ref := range e.Refs {
			st, known := a.vars[ref]
			if !known {
				continue
			}
			if st.kind == ir.BindingVault {
				if len(stack) == 0 {
					a.report(ErrVaultOutsideSafe, pos,
						fmt.Sprintf("vault %q accessed outside safe scope (captured by closure)", ref))
					continue
				}
				a.recordLiveness(st, stack)
				captured = true
			} else if st.tainted {
				captured = true
			}
		}
		if len(e.Closure) > 0 {
			if a.closureCaptures(e.Closure, stack, pos) {
				captured = true
			}
		}
	}
	scan = func(stmts []ir.Stmt) {
		for i := range stmts {
			s := &stmts[i]
			scanExpr(s.Value)
			scanExpr(s.Cond)
			scan(s.Body)
			scan(s.Else)
		}
	}
	scan(body)
	return captured
}

// checkTaintedCall cross-checks a call receiving decrypted vault data
// against the capability environment: every effect kind the callee can
// reach must have a declared grant. The capability checker reports the
// site-level mismatch separately; this diagnostic marks the vault leak
// channel specifically.
func (a *vaultAnalyzer) checkTaintedCall(callee string, pos ir.Pos) {
	set, ok := a.sets[callee]
	if !ok {
		return
	}
	seen := make(map[ir.EffectKind]bool)
	for _, site := range set.Sites() {
		if seen[site.Kind] {
			continue
		}
		seen[site.Kind] = true
		if len(a.env.ForKind(site.Kind)) == 0 {
			a.report(ErrVaultUncoveredCall, pos,
				fmt.Sprintf("vault value passed to %q which requires undeclared capability %s", callee, site.Kind))
		}
	}
}

// recordLiveness marks a vault binding live in every active block and
// pins its owning block to the outermost one. Re-entry from a nested
// block keeps the plaintext owned by the outermost block, so it is not
// zeroized when the inner block exits.
func (a *vaultAnalyzer) recordLiveness(st *bindingState, stack []*scopeFrame) {
	for _, frame := range stack {
		addUnique(&frame.info.Bindings, st.vault.Name)
	}
	if st.vault.BlockID == "" {
		st.vault.BlockID = stack[0].id
	}
}

func (a *vaultAnalyzer) report(code string, pos ir.Pos, msg string) {
	a.diags = append(a.diags, errorDiag(ir.DiagVaultScope, code, pos, msg))
}

// freezeMetadata materializes the collected blocks and bindings into
// deterministic order.
func (a *vaultAnalyzer) freezeMetadata() {
	sort.Slice(a.blocks, func(i, j int) bool {
		if a.blocks[i].Fn != a.blocks[j].Fn {
			return a.blocks[i].Fn < a.blocks[j].Fn
		}
		return a.blocks[i].ID < a.blocks[j].ID
	})
	sort.Slice(a.bindings, func(i, j int) bool {
		if a.bindings[i].Fn != a.bindings[j].Fn {
			return a.bindings[i].Fn < a.bindings[j].Fn
		}
		return a.bindings[i].Name < a.bindings[j].Name
	})
	a.meta.Blocks = make([]ir.SafeBlockInfo, len(a.blocks))
	for i, b := range a.blocks {
		sort.Strings(b.Bindings)
		a.meta.Blocks[i] = *b
	}
	a.meta.Bindings = make([]ir.VaultBinding, len(a.bindings))
	for i, b := range a.bindings {
		a.meta.Bindings[i] = *b
	}
}

func blockActive(blockID string, stack []*scopeFrame) bool {
	if blockID == "" {
		return len(stack) == 0
	}
	for _, frame := range stack {
		if frame.id == blockID {
			return true
		}
	}
	return false
}

func addUnique(list *[]string, v string) {
	for _, x := range *list {
		if x == v {
			return
		}
	}
	*list = append(*list, v)
}
