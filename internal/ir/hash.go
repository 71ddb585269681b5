package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainUnit = "nsc/unit/v1"
	DomainRun  = "nsc/run/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null separator prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// UnitHash computes the content-addressed identity of a compilation unit.
// Two structurally identical units hash identically regardless of map
// iteration order or source file formatting, which is what lets the
// check-run store deduplicate and replay runs.
func UnitHash(u *Unit) (string, error) {
	fns := make([]any, 0, len(u.Functions))
	for _, fn := range u.Functions {
		calls := make([]any, 0, len(fn.Calls))
		for _, c := range fn.Calls {
			calls = append(calls, map[string]any{
				"callee": c.Callee,
				"line":   c.Pos.Line,
				"column": c.Pos.Column,
			})
		}
		effects := make([]any, 0, len(fn.Effects))
		for _, e := range fn.Effects {
			effects = append(effects, map[string]any{
				"kind":     string(e.Kind),
				"target":   e.Target,
				"protocol": e.Protocol,
				"line":     e.Pos.Line,
				"column":   e.Pos.Column,
			})
		}
		fns = append(fns, map[string]any{
			"name":    fn.Name,
			"calls":   calls,
			"effects": effects,
			"body":    stmtList(fn.Body),
		})
	}

	header := make([]any, 0, len(u.Header))
	for _, d := range u.Header {
		header = append(header, map[string]any{
			"name":     d.Name,
			"protocol": d.Protocol,
			"domain":   d.Domain,
		})
	}

	entries := make([]any, 0, len(u.EntryPoints))
	for _, e := range u.EntryPoints {
		entries = append(entries, e)
	}

	data, err := MarshalCanonical(map[string]any{
		"name":      u.Name,
		"header":    header,
		"functions": fns,
		"entries":   entries,
	})
	if err != nil {
		return "", err
	}
	return hashWithDomain(DomainUnit, data), nil
}

// RunID computes the content-addressed identity of a check run over a
// unit: same unit plus same diagnostic list yields the same run id.
func RunID(unitHash string, diags []Diagnostic) (string, error) {
	list := make([]any, 0, len(diags))
	for _, d := range diags {
		list = append(list, map[string]any{
			"severity": string(d.Severity),
			"kind":     string(d.Kind),
			"code":     d.Code,
			"line":     d.Pos.Line,
			"column":   d.Pos.Column,
			"message":  d.Message,
			"grant":    d.Grant,
		})
	}
	data, err := MarshalCanonical(map[string]any{
		"unit_hash":   unitHash,
		"diagnostics": list,
	})
	if err != nil {
		return "", err
	}
	return hashWithDomain(DomainRun, data), nil
}

// stmtList converts a statement body to canonical-JSON-ready values.
func stmtList(body []Stmt) []any {
	out := make([]any, 0, len(body))
	for _, s := range body {
		m := map[string]any{
			"kind":   string(s.Kind),
			"line":   s.Pos.Line,
			"column": s.Pos.Column,
		}
		if s.Name != "" {
			m["name"] = s.Name
		}
		if s.Binding != "" {
			m["binding"] = string(s.Binding)
		}
		if s.Type != "" {
			m["type"] = s.Type
		}
		if s.BlockID != "" {
			m["block_id"] = s.BlockID
		}
		if s.Value != nil {
			m["value"] = exprMap(s.Value)
		}
		if s.Cond != nil {
			m["cond"] = exprMap(s.Cond)
		}
		if len(s.Body) > 0 {
			m["body"] = stmtList(s.Body)
		}
		if len(s.Else) > 0 {
			m["else"] = stmtList(s.Else)
		}
		out = append(out, m)
	}
	return out
}

func exprMap(e *Expr) map[string]any {
	m := map[string]any{}
	if len(e.Refs) > 0 {
		refs := make([]any, 0, len(e.Refs))
		for _, r := range e.Refs {
			refs = append(refs, r)
		}
		m["refs"] = refs
	}
	if e.Call != "" {
		m["call"] = e.Call
	}
	if len(e.Closure) > 0 {
		m["closure"] = stmtList(e.Closure)
	}
	return m
}
