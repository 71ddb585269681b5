// Package testutil builds synthetic units for compiler tests: compact
// call-graph constructors plus a brute-force effect reachability oracle
// to check the SCC-based closure against.
package testutil

import (
	"fmt"

	"github.com/hawkstract/nsc/internal/ir"
)

// Fn builds a call-graph function with the given callees and direct
// effect sites. Positions are synthesized from the order of appearance
// so every site is distinct.
func Fn(name string, calls []string, effects ...ir.EffectSite) ir.Function {
	fn := ir.Function{Name: name, Pos: ir.Pos{Line: 1, Column: 1}}
	for i, callee := range calls {
		fn.Calls = append(fn.Calls, ir.CallSite{
			Callee: callee,
			Pos:    ir.Pos{Line: i + 2, Column: 1},
		})
	}
	for _, e := range effects {
		e.Fn = name
		fn.Effects = append(fn.Effects, e)
	}
	return fn
}

// NetworkSite builds a Network effect site at the given line.
func NetworkSite(protocol, target string, line int) ir.EffectSite {
	return ir.EffectSite{
		Kind:     ir.EffectNetwork,
		Target:   target,
		Protocol: protocol,
		Pos:      ir.Pos{Line: line, Column: 1},
	}
}

// FilesystemSite builds a Filesystem effect site at the given line.
func FilesystemSite(path string, line int) ir.EffectSite {
	return ir.EffectSite{
		Kind:   ir.EffectFilesystem,
		Target: path,
		Pos:    ir.Pos{Line: line, Column: 1},
	}
}

// Unit assembles functions into a compilation unit with no capability
// header. Callers add header declarations when a scenario needs grants.
func Unit(name string, fns ...ir.Function) *ir.Unit {
	return &ir.Unit{Name: name, Functions: fns}
}

// SiteKey renders an effect site's identity as a comparable string.
// Fn is included so duplicate annotations in different functions stay
// distinct, matching the solver's site identity.
func SiteKey(s ir.EffectSite) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", s.Kind, s.Target, s.Protocol, s.Fn, s.Pos)
}

// ReachableSiteKeys is a brute-force oracle for the effect solver: it
// walks the call graph depth-first from the given function and collects
// the direct effect sites of every reachable function, with no
// SCC machinery at all. Used to cross-check the fixed point on
// adversarial graphs.
func ReachableSiteKeys(u *ir.Unit, from string) map[string]bool {
	visited := make(map[string]bool)
	out := make(map[string]bool)

	var walk func(name string)
	walk = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		fn := u.FunctionByName(name)
		if fn == nil {
			return
		}
		for _, e := range fn.Effects {
			e.Fn = fn.Name
			out[SiteKey(e)] = true
		}
		for _, c := range fn.Calls {
			walk(c.Callee)
		}
	}
	walk(from)
	return out
}
