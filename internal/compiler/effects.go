package compiler

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/hawkstract/nsc/internal/ir"
)

// EffectSets maps function name -> frozen transitive effect closure.
type EffectSets map[string]*ir.EffectSet

// maxSolverConcurrency bounds the number of SCCs solved in parallel
// within one condensation layer.
const maxSolverConcurrency = 8

// BuildEffectSets computes the transitive effect closure of every
// function in the unit.
//
// The computation is a monotone fixed point over the call graph:
// each function starts with its direct effect annotations, then callee
// sets are folded into caller sets until nothing changes. Effect sets
// only grow and are bounded by the unit's total site count, so the
// fixed point always terminates, mutual recursion included.
//
// Strongly connected components are solved independently: Tarjan's
// algorithm emits them callees-first, and each condensation layer is
// solved concurrently. Sets are keyed per function and each SCC touches
// only its own partition, so the result is identical regardless of
// solve order.
func BuildEffectSets(ctx context.Context, u *ir.Unit) (EffectSets, error) {
	graph := make(callGraph, len(u.Functions))
	direct := make(map[string][]ir.EffectSite, len(u.Functions))
	for _, fn := range u.Functions {
		callees := make([]string, 0, len(fn.Calls))
		for _, c := range fn.Calls {
			// Calls to functions outside the unit contribute no
			// effects; the front-end annotates stdlib effect sites
			// directly on the caller.
			if u.FunctionByName(c.Callee) != nil {
				callees = append(callees, c.Callee)
			}
		}
		graph[fn.Name] = callees
		sites := make([]ir.EffectSite, 0, len(fn.Effects))
		for _, e := range fn.Effects {
			e.Fn = fn.Name
			sites = append(sites, e)
		}
		direct[fn.Name] = sites
	}

	sets := make(EffectSets, len(graph))
	for name := range graph {
		set := ir.NewEffectSet()
		for _, site := range direct[name] {
			set.Add(site)
		}
		sets[name] = set
	}

	sccs := tarjanSCC(graph)
	for _, layer := range condensationLayers(graph, sccs) {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxSolverConcurrency)
		for _, scc := range layer {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				solveComponent(scc, graph, sets)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	return sets, nil
}

// solveComponent runs the local fixed point for one SCC. Callee sets
// outside the component are already final (layers solve callees first,
// and same-layer SCCs have no edges between them), so only the
// component's own sets change; the loop converges once a full pass
// adds nothing.
func solveComponent(scc []string, graph callGraph, sets EffectSets) {
	// Deterministic iteration inside the component.
	members := append([]string(nil), scc...)
	sort.Strings(members)

	for {
		changed := false
		for _, fn := range members {
			set := sets[fn]
			for _, callee := range graph[fn] {
				if set.AddAll(sets[callee]) {
					changed = true
				}
			}
		}
		if !changed {
			return
		}
	}
}

// ReachableSites returns the union of effect sites reachable from the
// unit's entry points, in deterministic source order. A unit with no
// declared entry points is checked whole: every function is treated as
// potentially reachable.
func ReachableSites(u *ir.Unit, sets EffectSets) []ir.EffectSite {
	entries := u.EntryPoints
	if len(entries) == 0 {
		entries = make([]string, 0, len(u.Functions))
		for _, fn := range u.Functions {
			entries = append(entries, fn.Name)
		}
	}

	union := ir.NewEffectSet()
	for _, entry := range entries {
		if set, ok := sets[entry]; ok {
			union.AddAll(set)
		}
	}
	return union.Sites()
}
