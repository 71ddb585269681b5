package compiler

import "sort"

// callGraph maps function name -> callee names.
type callGraph map[string][]string

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Returns a list of SCCs, each a list of function names. Components come
// out in reverse topological order: by the time an SCC is emitted, every
// SCC it calls into has already been emitted. That property is what lets
// the effect-set solver process the result front to back.
func tarjanSCC(graph callGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	// Visit nodes in sorted order so the emitted component order is
	// stable across runs (map iteration order is not).
	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// condensationLayers groups SCCs into dependency layers: every SCC in
// layer n only calls into SCCs of layers < n (or itself). SCCs within a
// layer are mutually independent and can be solved concurrently.
func condensationLayers(graph callGraph, sccs [][]string) [][][]string {
	compOf := make(map[string]int, len(graph))
	for i, scc := range sccs {
		for _, fn := range scc {
			compOf[fn] = i
		}
	}

	// depth[i] = longest chain of callee components below SCC i.
	depth := make([]int, len(sccs))
	maxDepth := 0
	// tarjanSCC emits callees before callers, so one forward pass
	// computes longest-path depths without recursion.
	for i, scc := range sccs {
		d := 0
		for _, fn := range scc {
			for _, callee := range graph[fn] {
				j, ok := compOf[callee]
				if !ok || j == i {
					continue
				}
				if depth[j]+1 > d {
					d = depth[j] + 1
				}
			}
		}
		depth[i] = d
		if d > maxDepth {
			maxDepth = d
		}
	}

	layers := make([][][]string, maxDepth+1)
	for i, scc := range sccs {
		layers[depth[i]] = append(layers[depth[i]], scc)
	}
	return layers
}
