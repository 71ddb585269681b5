package compiler

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sortedSCCs normalizes component output for comparison: members sorted
// within each component, components sorted by first member.
func sortedSCCs(sccs [][]string) [][]string {
	out := make([][]string, len(sccs))
	for i, scc := range sccs {
		c := append([]string(nil), scc...)
		sort.Strings(c)
		out[i] = c
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

func TestTarjanSCC_Chain(t *testing.T) {
	graph := callGraph{
		"a": {"b"},
		"b": {"c"},
		"c": nil,
	}
	sccs := tarjanSCC(graph)

	require.Len(t, sccs, 3, "acyclic chain has singleton components")
	assert.Equal(t, [][]string{{"a"}, {"b"}, {"c"}}, sortedSCCs(sccs))

	// Callees-first: c before b before a.
	assert.Equal(t, []string{"c"}, sccs[0])
	assert.Equal(t, []string{"b"}, sccs[1])
	assert.Equal(t, []string{"a"}, sccs[2])
}

func TestTarjanSCC_SelfLoop(t *testing.T) {
	graph := callGraph{"retry": {"retry"}}
	sccs := tarjanSCC(graph)
	require.Len(t, sccs, 1)
	assert.Equal(t, []string{"retry"}, sccs[0])
}

func TestTarjanSCC_MutualRecursion(t *testing.T) {
	graph := callGraph{
		"main": {"ping"},
		"ping": {"pong"},
		"pong": {"ping"},
	}
	sccs := tarjanSCC(graph)

	require.Len(t, sccs, 2)
	// The cycle component is emitted before main, which calls into it.
	assert.ElementsMatch(t, []string{"ping", "pong"}, sccs[0])
	assert.Equal(t, []string{"main"}, sccs[1])
}

func TestTarjanSCC_ThreeCycle(t *testing.T) {
	graph := callGraph{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
	}
	sccs := tarjanSCC(graph)
	require.Len(t, sccs, 1)
	assert.Equal(t, []string{"a", "b", "c"}, sortedSCCs(sccs)[0])
}

func TestTarjanSCC_Deterministic(t *testing.T) {
	graph := callGraph{
		"m": {"x", "y"},
		"x": {"z"},
		"y": {"z"},
		"z": nil,
	}
	first := tarjanSCC(graph)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, tarjanSCC(graph), "component order must be stable across runs")
	}
}

func TestCondensationLayers_CalleesInLowerLayers(t *testing.T) {
	graph := callGraph{
		"main":   {"auth", "audit"},
		"auth":   {"fetch"},
		"audit":  {"fetch"},
		"fetch":  {"helper"},
		"helper": nil,
	}
	sccs := tarjanSCC(graph)
	layers := condensationLayers(graph, sccs)

	layerOf := make(map[string]int)
	for depth, layer := range layers {
		for _, scc := range layer {
			for _, fn := range scc {
				layerOf[fn] = depth
			}
		}
	}

	// Every caller sits strictly above its callees.
	for fn, callees := range graph {
		for _, callee := range callees {
			assert.Greater(t, layerOf[fn], layerOf[callee],
				"%s calls %s, so it must be in a higher layer", fn, callee)
		}
	}

	// auth and audit are independent and share a layer.
	assert.Equal(t, layerOf["auth"], layerOf["audit"])
}

func TestCondensationLayers_CycleIsOneNode(t *testing.T) {
	graph := callGraph{
		"main": {"ping"},
		"ping": {"pong"},
		"pong": {"ping", "leaf"},
		"leaf": nil,
	}
	sccs := tarjanSCC(graph)
	layers := condensationLayers(graph, sccs)

	require.Len(t, layers, 3)
	assert.Equal(t, [][]string{{"leaf"}}, layers[0])
	require.Len(t, layers[1], 1)
	assert.ElementsMatch(t, []string{"ping", "pong"}, layers[1][0])
	assert.Equal(t, [][]string{{"main"}}, layers[2])
}
