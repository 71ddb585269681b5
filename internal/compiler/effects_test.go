package compiler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hawkstract/nsc/internal/ir"
	"github.com/hawkstract/nsc/internal/testutil"
)

func TestBuildEffectSets_DirectOnly(t *testing.T) {
	u := testutil.Unit("direct",
		testutil.Fn("fetch", nil, testutil.NetworkSite("https", "api.example.com", 3)),
	)
	sets, err := BuildEffectSets(context.Background(), u)
	require.NoError(t, err)

	sites := sets["fetch"].Sites()
	require.Len(t, sites, 1)
	assert.Equal(t, ir.EffectNetwork, sites[0].Kind)
	assert.Equal(t, "fetch", sites[0].Fn, "direct sites carry their containing function")
}

func TestBuildEffectSets_TransitivePropagation(t *testing.T) {
	u := testutil.Unit("chain",
		testutil.Fn("main", []string{"mid"}),
		testutil.Fn("mid", []string{"leaf"}, testutil.FilesystemSite("/var/log/app", 5)),
		testutil.Fn("leaf", nil, testutil.NetworkSite("https", "api.example.com", 9)),
	)
	sets, err := BuildEffectSets(context.Background(), u)
	require.NoError(t, err)

	assert.Equal(t, 2, sets["main"].Len(), "main reaches both effects transitively")
	assert.Equal(t, 2, sets["mid"].Len())
	assert.Equal(t, 1, sets["leaf"].Len())
}

func TestBuildEffectSets_MutualRecursionConverges(t *testing.T) {
	// ping <-> pong cycle with an extra layer on top. The fixed point
	// must terminate and give both cycle members the same closure.
	u := testutil.Unit("cycle",
		testutil.Fn("main", []string{"ping"}),
		testutil.Fn("ping", []string{"pong"}, testutil.NetworkSite("https", "a.example.com", 3)),
		testutil.Fn("pong", []string{"ping", "leaf"}, testutil.NetworkSite("https", "b.example.com", 7)),
		testutil.Fn("leaf", nil, testutil.FilesystemSite("/tmp/scratch", 11)),
	)
	sets, err := BuildEffectSets(context.Background(), u)
	require.NoError(t, err)

	assert.Equal(t, 3, sets["ping"].Len())
	assert.Equal(t, sets["ping"].Sites(), sets["pong"].Sites(),
		"members of one SCC share a closure")
	assert.Equal(t, 3, sets["main"].Len())
	assert.Equal(t, 1, sets["leaf"].Len())
}

func TestBuildEffectSets_SelfRecursion(t *testing.T) {
	u := testutil.Unit("self",
		testutil.Fn("retry", []string{"retry"}, testutil.NetworkSite("https", "api.example.com", 2)),
	)
	sets, err := BuildEffectSets(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, 1, sets["retry"].Len())
}

func TestBuildEffectSets_ExternalCalleesIgnored(t *testing.T) {
	u := testutil.Unit("external",
		testutil.Fn("main", []string{"stdlib.println"}, testutil.NetworkSite("https", "api.example.com", 2)),
	)
	sets, err := BuildEffectSets(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, 1, sets["main"].Len(), "out-of-unit callees contribute nothing")
}

func TestBuildEffectSets_MatchesBruteForceOracle(t *testing.T) {
	// Adversarial shape: diamond on top of a three-cycle with a
	// side branch.
	u := testutil.Unit("oracle",
		testutil.Fn("main", []string{"left", "right"}),
		testutil.Fn("left", []string{"a"}, testutil.FilesystemSite("/data/left", 20)),
		testutil.Fn("right", []string{"a", "side"}),
		testutil.Fn("a", []string{"b"}, testutil.NetworkSite("https", "a.example.com", 30)),
		testutil.Fn("b", []string{"c"}, testutil.NetworkSite("wss", "b.example.com", 40)),
		testutil.Fn("c", []string{"a"}, testutil.FilesystemSite("/data/c", 50)),
		testutil.Fn("side", nil, testutil.NetworkSite("https", "side.example.com", 60)),
	)
	sets, err := BuildEffectSets(context.Background(), u)
	require.NoError(t, err)

	for _, fn := range u.Functions {
		want := testutil.ReachableSiteKeys(u, fn.Name)
		got := make(map[string]bool)
		for _, site := range sets[fn.Name].Sites() {
			got[testutil.SiteKey(site)] = true
		}
		assert.Equal(t, want, got, "closure of %q must match brute-force reachability", fn.Name)
	}
}

func TestBuildEffectSets_Deterministic(t *testing.T) {
	u := testutil.Unit("det",
		testutil.Fn("main", []string{"x", "y"}),
		testutil.Fn("x", []string{"z"}, testutil.NetworkSite("https", "x.example.com", 3)),
		testutil.Fn("y", []string{"z"}, testutil.NetworkSite("https", "y.example.com", 5)),
		testutil.Fn("z", nil, testutil.FilesystemSite("/etc/app", 7)),
	)

	first, err := BuildEffectSets(context.Background(), u)
	require.NoError(t, err)
	for i := 0; i < 25; i++ {
		again, err := BuildEffectSets(context.Background(), u)
		require.NoError(t, err)
		for name := range first {
			assert.Equal(t, first[name].Sites(), again[name].Sites(),
				"closure of %q must be identical across runs", name)
		}
	}
}

func TestBuildEffectSets_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	u := testutil.Unit("cancel",
		testutil.Fn("main", []string{"leaf"}),
		testutil.Fn("leaf", nil, testutil.NetworkSite("https", "api.example.com", 2)),
	)
	_, err := BuildEffectSets(ctx, u)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReachableSites_EntryPointsLimitScope(t *testing.T) {
	u := testutil.Unit("entries",
		testutil.Fn("main", []string{"used"}),
		testutil.Fn("used", nil, testutil.NetworkSite("https", "used.example.com", 3)),
		testutil.Fn("dead", nil, testutil.NetworkSite("https", "dead.example.com", 9)),
	)
	u.EntryPoints = []string{"main"}

	sets, err := BuildEffectSets(context.Background(), u)
	require.NoError(t, err)

	sites := ReachableSites(u, sets)
	require.Len(t, sites, 1)
	assert.Equal(t, "used.example.com", sites[0].Target, "dead code is outside the checked surface")
}

func TestReachableSites_NoEntryPointsChecksWholeUnit(t *testing.T) {
	u := testutil.Unit("whole",
		testutil.Fn("a", nil, testutil.NetworkSite("https", "a.example.com", 3)),
		testutil.Fn("b", nil, testutil.NetworkSite("https", "b.example.com", 9)),
	)
	sets, err := BuildEffectSets(context.Background(), u)
	require.NoError(t, err)
	assert.Len(t, ReachableSites(u, sets), 2)
}
