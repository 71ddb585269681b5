package compiler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hawkstract/nsc/internal/ir"
)

// analyzeBody runs the vault pass over a single-function unit with no
// grants declared.
func analyzeBody(t *testing.T, body []ir.Stmt) ([]ir.Diagnostic, *ir.ScopeMetadata) {
	t.Helper()
	u := &ir.Unit{
		Name:      "vaulttest",
		Functions: []ir.Function{{Name: "main", Pos: ir.Pos{Line: 1, Column: 1}, Body: body}},
	}
	env, _ := ParseGrants(u)
	sets, err := BuildEffectSets(context.Background(), u)
	require.NoError(t, err)
	return AnalyzeVaultScopes(u, env, sets)
}

func pos(line int) ir.Pos { return ir.Pos{Line: line, Column: 1} }

func TestAnalyzeVaultScopes_AccessInsideSafeIsClean(t *testing.T) {
	body := []ir.Stmt{
		{Kind: ir.StmtDecl, Pos: pos(2), Name: "api_key", Binding: ir.BindingVault, Type: "string"},
		{Kind: ir.StmtSafe, Pos: pos(3), Body: []ir.Stmt{
			{Kind: ir.StmtDecl, Pos: pos(4), Name: "local", Binding: ir.BindingLock,
				Value: &ir.Expr{Refs: []string{"api_key"}}},
		}},
	}
	diags, meta := analyzeBody(t, body)

	assert.Empty(t, diags)
	require.Len(t, meta.Blocks, 1)
	assert.Equal(t, "main.safe1", meta.Blocks[0].ID)
	assert.Equal(t, []string{"api_key"}, meta.Blocks[0].Bindings)
	require.Len(t, meta.Bindings, 1)
	assert.Equal(t, "main.safe1", meta.Bindings[0].BlockID,
		"binding is owned by the block that revealed it")
}

func TestAnalyzeVaultScopes_AccessOutsideSafe(t *testing.T) {
	body := []ir.Stmt{
		{Kind: ir.StmtDecl, Pos: pos(2), Name: "api_key", Binding: ir.BindingVault, Type: "string"},
		{Kind: ir.StmtExpr, Pos: pos(3), Value: &ir.Expr{Refs: []string{"api_key"}, Call: "println"}},
	}
	diags, _ := analyzeBody(t, body)

	require.Len(t, diags, 1)
	assert.Equal(t, ErrVaultOutsideSafe, diags[0].Code)
	assert.Equal(t, ir.DiagVaultScope, diags[0].Kind)
	assert.Contains(t, diags[0].Message, `vault "api_key" accessed outside safe scope`)
	assert.Equal(t, pos(3), diags[0].Pos)
}

func TestAnalyzeVaultScopes_EscapeByAssignment(t *testing.T) {
	// A binding declared before the block receives decrypted data
	// inside it: the plaintext would outlive the block.
	body := []ir.Stmt{
		{Kind: ir.StmtDecl, Pos: pos(2), Name: "api_key", Binding: ir.BindingVault, Type: "string"},
		{Kind: ir.StmtDecl, Pos: pos(3), Name: "leak", Binding: ir.BindingStract, Type: "string"},
		{Kind: ir.StmtSafe, Pos: pos(4), Body: []ir.Stmt{
			{Kind: ir.StmtAssign, Pos: pos(5), Name: "leak",
				Value: &ir.Expr{Refs: []string{"api_key"}}},
		}},
	}
	diags, _ := analyzeBody(t, body)

	require.Len(t, diags, 1)
	assert.Equal(t, ErrVaultEscapes, diags[0].Code)
	assert.Contains(t, diags[0].Message, `assigned to "leak" declared outside the block`)
}

func TestAnalyzeVaultScopes_AssignmentWithinBlockIsClean(t *testing.T) {
	body := []ir.Stmt{
		{Kind: ir.StmtDecl, Pos: pos(2), Name: "api_key", Binding: ir.BindingVault, Type: "string"},
		{Kind: ir.StmtSafe, Pos: pos(3), Body: []ir.Stmt{
			{Kind: ir.StmtDecl, Pos: pos(4), Name: "scratch", Binding: ir.BindingStract, Type: "string"},
			{Kind: ir.StmtAssign, Pos: pos(5), Name: "scratch",
				Value: &ir.Expr{Refs: []string{"api_key"}}},
		}},
	}
	diags, _ := analyzeBody(t, body)
	assert.Empty(t, diags, "plaintext staying inside the block is fine")
}

func TestAnalyzeVaultScopes_EscapeByReturn(t *testing.T) {
	body := []ir.Stmt{
		{Kind: ir.StmtDecl, Pos: pos(2), Name: "api_key", Binding: ir.BindingVault, Type: "string"},
		{Kind: ir.StmtSafe, Pos: pos(3), Body: []ir.Stmt{
			{Kind: ir.StmtReturn, Pos: pos(4), Value: &ir.Expr{Refs: []string{"api_key"}}},
		}},
	}
	diags, _ := analyzeBody(t, body)

	require.Len(t, diags, 1)
	assert.Equal(t, ErrVaultEscapes, diags[0].Code)
	assert.Contains(t, diags[0].Message, "returned from safe block")
}

func TestAnalyzeVaultScopes_TaintPropagatesThroughLocals(t *testing.T) {
	// api_key -> derived -> leak: the second hop still escapes.
	body := []ir.Stmt{
		{Kind: ir.StmtDecl, Pos: pos(2), Name: "api_key", Binding: ir.BindingVault, Type: "string"},
		{Kind: ir.StmtDecl, Pos: pos(3), Name: "leak", Binding: ir.BindingStract, Type: "string"},
		{Kind: ir.StmtSafe, Pos: pos(4), Body: []ir.Stmt{
			{Kind: ir.StmtDecl, Pos: pos(5), Name: "derived", Binding: ir.BindingLock,
				Value: &ir.Expr{Refs: []string{"api_key"}}},
			{Kind: ir.StmtAssign, Pos: pos(6), Name: "leak",
				Value: &ir.Expr{Refs: []string{"derived"}}},
		}},
	}
	diags, _ := analyzeBody(t, body)

	require.Len(t, diags, 1)
	assert.Equal(t, ErrVaultEscapes, diags[0].Code)
	assert.Equal(t, pos(6), diags[0].Pos)
}

func TestAnalyzeVaultScopes_ClosureCaptureOutsideSafe(t *testing.T) {
	body := []ir.Stmt{
		{Kind: ir.StmtDecl, Pos: pos(2), Name: "api_key", Binding: ir.BindingVault, Type: "string"},
		{Kind: ir.StmtDecl, Pos: pos(3), Name: "cb", Binding: ir.BindingLock,
			Value: &ir.Expr{Closure: []ir.Stmt{
				{Kind: ir.StmtExpr, Pos: pos(4), Value: &ir.Expr{Refs: []string{"api_key"}}},
			}}},
	}
	diags, _ := analyzeBody(t, body)

	require.Len(t, diags, 1)
	assert.Equal(t, ErrVaultOutsideSafe, diags[0].Code)
	assert.Contains(t, diags[0].Message, "captured by closure")
}

func TestAnalyzeVaultScopes_ClosureEscapesBlock(t *testing.T) {
	// A closure built inside the block captures plaintext and is
	// assigned to a binding that outlives the block.
	body := []ir.Stmt{
		{Kind: ir.StmtDecl, Pos: pos(2), Name: "api_key", Binding: ir.BindingVault, Type: "string"},
		{Kind: ir.StmtDecl, Pos: pos(3), Name: "cb", Binding: ir.BindingStract, Type: "fn"},
		{Kind: ir.StmtSafe, Pos: pos(4), Body: []ir.Stmt{
			{Kind: ir.StmtAssign, Pos: pos(5), Name: "cb",
				Value: &ir.Expr{Closure: []ir.Stmt{
					{Kind: ir.StmtExpr, Pos: pos(6), Value: &ir.Expr{Refs: []string{"api_key"}}},
				}}},
		}},
	}
	diags, _ := analyzeBody(t, body)

	require.Len(t, diags, 1)
	assert.Equal(t, ErrVaultEscapes, diags[0].Code)
}

func TestAnalyzeVaultScopes_NestedBlocksShareOwnership(t *testing.T) {
	// The binding is referenced in the outer block and again in an
	// inner one. Liveness lands in both frames; ownership pins to the
	// outermost block so inner exit does not zeroize it.
	body := []ir.Stmt{
		{Kind: ir.StmtDecl, Pos: pos(2), Name: "api_key", Binding: ir.BindingVault, Type: "string"},
		{Kind: ir.StmtSafe, Pos: pos(3), Body: []ir.Stmt{
			{Kind: ir.StmtExpr, Pos: pos(4), Value: &ir.Expr{Refs: []string{"api_key"}}},
			{Kind: ir.StmtSafe, Pos: pos(5), Body: []ir.Stmt{
				{Kind: ir.StmtExpr, Pos: pos(6), Value: &ir.Expr{Refs: []string{"api_key"}}},
			}},
		}},
	}
	diags, meta := analyzeBody(t, body)
	assert.Empty(t, diags)

	require.Len(t, meta.Blocks, 2)
	outer := meta.BlockByID("main.safe1")
	inner := meta.BlockByID("main.safe2")
	require.NotNil(t, outer)
	require.NotNil(t, inner)
	assert.Empty(t, outer.Parent)
	assert.Equal(t, "main.safe1", inner.Parent)
	assert.Equal(t, []string{"api_key"}, outer.Bindings)
	assert.Equal(t, []string{"api_key"}, inner.Bindings)

	require.Len(t, meta.Bindings, 1)
	assert.Equal(t, "main.safe1", meta.Bindings[0].BlockID,
		"zeroization belongs to the outermost referencing block")
}

func TestAnalyzeVaultScopes_InnerOnlyReferenceStillOwnedByOutermost(t *testing.T) {
	body := []ir.Stmt{
		{Kind: ir.StmtDecl, Pos: pos(2), Name: "token", Binding: ir.BindingVault, Type: "string"},
		{Kind: ir.StmtSafe, Pos: pos(3), Body: []ir.Stmt{
			{Kind: ir.StmtSafe, Pos: pos(4), Body: []ir.Stmt{
				{Kind: ir.StmtExpr, Pos: pos(5), Value: &ir.Expr{Refs: []string{"token"}}},
			}},
		}},
	}
	diags, meta := analyzeBody(t, body)
	assert.Empty(t, diags)

	require.Len(t, meta.Bindings, 1)
	assert.Equal(t, "main.safe1", meta.Bindings[0].BlockID,
		"plaintext revealed in a nested block lives until the outermost exit")
	assert.Equal(t, []string{"token"}, meta.BlockByID("main.safe1").Bindings)
}

func TestAnalyzeVaultScopes_TaintedCallWithoutGrant(t *testing.T) {
	u := &ir.Unit{
		Name: "taintedcall",
		Functions: []ir.Function{
			{Name: "main", Pos: pos(1), Body: []ir.Stmt{
				{Kind: ir.StmtDecl, Pos: pos(2), Name: "secret", Binding: ir.BindingVault, Type: "string"},
				{Kind: ir.StmtSafe, Pos: pos(3), Body: []ir.Stmt{
					{Kind: ir.StmtExpr, Pos: pos(4),
						Value: &ir.Expr{Refs: []string{"secret"}, Call: "upload"}},
				}},
			}},
			{Name: "upload", Pos: pos(10), Effects: []ir.EffectSite{
				{Kind: ir.EffectNetwork, Target: "api.example.com", Protocol: "https", Pos: pos(11)},
			}},
		},
	}
	env, _ := ParseGrants(u)
	sets, err := BuildEffectSets(context.Background(), u)
	require.NoError(t, err)
	diags, _ := AnalyzeVaultScopes(u, env, sets)

	require.Len(t, diags, 1)
	assert.Equal(t, ErrVaultUncoveredCall, diags[0].Code)
	assert.Contains(t, diags[0].Message, `passed to "upload"`)
	assert.Contains(t, diags[0].Message, "undeclared capability Network")
}

func TestAnalyzeVaultScopes_TaintedCallWithGrantIsClean(t *testing.T) {
	u := &ir.Unit{
		Name: "grantedcall",
		Header: []ir.CapabilityDecl{
			{Name: "Network", Protocol: "https", Domain: "api.example.com", Pos: pos(1)},
		},
		Functions: []ir.Function{
			{Name: "main", Pos: pos(2), Body: []ir.Stmt{
				{Kind: ir.StmtDecl, Pos: pos(3), Name: "secret", Binding: ir.BindingVault, Type: "string"},
				{Kind: ir.StmtSafe, Pos: pos(4), Body: []ir.Stmt{
					{Kind: ir.StmtExpr, Pos: pos(5),
						Value: &ir.Expr{Refs: []string{"secret"}, Call: "upload"}},
				}},
			}},
			{Name: "upload", Pos: pos(10), Effects: []ir.EffectSite{
				{Kind: ir.EffectNetwork, Target: "api.example.com", Protocol: "https", Pos: pos(11)},
			}},
		},
	}
	env, declDiags := ParseGrants(u)
	require.Empty(t, declDiags)
	sets, err := BuildEffectSets(context.Background(), u)
	require.NoError(t, err)
	diags, _ := AnalyzeVaultScopes(u, env, sets)
	assert.Empty(t, diags, "declared capability authorizes the vault data flow")
}

func TestAnalyzeVaultScopes_VaultDeclarationAloneIsClean(t *testing.T) {
	body := []ir.Stmt{
		{Kind: ir.StmtDecl, Pos: pos(2), Name: "secret", Binding: ir.BindingVault, Type: "string"},
	}
	diags, meta := analyzeBody(t, body)

	assert.Empty(t, diags, "declaring a vault stores ciphertext, not plaintext")
	require.Len(t, meta.Bindings, 1)
	assert.Empty(t, meta.Bindings[0].BlockID, "never revealed, owned by no block")
}

func TestAnalyzeVaultScopes_BranchesInsideSafe(t *testing.T) {
	body := []ir.Stmt{
		{Kind: ir.StmtDecl, Pos: pos(2), Name: "secret", Binding: ir.BindingVault, Type: "string"},
		{Kind: ir.StmtDecl, Pos: pos(3), Name: "out", Binding: ir.BindingStract, Type: "string"},
		{Kind: ir.StmtSafe, Pos: pos(4), Body: []ir.Stmt{
			{Kind: ir.StmtIf, Pos: pos(5), Cond: &ir.Expr{Refs: []string{"secret"}},
				Body: []ir.Stmt{
					{Kind: ir.StmtAssign, Pos: pos(6), Name: "out",
						Value: &ir.Expr{Refs: []string{"secret"}}},
				}},
		}},
	}
	diags, _ := analyzeBody(t, body)

	require.Len(t, diags, 1, "escape through a conditional branch is still an escape")
	assert.Equal(t, ErrVaultEscapes, diags[0].Code)
	assert.Equal(t, pos(6), diags[0].Pos)
}
