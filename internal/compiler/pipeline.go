package compiler

import (
	"context"
	"fmt"

	"github.com/hawkstract/nsc/internal/ir"
)

// Result is the outcome of checking one compilation unit.
type Result struct {
	// UnitHash is the content-addressed identity of the checked unit.
	UnitHash string

	// Diagnostics is the complete aggregated set, sorted ascending by
	// source position. Empty means the unit checks clean.
	Diagnostics []ir.Diagnostic

	// EffectSets holds the converged per-function effect closures.
	EffectSets EffectSets

	// Scope is the vault analyzer's metadata for the runtime guard.
	Scope *ir.ScopeMetadata

	// Env is the frozen capability environment the checks ran under.
	Env *ir.CapabilityEnvironment
}

// Clean reports whether the unit produced no error diagnostics.
func (r *Result) Clean() bool {
	return !ir.HasErrors(r.Diagnostics)
}

// CheckUnit runs every checking pass over the unit and aggregates the
// full diagnostic set in one run.
//
// Declaration errors do not abort the pipeline: the remaining passes run
// against whatever grants parsed cleanly, so a single compilation attempt
// reports the complete picture. The returned error covers infrastructure
// failures only (hashing, cancellation), never findings.
func CheckUnit(ctx context.Context, u *ir.Unit) (*Result, error) {
	hash, err := ir.UnitHash(u)
	if err != nil {
		return nil, fmt.Errorf("hash unit %q: %w", u.Name, err)
	}

	env, diags := ParseGrants(u)

	sets, err := BuildEffectSets(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("build effect sets for %q: %w", u.Name, err)
	}

	diags = append(diags, CheckCapabilities(env, u, sets)...)

	vaultDiags, scope := AnalyzeVaultScopes(u, env, sets)
	diags = append(diags, vaultDiags...)

	diags = append(diags, ValidateMutability(u)...)

	ir.SortDiagnostics(diags)

	return &Result{
		UnitHash:    hash,
		Diagnostics: diags,
		EffectSets:  sets,
		Scope:       scope,
		Env:         env,
	}, nil
}
