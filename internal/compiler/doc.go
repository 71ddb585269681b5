// Package compiler implements the NodeStract security checking passes.
//
// Four passes run over one ir.Unit:
//
//   - ParseGrants: capability header -> frozen CapabilityEnvironment
//   - BuildEffectSets: transitive effect closure per function (fixed point
//     over the call graph, SCC by SCC)
//   - CheckCapabilities: every reachable effect site must be subsumed by
//     a declared grant
//   - AnalyzeVaultScopes / ValidateMutability: scope-sensitive checks over
//     statement bodies
//
// All passes aggregate diagnostics instead of failing fast; CheckUnit
// collects the complete set, sorted by source position, in one run.
// There is no transient failure mode: a unit either checks clean or
// reports everything at once.
package compiler
