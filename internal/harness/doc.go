// Package harness provides conformance testing for the NSC security core.
//
// The harness loads a compilation unit, runs the full checking pipeline,
// and validates the resulting diagnostics and analysis metadata against
// declarative expectations.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	unit: units/scenario.cue
//	expect:
//	  clean: false
//	  diagnostics:
//	    - code: E111
//	      line: 12
//	assertions:
//	  - type: diag_contains
//	    code: E111
//	    message_contains: "does not cover"
//	  - type: diag_count
//	    code: E111
//	    count: 1
//	  - type: effect_reachable
//	    function: main
//	    kind: Network
//	    target: api.hawkbank.io
//	  - type: vault_block
//	    block: main.safe1
//	    bindings: [api_key]
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - diag_contains: a diagnostic with the given code (and optional
//     position and message substring) was reported
//   - diag_count: the given code appears exactly N times
//   - effect_reachable: the function's converged effect closure contains
//     a site with the given kind and target
//   - vault_block: the scope metadata records the given safe block with
//     exactly the given live vault bindings
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory run database, and the
// pipeline itself is deterministic (sorted diagnostics, content-addressed
// run ids), so golden snapshots compare byte for byte across runs.
package harness
