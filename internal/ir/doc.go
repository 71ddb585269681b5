// Package ir provides the canonical intermediate representation for the
// NodeStract security core.
//
// The external front-end lexes and parses .hns source; what reaches this
// package is already resolved: a compilation unit with its capability
// header, a call graph with direct effect annotations, and per-function
// statement bodies carrying binding declarations and safe blocks.
//
// This package contains type definitions, diagnostics, and content hashing
// only. All other internal packages import ir; ir imports nothing internal.
// This keeps the IR the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Capability grants are frozen per unit and threaded explicitly
//     (never ambient global state)
//   - All JSON tags use snake_case
//   - No floats in anything that feeds content-addressed hashing
package ir
