// Package query defines the small filter IR used to select check runs
// and diagnostics from the store, and its compiler to parameterized
// SQLite SQL.
//
// The IR is deliberately tiny: equality predicates over a whitelisted
// field set, combined with And. Every compiled query is parameterized
// (values are never interpolated) and carries a mandatory ORDER BY with
// a deterministic tiebreaker, so the same store always returns rows in
// the same order.
package query
