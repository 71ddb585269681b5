// Package store provides durable storage for NSC check runs.
//
// Every pipeline run over a unit can be persisted: the unit's
// content-addressed hash, a monotonic run sequence, and the complete
// ordered diagnostic list. The build tool uses the store to show a
// unit's checking history and to replay a past run's diagnostics
// byte-for-byte (ordering is part of the record, not recomputed).
//
// Uses SQLite with WAL mode for concurrent read access. Run identity is
// content-addressed: the same unit with the same diagnostics writes the
// same run id, and duplicate writes are idempotent.
package store
