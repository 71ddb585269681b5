package store

import (
	"context"
	"fmt"

	"github.com/hawkstract/nsc/internal/ir"
)

// Run is one persisted check run.
type Run struct {
	ID        string `json:"id"` // content-addressed
	UnitName  string `json:"unit_name"`
	UnitHash  string `json:"unit_hash"`
	Seq       int64  `json:"seq"`
	Clean     bool   `json:"clean"`
	DiagCount int    `json:"diag_count"`
}

// WriteRun persists one check run with its full ordered diagnostic list.
// Run identity is content-addressed from the unit hash and diagnostics,
// so re-checking an unchanged unit writes the same id; duplicate writes
// are idempotent (ON CONFLICT DO NOTHING).
func (s *Store) WriteRun(ctx context.Context, unitName, unitHash string, diags []ir.Diagnostic) (*Run, error) {
	id, err := ir.RunID(unitHash, diags)
	if err != nil {
		return nil, fmt.Errorf("write run: %w", err)
	}

	run := &Run{
		ID:        id,
		UnitName:  unitName,
		UnitHash:  unitHash,
		Seq:       s.clock.Next(),
		Clean:     !ir.HasErrors(diags),
		DiagCount: len(diags),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("write run: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, unit_name, unit_hash, seq, clean, diag_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID, run.UnitName, run.UnitHash, run.Seq, boolToInt(run.Clean), run.DiagCount)
	if err != nil {
		return nil, fmt.Errorf("write run: %w", err)
	}

	// An existing id means this exact run is already recorded; keep the
	// original seq and skip the diagnostic rows.
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("write run: %w", err)
	}
	if inserted == 0 {
		if err := tx.QueryRowContext(ctx, "SELECT seq FROM runs WHERE id = ?", run.ID).Scan(&run.Seq); err != nil {
			return nil, fmt.Errorf("write run: %w", err)
		}
		return run, tx.Commit()
	}

	for i, d := range diags {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO diagnostics (run_id, idx, severity, kind, code, line, col, message, grant_name)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, i, string(d.Severity), string(d.Kind), d.Code, d.Pos.Line, d.Pos.Column, d.Message, d.Grant)
		if err != nil {
			return nil, fmt.Errorf("write diagnostic %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("write run: %w", err)
	}
	return run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
