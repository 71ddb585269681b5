package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hawkstract/nsc/internal/ir"
	"github.com/hawkstract/nsc/internal/query"
)

// ErrRunNotFound is returned when a run id has no stored record.
var ErrRunNotFound = errors.New("run not found")

// ReadRun fetches one run by id.
func (s *Store) ReadRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, unit_name, unit_hash, seq, clean, diag_count
		FROM runs WHERE id = ?
	`, id)
	run, err := scanRun(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read run %q: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read run %q: %w", id, err)
	}
	return run, nil
}

// ListRuns returns runs matching the filter, newest first (descending
// seq, with id as deterministic tiebreaker).
func (s *Store) ListRuns(ctx context.Context, filter query.Predicate) ([]Run, error) {
	where, params, err := query.CompileWhere(filter, query.RunFields)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	q := "SELECT id, unit_name, unit_hash, seq, clean, diag_count FROM runs"
	if where != "" {
		q += " WHERE " + where
	}
	q += " ORDER BY seq DESC, id"

	rows, err := s.db.QueryContext(ctx, q, params...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// ReadDiagnostics returns a run's diagnostics in their recorded order.
// The order was fixed when the run was written; replaying a run renders
// exactly what the original check reported.
func (s *Store) ReadDiagnostics(ctx context.Context, runID string, filter query.Predicate) ([]ir.Diagnostic, error) {
	where, params, err := query.CompileWhere(filter, query.DiagnosticFields)
	if err != nil {
		return nil, fmt.Errorf("read diagnostics: %w", err)
	}
	q := `SELECT severity, kind, code, line, col, message, grant_name
		FROM diagnostics WHERE run_id = ?`
	args := []any{runID}
	if where != "" {
		q += " AND " + where
		args = append(args, params...)
	}
	q += " ORDER BY idx"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("read diagnostics: %w", err)
	}
	defer rows.Close()

	var diags []ir.Diagnostic
	for rows.Next() {
		var d ir.Diagnostic
		var severity, kind string
		if err := rows.Scan(&severity, &kind, &d.Code, &d.Pos.Line, &d.Pos.Column, &d.Message, &d.Grant); err != nil {
			return nil, fmt.Errorf("read diagnostics: %w", err)
		}
		d.Severity = ir.Severity(severity)
		d.Kind = ir.DiagnosticKind(kind)
		diags = append(diags, d)
	}
	return diags, rows.Err()
}

func scanRun(scan func(...any) error) (*Run, error) {
	var run Run
	var clean int
	if err := scan(&run.ID, &run.UnitName, &run.UnitHash, &run.Seq, &clean, &run.DiagCount); err != nil {
		return nil, err
	}
	run.Clean = clean == 1
	return &run, nil
}
