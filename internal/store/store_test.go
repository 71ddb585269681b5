package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hawkstract/nsc/internal/ir"
	"github.com/hawkstract/nsc/internal/query"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleDiags() []ir.Diagnostic {
	return []ir.Diagnostic{
		{Severity: ir.SeverityError, Kind: ir.DiagCapability, Code: "E111",
			Pos: ir.Pos{Line: 5, Column: 3}, Message: "target not covered", Grant: "Network"},
		{Severity: ir.SeverityError, Kind: ir.DiagMutability, Code: "E130",
			Pos: ir.Pos{Line: 9, Column: 1}, Message: "lock reassigned"},
	}
}

func TestStore_WriteReadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run, err := s.WriteRun(ctx, "payments", "unit-hash-1", sampleDiags())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, int64(1), run.Seq)
	assert.False(t, run.Clean)
	assert.Equal(t, 2, run.DiagCount)

	got, err := s.ReadRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run, got)

	diags, err := s.ReadDiagnostics(ctx, run.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, sampleDiags(), diags, "diagnostics round-trip in recorded order")
}

func TestStore_CleanRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run, err := s.WriteRun(ctx, "payments", "unit-hash-1", nil)
	require.NoError(t, err)
	assert.True(t, run.Clean)
	assert.Equal(t, 0, run.DiagCount)

	diags, err := s.ReadDiagnostics(ctx, run.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestStore_WriteRunIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.WriteRun(ctx, "payments", "unit-hash-1", sampleDiags())
	require.NoError(t, err)
	second, err := s.WriteRun(ctx, "payments", "unit-hash-1", sampleDiags())
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "identical runs are content-addressed to one id")
	assert.Equal(t, first.Seq, second.Seq, "the original seq is kept")

	runs, err := s.ListRuns(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, runs, 1, "no duplicate row")

	diags, err := s.ReadDiagnostics(ctx, first.ID, nil)
	require.NoError(t, err)
	assert.Len(t, diags, 2, "diagnostic rows are not duplicated either")
}

func TestStore_RunIDChangesWithFindings(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	dirty, err := s.WriteRun(ctx, "payments", "unit-hash-1", sampleDiags())
	require.NoError(t, err)
	clean, err := s.WriteRun(ctx, "payments", "unit-hash-1", nil)
	require.NoError(t, err)

	assert.NotEqual(t, dirty.ID, clean.ID)
	assert.Equal(t, int64(2), clean.Seq)
}

func TestStore_ReadRunNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.ReadRun(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestStore_ListRunsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.WriteRun(ctx, "alpha", "hash-a", nil)
	require.NoError(t, err)
	_, err = s.WriteRun(ctx, "beta", "hash-b", sampleDiags())
	require.NoError(t, err)

	runs, err := s.ListRuns(ctx, nil)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "beta", runs[0].UnitName, "descending seq")
	assert.Equal(t, "alpha", runs[1].UnitName)
}

func TestStore_ListRunsFiltered(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.WriteRun(ctx, "alpha", "hash-a", nil)
	require.NoError(t, err)
	_, err = s.WriteRun(ctx, "beta", "hash-b", nil)
	require.NoError(t, err)

	runs, err := s.ListRuns(ctx, query.Equals{Field: "unit_name", Value: "alpha"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "alpha", runs[0].UnitName)

	_, err = s.ListRuns(ctx, query.Equals{Field: "message", Value: "x"})
	assert.Error(t, err, "run filters only accept run columns")
}

func TestStore_ReadDiagnosticsFiltered(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run, err := s.WriteRun(ctx, "payments", "unit-hash-1", sampleDiags())
	require.NoError(t, err)

	diags, err := s.ReadDiagnostics(ctx, run.ID, query.Equals{Field: "code", Value: "E130"})
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "E130", diags[0].Code)
}

func TestStore_ClockResumesAfterReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.WriteRun(ctx, "a", "hash-a", nil)
	require.NoError(t, err)
	second, err := s.WriteRun(ctx, "b", "hash-b", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Seq)
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	third, err := reopened.WriteRun(ctx, "c", "hash-c", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), third.Seq, "logical clock resumes from the stored maximum")
}

func TestClock(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())

	resumed := NewClockAt(41)
	assert.Equal(t, int64(42), resumed.Next())
}
