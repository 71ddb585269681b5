package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var runSchema string

// Schema version 1: runs + diagnostics tables.
const schemaVersion = 1

// Store is the durable audit log of check runs. SQLite in WAL mode so
// trace readers never block a concurrent check writing its run.
type Store struct {
	db    *sql.DB
	clock *Clock
}

// Open opens (or creates) the run database at path and applies the
// schema. ":memory:" gives an isolated throwaway database. Safe to call
// on an existing database; the schema is idempotent.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open run database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to run database: %w", err)
	}

	// One connection: SQLite allows a single writer, and the in-memory
	// database exists per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(runSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply run schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		db.Close()
		return nil, fmt.Errorf("record schema version: %w", err)
	}

	s := &Store{db: db}
	if err := s.resumeClock(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// resumeClock seeds the sequence clock from the highest stored seq so
// run ordering stays monotonic across process restarts.
func (s *Store) resumeClock() error {
	var max sql.NullInt64
	if err := s.db.QueryRow("SELECT MAX(seq) FROM runs").Scan(&max); err != nil {
		return fmt.Errorf("resume run clock: %w", err)
	}
	s.clock = NewClockAt(max.Int64)
	return nil
}
