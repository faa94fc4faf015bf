package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is stored in PRAGMA user_version.
//
//	1 - runs and events
const schemaVersion = 1

// applicationID is stored in PRAGMA application_id ("TICK") so a trace log
// can be told apart from any other SQLite file.
const applicationID = 0x5449434b

// ErrNotTraceLog is returned by Open for a database that already holds
// tables but was not created by this package.
var ErrNotTraceLog = errors.New("not a tickr trace log")

// Store is an append-only log of scenario runs and their lifecycle events.
// A trace can be read while a run is still writing (WAL).
type Store struct {
	db *sql.DB
}

// Open opens the trace log at path, creating it if needed. Opening an
// existing log is a no-op apart from the version checks.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; events are appended from the goroutine driving the run
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// dsn passes the connection pragmas through go-sqlite3's DSN parameters so
// every pooled connection gets them.
func dsn(path string) string {
	v := url.Values{}
	v.Set("_journal_mode", "WAL")
	v.Set("_synchronous", "NORMAL")
	v.Set("_busy_timeout", "5000")
	v.Set("_foreign_keys", "on")
	return path + "?" + v.Encode()
}

// migrate stamps a fresh file as a trace log and creates the tables.
func migrate(db *sql.DB) error {
	var appID, version, tables int
	if err := db.QueryRow("PRAGMA application_id").Scan(&appID); err != nil {
		return fmt.Errorf("read application_id: %w", err)
	}
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if err := db.QueryRow("SELECT count(*) FROM sqlite_master WHERE type = 'table'").Scan(&tables); err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}

	switch {
	case appID == applicationID:
	case appID == 0 && tables == 0:
	default:
		return fmt.Errorf("%w: application_id %#x with %d table(s)", ErrNotTraceLog, appID, tables)
	}
	if version > schemaVersion {
		return fmt.Errorf("trace log schema version %d is newer than supported version %d", version, schemaVersion)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		schemaSQL,
		fmt.Sprintf("PRAGMA application_id = %d", applicationID),
		fmt.Sprintf("PRAGMA user_version = %d", schemaVersion),
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return tx.Commit()
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
