package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrRunNotFound is returned when a run ID is not in the store.
var ErrRunNotFound = errors.New("run not found")

// Run is a recorded scenario run.
type Run struct {
	ID        string    `json:"id"`
	Scenario  string    `json:"scenario"`
	Ticks     int64     `json:"ticks"`
	StartedAt time.Time `json:"started_at"`
	Finished  bool      `json:"finished"`
	Pass      bool      `json:"pass"`
	Errors    []string  `json:"errors"`
	Events    int64     `json:"events"`
}

// Event is one recorded lifecycle event.
type Event struct {
	Seq     int64  `json:"seq"`
	Tick    int64  `json:"tick"`
	Event   string `json:"event"`
	Command string `json:"command"`
}

const runColumns = `
	SELECT r.id, r.scenario, r.ticks, r.started_at, r.finished, r.pass, r.errors,
	       (SELECT COUNT(*) FROM events e WHERE e.run_id = r.id)
	FROM runs r
`

// ListRuns returns every run, oldest first.
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, runColumns+` ORDER BY r.id COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run. Returns ErrRunNotFound if it does not exist.
func (s *Store) GetRun(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx, runColumns+` WHERE r.id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// LatestRun returns the most recent run. Returns ErrRunNotFound if the
// store is empty.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx, runColumns+` ORDER BY r.id COLLATE BINARY DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("latest run: %w", ErrRunNotFound)
	}
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// ReadEvents returns a run's events ordered by seq.
// Returns an empty slice (not nil) if the run has no events.
func (s *Store) ReadEvents(ctx context.Context, runID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, tick, event, command
		FROM events
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.Seq, &ev.Tick, &ev.Event, &ev.Command); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// ReadCommandEvents returns a run's events for one command, ordered by seq.
func (s *Store) ReadCommandEvents(ctx context.Context, runID, command string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, tick, event, command
		FROM events
		WHERE run_id = ? AND command = ?
		ORDER BY seq ASC
	`, runID, command)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.Seq, &ev.Tick, &ev.Event, &ev.Command); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run       Run
		startedAt string
		errsJSON  string
	)
	if err := sc.Scan(&run.ID, &run.Scenario, &run.Ticks, &startedAt, &run.Finished, &run.Pass, &errsJSON, &run.Events); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse started_at for run %s: %w", run.ID, err)
	}
	run.StartedAt = t

	if err := json.Unmarshal([]byte(errsJSON), &run.Errors); err != nil {
		return Run{}, fmt.Errorf("unmarshal errors for run %s: %w", run.ID, err)
	}
	if run.Errors == nil {
		run.Errors = []string{}
	}
	return run, nil
}
