package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewRunID returns a fresh time-ordered run identifier.
func NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// BeginRun inserts a run record and returns its ID.
func (s *Store) BeginRun(ctx context.Context, scenario string, ticks int64) (string, error) {
	id := NewRunID()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, ticks, started_at)
		VALUES (?, ?, ?, ?)
	`,
		id,
		scenario,
		ticks,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// WriteEvent inserts one lifecycle event.
// Uses ON CONFLICT DO NOTHING so replaying the same (run, seq) is a no-op.
//
// Note: The run referenced by runID must exist (foreign key constraint).
func (s *Store) WriteEvent(ctx context.Context, runID string, ev Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (run_id, seq, tick, event, command)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		runID,
		ev.Seq,
		ev.Tick,
		ev.Event,
		ev.Command,
	)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// FinishRun records the outcome of a run.
func (s *Store) FinishRun(ctx context.Context, runID string, pass bool, errs []string) error {
	if errs == nil {
		errs = []string{}
	}
	errsJSON, err := json.Marshal(errs)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished = 1, pass = ?, errors = ? WHERE id = ?
	`, pass, string(errsJSON), runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// Recorder appends events for one run, numbering them in arrival order.
// It keeps the first write error so it can be used from callbacks that
// cannot return one.
type Recorder struct {
	store *Store
	ctx   context.Context
	runID string
	seq   int64
	err   error
}

// NewRecorder returns a Recorder writing to runID.
func (s *Store) NewRecorder(ctx context.Context, runID string) *Recorder {
	return &Recorder{store: s, ctx: ctx, runID: runID}
}

// Record writes the next event. After a failure further calls are ignored.
func (r *Recorder) Record(tick int64, event, command string) {
	if r.err != nil {
		return
	}
	r.seq++
	r.err = r.store.WriteEvent(r.ctx, r.runID, Event{
		Seq:     r.seq,
		Tick:    tick,
		Event:   event,
		Command: command,
	})
}

// Store returns the store being written.
func (r *Recorder) Store() *Store { return r.store }

// RunID returns the run being recorded.
func (r *Recorder) RunID() string { return r.runID }

// Count returns the number of events recorded.
func (r *Recorder) Count() int64 { return r.seq }

// Err returns the first write error, if any.
func (r *Recorder) Err() error { return r.err }
