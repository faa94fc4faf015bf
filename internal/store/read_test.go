package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestListRuns_Empty(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.ListRuns(context.Background())
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if runs == nil || len(runs) != 0 {
		t.Errorf("ListRuns() = %#v, want empty non-nil slice", runs)
	}
}

func TestListRuns_OldestFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := createTestRun(t, s, "first")
	second := createTestRun(t, s, "second")

	rec := s.NewRecorder(ctx, second)
	rec.Record(1, "initialize", "x")
	rec.Record(1, "execute", "x")
	if err := rec.Err(); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != first || runs[1].ID != second {
		t.Errorf("run order = [%s %s], want [%s %s]", runs[0].ID, runs[1].ID, first, second)
	}
	if runs[0].Events != 0 || runs[1].Events != 2 {
		t.Errorf("event counts = %d, %d, want 0, 2", runs[0].Events, runs[1].Events)
	}
	if runs[0].Finished {
		t.Error("unfinished run reported as finished")
	}
	if runs[0].Errors == nil {
		t.Error("Errors should be an empty slice, not nil")
	}
	if time.Since(runs[0].StartedAt) > time.Minute {
		t.Errorf("StartedAt = %v, want about now", runs[0].StartedAt)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.GetRun(context.Background(), "missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun() = %v, want ErrRunNotFound", err)
	}
}

func TestLatestRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.LatestRun(ctx); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("LatestRun() on empty store = %v, want ErrRunNotFound", err)
	}

	createTestRun(t, s, "old")
	latest := createTestRun(t, s, "new")

	run, err := s.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun() failed: %v", err)
	}
	if run.ID != latest || run.Scenario != "new" || run.Ticks != 5 {
		t.Errorf("LatestRun() = %+v", run)
	}
}

func TestReadCommandEvents(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	runID := createTestRun(t, s, "filter")

	rec := s.NewRecorder(ctx, runID)
	rec.Record(1, "initialize", "hold")
	rec.Record(2, "interrupt", "hold")
	rec.Record(2, "initialize", "raise")
	rec.Record(3, "initialize", "hold")
	if err := rec.Err(); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	events, err := s.ReadCommandEvents(ctx, runID, "hold")
	if err != nil {
		t.Fatalf("ReadCommandEvents() failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	for i, seq := range []int64{1, 2, 4} {
		if events[i].Seq != seq {
			t.Errorf("events[%d].Seq = %d, want %d", i, events[i].Seq, seq)
		}
	}

	none, err := s.ReadEvents(ctx, "missing")
	if err != nil {
		t.Fatalf("ReadEvents() failed: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("ReadEvents(missing) = %#v, want empty slice", none)
	}
}
