package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun begins a run and fails the test on error.
func createTestRun(t *testing.T, s *Store, scenario string) string {
	t.Helper()
	id, err := s.BeginRun(context.Background(), scenario, 5)
	if err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}
	return id
}
