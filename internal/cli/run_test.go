package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tickr/internal/harness"
	"github.com/roach88/tickr/internal/store"
)

func TestRun_Pass(t *testing.T) {
	path := writeFile(t, t.TempDir(), "s.yaml", passingScenario)

	out, err := execute(t, "run", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Scenario: hold_then_raise (4 ticks)")
	assert.Contains(t, out, "[tick 2] interrupt  hold")
	assert.Contains(t, out, "[tick 2] finish     raise")
	assert.Contains(t, out, "Running: [hold]")
	assert.Contains(t, out, "✓ PASS")
}

func TestRun_Fail(t *testing.T) {
	path := writeFile(t, t.TempDir(), "s.yaml", failingScenario)

	out, err := execute(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ FAIL")
	assert.Contains(t, out, "arm owned by hold")
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "run", filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	bad := writeFile(t, dir, "bad.yaml", invalidScenario)
	_, err = execute(t, "run", bad)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestRun_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "s.yaml", passingScenario)

	out, err := execute(t, "run", path, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Pass)
	assert.Len(t, resp.Data.Trace, 8)
	assert.Equal(t, map[string]string{"arm": "hold"}, resp.Data.Owners)
}

func TestRun_RecordsToDatabase(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "s.yaml", passingScenario)
	db := filepath.Join(dir, "tickr.db")

	out, err := execute(t, "run", path, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Run: ")

	out, err = execute(t, "trace", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "hold_then_raise")
	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, "8 event(s)")

	out, err = execute(t, "trace", "--db", db, "--run", "latest", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "hold_then_raise", resp.Data.Run.Scenario)
	assert.True(t, resp.Data.Run.Finished)
	assert.Equal(t, 8, resp.Data.Stats.TotalEvents)
	assert.Equal(t, 2, resp.Data.Stats.Interrupt+resp.Data.Stats.Finish)
	assert.Equal(t, int64(1), resp.Data.Timeline[0].Seq)
}

func TestRun_DatabaseFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "s.yaml", failingScenario)
	db := filepath.Join(dir, "env.db")
	t.Setenv("TICKR_DB", db)

	_, err := execute(t, "run", path)
	require.Error(t, err)

	out, err := execute(t, "trace", "--run", "latest")
	require.NoError(t, err)
	assert.Contains(t, out, "wrong_owner")
	assert.Contains(t, out, "FAIL")
}

func TestRun_RealtimeMatchesManualClock(t *testing.T) {
	path := writeFile(t, t.TempDir(), "s.yaml", passingScenario)

	scenario, err := harness.LoadScenario(path)
	require.NoError(t, err)
	want, err := harness.Run(scenario)
	require.NoError(t, err)

	out, err := execute(t, "run", path, "--realtime", "--period", "1ms", "--listen", "127.0.0.1:0", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Data.Pass, "errors: %v", resp.Data.Errors)
	assert.Equal(t, want.Trace, resp.Data.Trace)
}

const endlessScenario = `
name: endless
description: "runs far longer than the test waits"
ticks: 1000000
resources: [arm]
commands:
  - name: hold
    kind: cycles
    requires: [arm]
defaults: { arm: hold }
assertions:
  - type: trace_contains
    event: initialize
    command: hold
`

func TestRun_RealtimeInterruptedStillFinishesRun(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "s.yaml", endlessScenario)
	db := filepath.Join(dir, "tickr.db")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	out, err := executeContext(t, ctx, "run", path, "--realtime", "--period", "5ms", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ PASS")

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	run, err := st.LatestRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "endless", run.Scenario)
	assert.True(t, run.Finished)
	assert.True(t, run.Pass)

	events, err := st.ReadEvents(context.Background(), run.ID)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, "initialize", events[0].Event)
	assert.Equal(t, "hold", events[0].Command)
}

func TestRealtimePeriod(t *testing.T) {
	opts := &RunOptions{RootOptions: &RootOptions{}}
	opts.Config.Period = 30 * time.Millisecond

	d, err := realtimePeriod(opts, &harness.Scenario{})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Millisecond, d)

	d, err = realtimePeriod(opts, &harness.Scenario{Period: "10ms"})
	require.NoError(t, err)
	assert.Equal(t, 10*time.Millisecond, d)

	opts.Period = 5 * time.Millisecond
	d, err = realtimePeriod(opts, &harness.Scenario{Period: "10ms"})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Millisecond, d)
}
