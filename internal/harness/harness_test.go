package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tickr/internal/command"
	"github.com/roach88/tickr/internal/scheduler"
)

func boolPtr(b bool) *bool { return &b }

func TestRun_ArmHandoff(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/arm_handoff.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	assert.Equal(t, []TraceEvent{
		{Tick: 1, Event: EventInitialize, Command: "hold"},
		{Tick: 2, Event: EventInterrupt, Command: "hold"},
		{Tick: 2, Event: EventInitialize, Command: "raise"},
		{Tick: 2, Event: EventExecute, Command: "raise"},
		{Tick: 3, Event: EventExecute, Command: "raise"},
		{Tick: 3, Event: EventFinish, Command: "raise"},
		{Tick: 3, Event: EventInitialize, Command: "hold"},
		{Tick: 4, Event: EventExecute, Command: "hold"},
		{Tick: 5, Event: EventExecute, Command: "hold"},
	}, result.Trace)
	assert.Equal(t, []string{"hold"}, result.Running)
	assert.Equal(t, map[string]string{"arm": "hold"}, result.Owners)
}

func TestRun_Testdata(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_FailingAssertionMarksResult(t *testing.T) {
	scenario := &Scenario{
		Name:        "failing",
		Description: "expects the wrong owner",
		Ticks:       1,
		Resources:   []string{"arm"},
		Commands: []CommandSpec{
			{Name: "x", Kind: KindCycles, Requires: []string{"arm"}},
		},
		Steps: []Step{{Tick: 1, Schedule: "x"}},
		Assertions: []Assertion{
			{Type: AssertOwner, Resource: "arm"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "arm owned by x")
}

func TestRun_StepErrorsAreRecorded(t *testing.T) {
	scenario := &Scenario{
		Name:        "step_errors",
		Description: "schedules a grouped command without expecting it to fail",
		Ticks:       1,
		Commands: []CommandSpec{
			{Name: "a", Kind: KindCycles},
			{Name: "b", Kind: KindCycles},
			{Name: "seq", Kind: KindSequence, Params: map[string]any{"children": []any{"a"}}},
		},
		Steps: []Step{
			{Tick: 1, Schedule: "a"},
			{Tick: 1, Schedule: "b", ExpectError: string(command.ErrCodeGroupedScheduled)},
		},
		Assertions: []Assertion{{Type: AssertRunning, Commands: []string{"b"}}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "tick 1 steps")
	assert.Contains(t, result.Errors[0], "GROUPED_COMMAND_SCHEDULED_DIRECTLY")
	assert.Contains(t, result.Errors[0], "want error GROUPED_COMMAND_SCHEDULED_DIRECTLY, got <nil>")
}

func TestRun_SchedulerDisableStep(t *testing.T) {
	scenario := &Scenario{
		Name:        "scheduler_disable",
		Description: "a disabled scheduler freezes its commands",
		Ticks:       4,
		Commands:    []CommandSpec{{Name: "x", Kind: KindCycles}},
		Steps: []Step{
			{Tick: 1, Schedule: "x"},
			{Tick: 2, Scheduler: "disable"},
			{Tick: 4, Scheduler: "enable"},
		},
		Assertions: []Assertion{
			{Type: AssertTraceCount, Event: EventExecute, Command: "x", Count: 2},
			{Type: AssertRunning, Commands: []string{"x"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_CancelAllStep(t *testing.T) {
	scenario := &Scenario{
		Name:        "cancel_all",
		Description: "cancel_all interrupts everything",
		Ticks:       2,
		Commands: []CommandSpec{
			{Name: "x", Kind: KindCycles},
			{Name: "y", Kind: KindCycles},
		},
		Steps: []Step{
			{Tick: 1, Schedule: "x", Interruptible: boolPtr(false)},
			{Tick: 1, Schedule: "y"},
			{Tick: 2, CancelAll: true},
		},
		Assertions: []Assertion{
			{Type: AssertTraceOrder, Order: []TraceMatch{
				{Event: EventInterrupt, Command: "x", Tick: 2},
				{Event: EventInterrupt, Command: "y", Tick: 2},
			}},
			{Type: AssertRunning},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_Options(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/toggle.yaml")
	require.NoError(t, err)

	var observed []TraceEvent
	var setupCalled bool
	result, err := Run(scenario,
		WithObserver(func(ev TraceEvent) { observed = append(observed, ev) }),
		WithSchedulerSetup(func(s *scheduler.Scheduler) {
			setupCalled = true
			assert.Empty(t, s.Running())
		}),
	)
	require.NoError(t, err)

	assert.True(t, setupCalled)
	assert.Equal(t, result.Trace, observed)
}

func TestBuild_Errors(t *testing.T) {
	overlap := &Scenario{
		Name:        "overlap",
		Description: "parallel children share a resource",
		Ticks:       1,
		Resources:   []string{"arm"},
		Commands: []CommandSpec{
			{Name: "a", Kind: KindCycles, Requires: []string{"arm"}},
			{Name: "b", Kind: KindCycles, Requires: []string{"arm"}},
			{Name: "par", Kind: KindParallel, Params: map[string]any{"children": []any{"a", "b"}}},
		},
		Assertions: []Assertion{{Type: AssertRunning}},
	}
	_, err := Build(overlap, Config{})
	require.Error(t, err)
	assert.True(t, command.IsOverlapping(err))

	_, err = Run(overlap)
	assert.ErrorContains(t, err, "failed to build scenario")

	badDefault := &Scenario{
		Name:        "bad_default",
		Description: "default command does not require its resource",
		Ticks:       1,
		Resources:   []string{"arm"},
		Commands:    []CommandSpec{{Name: "x", Kind: KindCycles}},
		Defaults:    map[string]string{"arm": "x"},
		Assertions:  []Assertion{{Type: AssertRunning}},
	}
	_, err = Build(badDefault, Config{})
	assert.True(t, command.IsInvalidDefault(err))

	badWait := &Scenario{
		Name:        "bad_wait",
		Description: "wait without a duration",
		Ticks:       1,
		Commands:    []CommandSpec{{Name: "w", Kind: KindWait}},
		Assertions:  []Assertion{{Type: AssertRunning}},
	}
	_, err = Build(badWait, Config{})
	assert.ErrorContains(t, err, "positive duration")
}

func TestWorld_InputsAndLookups(t *testing.T) {
	scenario := &Scenario{
		Name:        "world",
		Description: "inputs follow tick ranges",
		Ticks:       1,
		Resources:   []string{"arm"},
		Commands:    []CommandSpec{{Name: "x", Kind: KindWait, Params: map[string]any{"duration": "1s"}}},
		Inputs:      map[string][][]int64{"btn": {{2, 3}, {5, 5}}},
		Assertions:  []Assertion{{Type: AssertRunning}},
	}
	w, err := Build(scenario, Config{})
	require.NoError(t, err)

	var active []int64
	for k := int64(1); k <= 6; k++ {
		require.NoError(t, w.BeginTick(k))
		if w.InputActive("btn") {
			active = append(active, k)
		}
	}
	assert.Equal(t, []int64{2, 3, 5}, active)
	assert.Equal(t, int64(6), w.Tick())

	x, ok := w.Command("x")
	require.True(t, ok)
	assert.Equal(t, "x", command.NameOf(x))
	assert.True(t, x.RunsWhenDisabled())

	arm, ok := w.Resource("arm")
	require.True(t, ok)
	require.NoError(t, w.Scheduler.Tick())
	assert.Equal(t, 1, arm.PeriodicCalls)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
