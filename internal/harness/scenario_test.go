package harness

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
name: minimal
description: "one command"
ticks: 2
resources: [arm]
commands:
  - name: x
    kind: cycles
    requires: [arm]
    params: { ticks: 1 }
steps:
  - tick: 1
    schedule: x
assertions:
  - type: trace_contains
    event: finish
    command: x
`

func TestParseScenarioYAML_Minimal(t *testing.T) {
	s, err := ParseScenarioYAML([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	assert.Equal(t, int64(2), s.Ticks)
	require.Len(t, s.Commands, 1)
	assert.Equal(t, 1, s.Commands[0].Params["ticks"])

	period, err := s.TickPeriod()
	require.NoError(t, err)
	assert.Equal(t, DefaultPeriod, period)
}

func TestLoadScenario_DispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "minimal.yml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "minimal", s.Name)

	s, err = LoadScenario("testdata/scenarios/toggle_between.cue")
	require.NoError(t, err)
	assert.Equal(t, "toggle_between", s.Name)
}

func TestParseScenarioYAML_RejectsUnknownFields(t *testing.T) {
	_, err := ParseScenarioYAML([]byte(minimalYAML + "assertion: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenarioYAML_NormalizesNames(t *testing.T) {
	composed := "caf\u00e9"
	decomposed := "cafe\u0301"
	src := `
name: nfc
description: "names compare after NFC"
ticks: 1
resources: ["` + composed + `"]
commands:
  - name: x
    kind: cycles
    requires: ["` + decomposed + `"]
assertions:
  - type: owner
    resource: "` + decomposed + `"
`
	s, err := ParseScenarioYAML([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, composed, s.Commands[0].Requires[0])
	assert.Equal(t, composed, s.Assertions[0].Resource)
}

func TestValidateScenario_Errors(t *testing.T) {
	base := func() *Scenario {
		return &Scenario{
			Name:        "v",
			Description: "validation",
			Ticks:       3,
			Resources:   []string{"arm"},
			Commands: []CommandSpec{
				{Name: "x", Kind: KindCycles, Requires: []string{"arm"}},
			},
			Assertions: []Assertion{{Type: AssertRunning}},
		}
	}

	tests := []struct {
		name   string
		mutate func(s *Scenario)
		want   string
	}{
		{"missing name", func(s *Scenario) { s.Name = "" }, "name is required"},
		{"missing description", func(s *Scenario) { s.Description = "" }, "description is required"},
		{"no ticks", func(s *Scenario) { s.Ticks = 0 }, "ticks must be positive"},
		{"bad period", func(s *Scenario) { s.Period = "soon" }, "period"},
		{"negative period", func(s *Scenario) { s.Period = "-1s" }, "period must be positive"},
		{"no assertions", func(s *Scenario) { s.Assertions = nil }, "assertions list is required"},
		{"duplicate resource", func(s *Scenario) { s.Resources = append(s.Resources, "arm") }, "duplicate resource"},
		{"unknown requirement", func(s *Scenario) { s.Commands[0].Requires = []string{"leg"} }, `unknown resource "leg"`},
		{"duplicate command", func(s *Scenario) { s.Commands = append(s.Commands, s.Commands[0]) }, "duplicate command"},
		{"missing kind", func(s *Scenario) { s.Commands[0].Kind = "" }, "kind is required"},
		{"unknown kind", func(s *Scenario) { s.Commands[0].Kind = "teleport" }, `unknown kind "teleport"`},
		{"group requires", func(s *Scenario) {
			s.Commands = append(s.Commands, CommandSpec{Name: "g", Kind: KindSequence, Requires: []string{"arm"}})
		}, "groups take their requirements"},
		{"child defined later", func(s *Scenario) {
			s.Commands = append([]CommandSpec{{Name: "g", Kind: KindParallel, Params: map[string]any{"children": []any{"x"}}}}, s.Commands...)
		}, "must be defined before the group"},
		{"unknown group param", func(s *Scenario) {
			s.Commands = append(s.Commands, CommandSpec{Name: "g", Kind: KindSequence, Params: map[string]any{"kids": []any{"x"}}})
		}, "params"},
		{"default unknown resource", func(s *Scenario) { s.Defaults = map[string]string{"leg": "x"} }, `defaults: unknown resource "leg"`},
		{"default unknown command", func(s *Scenario) { s.Defaults = map[string]string{"arm": "y"} }, `unknown command "y"`},
		{"bad input range", func(s *Scenario) { s.Inputs = map[string][][]int64{"btn": {{3, 2}}} }, "inputs[btn][0]"},
		{"input range from zero", func(s *Scenario) { s.Inputs = map[string][][]int64{"btn": {{0, 2}}} }, "inputs[btn][0]"},
		{"bad binding kind", func(s *Scenario) {
			s.Inputs = map[string][][]int64{"btn": nil}
			s.Bindings = []Binding{{Trigger: "btn", Kind: "whenever", Commands: []string{"x"}}}
		}, "unknown binding kind"},
		{"binding arity", func(s *Scenario) {
			s.Inputs = map[string][][]int64{"btn": nil}
			s.Bindings = []Binding{{Trigger: "btn", Kind: "toggle_between", Commands: []string{"x"}}}
		}, "takes 2 command(s)"},
		{"binding unknown input", func(s *Scenario) {
			s.Bindings = []Binding{{Trigger: "btn", Kind: "on_rising_edge", Commands: []string{"x"}}}
		}, `unknown input "btn"`},
		{"step tick zero", func(s *Scenario) { s.Steps = []Step{{Schedule: "x"}} }, "tick must be >= 1"},
		{"step two actions", func(s *Scenario) { s.Steps = []Step{{Tick: 1, Schedule: "x", Cancel: "x"}} }, "exactly one of"},
		{"step no action", func(s *Scenario) { s.Steps = []Step{{Tick: 1}} }, "exactly one of"},
		{"step bad toggle", func(s *Scenario) { s.Steps = []Step{{Tick: 1, Gate: "off"}} }, "want enable or disable"},
		{"step expect on cancel", func(s *Scenario) {
			s.Steps = []Step{{Tick: 1, Cancel: "x", ExpectError: "ALREADY_GROUPED"}}
		}, "expect_error only applies to schedule"},
		{"step unknown code", func(s *Scenario) {
			s.Steps = []Step{{Tick: 1, Schedule: "x", ExpectError: "OOPS"}}
		}, `unknown error code "OOPS"`},
		{"assertion unknown type", func(s *Scenario) { s.Assertions = []Assertion{{Type: "final_state"}} }, "unknown assertion type"},
		{"assertion missing command", func(s *Scenario) { s.Assertions = []Assertion{{Type: AssertTraceContains}} }, "command is required"},
		{"assertion unknown event", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertTraceCount, Command: "x", Event: "explode"}}
		}, `unknown event "explode"`},
		{"assertion short order", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertTraceOrder, Order: []TraceMatch{{Command: "x"}}}}
		}, "at least two entries"},
		{"owner unknown resource", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertOwner, Resource: "leg"}}
		}, `unknown resource "leg"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			require.NoError(t, validateScenario(s))
			tt.mutate(s)
			err := validateScenario(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestTickPeriod(t *testing.T) {
	s := &Scenario{Period: "5ms"}
	d, err := s.TickPeriod()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Millisecond, d)
}

func TestDecodeParams(t *testing.T) {
	var w waitParams
	require.NoError(t, decodeParams(map[string]any{"duration": "250ms"}, &w))
	assert.Equal(t, 250*time.Millisecond, w.Duration)

	var c cyclesParams
	require.NoError(t, decodeParams(map[string]any{"ticks": 3.0, "runs_when_disabled": true}, &c))
	assert.Equal(t, cyclesParams{Ticks: 3, RunsWhenDisabled: true}, c)

	err := decodeParams(map[string]any{"tick": 3}, &c)
	assert.ErrorContains(t, err, "params")
}
