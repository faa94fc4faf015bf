package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenarioCUE(t *testing.T) {
	src := `
ticks: 3
name: "cue_minimal"
description: "built with a comprehension"
resources: ["arm", "claw"]
commands: [for r in resources {name: "hold_\(r)", kind: "cycles", requires: [r]}]
defaults: {for r in resources {(r): "hold_\(r)"}}
assertions: [{type: "owner", resource: "arm", command: "hold_arm"}]
`
	s, err := ParseScenarioCUE([]byte(src), "inline.cue")
	require.NoError(t, err)

	assert.Equal(t, "cue_minimal", s.Name)
	require.Len(t, s.Commands, 2)
	assert.Equal(t, "hold_claw", s.Commands[1].Name)
	assert.Equal(t, []string{"claw"}, s.Commands[1].Requires)
	assert.Equal(t, map[string]string{"arm": "hold_arm", "claw": "hold_claw"}, s.Defaults)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestParseScenarioCUE_SchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown field", `name: "x", description: "d", ticks: 1, assertions: [{type: "running"}], tics: 2`},
		{"bad kind", `name: "x", description: "d", ticks: 1, commands: [{name: "c", kind: "warp"}], assertions: [{type: "running"}]`},
		{"zero ticks", `name: "x", description: "d", ticks: 0, assertions: [{type: "running"}]`},
		{"no assertions", `name: "x", description: "d", ticks: 1, assertions: []`},
		{"syntax", `name: "x`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenarioCUE([]byte(tt.src), "bad.cue")
			assert.Error(t, err)
		})
	}
}

func TestParseScenarioCUE_RunsValidation(t *testing.T) {
	// passes the schema but names an undeclared resource
	src := `name: "x", description: "d", ticks: 1
commands: [{name: "c", kind: "cycles", requires: ["leg"]}]
assertions: [{type: "running"}]`
	_, err := ParseScenarioCUE([]byte(src), "bad.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown resource "leg"`)
}
