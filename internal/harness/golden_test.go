package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"arm_handoff", "nested_groups"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestMarshalSnapshot_Deterministic(t *testing.T) {
	r := sampleResult()
	r.Owners["claw"] = "grip"

	first, err := MarshalSnapshot("sample", r)
	require.NoError(t, err)
	second, err := MarshalSnapshot("sample", r)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, string(first), "\"owners\": {\n    \"arm\": \"hold\",\n    \"claw\": \"grip\"\n  }")
}
