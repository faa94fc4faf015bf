package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const passingScenario = `
name: hold_then_raise
description: "raise preempts the default and hold returns"
ticks: 4
resources: [arm]
commands:
  - name: hold
    kind: cycles
    requires: [arm]
  - name: raise
    kind: cycles
    requires: [arm]
    params: { ticks: 1 }
defaults: { arm: hold }
steps:
  - tick: 2
    schedule: raise
assertions:
  - type: trace_order
    order:
      - { event: interrupt, command: hold }
      - { event: finish, command: raise }
  - type: owner
    resource: arm
    command: hold
`

const failingScenario = `
name: wrong_owner
description: "asserts an owner that never holds the arm at the end"
ticks: 2
resources: [arm]
commands:
  - name: hold
    kind: cycles
    requires: [arm]
defaults: { arm: hold }
assertions:
  - type: owner
    resource: arm
`

const invalidScenario = `
name: broken
description: "requires an undeclared resource"
ticks: 1
commands:
  - name: hold
    kind: cycles
    requires: [leg]
assertions:
  - type: running
`

// writeFile writes content to dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), args...)
}

// executeContext is execute with a caller-controlled context.
func executeContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}
