package command_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tickr/internal/command"
	"github.com/roach88/tickr/internal/testutil"
)

type plain struct{ command.Base }

func TestBase_Defaults(t *testing.T) {
	c := &plain{}

	assert.False(t, c.IsFinished(), "base commands never finish")
	assert.False(t, c.RunsWhenDisabled())
	assert.Empty(t, c.Requirements())
}

func TestBase_AddRequirements_DedupesAndKeepsOrder(t *testing.T) {
	arm := testutil.NewResource("arm", nil)
	claw := testutil.NewResource("claw", nil)
	c := &plain{}

	c.AddRequirements(arm, claw, arm, nil)

	assert.Equal(t, []command.Resource{arm, claw}, c.Requirements())
}

func TestNameOf(t *testing.T) {
	named := &plain{}
	named.SetName("lift")
	unnamed := &plain{}

	assert.Equal(t, "lift", command.NameOf(named))
	assert.Equal(t, "plain", command.NameOf(unnamed))
	assert.Equal(t, "arm", command.NameOf(testutil.NewResource("arm", nil)))
	assert.Equal(t, "<nil>", command.NameOf(nil))
}

func TestOverlaps(t *testing.T) {
	a := testutil.NewResource("a", nil)
	b := testutil.NewResource("b", nil)
	c := testutil.NewResource("c", nil)

	assert.True(t, command.Overlaps([]command.Resource{a, b}, []command.Resource{b, c}))
	assert.False(t, command.Overlaps([]command.Resource{a}, []command.Resource{b, c}))
	assert.False(t, command.Overlaps(nil, []command.Resource{a}))
}

func TestInstant_RunsActionOnInitialize(t *testing.T) {
	calls := 0
	arm := testutil.NewResource("arm", nil)
	c := command.NewInstant(func() { calls++ }, arm)

	assert.Equal(t, 0, calls, "action must not run at construction")
	c.Initialize()
	assert.Equal(t, 1, calls)
	assert.True(t, c.IsFinished())
	assert.Equal(t, []command.Resource{arm}, c.Requirements())
}

func TestInstant_NilAction(t *testing.T) {
	c := command.NewInstant(nil)
	assert.NotPanics(t, c.Initialize)
}

func TestWait_FinishesAfterDuration(t *testing.T) {
	clock := testutil.NewManualClock()
	w := command.NewWait(100*time.Millisecond, clock)

	w.Initialize()
	assert.False(t, w.IsFinished())

	clock.Advance(60 * time.Millisecond)
	assert.False(t, w.IsFinished())

	clock.Advance(40 * time.Millisecond)
	assert.True(t, w.IsFinished(), "elapsed == duration counts as finished")
}

func TestWait_EndFreezesTimer(t *testing.T) {
	clock := testutil.NewManualClock()
	w := command.NewWait(time.Second, clock)

	w.Initialize()
	clock.Advance(300 * time.Millisecond)
	w.End(true)
	clock.Advance(5 * time.Second)

	assert.Equal(t, 300*time.Millisecond, w.Elapsed())
	assert.False(t, w.IsFinished())
}

func TestWait_RestartsOnInitialize(t *testing.T) {
	clock := testutil.NewManualClock()
	w := command.NewWait(50*time.Millisecond, clock)

	w.Initialize()
	clock.Advance(50 * time.Millisecond)
	require.True(t, w.IsFinished())
	w.End(false)

	w.Initialize()
	assert.False(t, w.IsFinished())
}

func TestWait_NameAndDisabledPolicy(t *testing.T) {
	w := command.NewWait(250*time.Millisecond, nil)

	assert.Equal(t, "Wait:250ms", w.Name())
	assert.True(t, w.RunsWhenDisabled())
	assert.Empty(t, w.Requirements())
}
