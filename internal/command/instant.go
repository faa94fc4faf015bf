package command

// Instant lifts a plain callback into the Command contract. The action runs
// in Initialize and the command finishes on its first tick.
type Instant struct {
	Base
	action func()
}

// NewInstant wraps action. A nil action is a no-op.
func NewInstant(action func(), requirements ...Resource) *Instant {
	if action == nil {
		action = func() {}
	}
	c := &Instant{action: action}
	c.SetName("Instant")
	c.AddRequirements(requirements...)
	return c
}

// Initialize runs the wrapped action.
func (c *Instant) Initialize() { c.action() }

// IsFinished is always true.
func (c *Instant) IsFinished() bool { return true }
