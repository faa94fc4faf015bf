package command

// Parallel runs all of its children in the same ticks and finishes when the
// last one does. Children run concurrently, so their requirement sets must
// be disjoint; Add enforces this before anything is registered.
type Parallel struct {
	Base
	registry         *Registry
	children         []Command
	active           map[Command]bool
	running          bool
	runsWhenDisabled bool
}

// NewParallel builds a parallel group of cmds registered in reg.
func NewParallel(reg *Registry, cmds ...Command) (*Parallel, error) {
	p := &Parallel{
		registry:         reg,
		active:           make(map[Command]bool),
		runsWhenDisabled: true,
	}
	p.SetName("Parallel")
	if err := p.Add(cmds...); err != nil {
		return nil, err
	}
	return p, nil
}

// Add appends children. It fails if the group is running, a child is
// already grouped, or two children would share a resource.
func (p *Parallel) Add(cmds ...Command) error {
	if p.running {
		return newError(ErrCodeGroupRunning, p,
			"commands cannot be added to a group while it is running")
	}
	if err := p.registry.RequireUngrouped(cmds...); err != nil {
		return err
	}

	claimed := append([]Resource(nil), p.requirements...)
	for _, c := range cmds {
		if Overlaps(c.Requirements(), claimed) {
			return newError(ErrCodeOverlapping, c,
				"multiple commands in a parallel group cannot require the same resource")
		}
		claimed = unionRequirements(claimed, c)
	}

	p.registry.Register(cmds...)
	for _, c := range cmds {
		p.children = append(p.children, c)
		p.active[c] = false
		p.runsWhenDisabled = p.runsWhenDisabled && c.RunsWhenDisabled()
	}
	p.requirements = claimed
	return nil
}

// Children returns the children in insertion order.
func (p *Parallel) Children() []Command { return p.children }

// Initialize starts every child.
func (p *Parallel) Initialize() {
	p.running = true
	for _, c := range p.children {
		c.Initialize()
		p.active[c] = true
	}
}

// Execute drives every child still running and ends those that finish.
func (p *Parallel) Execute() {
	for _, c := range p.children {
		if !p.active[c] {
			continue
		}
		c.Execute()
		if c.IsFinished() {
			c.End(false)
			p.active[c] = false
		}
	}
}

// End interrupts the children still running when the group is interrupted.
func (p *Parallel) End(interrupted bool) {
	for _, c := range p.children {
		if interrupted && p.active[c] {
			c.End(true)
		}
		p.active[c] = false
	}
	p.running = false
}

// IsFinished reports whether no child is still running.
func (p *Parallel) IsFinished() bool {
	for _, c := range p.children {
		if p.active[c] {
			return false
		}
	}
	return true
}

// RunsWhenDisabled is the AND of the children.
func (p *Parallel) RunsWhenDisabled() bool { return p.runsWhenDisabled }
