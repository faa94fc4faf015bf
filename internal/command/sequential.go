package command

// Sequential runs its children one after another.
//
// Only the current child executes in a given tick. When it finishes, it is
// ended and the next child is initialized in the same tick, so a hand-off
// never costs an extra tick but two children never execute together.
// Children may share resources.
type Sequential struct {
	Base
	registry         *Registry
	children         []Command
	index            int
	running          bool
	runsWhenDisabled bool
}

// NewSequential builds a sequential group of cmds registered in reg.
func NewSequential(reg *Registry, cmds ...Command) (*Sequential, error) {
	s := &Sequential{registry: reg, runsWhenDisabled: true}
	s.SetName("Sequential")
	if err := s.Add(cmds...); err != nil {
		return nil, err
	}
	return s, nil
}

// Add appends children. It fails if the group is running or any child is
// already grouped; on failure nothing is changed.
func (s *Sequential) Add(cmds ...Command) error {
	if s.running {
		return newError(ErrCodeGroupRunning, s,
			"commands cannot be added to a group while it is running")
	}
	if err := s.registry.RequireUngrouped(cmds...); err != nil {
		return err
	}
	s.registry.Register(cmds...)

	for _, c := range cmds {
		s.children = append(s.children, c)
		s.runsWhenDisabled = s.runsWhenDisabled && c.RunsWhenDisabled()
	}
	s.requirements = unionRequirements(s.requirements, cmds...)
	return nil
}

// Children returns the children in run order.
func (s *Sequential) Children() []Command { return s.children }

// Initialize starts the first child.
func (s *Sequential) Initialize() {
	s.index = 0
	s.running = true
	if len(s.children) > 0 {
		s.children[0].Initialize()
	}
}

// Execute drives the current child and hands off when it finishes.
func (s *Sequential) Execute() {
	if s.index >= len(s.children) {
		return
	}
	current := s.children[s.index]
	current.Execute()
	if !current.IsFinished() {
		return
	}
	current.End(false)
	s.index++
	if s.index < len(s.children) {
		s.children[s.index].Initialize()
	}
}

// End interrupts the active child when the group itself is interrupted.
// Children that already finished were ended at hand-off.
func (s *Sequential) End(interrupted bool) {
	if interrupted && s.running && s.index < len(s.children) {
		s.children[s.index].End(true)
	}
	s.running = false
}

// IsFinished reports whether every child has finished.
func (s *Sequential) IsFinished() bool {
	return s.index >= len(s.children)
}

// RunsWhenDisabled is the AND of the children.
func (s *Sequential) RunsWhenDisabled() bool { return s.runsWhenDisabled }
