package command

// Then returns a sequence running self and then next.
func Then(reg *Registry, self, next Command) (*Sequential, error) {
	return NewSequential(reg, self, next)
}

// Before returns a sequence that runs action first and then self.
func Before(reg *Registry, self Command, action func()) (*Sequential, error) {
	return NewSequential(reg, NewInstant(action), self)
}

// AndThen returns a sequence of self followed by next, in order.
func AndThen(reg *Registry, self Command, next ...Command) (*Sequential, error) {
	return NewSequential(reg, append([]Command{self}, next...)...)
}

// With returns a parallel group of self and others.
func With(reg *Registry, self Command, others ...Command) (*Parallel, error) {
	return NewParallel(reg, append([]Command{self}, others...)...)
}
