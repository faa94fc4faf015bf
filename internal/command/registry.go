package command

// Registry tracks which commands have been absorbed into a group.
//
// Membership is one-way for the registry's lifetime unless a caller
// releases commands explicitly (for example when tearing down a group it
// will never schedule again). Growth is bounded by the number of commands
// ever grouped.
type Registry struct {
	grouped map[Command]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{grouped: make(map[Command]struct{})}
}

// Register marks cmds as grouped.
func (r *Registry) Register(cmds ...Command) {
	for _, c := range cmds {
		r.grouped[c] = struct{}{}
	}
}

// IsGrouped reports whether cmd belongs to a group.
func (r *Registry) IsGrouped(cmd Command) bool {
	if cmd == nil {
		return false
	}
	_, ok := r.grouped[cmd]
	return ok
}

// RequireUngrouped fails with ALREADY_GROUPED if any command is already
// registered, or appears twice in cmds.
func (r *Registry) RequireUngrouped(cmds ...Command) error {
	if err := CheckComparable(cmds...); err != nil {
		return newError(ErrCodeAlreadyGrouped, nil, err.Error())
	}
	seen := make(map[Command]struct{}, len(cmds))
	for _, c := range cmds {
		if r.IsGrouped(c) {
			return newError(ErrCodeAlreadyGrouped, c,
				"commands cannot be added to more than one group")
		}
		if _, dup := seen[c]; dup {
			return newError(ErrCodeAlreadyGrouped, c,
				"command listed twice in the same group")
		}
		seen[c] = struct{}{}
	}
	return nil
}

// Release removes cmds from the registry.
func (r *Registry) Release(cmds ...Command) {
	for _, c := range cmds {
		delete(r.grouped, c)
	}
}

// Len returns the number of grouped commands.
func (r *Registry) Len() int { return len(r.grouped) }
