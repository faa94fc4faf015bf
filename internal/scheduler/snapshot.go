package scheduler

import "github.com/roach88/tickr/internal/command"

// Snapshot is a point-in-time copy of scheduler state, safe to hand to
// another goroutine.
type Snapshot struct {
	Tick         int64            `json:"tick"`
	Disabled     bool             `json:"disabled"`
	GateDisabled bool             `json:"gate_disabled"`
	Running      []RunningCommand `json:"running"`
	Resources    []ResourceStatus `json:"resources"`
}

// RunningCommand describes one admitted command.
type RunningCommand struct {
	Name          string   `json:"name"`
	Interruptible bool     `json:"interruptible"`
	Requirements  []string `json:"requirements"`
	AdmittedTick  int64    `json:"admitted_tick"`
}

// ResourceStatus describes one registered resource.
type ResourceStatus struct {
	Name    string `json:"name"`
	Owner   string `json:"owner,omitempty"`
	Default string `json:"default,omitempty"`
}

// Snapshot captures the running set, ownership and flags.
func (s *Scheduler) Snapshot() Snapshot {
	snap := Snapshot{
		Tick:         s.clock.Current(),
		Disabled:     s.disabled,
		GateDisabled: s.gate.Disabled(),
		Running:      make([]RunningCommand, 0, s.running.Len()),
		Resources:    make([]ResourceStatus, 0, len(s.resources)),
	}
	for _, cmd := range s.running.Commands() {
		st, _ := s.running.Get(cmd)
		rc := RunningCommand{
			Name:          command.NameOf(cmd),
			Interruptible: st.interruptible,
			AdmittedTick:  st.admittedTick,
			Requirements:  make([]string, 0, len(st.requirements)),
		}
		for _, r := range st.requirements {
			rc.Requirements = append(rc.Requirements, command.NameOf(r))
		}
		snap.Running = append(snap.Running, rc)
	}
	for _, r := range s.resources {
		rs := ResourceStatus{Name: command.NameOf(r)}
		if owner := s.owners[r]; owner != nil {
			rs.Owner = command.NameOf(owner)
		}
		if def := s.defaults[r]; def != nil {
			rs.Default = command.NameOf(def)
		}
		snap.Resources = append(snap.Resources, rs)
	}
	return snap
}
