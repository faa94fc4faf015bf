package scheduler

import "github.com/roach88/tickr/internal/command"

// runState is what the scheduler remembers about an admitted command.
type runState struct {
	interruptible bool
	// requirements captured at admission; released on removal
	requirements []command.Resource
	admittedTick int64
}

// runningSet is an insertion-ordered map of running commands.
// Iteration order is admission order.
type runningSet struct {
	order  []command.Command
	states map[command.Command]*runState
}

func newRunningSet() *runningSet {
	return &runningSet{states: make(map[command.Command]*runState)}
}

func (r *runningSet) Contains(cmd command.Command) bool {
	_, ok := r.states[cmd]
	return ok
}

func (r *runningSet) Get(cmd command.Command) (*runState, bool) {
	st, ok := r.states[cmd]
	return st, ok
}

func (r *runningSet) Add(cmd command.Command, st *runState) {
	if _, ok := r.states[cmd]; ok {
		return
	}
	r.order = append(r.order, cmd)
	r.states[cmd] = st
}

func (r *runningSet) Remove(cmd command.Command) {
	if _, ok := r.states[cmd]; !ok {
		return
	}
	delete(r.states, cmd)
	for i, c := range r.order {
		if c == cmd {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Commands returns a copy of the running commands in admission order.
func (r *runningSet) Commands() []command.Command {
	return append([]command.Command(nil), r.order...)
}

func (r *runningSet) Len() int { return len(r.order) }
