package scheduler

import "github.com/roach88/tickr/internal/command"

// scheduleRequest is a buffered Schedule call.
type scheduleRequest struct {
	cmd           command.Command
	interruptible bool
}

// scheduleQueue buffers Schedule calls made during the run loop.
//
// FIFO by first request; a later request for the same command overwrites
// the interruptible flag but keeps its original position.
type scheduleQueue struct {
	requests []scheduleRequest
	index    map[command.Command]int
}

func newScheduleQueue() *scheduleQueue {
	return &scheduleQueue{index: make(map[command.Command]int)}
}

func (q *scheduleQueue) Enqueue(cmd command.Command, interruptible bool) {
	if i, ok := q.index[cmd]; ok {
		q.requests[i].interruptible = interruptible
		return
	}
	q.index[cmd] = len(q.requests)
	q.requests = append(q.requests, scheduleRequest{cmd: cmd, interruptible: interruptible})
}

// Drain empties the queue and returns its requests in FIFO order.
func (q *scheduleQueue) Drain() []scheduleRequest {
	out := q.requests
	q.requests = nil
	clear(q.index)
	return out
}

func (q *scheduleQueue) Len() int { return len(q.requests) }

// cancelQueue buffers Cancel calls made during the run loop, in FIFO order.
// Duplicates are kept; cancelling a stopped command is a no-op.
type cancelQueue struct {
	cmds []command.Command
}

func (q *cancelQueue) Enqueue(cmds ...command.Command) {
	q.cmds = append(q.cmds, cmds...)
}

func (q *cancelQueue) Drain() []command.Command {
	out := q.cmds
	q.cmds = nil
	return out
}

func (q *cancelQueue) Len() int { return len(q.cmds) }
