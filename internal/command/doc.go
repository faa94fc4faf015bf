// Package command defines the unit of work scheduled by tickr.
//
// A Command has a four-phase lifecycle driven by the scheduler:
//
//  1. Initialize - once per scheduling
//  2. Execute    - once per tick while running
//  3. IsFinished - polled after every Execute
//  4. End        - exactly once, with interrupted=false when the command
//     finished on its own and interrupted=true when it was cancelled,
//     preempted or stopped by the disable gate
//
// Commands declare the Resources they need. The scheduler guarantees that a
// Resource is owned by at most one running command at a time.
//
// GROUPS:
//
// Sequential and Parallel are composite commands. Absorbing a command into a
// group marks it in the Registry; from then on it can never be scheduled on
// its own or joined to a second group. The Registry is owned by the
// scheduler and handed to group constructors explicitly:
//
//	reg := sched.Registry()
//	seq, err := command.NewSequential(reg, raise, grab, lower)
//
// IDENTITY:
//
// Commands and Resources are compared by interface identity, so both must
// be pointer types. Scheduling the same logical action twice needs two
// instances.
//
// All types in this package are single-goroutine: they are driven from the
// scheduler's tick loop and carry no locks.
package command
