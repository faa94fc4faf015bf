// Package scheduler implements the tickr run loop.
//
// The Scheduler owns the set of running commands, the resource → owner map,
// the default-command table and the trigger pollers. An external driver
// calls Tick once per control-loop iteration.
//
// ARCHITECTURE:
//
// Single-Goroutine Run Loop:
// Every method must be called from the goroutine that calls Tick. There are
// no locks; determinism comes from ordering:
//   - running commands execute in admission order
//   - resources run Periodic and get default commands in registration order
//   - trigger pollers run in binding order
//
// Tick Order:
//  1. no-op while the scheduler is disabled
//  2. Periodic on every registered resource
//  3. poll trigger bindings (their Schedule/Cancel calls apply immediately)
//  4. enter the run loop
//  5. execute each running command; stop it if the disable gate forbids it,
//     end it with interrupted=false if it finished
//  6. leave the run loop
//  7. apply deferred schedules (FIFO)
//  8. apply deferred cancels (FIFO)
//  9. schedule default commands for resources left without an owner
//
// CRITICAL PATTERNS:
//
// Deferred Mutation:
// Schedule and Cancel called from inside a command (while the running set is
// being iterated) are buffered and applied after the iteration. The rest of
// that tick's iteration sees an unchanged running set.
//
// Validate Then Commit:
// A schedule request that collides with a non-interruptible owner is refused
// before any owner is touched. Otherwise every conflicting owner is
// cancelled (End(true)) and the new command is admitted.
//
// Mutual Exclusion:
// Outside Tick, no resource is required by two running commands and the
// owner map mirrors exactly the requirements of the running set.
package scheduler
