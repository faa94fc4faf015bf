// Package store provides SQLite-backed storage for scenario traces.
//
// The store is an append-only log with two tables:
//   - runs: one row per scenario run, keyed by a UUIDv7 run ID
//   - events: the lifecycle events of a run (initialize, execute,
//     interrupt, finish), keyed by (run_id, seq)
//
// Events are ordered by seq, the position in which the scheduler raised
// them, never by timestamp. Run IDs are UUIDv7, so ordering runs by ID
// lists them oldest first.
//
// The log is write-only from the scheduler's point of view: nothing is
// ever restored from it.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
