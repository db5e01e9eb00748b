// Package store provides SQLite-backed history of synthesis runs.
//
// Each successful run is recorded with its components and the bindings it
// executed, in execution order. Failed runs are never recorded: a run
// either produces a complete result or nothing.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability and performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//
// Queries order by an explicit seq column, never by rowid, so results are
// identical across reads.
package store
