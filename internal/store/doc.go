// Package store provides the SQLite-backed session journal.
//
// The journal is an append-only audit log of a play session:
//   - Sessions: one row per engine session, tied to the story content hash
//   - Steps: node entries, advance outcomes, and conversation turns
//   - State changes: every committed variable change with its source
//
// Steps and state changes of one session share a single logical sequence,
// so merging them by seq reproduces the exact order of events. Wall-clock
// time is never stored or used for ordering.
//
// The journal is not a save game. Nothing in it is read back into a live
// session; it exists for the trace command and offline inspection.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
