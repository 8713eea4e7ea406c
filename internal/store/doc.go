// Package store provides a SQLite journal of Flux sessions.
//
// The journal holds three append-only tables:
//   - sessions: document path and hash, seed, engine and IR versions
//   - events: every event a session received, with the kernel outcome
//   - snapshots: canonical body and hash of the state at each docstep
//
// # Logical Time
//
// All ordering uses seq columns and docsteps, never timestamps, so a
// journal replays identically regardless of wall time.
//
// # Replay
//
// Replay re-runs a session from its document and seed, re-applies the
// journaled events at their docsteps and compares snapshot hashes. A
// divergence means the kernel is no longer deterministic for that input.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - One open connection: SQLite has a single writer
package store
