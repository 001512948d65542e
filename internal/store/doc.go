// Package store provides SQLite-backed durable storage for submissions.
//
// The store is the sole source of truth for submission state:
//   - Submissions: one row per id, overwritten in place on re-ingestion
//   - Statistics: derived by scanning rows, never kept as counters
//
// # Critical Patterns
//
// Atomic decisions
//   - SetStatus is a single conditional UPDATE guarded by status = 'pending'
//   - Two concurrent callers on one id: exactly one sees a row change
//
// Deterministic listing
//   - Pending queue: ORDER BY created_at DESC, id ASC
//   - Export: ORDER BY created_at ASC, id ASC
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=FULL: A successful write survives a crash
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - Single connection: Writes are serialized globally
//
// Timestamps are stored as UTC Unix nanoseconds so range comparisons are
// integer comparisons.
package store
