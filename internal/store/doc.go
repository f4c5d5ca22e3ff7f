// Package store provides the SQLite-backed storage port.
//
// The store keeps three groups of tables:
//   - bot_users: one session row per chat user (step, payload, access level)
//   - ministries, leaders: reference data read by choice keyboards
//   - envelope_loads, institute_enrollments, institute_payments,
//     prayer_requests, new_people: committed entities, insert-only
//
// # Critical Patterns
//
// Atomic Merge-Update:
//   - SetStep reads, merges and writes the session payload inside one
//     transaction, so concurrent writers never lose a key
//
// Idempotent First Contact:
//   - CreateSession inserts with ON CONFLICT DO NOTHING and reads back the
//     surviving row, so a racing create returns the winner's record
//
// Deterministic Listing:
//   - Entity listings are ordered by created_at, then id
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait on lock contention
//   - foreign_keys=ON: Leaders must reference a ministry
//   - Single open connection: SQLite has one writer
package store
