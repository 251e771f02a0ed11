// Package store provides SQLite-backed durable storage for the compliance
// engine.
//
// Six logical tables back the engine:
//   - thresholds: allowed range per vaccine type (upsert by label)
//   - batches: current compliance record per batch (single row per batch)
//   - readings: append-only temperature ledger keyed (batch_id, reading_id)
//   - reading_counters: per-batch counter, the source of the next reading_id
//   - admin_state: single row holding the administrator and paused flag
//   - breach_events: append-only compliance-breach notifications
//
// # Invariants
//
// Logical time: every row carries an INTEGER seq from the engine's logical
// clock, never a wall-clock timestamp. All ordered reads use
// ORDER BY reading_id ASC (dense per-batch ids) or ORDER BY seq ASC.
//
// Atomic submission: CommitReading writes the counter increment, the ledger
// row, the updated batch record, and any breach event in one transaction.
// Either the whole submission persists or none of it does.
//
// Append-only ledger: readings and breach_events are never updated or
// deleted; batches are updated only through CommitReading.
//
// # Database configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package store
