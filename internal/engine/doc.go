// Package engine orchestrates the temperature-compliance state machine.
//
// ARCHITECTURE:
//
// Serialized mutation:
// Every mutating operation (admin changes, threshold upserts, batch
// initialization, reading submission) runs under one engine mutex and
// commits as one SQLite transaction. Each call observes the complete result
// of all prior calls and nothing else; there is no partial-failure state.
//
// Logical clock:
// The engine stamps every mutation with a strictly increasing sequence
// number from Clock.Next(), advanced only under the mutex. The same value
// serves as the logical "now" for excursion-window comparisons. NEVER use
// wall-clock timestamps for ordering. On construction the clock resumes from
// the largest persisted seq, so a reopened database continues its timeline.
//
// Operation flow for a reading submission:
//  1. Paused check, batch lookup, metadata length check (reject before any
//     side effect)
//  2. Ledger append - unconditional once validation passes
//  3. compliance.Step against the current record
//  4. Persist record (+ breach event) in the same transaction as the append
//  5. Non-compliant result: notify breach, return InvalidTemperature
//
// The ledger append commits even when the call returns InvalidTemperature:
// callers must never infer "no side effect" from that error.
//
// Reads take no lock and no clock tick; they see whatever the last committed
// mutation left behind.
package engine
