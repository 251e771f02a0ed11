// Package compliance holds the cold-chain domain model and the excursion
// state machine.
//
// The state machine is a pure function: Step takes the current batch record,
// one temperature, and the logical clock value, and returns the updated
// record plus an outcome classification. It performs no I/O and holds no
// state of its own, which keeps it independently testable and lets the
// replay verifier re-drive it over the ledger.
//
// STATE MODEL:
//
// A batch is in one of three states:
//   - Compliant: no open excursion window
//   - Compliant with an open excursion window (last_excursion_at set)
//   - Non-compliant: terminal, no transition ever leaves it
//
// Out-of-range readings inside an open window (within ExcursionWindow
// sequence units of the window start) continue the same excursion and do not
// count again. Each new excursion episode increments the counter; the fifth
// episode permanently flags the batch.
//
// All ordering and window arithmetic uses logical sequence numbers, never
// wall-clock time.
package compliance
