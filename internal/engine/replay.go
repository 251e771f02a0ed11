package engine

import (
	"context"
	"fmt"

	"github.com/coldtrace/coldtrace/internal/compliance"
)

// Replay and determinism
//
// The state machine is deterministic over the ledger: folding Step across a
// batch's readings in reading-id order, with each reading's stored seq as
// "now", must reproduce the persisted compliance record exactly. Replay
// recomputes that fold and reports every field that diverges.
//
// An empty report is the determinism proof for a batch; a non-empty one
// means the database was mutated outside the engine or the ledger was
// tampered with.

// Divergence describes one field where the recomputed record differs from
// the stored one.
type Divergence struct {
	Field    string
	Stored   string
	Replayed string
}

// ReplayReport is the result of replaying one batch.
type ReplayReport struct {
	BatchID     int64
	Readings    int64
	Divergences []Divergence
}

// Deterministic reports whether the stored record matches the replay.
func (r ReplayReport) Deterministic() bool {
	return len(r.Divergences) == 0
}

// ReplayBatch recomputes a batch's compliance record from its ledger and
// compares it to the stored record. Read-only; takes no lock and no tick.
//
// The fold starts from a fresh record seeded with the thresholds copied into
// the batch at initialization (not the current registry entry - later
// registry updates must not affect replay). The initial LastChecked cannot
// be recovered from the ledger; when the batch has readings the final fold
// overwrites it, and when it has none the stored record is trivially the
// seed, so LastChecked is excluded from comparison only in the empty case.
func (e *Engine) ReplayBatch(ctx context.Context, batchID int64) (ReplayReport, error) {
	stored, ok, err := e.store.GetBatch(ctx, batchID)
	if err != nil {
		return ReplayReport{}, err
	}
	if !ok {
		return ReplayReport{}, errBatchNotFound(batchID)
	}

	readings, err := e.store.BatchReadings(ctx, batchID)
	if err != nil {
		return ReplayReport{}, err
	}

	replayed := compliance.NewBatchRecord(batchID, compliance.Thresholds{
		VaccineType: stored.VaccineType,
		MinTemp:     stored.MinTemp,
		MaxTemp:     stored.MaxTemp,
	}, stored.LastChecked)
	if len(readings) > 0 {
		// Seed LastChecked is unrecoverable; the first fold overwrites it.
		replayed.LastChecked = 0
	}

	for _, r := range readings {
		replayed, _ = compliance.Step(replayed, r.Temperature, r.Seq)
	}

	report := ReplayReport{
		BatchID:  batchID,
		Readings: int64(len(readings)),
	}

	diff := func(field string, stored, replayed any) {
		if stored != replayed {
			report.Divergences = append(report.Divergences, Divergence{
				Field:    field,
				Stored:   fmt.Sprintf("%v", stored),
				Replayed: fmt.Sprintf("%v", replayed),
			})
		}
	}

	diff("is_compliant", stored.Compliant, replayed.Compliant)
	diff("excursion_count", stored.ExcursionCount, replayed.ExcursionCount)
	diff("last_excursion_at", stored.LastExcursionAt, replayed.LastExcursionAt)
	diff("flagged_reason", stored.FlaggedReason, replayed.FlaggedReason)
	if len(readings) > 0 {
		diff("last_checked", stored.LastChecked, replayed.LastChecked)
	}

	return report, nil
}

// ReplayAll replays every batch in id order.
func (e *Engine) ReplayAll(ctx context.Context) ([]ReplayReport, error) {
	ids, err := e.store.BatchIDs(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]ReplayReport, 0, len(ids))
	for _, id := range ids {
		report, err := e.ReplayBatch(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("replay batch %d: %w", id, err)
		}
		reports = append(reports, report)
	}
	return reports, nil
}
