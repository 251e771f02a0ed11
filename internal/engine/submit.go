package engine

import (
	"context"
	"log/slog"

	"github.com/coldtrace/coldtrace/internal/compliance"
)

// SubmitReading appends a temperature reading to a batch's ledger and runs
// the excursion state machine against its compliance record.
//
// Rejections that leave no trace: Paused, BatchNotFound, MetadataTooLong.
//
// Once validation passes the reading is durably appended, whatever the
// compliance outcome. If the resulting record is non-compliant - freshly
// flagged by this reading or already terminal - a breach event is persisted
// and notified, and the call returns InvalidTemperature. The returned
// Reading carries the assigned reading id in every committed case, including
// the InvalidTemperature one.
func (e *Engine) SubmitReading(ctx context.Context, submitter string, batchID, temperature int64, metadata string) (compliance.Reading, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireActive(ctx); err != nil {
		return compliance.Reading{}, err
	}

	rec, ok, err := e.store.GetBatch(ctx, batchID)
	if err != nil {
		return compliance.Reading{}, err
	}
	if !ok {
		return compliance.Reading{}, errBatchNotFound(batchID)
	}

	submitter = compliance.Normalize(submitter)
	metadata = compliance.Normalize(metadata)
	if len(metadata) > compliance.MaxMetadataLen {
		return compliance.Reading{}, errMetadataTooLong(batchID, len(metadata))
	}

	now := e.clock.Next()

	// The decision is computed before the commit, but the commit writes the
	// ledger row and the updated record in one transaction, so the ledger
	// append can never be observed without its compliance consequence.
	updated, outcome := compliance.Step(rec, temperature, now)

	var breach *compliance.BreachEvent
	if outcome.Breached() {
		breach = &compliance.BreachEvent{
			EventID: e.eventIDs.Generate(),
			BatchID: batchID,
			Reason:  updated.FlaggedReason,
			Seq:     now,
		}
	}

	reading := compliance.Reading{
		BatchID:     batchID,
		Temperature: temperature,
		Seq:         now,
		Submitter:   submitter,
		Metadata:    metadata,
	}

	readingID, err := e.store.CommitReading(ctx, reading, updated, breach)
	if err != nil {
		return compliance.Reading{}, err
	}
	reading.ReadingID = readingID

	slog.Debug("reading recorded",
		"batch_id", batchID,
		"reading_id", readingID,
		"temperature", temperature,
		"outcome", outcome.String(),
		"excursion_count", updated.ExcursionCount,
		"seq", now,
	)

	if breach != nil {
		e.notifier.NotifyBreach(ctx, *breach)
		return reading, errInvalidTemperature(batchID, updated.FlaggedReason)
	}

	return reading, nil
}

// AverageTemperature returns the integer floor of the sum of all recorded
// readings divided by the reading counter.
//
// Fails with NoReadings when the counter is zero. Ledger gaps - impossible
// under dense assignment, but tolerated for compatibility - are skipped:
// absent readings contribute nothing to the sum while the divisor stays the
// counter value.
func (e *Engine) AverageTemperature(ctx context.Context, batchID int64) (int64, error) {
	count, err := e.store.ReadingCount(ctx, batchID)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, errNoReadings(batchID)
	}

	sum, err := e.store.SumReadings(ctx, batchID, count)
	if err != nil {
		return 0, err
	}

	return compliance.FloorDiv(sum, count), nil
}
