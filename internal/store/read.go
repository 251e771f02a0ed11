package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/coldtrace/coldtrace/internal/compliance"
)

// AdminState returns the current administrator and paused flag.
func (s *Store) AdminState(ctx context.Context) (admin string, paused bool, err error) {
	var pausedInt int
	err = s.db.QueryRowContext(ctx, `
		SELECT admin, paused FROM admin_state WHERE id = 1
	`).Scan(&admin, &pausedInt)
	if err != nil {
		return "", false, fmt.Errorf("read admin state: %w", err)
	}
	return admin, pausedInt != 0, nil
}

// GetThresholds returns the registry entry for a vaccine type.
// ok=false (with no error) means the entry does not exist.
func (s *Store) GetThresholds(ctx context.Context, vaccineType string) (t compliance.Thresholds, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT vaccine_type, min_temp, max_temp, updated_seq
		FROM thresholds
		WHERE vaccine_type = ?
	`, vaccineType).Scan(&t.VaccineType, &t.MinTemp, &t.MaxTemp, &t.UpdatedSeq)
	if errors.Is(err, sql.ErrNoRows) {
		return compliance.Thresholds{}, false, nil
	}
	if err != nil {
		return compliance.Thresholds{}, false, fmt.Errorf("get thresholds: %w", err)
	}
	return t, true, nil
}

// GetBatch returns the compliance record for a batch.
// ok=false (with no error) means no record exists.
func (s *Store) GetBatch(ctx context.Context, batchID int64) (rec compliance.BatchRecord, ok bool, err error) {
	var compliantInt int
	err = s.db.QueryRowContext(ctx, `
		SELECT batch_id, vaccine_type, is_compliant, last_checked,
		       flagged_reason, excursion_count, last_excursion_at,
		       min_temp, max_temp
		FROM batches
		WHERE batch_id = ?
	`, batchID).Scan(
		&rec.BatchID,
		&rec.VaccineType,
		&compliantInt,
		&rec.LastChecked,
		&rec.FlaggedReason,
		&rec.ExcursionCount,
		&rec.LastExcursionAt,
		&rec.MinTemp,
		&rec.MaxTemp,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return compliance.BatchRecord{}, false, nil
	}
	if err != nil {
		return compliance.BatchRecord{}, false, fmt.Errorf("get batch: %w", err)
	}
	rec.Compliant = compliantInt != 0
	return rec, true, nil
}

// GetReading returns one ledger entry by (batch_id, reading_id).
// ok=false (with no error) means the entry does not exist.
func (s *Store) GetReading(ctx context.Context, batchID, readingID int64) (r compliance.Reading, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT batch_id, reading_id, temperature, seq, submitter, metadata
		FROM readings
		WHERE batch_id = ? AND reading_id = ?
	`, batchID, readingID).Scan(
		&r.BatchID, &r.ReadingID, &r.Temperature, &r.Seq, &r.Submitter, &r.Metadata,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return compliance.Reading{}, false, nil
	}
	if err != nil {
		return compliance.Reading{}, false, fmt.Errorf("get reading: %w", err)
	}
	return r, true, nil
}

// ReadingCount returns the counter value for a batch, 0 if the batch has no
// counter row.
func (s *Store) ReadingCount(ctx context.Context, batchID int64) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT count FROM reading_counters WHERE batch_id = ?
	`, batchID).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading count: %w", err)
	}
	return count, nil
}

// SumReadings sums the temperatures of all readings present in the ledger
// for ids 1..maxID. Absent ids contribute nothing to the sum.
func (s *Store) SumReadings(ctx context.Context, batchID, maxID int64) (int64, error) {
	var sum int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(temperature), 0)
		FROM readings
		WHERE batch_id = ? AND reading_id BETWEEN 1 AND ?
	`, batchID, maxID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum readings: %w", err)
	}
	return sum, nil
}

// BatchReadings returns all ledger entries for a batch in reading-id order.
// Returns an empty slice (not nil) when the batch has no readings.
func (s *Store) BatchReadings(ctx context.Context, batchID int64) ([]compliance.Reading, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT batch_id, reading_id, temperature, seq, submitter, metadata
		FROM readings
		WHERE batch_id = ?
		ORDER BY reading_id ASC
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	var readings []compliance.Reading
	for rows.Next() {
		var r compliance.Reading
		if err := rows.Scan(
			&r.BatchID, &r.ReadingID, &r.Temperature, &r.Seq, &r.Submitter, &r.Metadata,
		); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate readings: %w", err)
	}

	if readings == nil {
		readings = []compliance.Reading{}
	}
	return readings, nil
}

// BreachEvents returns all breach events for a batch in seq order.
// Returns an empty slice (not nil) when none exist.
func (s *Store) BreachEvents(ctx context.Context, batchID int64) ([]compliance.BreachEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, batch_id, reason, seq
		FROM breach_events
		WHERE batch_id = ?
		ORDER BY seq ASC, event_id COLLATE BINARY ASC
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query breach events: %w", err)
	}
	defer rows.Close()

	var events []compliance.BreachEvent
	for rows.Next() {
		var ev compliance.BreachEvent
		if err := rows.Scan(&ev.EventID, &ev.BatchID, &ev.Reason, &ev.Seq); err != nil {
			return nil, fmt.Errorf("scan breach event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate breach events: %w", err)
	}

	if events == nil {
		events = []compliance.BreachEvent{}
	}
	return events, nil
}

// BatchIDs returns every batch id in ascending order.
// Used by the replay verifier to sweep the whole database.
func (s *Store) BatchIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT batch_id FROM batches ORDER BY batch_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query batch ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan batch id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batch ids: %w", err)
	}

	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}
