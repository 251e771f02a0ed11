package store

import (
	"context"
	"fmt"

	"github.com/coldtrace/coldtrace/internal/compliance"
)

// SeedAdminState inserts the single admin_state row if it does not exist.
// The deploying identity becomes the administrator with paused=false.
// Idempotent: an existing row is left untouched, so reopening a database
// never resets the administrator.
func (s *Store) SeedAdminState(ctx context.Context, admin string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_state (id, admin, paused)
		VALUES (1, ?, 0)
		ON CONFLICT(id) DO NOTHING
	`, admin)
	if err != nil {
		return fmt.Errorf("seed admin state: %w", err)
	}
	return nil
}

// SetAdmin replaces the administrator identity.
func (s *Store) SetAdmin(ctx context.Context, admin string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE admin_state SET admin = ? WHERE id = 1
	`, admin)
	if err != nil {
		return fmt.Errorf("set admin: %w", err)
	}
	return nil
}

// SetPaused sets the process-wide paused flag.
func (s *Store) SetPaused(ctx context.Context, paused bool) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE admin_state SET paused = ? WHERE id = 1
	`, boolToInt(paused))
	if err != nil {
		return fmt.Errorf("set paused: %w", err)
	}
	return nil
}

// UpsertThresholds creates or overwrites the registry entry for a vaccine
// type. Entries are never deleted; overwrite-by-key is the only mutation.
func (s *Store) UpsertThresholds(ctx context.Context, t compliance.Thresholds) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO thresholds (vaccine_type, min_temp, max_temp, updated_seq)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(vaccine_type) DO UPDATE SET
			min_temp = excluded.min_temp,
			max_temp = excluded.max_temp,
			updated_seq = excluded.updated_seq
	`, t.VaccineType, t.MinTemp, t.MaxTemp, t.UpdatedSeq)
	if err != nil {
		return fmt.Errorf("upsert thresholds: %w", err)
	}
	return nil
}

// InsertBatch creates a new compliance record and its reading counter.
// Returns inserted=false if a record for the batch already exists; nothing
// is written in that case (re-initialization must not reset history).
func (s *Store) InsertBatch(ctx context.Context, rec compliance.BatchRecord) (inserted bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("insert batch: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO batches
		(batch_id, vaccine_type, is_compliant, last_checked, flagged_reason,
		 excursion_count, last_excursion_at, min_temp, max_temp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(batch_id) DO NOTHING
	`,
		rec.BatchID,
		rec.VaccineType,
		boolToInt(rec.Compliant),
		rec.LastChecked,
		rec.FlaggedReason,
		rec.ExcursionCount,
		rec.LastExcursionAt,
		rec.MinTemp,
		rec.MaxTemp,
	)
	if err != nil {
		return false, fmt.Errorf("insert batch: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert batch: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Existing batch - leave its history alone.
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("insert batch: commit (existing): %w", err)
		}
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reading_counters (batch_id, count)
		VALUES (?, 0)
		ON CONFLICT(batch_id) DO NOTHING
	`, rec.BatchID)
	if err != nil {
		return false, fmt.Errorf("insert batch: counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("insert batch: commit: %w", err)
	}

	return true, nil
}

// CommitReading atomically appends one reading and persists the post-step
// compliance record, with an optional breach event, in a single transaction.
//
// The reading_id is assigned inside the transaction from the batch counter,
// which guarantees dense, 1-based, strictly increasing ids per batch. The
// assigned reading id is returned.
//
// The ledger append happens regardless of the compliance outcome carried in
// rec - callers observing a breach still get the reading durably recorded.
func (s *Store) CommitReading(
	ctx context.Context,
	r compliance.Reading,
	rec compliance.BatchRecord,
	breach *compliance.BreachEvent,
) (readingID int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("commit reading: begin tx: %w", err)
	}
	defer tx.Rollback()

	// Claim the next reading id.
	_, err = tx.ExecContext(ctx, `
		UPDATE reading_counters SET count = count + 1 WHERE batch_id = ?
	`, r.BatchID)
	if err != nil {
		return 0, fmt.Errorf("commit reading: increment counter: %w", err)
	}

	err = tx.QueryRowContext(ctx, `
		SELECT count FROM reading_counters WHERE batch_id = ?
	`, r.BatchID).Scan(&readingID)
	if err != nil {
		return 0, fmt.Errorf("commit reading: read counter: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO readings
		(batch_id, reading_id, temperature, seq, submitter, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.BatchID, readingID, r.Temperature, r.Seq, r.Submitter, r.Metadata)
	if err != nil {
		return 0, fmt.Errorf("commit reading: insert reading: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE batches SET
			is_compliant = ?,
			last_checked = ?,
			flagged_reason = ?,
			excursion_count = ?,
			last_excursion_at = ?
		WHERE batch_id = ?
	`,
		boolToInt(rec.Compliant),
		rec.LastChecked,
		rec.FlaggedReason,
		rec.ExcursionCount,
		rec.LastExcursionAt,
		rec.BatchID,
	)
	if err != nil {
		return 0, fmt.Errorf("commit reading: update batch: %w", err)
	}

	if breach != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO breach_events (event_id, batch_id, reason, seq)
			VALUES (?, ?, ?, ?)
		`, breach.EventID, breach.BatchID, breach.Reason, breach.Seq)
		if err != nil {
			return 0, fmt.Errorf("commit reading: insert breach: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit reading: commit: %w", err)
	}

	return readingID, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
