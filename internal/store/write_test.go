package store

import (
	"context"
	"testing"

	"github.com/coldtrace/coldtrace/internal/compliance"
)

func seedBatch(t *testing.T, s *Store, batchID int64) compliance.BatchRecord {
	t.Helper()
	rec := compliance.NewBatchRecord(batchID, compliance.Thresholds{
		VaccineType: "mRNA",
		MinTemp:     2,
		MaxTemp:     8,
	}, 1)
	inserted, err := s.InsertBatch(context.Background(), rec)
	if err != nil {
		t.Fatalf("InsertBatch() failed: %v", err)
	}
	if !inserted {
		t.Fatalf("InsertBatch() inserted = false, want true")
	}
	return rec
}

func TestSeedAdminState_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SeedAdminState(ctx, "deployer"); err != nil {
		t.Fatalf("first SeedAdminState() failed: %v", err)
	}
	// Second seed with a different identity must not replace the first.
	if err := s.SeedAdminState(ctx, "intruder"); err != nil {
		t.Fatalf("second SeedAdminState() failed: %v", err)
	}

	admin, paused, err := s.AdminState(ctx)
	if err != nil {
		t.Fatalf("AdminState() failed: %v", err)
	}
	if admin != "deployer" {
		t.Errorf("admin = %q, want %q", admin, "deployer")
	}
	if paused {
		t.Errorf("paused = true, want false")
	}
}

func TestSetAdmin_SetPaused(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SeedAdminState(ctx, "deployer"); err != nil {
		t.Fatalf("SeedAdminState() failed: %v", err)
	}
	if err := s.SetAdmin(ctx, "ops-team"); err != nil {
		t.Fatalf("SetAdmin() failed: %v", err)
	}
	if err := s.SetPaused(ctx, true); err != nil {
		t.Fatalf("SetPaused() failed: %v", err)
	}

	admin, paused, err := s.AdminState(ctx)
	if err != nil {
		t.Fatalf("AdminState() failed: %v", err)
	}
	if admin != "ops-team" {
		t.Errorf("admin = %q, want %q", admin, "ops-team")
	}
	if !paused {
		t.Errorf("paused = false, want true")
	}
}

func TestUpsertThresholds_OverwritesByKey(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.UpsertThresholds(ctx, compliance.Thresholds{
		VaccineType: "mRNA", MinTemp: 2, MaxTemp: 8, UpdatedSeq: 1,
	})
	if err != nil {
		t.Fatalf("first UpsertThresholds() failed: %v", err)
	}

	err = s.UpsertThresholds(ctx, compliance.Thresholds{
		VaccineType: "mRNA", MinTemp: -25, MaxTemp: -15, UpdatedSeq: 2,
	})
	if err != nil {
		t.Fatalf("second UpsertThresholds() failed: %v", err)
	}

	got, ok, err := s.GetThresholds(ctx, "mRNA")
	if err != nil {
		t.Fatalf("GetThresholds() failed: %v", err)
	}
	if !ok {
		t.Fatalf("GetThresholds() ok = false, want true")
	}
	if got.MinTemp != -25 || got.MaxTemp != -15 || got.UpdatedSeq != 2 {
		t.Errorf("thresholds = %+v, want overwritten entry", got)
	}

	var count int
	s.db.QueryRow("SELECT COUNT(*) FROM thresholds").Scan(&count)
	if count != 1 {
		t.Errorf("threshold rows = %d, want 1 (overwrite, not append)", count)
	}
}

func TestInsertBatch_RejectsDuplicate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := seedBatch(t, s, 1)

	// Mutate the candidate record; the stored one must survive untouched.
	rec.Compliant = false
	rec.FlaggedReason = "should never be written"
	inserted, err := s.InsertBatch(ctx, rec)
	if err != nil {
		t.Fatalf("duplicate InsertBatch() failed: %v", err)
	}
	if inserted {
		t.Fatalf("duplicate InsertBatch() inserted = true, want false")
	}

	got, ok, err := s.GetBatch(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("GetBatch() = %v, %v", ok, err)
	}
	if !got.Compliant || got.FlaggedReason != "" {
		t.Errorf("existing record was overwritten: %+v", got)
	}
}

func TestCommitReading_AssignsDenseIDs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	rec := seedBatch(t, s, 1)

	for want := int64(1); want <= 3; want++ {
		r := compliance.Reading{
			BatchID: 1, Temperature: 5, Seq: want + 1, Submitter: "sensor-a",
		}
		rec.LastChecked = want + 1
		id, err := s.CommitReading(ctx, r, rec, nil)
		if err != nil {
			t.Fatalf("CommitReading() failed: %v", err)
		}
		if id != want {
			t.Errorf("reading id = %d, want %d", id, want)
		}
	}

	count, err := s.ReadingCount(ctx, 1)
	if err != nil {
		t.Fatalf("ReadingCount() failed: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestCommitReading_PersistsRecordAndBreach(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	rec := seedBatch(t, s, 1)

	rec.Compliant = false
	rec.FlaggedReason = compliance.ReasonExcursionLimit
	rec.ExcursionCount = 5
	rec.LastExcursionAt = 9
	rec.LastChecked = 9

	breach := &compliance.BreachEvent{
		EventID: "ev-1", BatchID: 1, Reason: compliance.ReasonExcursionLimit, Seq: 9,
	}
	r := compliance.Reading{BatchID: 1, Temperature: 40, Seq: 9, Submitter: "sensor-a"}

	if _, err := s.CommitReading(ctx, r, rec, breach); err != nil {
		t.Fatalf("CommitReading() failed: %v", err)
	}

	got, ok, err := s.GetBatch(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("GetBatch() = %v, %v", ok, err)
	}
	if got.Compliant {
		t.Errorf("record still compliant after flagged commit")
	}
	if got.FlaggedReason != compliance.ReasonExcursionLimit {
		t.Errorf("flagged_reason = %q", got.FlaggedReason)
	}

	events, err := s.BreachEvents(ctx, 1)
	if err != nil {
		t.Fatalf("BreachEvents() failed: %v", err)
	}
	if len(events) != 1 || events[0].EventID != "ev-1" {
		t.Errorf("breach events = %+v, want single ev-1", events)
	}
}

func TestMaxSeq_TracksWrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	s.UpsertThresholds(ctx, compliance.Thresholds{
		VaccineType: "mRNA", MinTemp: 2, MaxTemp: 8, UpdatedSeq: 1,
	})
	rec := seedBatch(t, s, 1)
	rec.LastChecked = 7
	r := compliance.Reading{BatchID: 1, Temperature: 5, Seq: 7, Submitter: "sensor-a"}
	if _, err := s.CommitReading(ctx, r, rec, nil); err != nil {
		t.Fatalf("CommitReading() failed: %v", err)
	}

	seq, err := s.MaxSeq(ctx)
	if err != nil {
		t.Fatalf("MaxSeq() failed: %v", err)
	}
	if seq != 7 {
		t.Errorf("MaxSeq() = %d, want 7", seq)
	}
}
