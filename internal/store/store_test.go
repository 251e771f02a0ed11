package store

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesSchema(t *testing.T) {
	s := openTestStore(t)

	tables := []string{
		"thresholds", "batches", "readings",
		"reading_counters", "admin_state", "breach_events",
	}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow(`
			SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?
		`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	s2.Close()
}

func TestOpen_Pragmas(t *testing.T) {
	s := openTestStore(t)

	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Errorf("pragma check failed: %v", err)
	}
	if err := s.verifyPragma("foreign_keys", "1"); err != nil {
		t.Errorf("pragma check failed: %v", err)
	}
}

func TestOpen_SchemaVersion(t *testing.T) {
	s := openTestStore(t)

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("query user_version failed: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestMaxSeq_FreshDatabase(t *testing.T) {
	s := openTestStore(t)

	seq, err := s.MaxSeq(context.Background())
	if err != nil {
		t.Fatalf("MaxSeq() failed: %v", err)
	}
	if seq != 0 {
		t.Errorf("MaxSeq() = %d, want 0 for fresh database", seq)
	}
}
