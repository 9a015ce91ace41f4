package store

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func migrationsDir() string {
	_, f, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(f), "..", "..", "migrations")
}

func newTestStoreWithMigrations(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	dir := migrationsDir()
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("migrations dir not found: %v", err)
	}
	if err := s.Migrate(dir); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	return s
}

func TestJSONColumnRoundTrip(t *testing.T) {
	in := map[int64]int{28: 55, 12: 47}
	enc, err := jsonColumn(in)
	if err != nil {
		t.Fatalf("jsonColumn: %v", err)
	}

	var out map[int64]int
	if err := fromJSONColumn(enc, &out); err != nil {
		t.Fatalf("fromJSONColumn: %v", err)
	}
	if len(out) != 2 || out[28] != 55 || out[12] != 47 {
		t.Fatalf("round trip mismatch: %v", out)
	}
}

func TestFromJSONColumnEmpty(t *testing.T) {
	var out []string
	if err := fromJSONColumn("", &out); err != nil {
		t.Fatalf("empty column should decode as absent: %v", err)
	}
	if out != nil {
		t.Fatalf("expected nil slice, got %v", out)
	}
}
