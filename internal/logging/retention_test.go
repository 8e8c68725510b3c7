package logging_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"songline/internal/logging"
)

func TestPruneRunLogs(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	old := now.Add(-10 * 24 * time.Hour)

	write := func(name string, mod time.Time) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(path, mod, mod); err != nil {
			t.Fatal(err)
		}
		return path
	}
	stale := write("songline-20240101T000000.000Z.log", old)
	current := write("songline-20240102T000000.000Z.log", old)
	fresh := write("songline-20240103T000000.000Z.log", now)
	other := write("notes.txt", old)

	removed := logging.PruneRunLogs(logging.NewNop(), dir, "songline-*.log", current, 7, now)
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("expected stale log removed")
	}
	for _, path := range []string{current, fresh, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s kept: %v", path, err)
		}
	}

	if got := logging.PruneRunLogs(nil, dir, "songline-*.log", "", 0, now); got != 0 {
		t.Fatalf("zero retention must not prune, removed %d", got)
	}
}
