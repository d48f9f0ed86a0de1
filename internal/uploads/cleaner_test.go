package uploads

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/evalforge/assessment-platform/internal/utils"
)

func testLogger() utils.Logger {
	return utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func writeAged(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-age)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSweep_RemovesOnlyStaleManagedFiles(t *testing.T) {
	dir := t.TempDir()

	stale := writeAged(t, dir, "import-abc.xlsx", 2*time.Hour)
	fresh := writeAged(t, dir, "export-def.xlsx", time.Minute)
	foreign := writeAged(t, dir, "unrelated.txt", 2*time.Hour)

	c := NewCleaner(dir, time.Hour, time.Hour, testLogger())
	c.sweep()

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale managed file was not removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh file must survive the sweep")
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Error("files the cleaner does not own must never be touched")
	}
}

func TestManagedFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"import-1.xlsx", true},
		{"export-1.xlsx", true},
		{"import-1.csv", false},
		{"report.xlsx", false},
	}
	for _, tt := range tests {
		if got := managedFile(tt.name); got != tt.want {
			t.Errorf("managedFile(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestStartStop(t *testing.T) {
	c := NewCleaner(t.TempDir(), 10*time.Millisecond, time.Hour, testLogger())
	c.Start()
	time.Sleep(30 * time.Millisecond)
	c.Stop() // must not hang or panic
}
