package quarantine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hermes-router/hermes/internal/config"
	"github.com/hermes-router/hermes/internal/sink"
)

func newTestSettings(t *testing.T) *config.Settings {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Settings{
		IncomingFolder: filepath.Join(dir, "incoming"),
		ErrorFolder:    filepath.Join(dir, "error"),
	}
	for _, d := range []string{cfg.IncomingFolder, cfg.ErrorFolder} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return cfg
}

// §4.9: an ".ERROR" marker and its paired payload both move to error/,
// with the lock sentinel cleaned up afterward.
func TestSweepMovesErrorFileAndPairedPayload(t *testing.T) {
	cfg := newTestSettings(t)

	errName := "ABC#1.dcm.ERROR"
	payloadName := "ABC#1.dcm"
	if err := os.WriteFile(filepath.Join(cfg.IncomingFolder, errName), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.IncomingFolder, payloadName), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	q := New(cfg, sink.New("", "test"))
	if err := q.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if _, err := os.Stat(filepath.Join(cfg.ErrorFolder, errName)); err != nil {
		t.Errorf("expected error marker moved to error/: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.ErrorFolder, payloadName)); err != nil {
		t.Errorf("expected paired payload moved to error/: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.IncomingFolder, errName+".LOCK")); !os.IsNotExist(err) {
		t.Errorf("expected lock sentinel cleaned up after sweep")
	}
}

// A locked error file (another worker mid-move) is skipped silently, not
// treated as a failure.
func TestSweepSkipsLockedErrorFile(t *testing.T) {
	cfg := newTestSettings(t)

	errName := "ABC#1.dcm.ERROR"
	if err := os.WriteFile(filepath.Join(cfg.IncomingFolder, errName), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.IncomingFolder, errName+".LOCK"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	q := New(cfg, sink.New("", "test"))
	if err := q.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if _, err := os.Stat(filepath.Join(cfg.IncomingFolder, errName)); err != nil {
		t.Errorf("expected locked error file to remain in incoming/: %v", err)
	}
}

// An error marker with no paired payload still moves cleanly.
func TestSweepErrorFileWithoutPairedPayload(t *testing.T) {
	cfg := newTestSettings(t)

	errName := "ABC#1.dcm.ERROR"
	if err := os.WriteFile(filepath.Join(cfg.IncomingFolder, errName), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	q := New(cfg, sink.New("", "test"))
	if err := q.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if _, err := os.Stat(filepath.Join(cfg.ErrorFolder, errName)); err != nil {
		t.Errorf("expected error marker moved to error/: %v", err)
	}
}

func TestSweepNoErrorFilesIsNoop(t *testing.T) {
	cfg := newTestSettings(t)
	if err := os.WriteFile(filepath.Join(cfg.IncomingFolder, "ABC#1.dcm"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	q := New(cfg, sink.New("", "test"))
	if err := q.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	entries, err := os.ReadDir(cfg.ErrorFolder)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected error/ untouched, got %v", entries)
	}
}
