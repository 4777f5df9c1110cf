package tags

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hermes-router/hermes/internal/errs"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "1.2.3#0.tags")
	if err := os.WriteFile(path, []byte(`{"Modality":"CT","Rows":512}`), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got["Modality"] != "CT" {
		t.Fatalf("unexpected Modality: %v", got["Modality"])
	}
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.tags")
	if err := os.WriteFile(path, []byte(`not json`), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if !errors.Is(err, errs.ErrTagParse) {
		t.Fatalf("expected ErrTagParse, got %v", err)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.tags"))
	if !errors.Is(err, errs.ErrFSTransient) {
		t.Fatalf("expected ErrFSTransient, got %v", err)
	}
}

func TestEnv(t *testing.T) {
	tg := Tags{"a": 1}
	env := tg.Env()
	if env["a"] != 1 {
		t.Fatal("Env did not preserve contents")
	}
}
