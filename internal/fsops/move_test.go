package fsops

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.dcm")
	dst := filepath.Join(dir, "sub", "a.dcm")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatal("expected source to be gone after move")
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "payload" {
		t.Fatalf("unexpected dest contents: %q err=%v", data, err)
	}
}

func TestCopyFileLeavesSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.dcm")
	dst := filepath.Join(dir, "b.dcm")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatal("expected source to remain after copy")
	}
	if _, err := os.Stat(dst); err != nil {
		t.Fatal("expected destination to exist after copy")
	}
}

func TestMoveCollisionSafe(t *testing.T) {
	dir := t.TempDir()
	destDir := filepath.Join(dir, "success")
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		t.Fatal(err)
	}

	folder := filepath.Join(dir, "1.2.3")
	if err := os.MkdirAll(folder, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(folder, ".SENDING"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	dest, err := MoveCollisionSafe(folder, destDir, now)
	if err != nil {
		t.Fatalf("MoveCollisionSafe: %v", err)
	}
	if filepath.Base(dest) != "1.2.3" {
		t.Fatalf("expected no collision suffix on first move, got %s", dest)
	}
	if _, err := os.Stat(filepath.Join(dest, ".SENDING")); !os.IsNotExist(err) {
		t.Fatal("expected leftover .SENDING to be removed")
	}
}

func TestMoveCollisionSafeAppendsSuffixOnCollision(t *testing.T) {
	dir := t.TempDir()
	destDir := filepath.Join(dir, "success")
	if err := os.MkdirAll(filepath.Join(destDir, "1.2.3"), 0o755); err != nil {
		t.Fatal(err)
	}

	folder := filepath.Join(dir, "1.2.3")
	if err := os.MkdirAll(folder, 0o755); err != nil {
		t.Fatal(err)
	}

	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	dest, err := MoveCollisionSafe(folder, destDir, now)
	if err != nil {
		t.Fatalf("MoveCollisionSafe: %v", err)
	}
	if dest == filepath.Join(destDir, "1.2.3") {
		t.Fatal("expected a collision-suffixed destination")
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatal("expected directory to exist")
	}
}
