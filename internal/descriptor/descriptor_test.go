package descriptor

import (
	"path/filepath"
	"testing"

	"github.com/hermes-router/hermes/internal/rule"
	"github.com/hermes-router/hermes/internal/target"
)

func TestNewRoute(t *testing.T) {
	tgt := target.Target{Name: "pacs1", Address: "10.0.0.5", Port: 104, ReceiverID: "PACS1"}
	d := NewRoute("1.2.3", rule.TriggerSeries, "rule-a", tgt)

	if d.TargetAddress != "10.0.0.5" || d.TargetPort != 104 {
		t.Fatalf("unexpected target fields: %+v", d)
	}
	if d.TargetAETSource != "SENDER" {
		t.Fatalf("expected default sender AE title, got %q", d.TargetAETSource)
	}
	if !d.IsWellFormed() {
		t.Fatal("expected well-formed descriptor")
	}
}

func TestNewProcessIsNotWellFormed(t *testing.T) {
	d := NewProcess("1.2.3", rule.TriggerStudy, "rule-b")
	if d.IsWellFormed() {
		t.Fatal("a process descriptor has no target_name and should not be well-formed")
	}
}

func TestWriteAtomicAndRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, RouteFileName)

	want := NewRoute("1.2.3", rule.TriggerSeries, "rule-a", target.Target{Name: "pacs1", Address: "x", Port: 1, ReceiverID: "R"})
	want.Retries = 2
	want.NextRetryAt = 1700000000

	if err := WriteAtomic(path, want); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != want {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestRoutePathProcessPath(t *testing.T) {
	if got := RoutePath("/a/b"); got != filepath.Join("/a/b", "target.json") {
		t.Fatalf("unexpected RoutePath: %s", got)
	}
	if got := ProcessPath("/a/b"); got != filepath.Join("/a/b", "task.json") {
		t.Fatalf("unexpected ProcessPath: %s", got)
	}
}
