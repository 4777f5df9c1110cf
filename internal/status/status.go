// Package status implements the read-only status/observability surface
// (component J, ambient, §2 expansion row). It tracks in-process counters
// the running service updates on every tick, and persists a snapshot to
// disk so a separate `hermes status` CLI invocation can read the state of
// a long-running daemon process. Grounded on
// runforge/internal/sentinel/state.go's Phase/StateSnapshot shape and
// runforge/internal/sentinel/tracker.go's JSON file persistence, adapted
// from "AI-run cycle" phases to "routing/dispatch tick" phases.
package status

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Phase is the current activity of the repeated-timer shell.
type Phase string

const (
	PhaseIdle         Phase = "IDLE"
	PhaseRouting      Phase = "ROUTING"
	PhaseQuarantining Phase = "QUARANTINING"
	PhaseDispatching  Phase = "DISPATCHING"
)

// Snapshot is an immutable copy of the tracked state, safe to marshal or
// hand to a TUI renderer.
type Snapshot struct {
	Phase               Phase     `json:"phase"`
	StartedAt           time.Time `json:"started_at"`
	LastRouterTickAt    time.Time `json:"last_router_tick_at"`
	LastDispatcherTickAt time.Time `json:"last_dispatcher_tick_at"`
	RouterTicks         int64     `json:"router_ticks"`
	DispatcherTicks     int64     `json:"dispatcher_ticks"`
	SeriesRouted        int64     `json:"series_routed"`
	FoldersDispatched   int64     `json:"folders_dispatched"`
	FoldersSucceeded    int64     `json:"folders_succeeded"`
	FoldersFailed       int64     `json:"folders_failed"`
	LastError           string    `json:"last_error,omitempty"`
}

// Tracker is the in-process, mutex-guarded counter set the service updates
// every tick.
type Tracker struct {
	mu   sync.Mutex
	snap Snapshot
	path string // optional: persisted snapshot location for cross-process reads
}

// New creates a Tracker. If persistPath is non-empty, persist writes the
// snapshot there on every update.
func New(persistPath string) *Tracker {
	return &Tracker{
		snap: Snapshot{Phase: PhaseIdle, StartedAt: time.Now()},
		path: persistPath,
	}
}

// SetPhase records the shell's current activity.
func (t *Tracker) SetPhase(p Phase) {
	t.mu.Lock()
	t.snap.Phase = p
	t.mu.Unlock()
	t.persist()
}

// RecordRouterTick increments the router tick counter and timestamp.
func (t *Tracker) RecordRouterTick(seriesRouted int) {
	t.mu.Lock()
	t.snap.RouterTicks++
	t.snap.LastRouterTickAt = time.Now()
	t.snap.SeriesRouted += int64(seriesRouted)
	t.mu.Unlock()
	t.persist()
}

// RecordDispatcherTick increments the dispatcher tick counter and
// timestamp.
func (t *Tracker) RecordDispatcherTick(dispatched int) {
	t.mu.Lock()
	t.snap.DispatcherTicks++
	t.snap.LastDispatcherTickAt = time.Now()
	t.snap.FoldersDispatched += int64(dispatched)
	t.mu.Unlock()
	t.persist()
}

// RecordError notes the most recent tick-level error for operator
// visibility; it does not affect control flow.
func (t *Tracker) RecordError(err error) {
	t.mu.Lock()
	if err != nil {
		t.snap.LastError = err.Error()
	} else {
		t.snap.LastError = ""
	}
	t.mu.Unlock()
	t.persist()
}

// Snapshot returns an immutable copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

// persist writes the current snapshot to disk via a temp file + rename,
// the same durable-write idiom internal/descriptor uses, so a reader never
// observes a half-written status file.
func (t *Tracker) persist() {
	if t.path == "" {
		return
	}
	snap := t.Snapshot()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return
	}
	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return
	}
	_ = os.Rename(tmp, t.path)
}

// Read loads a persisted snapshot from path, for the CLI's `status`
// command to display.
func Read(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read status %s: %w", path, err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("parse status %s: %w", path, err)
	}
	return s, nil
}

// DefaultPath returns the conventional status snapshot location, mirroring
// runforge/internal/sentinel.DefaultTrackerPath's "~/.<app>/..." shape.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".hermes", "status.json")
}
