package router_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hermes-router/hermes/internal/config"
	"github.com/hermes-router/hermes/internal/descriptor"
	"github.com/hermes-router/hermes/internal/notify"
	"github.com/hermes-router/hermes/internal/router"
	"github.com/hermes-router/hermes/internal/sink"
)

// newTestSettings builds a minimal, validated Settings rooted at dir,
// mirroring the directory layout §6 requires without going through YAML
// decoding — these tests exercise router behavior, not config loading
// (already covered by internal/config's tests).
func newTestSettings(t *testing.T, dir string) *config.Settings {
	t.Helper()
	for _, sub := range []string{"incoming", "outgoing", "success", "error", "discard", "processing"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	body := `
incoming_folder: ` + filepath.Join(dir, "incoming") + `
outgoing_folder: ` + filepath.Join(dir, "outgoing") + `
success_folder: ` + filepath.Join(dir, "success") + `
error_folder: ` + filepath.Join(dir, "error") + `
discard_folder: ` + filepath.Join(dir, "discard") + `
processing_folder: ` + filepath.Join(dir, "processing") + `
rules:
  r1:
    rule: 'Modality == "CT"'
    action: route
    action_trigger: series
    target: t1
targets:
  t1:
    address: 127.0.0.1
    port: 11112
    receiver_id: RCV
    sender_id: SND
`
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load test config: %v", err)
	}
	return cfg
}

func writeSeriesFile(t *testing.T, dir, seriesUID, slice, ext, content string) {
	t.Helper()
	name := seriesUID + "#" + slice + "." + ext
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func listEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// scenario 1: single-rule route, happy path — ABC#1.dcm + ABC#1.tags with
// Modality=CT routes to outgoing/<uuid>/ with both files moved and a
// well-formed target.json.
func TestRouteSeriesSingleRuleRoutesAndMoves(t *testing.T) {
	dir := t.TempDir()
	cfg := newTestSettings(t, dir)
	incoming := cfg.IncomingFolder

	writeSeriesFile(t, incoming, "ABC", "1", "dcm", "payload-bytes")
	writeSeriesFile(t, incoming, "ABC", "1", "tags", `{"Modality":"CT"}`)

	sk := sink.New("", "test")
	nf := notify.New()
	rt := router.New(cfg, sk, nf)

	if err := rt.RouteSeries(context.Background(), "ABC"); err != nil {
		t.Fatalf("RouteSeries: %v", err)
	}

	outEntries := listEntries(t, cfg.OutgoingFolder)
	if len(outEntries) != 1 {
		t.Fatalf("expected exactly one outgoing folder, got %v", outEntries)
	}
	folder := filepath.Join(cfg.OutgoingFolder, outEntries[0])

	if _, err := os.Stat(filepath.Join(folder, "ABC#1.dcm")); err != nil {
		t.Errorf("expected moved payload in outgoing folder: %v", err)
	}
	if _, err := os.Stat(filepath.Join(folder, "ABC#1.tags")); err != nil {
		t.Errorf("expected moved tags in outgoing folder: %v", err)
	}

	d, err := descriptor.Read(descriptor.RoutePath(folder))
	if err != nil {
		t.Fatalf("read descriptor: %v", err)
	}
	if d.SeriesUID != "ABC" || d.TargetName != "t1" || d.Retries != 0 {
		t.Fatalf("unexpected descriptor: %+v", d)
	}

	if entries := listEntries(t, incoming); len(entries) != 0 {
		t.Errorf("expected incoming to be drained by the move, got %v", entries)
	}
}

// scenario 2: multi-rule fan-out — two ROUTE rules on different targets
// each get a copy of the files; the source is deleted once, after the
// final staging (§4.4 step 6: "if more than one rule triggered, delete
// source files after staging").
func TestRouteSeriesMultiRuleFansOutAndDeletesSource(t *testing.T) {
	dir := t.TempDir()
	cfg := newTestSettings(t, dir)
	cfg.Rules["r2"] = &config.RuleConfig{
		Expression:    `Modality == "CT"`,
		Action:        cfg.Rules["r1"].Action,
		ActionTrigger: cfg.Rules["r1"].ActionTrigger,
		Target:        "t2",
	}
	cfg.Targets["t2"] = &config.TargetConfig{Address: "127.0.0.2", Port: 11113, ReceiverID: "RCV2"}

	incoming := cfg.IncomingFolder
	writeSeriesFile(t, incoming, "ABC", "1", "dcm", "payload-bytes")
	writeSeriesFile(t, incoming, "ABC", "1", "tags", `{"Modality":"CT"}`)

	sk := sink.New("", "test")
	nf := notify.New()
	rt := router.New(cfg, sk, nf)

	if err := rt.RouteSeries(context.Background(), "ABC"); err != nil {
		t.Fatalf("RouteSeries: %v", err)
	}

	outEntries := listEntries(t, cfg.OutgoingFolder)
	if len(outEntries) != 2 {
		t.Fatalf("expected two outgoing folders, got %v", outEntries)
	}
	for _, name := range outEntries {
		folder := filepath.Join(cfg.OutgoingFolder, name)
		if _, err := os.Stat(filepath.Join(folder, "ABC#1.dcm")); err != nil {
			t.Errorf("expected copy of payload in %s: %v", folder, err)
		}
	}

	if entries := listEntries(t, incoming); len(entries) != 0 {
		t.Errorf("expected source files removed after fan-out, got %v", entries)
	}
}

// scenario 3: discard wins — a DISCARD rule triggering alongside a ROUTE
// rule suppresses all staging; the series lands in discard/ instead.
func TestRouteSeriesDiscardWins(t *testing.T) {
	dir := t.TempDir()
	cfg := newTestSettings(t, dir)
	cfg.Rules["rd"] = &config.RuleConfig{
		Expression: `Modality == "CT"`,
		Action:     "discard",
	}

	incoming := cfg.IncomingFolder
	writeSeriesFile(t, incoming, "ABC", "1", "dcm", "payload-bytes")
	writeSeriesFile(t, incoming, "ABC", "1", "tags", `{"Modality":"CT"}`)

	sk := sink.New("", "test")
	nf := notify.New()
	rt := router.New(cfg, sk, nf)

	if err := rt.RouteSeries(context.Background(), "ABC"); err != nil {
		t.Fatalf("RouteSeries: %v", err)
	}

	if entries := listEntries(t, cfg.OutgoingFolder); len(entries) != 0 {
		t.Fatalf("expected no outgoing folder on discard, got %v", entries)
	}

	discardEntries := listEntries(t, cfg.DiscardFolder)
	if len(discardEntries) != 1 {
		t.Fatalf("expected exactly one discard folder, got %v", discardEntries)
	}
	folder := filepath.Join(cfg.DiscardFolder, discardEntries[0])
	if _, err := os.Stat(filepath.Join(folder, "ABC#1.dcm")); err != nil {
		t.Errorf("expected payload moved into discard folder: %v", err)
	}
	if _, err := os.Stat(filepath.Join(folder, "ABC#1.tags")); err != nil {
		t.Errorf("expected tags moved into discard folder: %v", err)
	}
}

// scenario 6: an invalid rule is isolated — a malformed expression is
// skipped, and a sibling valid rule still triggers exactly as in
// scenario 1.
func TestRouteSeriesInvalidRuleIsolated(t *testing.T) {
	dir := t.TempDir()
	cfg := newTestSettings(t, dir)
	cfg.Rules["rbad"] = &config.RuleConfig{
		Expression: `Modality ===`, // malformed
		Action:     "route",
		Target:     "t1",
	}

	incoming := cfg.IncomingFolder
	writeSeriesFile(t, incoming, "ABC", "1", "dcm", "payload-bytes")
	writeSeriesFile(t, incoming, "ABC", "1", "tags", `{"Modality":"CT"}`)

	sk := sink.New("", "test")
	nf := notify.New()
	rt := router.New(cfg, sk, nf)

	if err := rt.RouteSeries(context.Background(), "ABC"); err != nil {
		t.Fatalf("RouteSeries: %v", err)
	}

	outEntries := listEntries(t, cfg.OutgoingFolder)
	if len(outEntries) != 1 {
		t.Fatalf("expected the good rule to still stage one folder, got %v", outEntries)
	}
}

// No matching series files is a silent no-op (§4.4 step 2).
func TestRouteSeriesNoFilesIsNoop(t *testing.T) {
	dir := t.TempDir()
	cfg := newTestSettings(t, dir)

	sk := sink.New("", "test")
	nf := notify.New()
	rt := router.New(cfg, sk, nf)

	if err := rt.RouteSeries(context.Background(), "NOPE"); err != nil {
		t.Fatalf("RouteSeries: %v", err)
	}
	if entries := listEntries(t, cfg.OutgoingFolder); len(entries) != 0 {
		t.Fatalf("expected no outgoing folders, got %v", entries)
	}
}

// A malformed master tags file aborts this series only; the lock is
// released so a later retry (after an operator fixes the file) can
// proceed.
func TestRouteSeriesTagParseErrorReleasesLock(t *testing.T) {
	dir := t.TempDir()
	cfg := newTestSettings(t, dir)
	incoming := cfg.IncomingFolder

	writeSeriesFile(t, incoming, "ABC", "1", "dcm", "payload-bytes")
	writeSeriesFile(t, incoming, "ABC", "1", "tags", `not-json`)

	sk := sink.New("", "test")
	nf := notify.New()
	rt := router.New(cfg, sk, nf)

	if err := rt.RouteSeries(context.Background(), "ABC"); err != nil {
		t.Fatalf("RouteSeries: %v", err)
	}

	if _, err := os.Stat(filepath.Join(incoming, "ABC.LOCK")); !os.IsNotExist(err) {
		t.Fatalf("expected series lock to be released, stat err: %v", err)
	}
}

// I1: a second RouteSeries call while a lock is already held (simulating
// a concurrent router) is a silent no-op, not an error.
func TestRouteSeriesLockBusyIsNoop(t *testing.T) {
	dir := t.TempDir()
	cfg := newTestSettings(t, dir)
	incoming := cfg.IncomingFolder

	writeSeriesFile(t, incoming, "ABC", "1", "dcm", "payload-bytes")
	writeSeriesFile(t, incoming, "ABC", "1", "tags", `{"Modality":"CT"}`)

	lockPath := filepath.Join(incoming, "ABC.LOCK")
	if err := os.WriteFile(lockPath, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	sk := sink.New("", "test")
	nf := notify.New()
	rt := router.New(cfg, sk, nf)

	if err := rt.RouteSeries(context.Background(), "ABC"); err != nil {
		t.Fatalf("expected busy lock to be a silent no-op, got %v", err)
	}
	if entries := listEntries(t, cfg.OutgoingFolder); len(entries) != 0 {
		t.Fatalf("expected no staging while lock is held, got %v", entries)
	}
}
