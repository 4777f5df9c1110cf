// Package dispatch implements the dispatcher loop (component G, §4.6) and
// the transfer worker (component H, §4.7): draining outgoing/ on a fixed
// tick, claiming eligible folders with a .SENDING sentinel, handing each
// to a bounded worker pool that invokes the external DICOM transfer tool
// and drives the retry/quarantine state machine.
//
// Grounded on original_source/dispatcher.py's dispatch() scan loop
// (is_ready_for_sending / has_been_send / is_target_json_valid) and
// original_source/dispatch/send.py's execute(). The worker pool itself is
// adapted from runforge/internal/task/scheduler.go's Scheduler.Run: the
// same bounded `work chan string` + sync.WaitGroup pattern, with the
// dependency-graph half dropped since transfer jobs have no dependencies
// between them (see DESIGN.md).
package dispatch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hermes-router/hermes/internal/clock"
	"github.com/hermes-router/hermes/internal/config"
	"github.com/hermes-router/hermes/internal/descriptor"
	"github.com/hermes-router/hermes/internal/fsops"
	"github.com/hermes-router/hermes/internal/sink"
)

const sendingSentinel = ".SENDING"
const sentSentinel = ".SENT"
const errorSentinel = ".ERROR"

// Dispatcher drains outgoing/ on each Scan call, moving already-succeeded
// folders to success/ and submitting eligible folders to the worker pool.
type Dispatcher struct {
	cfg   *config.Settings
	sink  *sink.Sink
	clock clock.Clock
	pool  *Pool
}

// New builds a Dispatcher backed by the given worker pool.
func New(cfg *config.Settings, sk *sink.Sink, clk clock.Clock, pool *Pool) *Dispatcher {
	return &Dispatcher{cfg: cfg, sink: sk, clock: clk, pool: pool}
}

// Scan implements §4.6: a single dispatcher tick over the current
// directory snapshot of outgoing/. It never blocks on a transfer's
// completion — eligible folders are hashed off to the pool and the scan
// proceeds to the next entry. shouldStop is polled between entries so a
// termination request takes effect without waiting for the whole
// directory to drain.
func (d *Dispatcher) Scan(ctx context.Context, shouldStop func() bool) error {
	entries, err := os.ReadDir(d.cfg.OutgoingFolder)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		folder := filepath.Join(d.cfg.OutgoingFolder, e.Name())

		if hasSentinel(folder, sentSentinel) {
			d.moveSucceeded(ctx, folder)
		} else if d.eligible(folder) {
			d.claim(ctx, folder)
		}

		if shouldStop != nil && shouldStop() {
			break
		}
	}
	return nil
}

// eligible implements the §4.5 predicate: a directory with no .SENDING,
// no .SENT, no .ERROR, a readable task descriptor, and whose
// next_retry_at has passed. A descriptor lacking series_uid or
// target_name does not make a folder ineligible (see claim).
func (d *Dispatcher) eligible(folder string) bool {
	if hasSentinel(folder, sendingSentinel) || hasSentinel(folder, sentSentinel) || hasSentinel(folder, errorSentinel) {
		return false
	}

	desc, err := descriptor.Read(descriptor.RoutePath(folder))
	if err != nil {
		return false
	}

	return d.clock.Now().Unix() >= desc.NextRetryAt
}

// claim creates the .SENDING sentinel and submits the folder's transfer
// job to the pool, mirroring dispatcher.py's "touch .sending, enqueue"
// sequence. A descriptor missing series_uid or target_name is reported
// but still dispatched, per §4.6 ("emit PROCESSING/WARNING but continue").
func (d *Dispatcher) claim(ctx context.Context, folder string) {
	desc, err := descriptor.Read(descriptor.RoutePath(folder))
	if err != nil {
		slog.Warn("dispatch: unreadable descriptor", "folder", folder, "error", err)
		return
	}
	if !desc.IsWellFormed() {
		d.sink.SendEvent(ctx, sink.EventProcessing, sink.SeverityWarning,
			"missing information for folder "+folder)
	}

	sendingPath := filepath.Join(folder, sendingSentinel)
	if err := touch(sendingPath); err != nil {
		slog.Error("dispatch: create sending sentinel", "path", sendingPath, "error", err)
		return
	}

	slog.Info("folder put to queue", "folder", folder)
	d.pool.Submit(Job{
		Descriptor:      desc,
		Folder:          folder,
		SuccessFolder:   d.cfg.SuccessFolder,
		ErrorFolder:     d.cfg.ErrorFolder,
		RetryMax:        d.cfg.RetryMax,
		RetryDelay:      d.cfg.RetryDelay(),
		TransferTool:    d.cfg.TransferTool,
		PayloadExt:      d.cfg.PayloadExt,
		TransferTimeout: d.cfg.TransferTimeout(),
	})
}

// moveSucceeded implements the first branch of §4.6: a folder found
// marked .SENT is moved to success/ by the dispatcher itself. The
// transfer worker does not write .SENT; on success it moves its folder
// to success/ directly (see onSuccess).
func (d *Dispatcher) moveSucceeded(ctx context.Context, folder string) {
	seriesUID := readSeriesUID(folder)

	dest, err := fsops.MoveCollisionSafe(folder, d.cfg.SuccessFolder, d.clock.Now())
	if err != nil {
		slog.Error("dispatch: move succeeded folder", "folder", folder, "error", err)
		return
	}

	slog.Info("folder has been sent", "folder", dest)
	d.sink.SendSeriesEvent(ctx, sink.SeriesMove, seriesUID, 0, dest, "")
}

func readSeriesUID(folder string) string {
	desc, err := descriptor.Read(descriptor.RoutePath(folder))
	if err != nil {
		return ""
	}
	return desc.SeriesUID
}

func hasSentinel(folder, name string) bool {
	_, err := os.Stat(filepath.Join(folder, name))
	return err == nil
}

func touch(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}
