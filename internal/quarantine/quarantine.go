// Package quarantine implements the error quarantiner (component F,
// §4.9): a periodic sweep of incoming/ for "*.ERROR" marker files, moving
// each to error/ along with its paired payload. Grounded on
// original_source/routing/route_series.py's route_error_files (the
// process_series.py variant process_error_files is functionally
// identical; both are the same sweep against incoming/).
package quarantine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hermes-router/hermes/internal/config"
	"github.com/hermes-router/hermes/internal/errs"
	"github.com/hermes-router/hermes/internal/fsops"
	"github.com/hermes-router/hermes/internal/lockfile"
	"github.com/hermes-router/hermes/internal/sink"
)

// Quarantiner sweeps incoming/ for error-marked files.
type Quarantiner struct {
	cfg  *config.Settings
	sink *sink.Sink
}

// New builds a Quarantiner.
func New(cfg *config.Settings, sk *sink.Sink) *Quarantiner {
	return &Quarantiner{cfg: cfg, sink: sk}
}

// Sweep implements §4.9: for each "*.ERROR" entry found directly in
// incoming/, acquire "<name>.LOCK" (skip if busy — another worker may
// already be moving it), move the error file to error/, move its paired
// payload if one exists, and release the lock. One aggregate
// PROCESSING/ERROR event is emitted if any file was quarantined.
func (q *Quarantiner) Sweep(ctx context.Context) error {
	entries, err := os.ReadDir(q.cfg.IncomingFolder)
	if err != nil {
		return fmt.Errorf("%w: scan incoming %s: %v", errs.ErrFSTransient, q.cfg.IncomingFolder, err)
	}

	found := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fsops.ErrorMarkerSuffix) {
			continue
		}
		if q.quarantineOne(e.Name()) {
			found++
		}
	}

	if found > 0 {
		q.sink.SendEvent(ctx, sink.EventProcessing, sink.SeverityError,
			fmt.Sprintf("Error parsing %d incoming files", found))
	}
	return nil
}

// quarantineOne moves one error-marked file (and its paired payload, if
// present) from incoming/ to error/. Returns false if the file was
// already locked by another worker or an acquisition failure occurred.
func (q *Quarantiner) quarantineOne(errorFileName string) bool {
	lockPath := filepath.Join(q.cfg.IncomingFolder, errorFileName+".LOCK")
	lk, err := lockfile.Acquire(lockPath, "quarantiner")
	if err != nil {
		return false
	}
	defer lk.Release()

	slog.Error("found incoming error file", "name", errorFileName)

	src := filepath.Join(q.cfg.IncomingFolder, errorFileName)
	dst := filepath.Join(q.cfg.ErrorFolder, errorFileName)
	if err := fsops.MoveFile(src, dst); err != nil {
		slog.Error("move error file", "name", errorFileName, "error", err)
		return false
	}

	pairedName := fsops.PairedPayloadFromError(errorFileName)
	pairedSrc := filepath.Join(q.cfg.IncomingFolder, pairedName)
	if _, err := os.Stat(pairedSrc); err == nil {
		pairedDst := filepath.Join(q.cfg.ErrorFolder, pairedName)
		if err := fsops.MoveFile(pairedSrc, pairedDst); err != nil {
			slog.Error("move paired payload", "name", pairedName, "error", err)
		}
	}

	return true
}
