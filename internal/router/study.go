package router

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/hermes-router/hermes/internal/fsops"
	"github.com/hermes-router/hermes/internal/lockfile"
	"github.com/hermes-router/hermes/internal/rule"
	"github.com/hermes-router/hermes/internal/series"
	"github.com/hermes-router/hermes/internal/sink"
)

// stageStudyLevel implements §4.4b: deposit file pairs into
// "<SeriesUID>_<rule>/" under incoming/ for every triggered rule whose
// action_trigger is STUDY. Study completion (assembling the full set of
// series that belong to one study) is explicitly out of scope for this
// core (spec.md §9 Open Question i) — this stage only performs the
// per-series deposit. Grounded on push_series_studylevel in
// original_source/routing/route_series.py.
func (r *Router) stageStudyLevel(ctx context.Context, triggered []rule.Rule, assembled series.Assembled, seriesUID string) {
	copyFiles := len(triggered) > 1

	for _, ru := range triggered {
		if ru.EffectiveTrigger() != rule.TriggerStudy {
			continue
		}

		folder := filepath.Join(r.cfg.IncomingFolder, fsops.StudyFolderName(seriesUID, ru.Name))
		if err := fsops.EnsureDir(folder); err != nil {
			slog.Error("unable to create study folder", "folder", folder, "error", err)
			r.sink.SendEvent(ctx, sink.EventProcessing, sink.SeverityError,
				fmt.Sprintf("unable to create folder %s", folder))
			continue
		}

		lockPath := filepath.Join(folder, ".LOCK")
		lk, err := lockfile.Acquire(lockPath, "router")
		if err != nil {
			slog.Error("unable to lock study folder", "folder", folder, "error", err)
			r.sink.SendEvent(ctx, sink.EventProcessing, sink.SeverityError,
				fmt.Sprintf("unable to create lock file %s", lockPath))
			continue
		}

		r.pushFiles(ctx, assembled, folder, copyFiles)
		lk.Release()
	}
}

// pushFiles copies or moves every payload+sidecar pair of assembled from
// incoming/ into dest. Mirrors push_files in the original source; callers
// are responsible for locking dest.
func (r *Router) pushFiles(ctx context.Context, assembled series.Assembled, dest string, copyFiles bool) bool {
	ok := true
	for _, f := range assembled.Files {
		srcPayload := f.PayloadPath(r.cfg.IncomingFolder, r.cfg.PayloadExt)
		srcTags := f.TagsPath(r.cfg.IncomingFolder, r.cfg.TagsExt)
		dstPayload := f.PayloadPath(dest, r.cfg.PayloadExt)
		dstTags := f.TagsPath(dest, r.cfg.TagsExt)

		transfer := fsops.MoveFile
		if copyFiles {
			transfer = fsops.CopyFile
		}

		if err := transfer(srcPayload, dstPayload); err != nil {
			slog.Error("problem pushing file", "stem", f.Stem, "dest", dest, "error", err)
			r.sink.SendEvent(ctx, sink.EventProcessing, sink.SeverityError,
				fmt.Sprintf("problem while pushing file to %s", dest))
			ok = false
			continue
		}
		if err := transfer(srcTags, dstTags); err != nil {
			slog.Error("problem pushing file", "stem", f.Stem, "dest", dest, "error", err)
			r.sink.SendEvent(ctx, sink.EventProcessing, sink.SeverityError,
				fmt.Sprintf("problem while pushing file to %s", dest))
			ok = false
		}
	}
	return ok
}
