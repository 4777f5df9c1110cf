package router

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/hermes-router/hermes/internal/fsops"
	"github.com/hermes-router/hermes/internal/lockfile"
	"github.com/hermes-router/hermes/internal/series"
	"github.com/hermes-router/hermes/internal/sink"
)

// discard implements §4.4a: move every file of the series into a fresh
// discard/<uuid>/ folder. Grounded on push_series_discard in
// original_source/routing/route_series.py.
func (r *Router) discard(ctx context.Context, assembled series.Assembled, seriesUID, discardRule string) {
	discardPath, err := newStagingFolder(r.cfg.DiscardFolder)
	if err != nil {
		slog.Error("unable to create discard folder", "series", seriesUID, "error", err)
		r.sink.SendEvent(ctx, sink.EventProcessing, sink.SeverityError,
			fmt.Sprintf("unable to create discard folder for series %s", seriesUID))
		return
	}

	lockPath := filepath.Join(discardPath, ".LOCK")
	lk, err := lockfile.Acquire(lockPath, "router")
	if err != nil {
		slog.Error("unable to lock discard folder", "path", discardPath, "error", err)
		r.sink.SendEvent(ctx, sink.EventProcessing, sink.SeverityError,
			fmt.Sprintf("unable to create lock file in discard folder %s", discardPath))
		return
	}
	defer lk.Release()

	info := ""
	if discardRule != "" {
		info = "Discard by rule " + discardRule
	}
	r.sink.SendSeriesEvent(ctx, sink.SeriesDiscard, seriesUID, len(assembled.Files), "", info)

	for _, f := range assembled.Files {
		srcPayload := f.PayloadPath(r.cfg.IncomingFolder, r.cfg.PayloadExt)
		srcTags := f.TagsPath(r.cfg.IncomingFolder, r.cfg.TagsExt)
		dstPayload := f.PayloadPath(discardPath, r.cfg.PayloadExt)
		dstTags := f.TagsPath(discardPath, r.cfg.TagsExt)

		if err := fsops.MoveFile(srcPayload, dstPayload); err != nil {
			slog.Error("problem discarding file", "stem", f.Stem, "error", err)
			r.sink.SendEvent(ctx, sink.EventProcessing, sink.SeverityError,
				fmt.Sprintf("problem while discarding file %s", f.Stem))
			continue
		}
		if err := fsops.MoveFile(srcTags, dstTags); err != nil {
			slog.Error("problem discarding file", "stem", f.Stem, "error", err)
			r.sink.SendEvent(ctx, sink.EventProcessing, sink.SeverityError,
				fmt.Sprintf("problem while discarding file %s", f.Stem))
		}
	}

	r.sink.SendSeriesEvent(ctx, sink.SeriesMove, seriesUID, len(assembled.Files), discardPath, "")
}
