package router

import (
	"context"

	"github.com/hermes-router/hermes/internal/descriptor"
	"github.com/hermes-router/hermes/internal/rule"
	"github.com/hermes-router/hermes/internal/series"
	"github.com/hermes-router/hermes/internal/sink"
)

// pushSeriesLevelOutgoing implements §4.4d: stage one outgoing/<uuid>/
// folder per selected target, with a durable task descriptor, before the
// dispatcher (component G) may ever observe it. Grounded on
// push_serieslevel_outgoing in original_source/routing/route_series.py.
//
// Transfer is move (not copy) only when exactly one rule was triggered for
// the whole series AND this is the last target in enumeration order —
// every earlier target, and every target when more than one rule
// triggered, gets a copy so later targets still have source files to
// stage from.
func (r *Router) pushSeriesLevelOutgoing(ctx context.Context, triggered []rule.Rule, assembled series.Assembled, seriesUID string, targetNames []string, selected map[string]string) {
	if len(targetNames) == 0 {
		return
	}

	moveOnLast := len(triggered) == 1

	for i, targetName := range targetNames {
		ruleName := selected[targetName]

		tgt, ok := r.cfg.Target(targetName)
		if !ok {
			r.reportFolderError(ctx, "invalid target selected", targetName)
			continue
		}

		folder, err := newStagingFolder(r.cfg.OutgoingFolder)
		if err != nil {
			r.reportFolderError(ctx, "unable to create outgoing folder", folder)
			return
		}

		lk, err := r.lockFolder(ctx, folder)
		if err != nil {
			return
		}

		d := descriptor.NewRoute(seriesUID, rule.TriggerSeries, ruleName, tgt)
		if err := descriptor.WriteAtomic(descriptor.RoutePath(folder), d); err != nil {
			r.reportFolderError(ctx, "unable to create target file", descriptor.RoutePath(folder))
			lk.Release()
			continue
		}

		r.sink.SendSeriesEvent(ctx, sink.SeriesRoute, seriesUID, len(assembled.Files), targetName, ruleName)

		isLast := i == len(targetNames)-1
		copyFiles := !(moveOnLast && isLast)

		r.pushFiles(ctx, assembled, folder, copyFiles)

		r.sink.SendSeriesEvent(ctx, sink.SeriesMove, seriesUID, len(assembled.Files), folder, "")
		lk.Release()
	}
}
