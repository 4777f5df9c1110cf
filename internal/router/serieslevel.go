package router

import (
	"context"
	"path/filepath"

	"github.com/hermes-router/hermes/internal/descriptor"
	"github.com/hermes-router/hermes/internal/lockfile"
	"github.com/hermes-router/hermes/internal/notify"
	"github.com/hermes-router/hermes/internal/rule"
	"github.com/hermes-router/hermes/internal/series"
)

// stageSeriesLevel runs the three passes of §4.4c over rules triggered at
// series scope: routing, processing, notification. Grounded on
// push_series_serieslevel in original_source/routing/route_series.py.
func (r *Router) stageSeriesLevel(ctx context.Context, triggered []rule.Rule, assembled series.Assembled, seriesUID string) {
	r.pushSeriesLevelRouting(ctx, triggered, assembled, seriesUID)
	r.pushSeriesLevelProcessing(ctx, triggered, assembled, seriesUID)
	r.pushSeriesLevelNotification(ctx, triggered, assembled, seriesUID)
}

// fireReception fires a rule's configured reception webhook, if any.
func (r *Router) fireReception(ctx context.Context, ru rule.Rule) {
	r.notify.SendWebhook(ctx, ru.NotificationWebhook, ru.NotificationPayload, notify.EventReception)
}

// pushSeriesLevelRouting is §4.4c pass 1: collect a de-duplicated
// target -> rule mapping for series-scoped ROUTE rules, fire each rule's
// reception webhook, then stage the outgoing folders (§4.4d).
func (r *Router) pushSeriesLevelRouting(ctx context.Context, triggered []rule.Rule, assembled series.Assembled, seriesUID string) {
	selected := map[string]string{} // target name -> rule name
	var order []string              // first-seen target order, for "last target in enumeration"

	for _, ru := range triggered {
		if ru.EffectiveTrigger() != rule.TriggerSeries {
			continue
		}
		if ru.Action != rule.ActionRoute {
			continue
		}
		if ru.Target != "" {
			if _, seen := selected[ru.Target]; !seen {
				order = append(order, ru.Target)
			}
			selected[ru.Target] = ru.Name
		}
		r.fireReception(ctx, ru)
	}

	r.pushSeriesLevelOutgoing(ctx, triggered, assembled, seriesUID, order, selected)
}

// pushSeriesLevelProcessing is §4.4c pass 2: for series-scoped PROCESS or
// BOTH rules, stage a processing/<uuid>/ folder with a process task
// descriptor and the series files.
func (r *Router) pushSeriesLevelProcessing(ctx context.Context, triggered []rule.Rule, assembled series.Assembled, seriesUID string) {
	copyFiles := len(triggered) != 1

	for _, ru := range triggered {
		if ru.EffectiveTrigger() != rule.TriggerSeries {
			continue
		}
		if ru.Action != rule.ActionProcess && ru.Action != rule.ActionBoth {
			continue
		}

		folder, err := newStagingFolder(r.cfg.ProcessingFolder)
		if err != nil {
			r.reportFolderError(ctx, "unable to create processing folder", folder)
			return
		}

		lk, err := r.lockFolder(ctx, folder)
		if err != nil {
			return
		}

		d := descriptor.NewProcess(seriesUID, rule.TriggerSeries, ru.Name)
		if err := descriptor.WriteAtomic(descriptor.ProcessPath(folder), d); err != nil {
			r.reportFolderError(ctx, "unable to create task file", descriptor.ProcessPath(folder))
			lk.Release()
			continue
		}

		if !r.pushFiles(ctx, assembled, folder, copyFiles) {
			r.reportFolderError(ctx, "unable to push files into processing folder", folder)
			lk.Release()
			return
		}

		lk.Release()
		r.fireReception(ctx, ru)
	}
}

// pushSeriesLevelNotification is §4.4c pass 3: for series-scoped
// NOTIFICATION-only rules, fire the reception webhook. If the rule was the
// sole rule triggered overall, the series' source files are removed here
// (not reproducing the original source's `len(triggered_rules==1)` typo —
// see DESIGN.md for the resolved intent: "this was the only rule").
func (r *Router) pushSeriesLevelNotification(ctx context.Context, triggered []rule.Rule, assembled series.Assembled, seriesUID string) {
	for _, ru := range triggered {
		if ru.EffectiveTrigger() != rule.TriggerSeries {
			continue
		}
		if ru.Action != rule.ActionNotification {
			continue
		}

		r.fireReception(ctx, ru)
		if len(triggered) == 1 {
			r.removeSeries(assembled)
		}
	}
}

// lockFolder acquires a ".LOCK" sentinel inside folder, reporting and
// swallowing any failure the way every staging call site in the original
// source does.
func (r *Router) lockFolder(ctx context.Context, folder string) (*lockfile.Lock, error) {
	path := filepath.Join(folder, ".LOCK")
	lk, err := lockfile.Acquire(path, "router")
	if err != nil {
		r.reportFolderError(ctx, "unable to create lock file", path)
		return nil, err
	}
	return lk, nil
}
