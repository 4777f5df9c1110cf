// Package router implements the core routing decision and staging logic
// (component E, §4.4): for one assembled series, evaluate configured
// rules, decide discard vs. study/series-level staging, and hand off
// staged folders to the dispatcher via the outgoing-folder state machine.
//
// Grounded on original_source/routing/route_series.py's route_series /
// get_triggered_rules control flow, generalized from mercure's global
// config dict to the config.Settings struct and from the original's
// unstructured try/except-per-step error handling to Go's explicit error
// returns, logged and swallowed at each per-item boundary exactly as the
// Python does with its per-rule and per-file try/except blocks.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/hermes-router/hermes/internal/config"
	"github.com/hermes-router/hermes/internal/errs"
	"github.com/hermes-router/hermes/internal/fsops"
	"github.com/hermes-router/hermes/internal/lockfile"
	"github.com/hermes-router/hermes/internal/notify"
	"github.com/hermes-router/hermes/internal/rule"
	"github.com/hermes-router/hermes/internal/series"
	"github.com/hermes-router/hermes/internal/sink"
	"github.com/hermes-router/hermes/internal/tags"
)

// Router evaluates rules for one series and stages it into discard/,
// processing/, or outgoing/.
type Router struct {
	cfg    *config.Settings
	sink   *sink.Sink
	notify *notify.Notifier
}

// New builds a Router against the given configuration, event sink, and
// webhook notifier.
func New(cfg *config.Settings, sk *sink.Sink, nf *notify.Notifier) *Router {
	return &Router{cfg: cfg, sink: sk, notify: nf}
}

// RouteSeries implements §4.4 steps 1-7 for one series UID. It never
// returns an error for per-item problems (invalid rule, missing target,
// failed move) — those are logged and reported to the event sink, and
// routing continues with the next rule or target. It returns a non-nil
// error only for conditions that make progress on this series impossible,
// which the caller (the router scan loop) logs and moves on from.
func (r *Router) RouteSeries(ctx context.Context, seriesUID string) error {
	lockPath := filepath.Join(r.cfg.IncomingFolder, fsops.LockName(seriesUID))
	lk, err := lockfile.Acquire(lockPath, "router")
	if err != nil {
		if errors.Is(err, errs.ErrLockBusy) {
			return nil
		}
		return err
	}
	defer lk.Release()

	assembled, err := series.Discover(r.cfg.IncomingFolder, seriesUID, r.cfg.TagsExt)
	if err != nil {
		slog.Error("invalid tag information", "series", seriesUID, "error", err)
		r.sink.SendEvent(ctx, sink.EventProcessing, sink.SeverityError,
			fmt.Sprintf("invalid tag information for series %s", seriesUID))
		return nil
	}
	if len(assembled.Files) == 0 {
		return nil
	}

	r.sink.RegisterSeries(ctx, assembled.Tags.Env())
	r.sink.SendSeriesEvent(ctx, sink.SeriesRegistered, seriesUID, len(assembled.Files), "", "")

	triggered, discardRule := r.evaluateRules(ctx, assembled.Tags)

	if len(triggered) == 0 || discardRule != "" {
		r.discard(ctx, assembled, seriesUID, discardRule)
		return nil
	}

	r.stageStudyLevel(ctx, triggered, assembled, seriesUID)
	r.stageSeriesLevel(ctx, triggered, assembled, seriesUID)

	if len(triggered) > 1 {
		r.removeSeries(assembled)
	}

	return nil
}

// evaluateRules runs §4.4 step 5: every enabled rule is evaluated against
// the series tags; the first triggered DISCARD rule stops evaluation
// early, mirroring get_triggered_rules's `break` on a discard hit.
func (r *Router) evaluateRules(ctx context.Context, t tags.Tags) ([]rule.Rule, string) {
	var triggered []rule.Rule
	var discardRule string

	for _, ru := range r.cfg.EnabledRules() {
		ok, err := rule.Evaluate(ru.Expression, t)
		if err != nil {
			slog.Error("invalid rule", "rule", ru.Name, "error", err)
			r.sink.SendEvent(ctx, sink.EventProcessing, sink.SeverityError, "invalid rule: "+ru.Name)
			continue
		}
		if !ok {
			continue
		}

		triggered = append(triggered, ru)
		if ru.Action == rule.ActionDiscard {
			discardRule = ru.Name
			break
		}
	}

	slog.Info("triggered rules", "count", len(triggered), "discard", discardRule)
	return triggered, discardRule
}

// removeSeries deletes the series' source files from incoming/ after they
// have been staged into every destination, per §4.4 step 6 ("if more than
// one rule triggered, delete source files after staging").
func (r *Router) removeSeries(assembled series.Assembled) {
	for _, f := range assembled.Files {
		payload := f.PayloadPath(r.cfg.IncomingFolder, r.cfg.PayloadExt)
		tagsFile := f.TagsPath(r.cfg.IncomingFolder, r.cfg.TagsExt)
		if err := removeIfExists(tagsFile); err != nil {
			slog.Error("remove source file", "path", tagsFile, "error", err)
		}
		if err := removeIfExists(payload); err != nil {
			slog.Error("remove source file", "path", payload, "error", err)
		}
	}
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// reportFolderError logs and reports a per-folder staging failure, mirroring
// the original source's repeated "log + monitor.send_event(PROCESSING,
// ERROR, ...) + return/continue" pattern at every staging call site.
func (r *Router) reportFolderError(ctx context.Context, msg, path string) {
	slog.Error(msg, "path", path)
	r.sink.SendEvent(ctx, sink.EventProcessing, sink.SeverityError, msg+" "+path)
}

// newStagingFolder creates and verifies a fresh UUID-named folder under
// root, mirroring the original source's mkdir-then-exists-check idiom
// repeated at every staging call site.
func newStagingFolder(root string) (string, error) {
	folder := filepath.Join(root, uuid.NewString())
	if err := fsops.EnsureDir(folder); err != nil {
		return "", err
	}
	return folder, nil
}
