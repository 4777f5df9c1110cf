// Package service implements the repeated-timer shell (component I, §5
// "Scheduling model", §9 "Global state"): two independent fixed-interval
// drivers — one for the router, one for the dispatcher — each reading
// configuration fresh at the start of its own tick (§9 "Configuration
// hot-reload": "config is read at tick start, never mid-tick") and
// isolating per-tick failures so one bad tick never aborts the shell.
//
// Grounded on original_source/dispatcher.py's RepeatedTimer-driven main
// loop and signal-based shutdown, re-architected per spec.md §9's
// "Global state" resolution: no package-level globals — the job queue
// (worker pool) and clock are held by this Service, which cmd/hermes
// constructs and runs, while the router, dispatcher, and event sink are
// built fresh on every tick from the configuration loaded for it. The
// ticking shape itself (ticker + cooperative termination flag polled
// between items, not a forced kill) is adapted from
// runforge/internal/sentinel/loop.go's Loop.Run/cycle.
package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hermes-router/hermes/internal/clock"
	"github.com/hermes-router/hermes/internal/config"
	"github.com/hermes-router/hermes/internal/dispatch"
	"github.com/hermes-router/hermes/internal/notify"
	"github.com/hermes-router/hermes/internal/quarantine"
	"github.com/hermes-router/hermes/internal/router"
	"github.com/hermes-router/hermes/internal/series"
	"github.com/hermes-router/hermes/internal/sink"
	"github.com/hermes-router/hermes/internal/status"
)

// Options configures a Service.
type Options struct {
	ConfigPath      string
	Clock           clock.Clock
	DispatchWorkers int
	QueueSize       int
	Tracker         *status.Tracker // optional; nil disables status reporting
	InstanceName    string
}

// Service owns the router timer, dispatcher timer, and the worker pool
// the dispatcher submits transfer jobs to. It holds no business logic of
// its own beyond scheduling and per-tick config loading.
type Service struct {
	opts      Options
	pool      *dispatch.Pool
	terminate atomic.Bool
	wg        sync.WaitGroup
}

// New builds a Service. It performs no I/O beyond starting the dispatch
// worker pool; configuration is loaded fresh on the first tick of each
// timer, not here.
func New(ctx context.Context, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.DispatchWorkers <= 0 {
		opts.DispatchWorkers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}

	// The sink used by pool workers is rebuilt from whatever config each
	// dispatcher tick loads, but the pool's goroutines are long-lived;
	// each Job carries everything a worker needs except the sink, which
	// dispatcherTick swaps into the pool with Pool.UpdateSink before each
	// scan.
	placeholderSink := sink.New("", "hermes.dispatcher."+opts.InstanceName)
	pool := dispatch.NewPool(ctx, opts.DispatchWorkers, placeholderSink, opts.Clock, opts.QueueSize)

	return &Service{opts: opts, pool: pool}
}

// Run starts both timers and blocks until ctx is cancelled. Stop alone
// makes the timer loops exit after their current wait, but does not make
// Run return. It never returns an error: per-tick failures are logged and
// reported to the event sink, not propagated (§7 propagation policy).
func (s *Service) Run(ctx context.Context) {
	bootSink := s.loadSinkBestEffort()
	bootSink.SendEvent(ctx, sink.EventBoot, sink.SeverityInfo, "hermes routing/dispatch service starting")

	s.wg.Add(2)
	go s.runRouterLoop(ctx)
	go s.runDispatcherLoop(ctx)

	<-ctx.Done()
	s.terminate.Store(true)
	bootSink.SendEvent(context.Background(), sink.EventShutdownRequest, sink.SeverityInfo, "shutdown requested")

	s.wg.Wait()
	s.pool.Close()

	bootSink.SendEvent(context.Background(), sink.EventShutdown, sink.SeverityInfo, "hermes routing/dispatch service stopped")
}

// Stop requests cooperative shutdown; in-flight transfers are allowed to
// complete (§5 "Cancellation / shutdown").
func (s *Service) Stop() {
	s.terminate.Store(true)
}

func (s *Service) shouldStop() bool {
	return s.terminate.Load()
}

// loadSinkBestEffort loads configuration once, just to discover the
// bookkeeper address for boot/shutdown events; a missing config here
// yields a disabled (no-op) sink rather than aborting startup, since boot
// notification is not on the critical path.
func (s *Service) loadSinkBestEffort() *sink.Sink {
	cfg, err := config.Load(s.opts.ConfigPath)
	if err != nil {
		return sink.New("", "hermes."+s.opts.InstanceName)
	}
	return sink.New(cfg.Bookkeeper, "hermes."+s.opts.InstanceName)
}

func (s *Service) setPhase(p status.Phase) {
	if s.opts.Tracker != nil {
		s.opts.Tracker.SetPhase(p)
	}
}

func (s *Service) runRouterLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		cfg, err := config.Load(s.opts.ConfigPath)
		if err != nil {
			slog.Warn("router tick: config load failed, skipping tick", "error", err)
			if s.opts.Tracker != nil {
				s.opts.Tracker.RecordError(err)
			}
		} else {
			s.routerTick(ctx, cfg)
		}

		interval := 5 * time.Second
		if cfg != nil {
			interval = cfg.RouterInterval()
		}
		if s.waitOrStop(ctx, interval) {
			return
		}
	}
}

func (s *Service) routerTick(ctx context.Context, cfg *config.Settings) {
	s.setPhase(status.PhaseRouting)

	sk := sink.New(cfg.Bookkeeper, "hermes.router."+s.opts.InstanceName)
	nf := notify.New()
	rt := router.New(cfg, sk, nf)

	uids, err := series.PendingUIDs(cfg.IncomingFolder, cfg.TagsExt)
	if err != nil {
		slog.Warn("router tick: scan incoming failed", "error", err)
		if s.opts.Tracker != nil {
			s.opts.Tracker.RecordError(err)
		}
		return
	}

	routed := 0
	for _, uid := range uids {
		if err := rt.RouteSeries(ctx, uid); err != nil {
			slog.Error("router tick: route series failed", "series", uid, "error", err)
			continue
		}
		routed++
		if s.shouldStop() {
			break
		}
	}

	s.setPhase(status.PhaseQuarantining)
	q := quarantine.New(cfg, sk)
	if err := q.Sweep(ctx); err != nil {
		slog.Warn("router tick: quarantine sweep failed", "error", err)
	}

	if s.opts.Tracker != nil {
		s.opts.Tracker.RecordRouterTick(routed)
	}
	s.setPhase(status.PhaseIdle)
}

func (s *Service) runDispatcherLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		cfg, err := config.Load(s.opts.ConfigPath)
		if err != nil {
			slog.Warn("dispatcher tick: config load failed, skipping tick", "error", err)
			if s.opts.Tracker != nil {
				s.opts.Tracker.RecordError(err)
			}
		} else {
			s.dispatcherTick(ctx, cfg)
		}

		interval := 10 * time.Second
		if cfg != nil {
			interval = cfg.DispatcherInterval()
		}
		if s.waitOrStop(ctx, interval) {
			return
		}
	}
}

func (s *Service) dispatcherTick(ctx context.Context, cfg *config.Settings) {
	s.setPhase(status.PhaseDispatching)

	sk := sink.New(cfg.Bookkeeper, "hermes.dispatcher."+s.opts.InstanceName)
	s.pool.UpdateSink(sk)

	d := dispatch.New(cfg, sk, s.opts.Clock, s.pool)
	if err := d.Scan(ctx, s.shouldStop); err != nil {
		slog.Warn("dispatcher tick: scan failed", "error", err)
		if s.opts.Tracker != nil {
			s.opts.Tracker.RecordError(err)
		}
		s.setPhase(status.PhaseIdle)
		return
	}

	if s.opts.Tracker != nil {
		s.opts.Tracker.RecordDispatcherTick(0)
	}
	s.setPhase(status.PhaseIdle)
}

// waitOrStop blocks for interval, or until ctx is cancelled, returning
// true if the shell should stop.
func (s *Service) waitOrStop(ctx context.Context, interval time.Duration) bool {
	if interval <= 0 {
		interval = time.Second
	}
	select {
	case <-ctx.Done():
		return true
	case <-time.After(interval):
		return s.shouldStop()
	}
}
