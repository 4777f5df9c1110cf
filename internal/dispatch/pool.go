package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hermes-router/hermes/internal/clock"
	"github.com/hermes-router/hermes/internal/descriptor"
	"github.com/hermes-router/hermes/internal/sink"
)

// Job is everything a transfer worker needs to execute one folder's
// dispatch, independent of any other job — the DICOM spec has no
// dependency graph between transfer jobs, unlike the task-graph model
// runforge/internal/task.Scheduler was built for.
type Job struct {
	Descriptor      descriptor.Descriptor
	Folder          string
	SuccessFolder   string
	ErrorFolder     string
	RetryMax        int
	RetryDelay      time.Duration
	TransferTool    string
	PayloadExt      string
	TransferTimeout time.Duration
}

// Pool is a bounded worker pool draining transfer jobs, adapted from
// runforge/internal/task/scheduler.go's Scheduler.Run: the same
// `work chan Job` + sync.WaitGroup shape, with the dependency-graph
// bookkeeping (roots/children/dependents) dropped since no job here
// depends on another (see DESIGN.md, component H).
type Pool struct {
	clock  clock.Clock
	work   chan Job
	wg     sync.WaitGroup
	closed bool
	mu     sync.Mutex
	sink   *sink.Sink
}

// NewPool starts workers goroutines draining the job queue. Each job is
// executed by Execute (component H). The queue is an in-process bounded
// channel, not an external broker — spec.md §9 permits this as long as
// at-least-once semantics and independent worker concurrency hold; a
// crash loses only in-flight (already-claimed, .SENDING) jobs, which the
// next dispatcher tick cannot re-discover automatically until an operator
// clears the stale .SENDING sentinel (see DESIGN.md, component H).
func NewPool(ctx context.Context, workers int, sk *sink.Sink, clk clock.Clock, queueSize int) *Pool {
	p := &Pool{sink: sk, clock: clk, work: make(chan Job, queueSize)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.run(ctx)
	}
	return p
}

// UpdateSink swaps the event sink workers report to. Called at the start
// of each dispatcher tick since the bookkeeper address comes from
// configuration that is reloaded fresh every tick, while the pool's
// worker goroutines are long-lived for the life of the service.
func (p *Pool) UpdateSink(sk *sink.Sink) {
	p.mu.Lock()
	p.sink = sk
	p.mu.Unlock()
}

func (p *Pool) currentSink() *sink.Sink {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sink
}

// Submit enqueues a job for execution. It returns at once while the
// queue has room; when the queue is full it blocks, stalling the
// dispatcher scan until a worker takes a job. After Close it drops the
// job and returns.
func (p *Pool) Submit(j Job) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return
	}
	p.work <- j
}

// Close stops accepting new jobs and waits for the workers to finish
// every job already queued, including the ones in progress (§5 "an
// in-progress transfer is allowed to complete; no forced kill").
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.work)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context) {
	defer p.wg.Done()
	for job := range p.work {
		if err := Execute(ctx, job, p.currentSink(), p.clock); err != nil {
			slog.Error("dispatch: worker job failed", "folder", job.Folder, "error", err)
		}
	}
}
