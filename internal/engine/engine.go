// Package engine runs jobs against quantum backends, grouping them into
// sessions that either serialize their jobs (dedicated) or run them freely
// (batch), and reclaiming sessions whose TTL has elapsed.
package engine

import (
	"context"
	"time"

	"github.com/kiranshivaraju/qruntime/pkg/models"
)

// DefaultSweepInterval is used when Options.SweepInterval is zero.
const DefaultSweepInterval = 10 * time.Second

// Options configures an Engine. Executor and Backends are required.
type Options struct {
	Executor models.Executor
	Backends models.BackendProvider
	// Programs restricts the accepted program names. Empty accepts any name.
	Programs      []string
	SweepInterval time.Duration

	Journal      Journal
	StatusMirror StatusMirror
	StatusTTL    time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Engine bundles the session manager, job manager and scheduler that
// together own all in-memory runtime state.
type Engine struct {
	Sessions  *SessionManager
	Jobs      *JobManager
	Scheduler *Scheduler

	sweepInterval time.Duration
	stopExec      context.CancelFunc
}

// New wires the three components. No goroutine starts until Start.
func New(opts Options) *Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	interval := opts.SweepInterval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	statusTTL := opts.StatusTTL
	if statusTTL <= 0 {
		statusTTL = 24 * time.Hour
	}

	rec := &recorder{
		journal:   opts.Journal,
		mirror:    opts.StatusMirror,
		mirrorTTL: statusTTL,
		now:       now,
	}

	programs := make(map[string]bool, len(opts.Programs))
	for _, p := range opts.Programs {
		programs[p] = true
	}

	execCtx, stopExec := context.WithCancel(context.Background())

	sessions := newSessionManager(rec, now)
	jobs := &JobManager{
		jobs:     make(map[string]*jobEntry),
		sessions: sessions,
		executor: opts.Executor,
		backends: opts.Backends,
		programs: programs,
		rec:      rec,
		now:      now,
		execCtx:  execCtx,
	}
	sched := &Scheduler{jobs: jobs, sessions: sessions}
	jobs.sched = sched
	sessions.onCancel = jobs.cancelQueued

	return &Engine{
		Sessions:      sessions,
		Jobs:          jobs,
		Scheduler:     sched,
		sweepInterval: interval,
		stopExec:      stopExec,
	}
}

// Start launches the expiration sweep.
func (e *Engine) Start() {
	e.Sessions.StartSweeper(e.sweepInterval)
}

// Stop halts the sweep, cancels the context handed to in-flight executions
// and waits for their outcomes to be recorded or for ctx to end. Jobs still
// queued when Stop is called are not started.
func (e *Engine) Stop(ctx context.Context) error {
	e.Sessions.StopSweeper()
	e.Jobs.stopping.Store(true)
	e.stopExec()

	done := make(chan struct{})
	go func() {
		e.Jobs.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
