package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/qruntime/internal/gateway"
	"github.com/kiranshivaraju/qruntime/internal/observability"
	"github.com/kiranshivaraju/qruntime/pkg/models"
	"go.opentelemetry.io/otel/attribute"
)

// SubmitParams holds input for JobManager.Submit. SessionID is optional.
type SubmitParams struct {
	Program   string
	Backend   string
	Params    json.RawMessage
	SessionID string
}

// ListFilter selects jobs for JobManager.List. Zero values match everything;
// Limit 0 means no limit.
type ListFilter struct {
	Backend   string
	SessionID string
	Program   string
	Status    models.JobStatus
	Skip      int
	Limit     int
}

// jobEntry is one record of the job store. Its mutex guards job; done is
// closed exactly once, when the job reaches a terminal status.
type jobEntry struct {
	mu   sync.Mutex
	job  models.Job
	done chan struct{}
}

func (e *jobEntry) snapshot() *models.Job {
	e.mu.Lock()
	defer e.mu.Unlock()
	j := e.job
	return &j
}

// transitionLocked moves the job to next if the state machine allows it.
// The caller must hold e.mu.
func (e *jobEntry) transitionLocked(next models.JobStatus, now time.Time) bool {
	if !e.job.Status.CanTransition(next) {
		return false
	}
	e.job.Status = next
	if next == models.JobStatusRunning {
		e.job.StartedAt = &now
	}
	if next.Terminal() {
		e.job.CompletedAt = &now
		close(e.done)
	}
	return true
}

// JobManager owns every job record and drives job state transitions.
// The store lock guards the index; each record has its own lock so a
// completion never serializes against unrelated jobs.
type JobManager struct {
	mu    sync.RWMutex
	jobs  map[string]*jobEntry
	order []*jobEntry

	sessions *SessionManager
	sched    *Scheduler
	executor models.Executor
	backends models.BackendProvider
	programs map[string]bool
	rec      *recorder
	now      func() time.Time

	execCtx  context.Context
	inflight sync.WaitGroup
	// stopping is set once shutdown begins; queued jobs then stay queued.
	stopping atomic.Bool
}

// Submit validates and records a new queued job, then asks the scheduler
// whether it may start. It never waits for the execution itself.
func (m *JobManager) Submit(ctx context.Context, p SubmitParams) (*models.Job, error) {
	ctx, span := observability.StartSpan(ctx, "jobs.submit",
		attribute.String("program", p.Program),
		attribute.String("backend", p.Backend),
		attribute.String("session.id", p.SessionID),
	)
	defer span.End()

	if !m.backends.Exists(p.Backend) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, p.Backend)
	}
	if len(m.programs) > 0 && !m.programs[p.Program] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProgram, p.Program)
	}
	if p.SessionID != "" {
		sess, err := m.sessions.Get(ctx, p.SessionID)
		if err != nil {
			return nil, err
		}
		if sess.Backend != p.Backend {
			return nil, fmt.Errorf("%w: session %s runs on %s, job targets %s",
				ErrBackendMismatch, sess.ID, sess.Backend, p.Backend)
		}
	}

	e := &jobEntry{
		job: models.Job{
			ID:        "job-" + uuid.NewString(),
			Program:   p.Program,
			Backend:   p.Backend,
			Params:    p.Params,
			SessionID: p.SessionID,
			Status:    models.JobStatusQueued,
			CreatedAt: m.now().UTC(),
		},
		done: make(chan struct{}),
	}

	// Registration and insertion happen under the store lock so the
	// scheduler never sees a session job id without its record.
	m.mu.Lock()
	if p.SessionID != "" {
		if err := m.sessions.RegisterJob(ctx, p.SessionID, e.job.ID); err != nil {
			m.mu.Unlock()
			return nil, err
		}
	}
	m.jobs[e.job.ID] = e
	m.order = append(m.order, e)
	m.mu.Unlock()

	m.rec.event(ctx, models.EventJobSubmitted, p.SessionID, e.job.ID, p.Program)
	m.rec.status(ctx, e.job.ID, models.JobStatusQueued)

	m.sched.admit(ctx, e)
	return e.snapshot(), nil
}

// Status returns the latest known state of the job.
func (m *JobManager) Status(_ context.Context, id string) (*models.Job, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.snapshot(), nil
}

// Result returns the payload of a completed job. A failed job yields a
// *JobFailedError carrying the executor's detail; any other status yields
// ErrNotReady.
func (m *JobManager) Result(_ context.Context, id string) (json.RawMessage, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	j := e.snapshot()
	switch j.Status {
	case models.JobStatusCompleted:
		return j.Result, nil
	case models.JobStatusFailed:
		detail := ""
		if j.FailureDetail != nil {
			detail = *j.FailureDetail
		}
		return nil, &JobFailedError{JobID: id, Detail: detail}
	default:
		return nil, fmt.Errorf("%w: job %s is %s", ErrNotReady, id, j.Status)
	}
}

// Cancel cancels a queued job. For a running job it only records the
// request, since executions cannot be interrupted; the job still reaches
// its natural terminal status. Terminal jobs are left untouched.
func (m *JobManager) Cancel(ctx context.Context, id string) (*models.Job, error) {
	ctx, span := observability.StartSpan(ctx, "jobs.cancel", attribute.String("job.id", id))
	defer span.End()

	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	var cancelled, requested bool
	e.mu.Lock()
	switch e.job.Status {
	case models.JobStatusQueued:
		cancelled = e.transitionLocked(models.JobStatusCancelled, m.now().UTC())
	case models.JobStatusRunning:
		requested = !e.job.CancelRequested
		e.job.CancelRequested = true
	}
	e.mu.Unlock()

	switch {
	case cancelled:
		m.rec.event(ctx, models.EventJobCancelled, e.job.SessionID, id, "")
		m.rec.status(ctx, id, models.JobStatusCancelled)
		if e.job.SessionID != "" {
			m.sched.release(ctx, e.job.SessionID)
		}
	case requested:
		m.rec.event(ctx, models.EventJobCancelAsked, e.job.SessionID, id, "")
	}
	return e.snapshot(), nil
}

// List returns jobs matching filter in creation order.
func (m *JobManager) List(_ context.Context, filter ListFilter) []*models.Job {
	m.mu.RLock()
	entries := append([]*jobEntry(nil), m.order...)
	m.mu.RUnlock()

	out := make([]*models.Job, 0)
	skipped := 0
	for _, e := range entries {
		j := e.snapshot()
		if filter.Backend != "" && j.Backend != filter.Backend {
			continue
		}
		if filter.SessionID != "" && j.SessionID != filter.SessionID {
			continue
		}
		if filter.Program != "" && j.Program != filter.Program {
			continue
		}
		if filter.Status != "" && j.Status != filter.Status {
			continue
		}
		if skipped < filter.Skip {
			skipped++
			continue
		}
		out = append(out, j)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out
}

// Wait blocks until the job reaches a terminal status or ctx ends.
func (m *JobManager) Wait(ctx context.Context, id string) (*models.Job, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	select {
	case <-e.done:
		return e.snapshot(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *JobManager) lookup(id string) (*jobEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return e, nil
}

// start moves a queued job to running and dispatches it. It reports false
// if the job was no longer queued.
func (m *JobManager) start(ctx context.Context, e *jobEntry) bool {
	if m.stopping.Load() {
		return false
	}
	e.mu.Lock()
	ok := e.transitionLocked(models.JobStatusRunning, m.now().UTC())
	e.mu.Unlock()

	if ok {
		m.dispatch(ctx, e)
	}
	return ok
}

// dispatch hands a job that is already running to the executor. No lock is
// held across the hand-off; the outcome arrives through a future.
func (m *JobManager) dispatch(ctx context.Context, e *jobEntry) {
	j := e.snapshot()
	m.rec.event(ctx, models.EventJobStarted, j.SessionID, j.ID, "")
	m.rec.status(ctx, j.ID, models.JobStatusRunning)

	fut := gateway.Submit(m.execCtx, m.executor, models.ExecutionRequest{
		JobID:   j.ID,
		Program: j.Program,
		Backend: j.Backend,
		Params:  j.Params,
	})

	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		<-fut.Done()
		m.complete(context.Background(), e, fut.Outcome())
	}()
}

// complete records the execution outcome and frees the session slot.
func (m *JobManager) complete(ctx context.Context, e *jobEntry, out gateway.Outcome) {
	next := models.JobStatusCompleted
	if out.Err != nil {
		next = models.JobStatusFailed
	}

	e.mu.Lock()
	ok := e.transitionLocked(next, m.now().UTC())
	if ok {
		if out.Err != nil {
			detail := out.Err.Error()
			e.job.FailureDetail = &detail
		} else {
			e.job.Result = out.Result
		}
	}
	id, sessionID := e.job.ID, e.job.SessionID
	e.mu.Unlock()

	if !ok {
		slog.Warn("dropping execution outcome for job not running", "job_id", id)
		return
	}

	detail := ""
	kind := models.EventJobCompleted
	if out.Err != nil {
		kind = models.EventJobFailed
		detail = out.Err.Error()
	}
	m.rec.event(ctx, kind, sessionID, id, detail)
	m.rec.status(ctx, id, next)

	if sessionID != "" {
		m.sched.release(ctx, sessionID)
	}
}

// cancelQueued cancels every listed job that is still queued.
func (m *JobManager) cancelQueued(ctx context.Context, sessionID string, jobIDs []string) error {
	m.mu.RLock()
	entries := make([]*jobEntry, 0, len(jobIDs))
	for _, id := range jobIDs {
		if e, ok := m.jobs[id]; ok {
			entries = append(entries, e)
		}
	}
	m.mu.RUnlock()

	now := m.now().UTC()
	for _, e := range entries {
		e.mu.Lock()
		ok := e.transitionLocked(models.JobStatusCancelled, now)
		id := e.job.ID
		e.mu.Unlock()

		if ok {
			m.rec.event(ctx, models.EventJobCancelled, sessionID, id, "session cancelled")
			m.rec.status(ctx, id, models.JobStatusCancelled)
		}
	}
	return nil
}
