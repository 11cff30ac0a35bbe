package engine

import (
	"context"

	"github.com/kiranshivaraju/qruntime/pkg/models"
)

// Scheduler decides when a queued job may start. Jobs outside a session
// and jobs in batch sessions start as soon as they are admitted. Jobs in a
// dedicated session start one at a time, in submission order.
type Scheduler struct {
	jobs     *JobManager
	sessions *SessionManager
}

// admit is called once for every newly queued job.
func (s *Scheduler) admit(ctx context.Context, e *jobEntry) {
	sessionID := e.job.SessionID
	if sessionID == "" {
		s.jobs.start(ctx, e)
		return
	}

	mode, ok := s.sessions.mode(sessionID)
	if !ok {
		return
	}
	if mode == models.SessionModeBatch {
		s.jobs.start(ctx, e)
		return
	}
	s.release(ctx, sessionID)
}

// release is called whenever a session job leaves the queued or running
// status. For dedicated sessions it starts the next queued job, if any.
func (s *Scheduler) release(ctx context.Context, sessionID string) {
	mode, ok := s.sessions.mode(sessionID)
	if !ok || mode != models.SessionModeDedicated {
		return
	}
	if e := s.nextDedicated(sessionID); e != nil {
		s.jobs.dispatch(ctx, e)
	}
}

// nextDedicated moves the earliest queued job of a dedicated session to
// running and returns it. It returns nil if the engine is stopping, if the
// session is inactive, if a job of the session is already running, or if
// nothing is queued.
//
// The job store write lock serializes every dedicated admission, and only
// this path starts dedicated jobs, so two callers can never both observe
// an idle session.
func (s *Scheduler) nextDedicated(sessionID string) *jobEntry {
	s.jobs.mu.Lock()
	defer s.jobs.mu.Unlock()

	if s.jobs.stopping.Load() {
		return nil
	}

	ids, active := s.sessions.admissionView(sessionID)
	if !active {
		return nil
	}

	entries := make([]*jobEntry, 0, len(ids))
	for _, id := range ids {
		e, ok := s.jobs.jobs[id]
		if !ok {
			continue
		}
		e.mu.Lock()
		running := e.job.Status == models.JobStatusRunning
		e.mu.Unlock()
		if running {
			return nil
		}
		entries = append(entries, e)
	}

	now := s.jobs.now().UTC()
	for _, e := range entries {
		e.mu.Lock()
		started := e.job.Status == models.JobStatusQueued && e.transitionLocked(models.JobStatusRunning, now)
		e.mu.Unlock()
		if started {
			return e
		}
	}
	return nil
}
