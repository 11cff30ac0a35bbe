package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/qruntime/internal/observability"
	"github.com/kiranshivaraju/qruntime/pkg/models"
	"go.opentelemetry.io/otel/attribute"
)

// CreateSessionParams holds validated input for SessionManager.Create.
type CreateSessionParams struct {
	Mode     models.SessionMode
	Backend  string
	Instance string
	MaxTTL   *int
}

// cancelFunc transitions the queued jobs of a reclaimed session to cancelled.
type cancelFunc func(ctx context.Context, sessionID string, jobIDs []string) error

// SessionManager owns every session record. Registering a job and closing,
// cancelling or expiring a session all take the same write lock, so a job
// is never appended to a session that callers already observed as closed.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	order    []string

	onCancel cancelFunc
	rec      *recorder
	now      func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

func newSessionManager(rec *recorder, now func() time.Time) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*models.Session),
		rec:      rec,
		now:      now,
	}
}

// Create allocates a new session that accepts jobs immediately.
// Backend existence is not checked here; it is checked when jobs are submitted.
func (m *SessionManager) Create(ctx context.Context, p CreateSessionParams) (*models.Session, error) {
	ctx, span := observability.StartSpan(ctx, "sessions.create",
		attribute.String("session.mode", string(p.Mode)),
		attribute.String("backend", p.Backend),
	)
	defer span.End()

	if !p.Mode.Valid() {
		return nil, fmt.Errorf("%w: %q must be one of dedicated, batch", ErrInvalidMode, p.Mode)
	}
	if p.MaxTTL != nil && *p.MaxTTL <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTTL, *p.MaxTTL)
	}

	sess := &models.Session{
		ID:            "session-" + uuid.NewString(),
		Mode:          p.Mode,
		Backend:       p.Backend,
		Instance:      p.Instance,
		CreatedAt:     m.now().UTC(),
		AcceptingJobs: true,
		Active:        true,
		JobIDs:        []string{},
	}
	if p.MaxTTL != nil {
		ttl := *p.MaxTTL
		sess.MaxTTL = &ttl
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.order = append(m.order, sess.ID)
	out := sess.Clone()
	m.mu.Unlock()

	m.rec.event(ctx, models.EventSessionCreated, sess.ID, "", string(sess.Mode))
	return out, nil
}

// Get returns a snapshot of the session.
func (m *SessionManager) Get(_ context.Context, id string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return sess.Clone(), nil
}

// List returns snapshots of all sessions in creation order.
func (m *SessionManager) List(_ context.Context) []*models.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Session, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.sessions[id].Clone())
	}
	return out
}

// Close stops the session from accepting new jobs. Queued and running jobs
// are unaffected. Closing an already closed session changes nothing.
func (m *SessionManager) Close(ctx context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	changed := sess.AcceptingJobs
	sess.AcceptingJobs = false
	out := sess.Clone()
	m.mu.Unlock()

	if changed {
		m.rec.event(ctx, models.EventSessionClosed, id, "", "")
	}
	return out, nil
}

// Cancel deactivates the session and cancels every job still queued in it.
// Running jobs are left to finish because executions cannot be interrupted.
func (m *SessionManager) Cancel(ctx context.Context, id string) (*models.Session, error) {
	ctx, span := observability.StartSpan(ctx, "sessions.cancel", attribute.String("session.id", id))
	defer span.End()

	jobIDs, changed, err := m.deactivate(id)
	if err != nil {
		return nil, err
	}
	if changed {
		if err := m.cascade(ctx, id, jobIDs); err != nil {
			return nil, fmt.Errorf("cancel queued jobs of %s: %w", id, err)
		}
		m.rec.event(ctx, models.EventSessionCancelled, id, "", "")
	}
	return m.Get(ctx, id)
}

// RegisterJob appends jobID to the session's job sequence.
func (m *SessionManager) RegisterJob(_ context.Context, sessionID, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if !sess.Active {
		return fmt.Errorf("session %s: %w", sessionID, ErrSessionExpired)
	}
	if !sess.AcceptingJobs {
		return fmt.Errorf("session %s: %w", sessionID, ErrSessionClosed)
	}
	sess.JobIDs = append(sess.JobIDs, jobID)
	return nil
}

// SweepExpired reclaims every active session whose TTL has elapsed, with the
// same effect as Cancel. It returns the number of sessions reclaimed.
// A failure while reclaiming one session is logged and the sweep continues.
func (m *SessionManager) SweepExpired(ctx context.Context) int {
	now := m.now()

	type reclaimed struct {
		id     string
		jobIDs []string
	}
	var expired []reclaimed

	m.mu.Lock()
	for _, id := range m.order {
		sess := m.sessions[id]
		if !sess.Active || !sess.Expired(now) {
			continue
		}
		sess.Active = false
		sess.AcceptingJobs = false
		expired = append(expired, reclaimed{id: id, jobIDs: append([]string(nil), sess.JobIDs...)})
	}
	m.mu.Unlock()

	for _, r := range expired {
		m.reclaim(ctx, r.id, r.jobIDs)
	}
	return len(expired)
}

func (m *SessionManager) reclaim(ctx context.Context, id string, jobIDs []string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic reclaiming expired session", "session_id", id, "error", r)
		}
	}()

	// Queued jobs are cancelled first so a failing journal cannot strand them.
	if err := m.cascade(ctx, id, jobIDs); err != nil {
		slog.Error("reclaim expired session", "session_id", id, "error", err)
	}
	slog.Info("session expired", "session_id", id, "jobs", len(jobIDs))
	m.rec.event(ctx, models.EventSessionExpired, id, "", "")
}

// StartSweeper runs SweepExpired every interval until StopSweeper is called.
// A job submitted after a TTL elapses but before the next tick is still
// accepted; the interval bounds that window.
func (m *SessionManager) StartSweeper(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.SweepExpired(ctx); n > 0 {
					slog.Info("expiration sweep reclaimed sessions", "count", n)
				}
			}
		}
	}()
}

// StopSweeper stops the sweep goroutine and waits for it to exit.
// It is safe to call even if StartSweeper was never called.
func (m *SessionManager) StopSweeper() {
	if m.cancel != nil {
		m.cancel()
		<-m.done
		m.cancel = nil
	}
}

// deactivate reports whether the session was still active.
func (m *SessionManager) deactivate(id string) ([]string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, false, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	changed := sess.Active
	sess.Active = false
	sess.AcceptingJobs = false
	return append([]string(nil), sess.JobIDs...), changed, nil
}

func (m *SessionManager) cascade(ctx context.Context, id string, jobIDs []string) error {
	if m.onCancel == nil || len(jobIDs) == 0 {
		return nil
	}
	return m.onCancel(ctx, id, jobIDs)
}

// admissionView returns the job sequence and active flag read under one lock.
func (m *SessionManager) admissionView(id string) ([]string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return append([]string(nil), sess.JobIDs...), sess.Active
}

func (m *SessionManager) mode(id string) (models.SessionMode, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	if !ok {
		return "", false
	}
	return sess.Mode, true
}
