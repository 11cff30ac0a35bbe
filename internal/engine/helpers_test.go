package engine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kiranshivaraju/qruntime/internal/engine"
	"github.com/kiranshivaraju/qruntime/internal/gateway/mock"
	"github.com/kiranshivaraju/qruntime/pkg/models"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingJournal struct {
	mu      sync.Mutex
	events  []models.Event
	panicOn models.EventKind
}

func (j *recordingJournal) Append(_ context.Context, ev models.Event) error {
	if j.panicOn != "" && ev.Kind == j.panicOn {
		panic("journal exploded")
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, ev)
	return nil
}

func (j *recordingJournal) kindsFor(jobID string) []models.EventKind {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []models.EventKind
	for _, ev := range j.events {
		if ev.JobID == jobID {
			out = append(out, ev.Kind)
		}
	}
	return out
}

func (j *recordingJournal) count(kind models.EventKind, sessionID string) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	n := 0
	for _, ev := range j.events {
		if ev.Kind == kind && ev.SessionID == sessionID {
			n++
		}
	}
	return n
}

type recordingMirror struct {
	mu       sync.Mutex
	statuses map[string]string
}

func (m *recordingMirror) SetJobStatus(_ context.Context, jobID, status string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statuses == nil {
		m.statuses = make(map[string]string)
	}
	m.statuses[jobID] = status
	return nil
}

func (m *recordingMirror) get(jobID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statuses[jobID]
}

// newEngine builds an engine over backends B1 and B2 and stops it when the
// test ends. Fields left zero in opts get test defaults.
func newEngine(t *testing.T, opts engine.Options) *engine.Engine {
	t.Helper()
	if opts.Executor == nil {
		opts.Executor = mock.NewMockExecutor()
	}
	if opts.Backends == nil {
		opts.Backends = mock.NewBackends("B1", "B2")
	}
	e := engine.New(opts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		require.NoError(t, e.Stop(ctx))
	})
	return e
}

func createSession(t *testing.T, e *engine.Engine, mode models.SessionMode, backend string) *models.Session {
	t.Helper()
	s, err := e.Sessions.Create(context.Background(), engine.CreateSessionParams{
		Mode:     mode,
		Backend:  backend,
		Instance: "hub/group/project",
	})
	require.NoError(t, err)
	return s
}

func submit(t *testing.T, e *engine.Engine, backend, sessionID string) *models.Job {
	t.Helper()
	j, err := e.Jobs.Submit(context.Background(), engine.SubmitParams{
		Program:   "sampler",
		Backend:   backend,
		Params:    []byte(`{"shots":10}`),
		SessionID: sessionID,
	})
	require.NoError(t, err)
	return j
}

func status(t *testing.T, e *engine.Engine, jobID string) models.JobStatus {
	t.Helper()
	j, err := e.Jobs.Status(context.Background(), jobID)
	require.NoError(t, err)
	return j.Status
}

func requireEventually(t *testing.T, e *engine.Engine, jobID string, want models.JobStatus) {
	t.Helper()
	require.Eventually(t, func() bool {
		j, err := e.Jobs.Status(context.Background(), jobID)
		return err == nil && j.Status == want
	}, waitFor, tick, "job %s never reached %s", jobID, want)
}

func wait(t *testing.T, e *engine.Engine, jobID string) *models.Job {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	j, err := e.Jobs.Wait(ctx, jobID)
	require.NoError(t, err)
	return j
}
