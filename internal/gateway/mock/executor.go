package mock

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/kiranshivaraju/qruntime/internal/gateway"
	"github.com/kiranshivaraju/qruntime/pkg/models"
)

// MockExecutor satisfies models.Executor for testing.
type MockExecutor struct {
	Name_       string
	ExecuteFunc func(ctx context.Context, req models.ExecutionRequest) (json.RawMessage, error)
}

func (m *MockExecutor) Name() string { return m.Name_ }

func (m *MockExecutor) Execute(ctx context.Context, req models.ExecutionRequest) (json.RawMessage, error) {
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, req)
	}
	return json.RawMessage(`{}`), nil
}

// NewMockExecutor returns a MockExecutor that succeeds immediately with a
// result naming the job.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		Name_: "mock",
		ExecuteFunc: func(_ context.Context, req models.ExecutionRequest) (json.RawMessage, error) {
			return json.Marshal(map[string]string{"job_id": req.JobID, "program": req.Program})
		},
	}
}

// NewFailingExecutor returns a MockExecutor that always fails with detail.
func NewFailingExecutor(detail string) *MockExecutor {
	return &MockExecutor{
		Name_: "mock-failing",
		ExecuteFunc: func(_ context.Context, _ models.ExecutionRequest) (json.RawMessage, error) {
			return nil, errors.New(detail)
		},
	}
}

// NewTimeoutExecutor returns a MockExecutor that blocks until ctx is cancelled.
func NewTimeoutExecutor() *MockExecutor {
	return &MockExecutor{
		Name_: "mock-timeout",
		ExecuteFunc: func(ctx context.Context, _ models.ExecutionRequest) (json.RawMessage, error) {
			<-ctx.Done()
			return nil, gateway.ErrExecutorTimeout
		},
	}
}

// GatedExecutor blocks every execution until the test resolves it with
// Complete or Fail. It records how many executions run at once.
type GatedExecutor struct {
	mu      sync.Mutex
	gates   map[string]chan gateway.Outcome
	started []string
	running int
	peak    int
}

func NewGatedExecutor() *GatedExecutor {
	return &GatedExecutor{gates: make(map[string]chan gateway.Outcome)}
}

func (g *GatedExecutor) Name() string { return "mock-gated" }

func (g *GatedExecutor) Execute(ctx context.Context, req models.ExecutionRequest) (json.RawMessage, error) {
	gate := g.gate(req.JobID)

	g.mu.Lock()
	g.started = append(g.started, req.JobID)
	g.running++
	if g.running > g.peak {
		g.peak = g.running
	}
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.running--
		g.mu.Unlock()
	}()

	select {
	case out := <-gate:
		return out.Result, out.Err
	case <-ctx.Done():
		return nil, gateway.ErrExecutorTimeout
	}
}

// Complete resolves the execution of jobID with result. It may be called
// before the execution has reached the executor.
func (g *GatedExecutor) Complete(jobID string, result json.RawMessage) {
	g.gate(jobID) <- gateway.Outcome{Result: result}
}

// Fail resolves the execution of jobID with a failure carrying detail.
func (g *GatedExecutor) Fail(jobID, detail string) {
	g.gate(jobID) <- gateway.Outcome{Err: errors.New(detail)}
}

// Started returns the job ids that reached the executor, in arrival order.
func (g *GatedExecutor) Started() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.started...)
}

// Peak returns the largest number of executions observed in flight at once.
func (g *GatedExecutor) Peak() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.peak
}

func (g *GatedExecutor) gate(jobID string) chan gateway.Outcome {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[jobID]
	if !ok {
		ch = make(chan gateway.Outcome, 1)
		g.gates[jobID] = ch
	}
	return ch
}

// Backends is a fixed set of backend names satisfying models.BackendProvider.
type Backends map[string]bool

func NewBackends(names ...string) Backends {
	b := make(Backends, len(names))
	for _, n := range names {
		b[n] = true
	}
	return b
}

func (b Backends) Exists(name string) bool { return b[name] }

// Compile-time checks.
var (
	_ models.Executor        = (*MockExecutor)(nil)
	_ models.Executor        = (*GatedExecutor)(nil)
	_ models.BackendProvider = Backends(nil)
)
