package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/kiranshivaraju/qruntime/pkg/models"
)

// Outcome is the terminal result of one execution. Exactly one of Result
// and Err is meaningful.
type Outcome struct {
	Result json.RawMessage
	Err    error
}

// Future resolves once when its execution finishes.
type Future struct {
	done    chan struct{}
	outcome Outcome
}

// Submit hands req to exec on a new goroutine and returns immediately.
// A panicking executor resolves the future with a failure instead of
// crashing the process.
func Submit(ctx context.Context, exec models.Executor, req models.ExecutionRequest) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic in executor", "error", r, "job_id", req.JobID, "executor", exec.Name())
				f.outcome = Outcome{Err: fmt.Errorf("panic: %v", r)}
			}
		}()

		res, err := exec.Execute(ctx, req)
		f.outcome = Outcome{Result: res, Err: err}
	}()
	return f
}

// Done is closed when the outcome is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Outcome returns the resolved outcome. It must only be called after Done is closed.
func (f *Future) Outcome() Outcome {
	return f.outcome
}

// Wait blocks until the future resolves or ctx ends.
func (f *Future) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-f.done:
		return f.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}
