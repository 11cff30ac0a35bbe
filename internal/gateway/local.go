package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/kiranshivaraju/qruntime/pkg/models"
)

const defaultShots = 1024

// LocalExecutor simulates a backend in-process. It waits for the configured
// latency and then returns a synthetic result derived from the request, so
// the same request always yields the same result.
type LocalExecutor struct {
	latency time.Duration
}

func NewLocalExecutor(latency time.Duration) *LocalExecutor {
	return &LocalExecutor{latency: latency}
}

func (e *LocalExecutor) Name() string { return "local" }

// localParams are the parameter fields the simulator understands. Anything
// else in the payload is ignored.
type localParams struct {
	Shots       int      `json:"shots"`
	Observables []string `json:"observables"`
	Fail        string   `json:"fail"`
}

type samplerResult struct {
	Backend string         `json:"backend"`
	Shots   int            `json:"shots"`
	Counts  map[string]int `json:"counts"`
}

type estimatorResult struct {
	Backend string    `json:"backend"`
	Values  []float64 `json:"values"`
}

func (e *LocalExecutor) Execute(ctx context.Context, req models.ExecutionRequest) (json.RawMessage, error) {
	var p localParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, fmt.Errorf("%w: params are not a JSON object: %v", ErrExecutionRejected, err)
		}
	}

	if e.latency > 0 {
		timer := time.NewTimer(e.latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrExecutorTimeout, ctx.Err())
		}
	}

	if p.Fail != "" {
		return nil, errors.New(p.Fail)
	}

	seed := seedFor(req)
	switch req.Program {
	case "estimator":
		values := make([]float64, len(p.Observables))
		for i := range values {
			// Values in [-1, 1], two decimals.
			values[i] = float64(int((seed>>uint(i%32))%201)-100) / 100
		}
		return json.Marshal(estimatorResult{Backend: req.Backend, Values: values})
	default:
		shots := p.Shots
		if shots <= 0 {
			shots = defaultShots
		}
		zeros := int(seed % uint64(shots+1))
		return json.Marshal(samplerResult{
			Backend: req.Backend,
			Shots:   shots,
			Counts:  map[string]int{"00": zeros, "11": shots - zeros},
		})
	}
}

func seedFor(req models.ExecutionRequest) uint64 {
	h := fnv.New64a()
	h.Write([]byte(req.Program))
	h.Write([]byte(req.Backend))
	h.Write(req.Params)
	return h.Sum64()
}

var _ models.Executor = (*LocalExecutor)(nil)
