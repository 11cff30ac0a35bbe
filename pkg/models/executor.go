// Package models contains shared data models used across the qruntime codebase.
package models

import (
	"context"
	"encoding/json"
)

// Executor is the computation layer that actually runs programs.
// Engine code depends on this interface, never on a concrete executor.
type Executor interface {
	// Execute runs the program to completion and returns its result payload.
	// A returned error is a failure whose message is reported verbatim.
	Execute(ctx context.Context, req ExecutionRequest) (json.RawMessage, error)
	// Name returns the executor identifier (e.g., "local", "http").
	Name() string
}

// ExecutionRequest is the input to an Executor. Params is opaque to the engine.
type ExecutionRequest struct {
	JobID   string          `json:"job_id"`
	Program string          `json:"program"`
	Backend string          `json:"backend"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// BackendProvider answers whether a compute backend exists.
type BackendProvider interface {
	Exists(name string) bool
}
