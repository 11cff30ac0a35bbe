package models

import (
	"encoding/json"
	"time"
)

// JobStatus is a position in the job state machine.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusCancelled JobStatus = "CANCELLED"
)

var validTransitions = map[JobStatus][]JobStatus{
	JobStatusQueued:  {JobStatusRunning, JobStatusCancelled},
	JobStatusRunning: {JobStatusCompleted, JobStatusFailed},
}

// CanTransition reports whether the state machine allows moving from s to next.
func (s JobStatus) CanTransition(next JobStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusQueued, JobStatusRunning, JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Job tracks one request to execute a program against a backend.
// Result is set only when Status is COMPLETED, FailureDetail only when FAILED.
// CancelRequested records a cancel that arrived while the job was already running.
type Job struct {
	ID              string          `json:"id"`
	Program         string          `json:"program"`
	Backend         string          `json:"backend"`
	Params          json.RawMessage `json:"params,omitempty"`
	SessionID       string          `json:"session_id,omitempty"`
	Status          JobStatus       `json:"status"`
	CancelRequested bool            `json:"cancel_requested"`
	Result          json.RawMessage `json:"-"`
	FailureDetail   *string         `json:"failure_detail,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}
