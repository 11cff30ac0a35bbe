package models

import "time"

// EventKind names a recorded engine transition.
type EventKind string

const (
	EventSessionCreated   EventKind = "session.created"
	EventSessionClosed    EventKind = "session.closed"
	EventSessionCancelled EventKind = "session.cancelled"
	EventSessionExpired   EventKind = "session.expired"
	EventJobSubmitted     EventKind = "job.submitted"
	EventJobStarted       EventKind = "job.started"
	EventJobCompleted     EventKind = "job.completed"
	EventJobFailed        EventKind = "job.failed"
	EventJobCancelled     EventKind = "job.cancelled"
	EventJobCancelAsked   EventKind = "job.cancel_requested"
)

// Event is an append-only journal entry describing one transition.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      EventKind `json:"kind"`
	SessionID string    `json:"session_id,omitempty"`
	JobID     string    `json:"job_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}
