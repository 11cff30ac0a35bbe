package models

import "time"

// SessionMode is the execution discipline applied to jobs inside a session.
type SessionMode string

const (
	// SessionModeDedicated runs the session's jobs one at a time in submission order.
	SessionModeDedicated SessionMode = "dedicated"
	// SessionModeBatch runs the session's jobs without waiting on each other.
	SessionModeBatch SessionMode = "batch"
)

// Valid reports whether m is a known session mode.
func (m SessionMode) Valid() bool {
	return m == SessionModeDedicated || m == SessionModeBatch
}

// Session groups jobs that share a backend and an execution mode for a bounded time.
// Mode, Backend, Instance, MaxTTL and CreatedAt never change after creation.
// JobIDs only grows, in submission order.
type Session struct {
	ID            string      `json:"id"`
	Mode          SessionMode `json:"mode"`
	Backend       string      `json:"backend"`
	Instance      string      `json:"instance,omitempty"`
	MaxTTL        *int        `json:"max_ttl,omitempty"` // seconds; nil means unbounded
	CreatedAt     time.Time   `json:"created_at"`
	AcceptingJobs bool        `json:"accepting_jobs"`
	Active        bool        `json:"active"`
	JobIDs        []string    `json:"jobs"`
}

// Elapsed returns the time since the session was created.
func (s *Session) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}

// Remaining returns the time left before the TTL elapses, clamped at zero.
// The second return value is false when the session has no TTL.
func (s *Session) Remaining(now time.Time) (time.Duration, bool) {
	if s.MaxTTL == nil {
		return 0, false
	}
	left := time.Duration(*s.MaxTTL)*time.Second - s.Elapsed(now)
	if left < 0 {
		left = 0
	}
	return left, true
}

// Expired reports whether more than MaxTTL has passed since creation.
func (s *Session) Expired(now time.Time) bool {
	if s.MaxTTL == nil {
		return false
	}
	return s.Elapsed(now) > time.Duration(*s.MaxTTL)*time.Second
}

// Clone returns a copy that shares no mutable state with s.
func (s *Session) Clone() *Session {
	c := *s
	c.JobIDs = make([]string, len(s.JobIDs))
	copy(c.JobIDs, s.JobIDs)
	if s.MaxTTL != nil {
		ttl := *s.MaxTTL
		c.MaxTTL = &ttl
	}
	return &c
}
