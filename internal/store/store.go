// Package store persists the engine's event journal.
package store

import (
	"context"
	"time"

	"github.com/kiranshivaraju/qruntime/pkg/models"
)

// Store is the journal interface. The engine only appends; readers query
// history for a session or a job.
type Store interface {
	Ping(ctx context.Context) error
	Append(ctx context.Context, event models.Event) error
	ListEvents(ctx context.Context, filter EventFilter) ([]models.Event, error)
	Close() error
}

// EventFilter selects journal entries. Zero values match everything.
type EventFilter struct {
	SessionID string
	JobID     string
	Kind      models.EventKind
	Since     time.Time
	Limit     int
	Offset    int
}

func (f EventFilter) matches(ev models.Event) bool {
	if f.SessionID != "" && ev.SessionID != f.SessionID {
		return false
	}
	if f.JobID != "" && ev.JobID != f.JobID {
		return false
	}
	if f.Kind != "" && ev.Kind != f.Kind {
		return false
	}
	if !f.Since.IsZero() && ev.Timestamp.Before(f.Since) {
		return false
	}
	return true
}
