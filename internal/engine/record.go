package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/qruntime/pkg/models"
)

// Journal receives every engine transition. The engine never reads it back.
type Journal interface {
	Append(ctx context.Context, event models.Event) error
}

// StatusMirror publishes the latest job status to an external cache.
type StatusMirror interface {
	SetJobStatus(ctx context.Context, jobID string, status string, ttl time.Duration) error
}

// recorder fans transitions out to the journal and status mirror.
// Failures are logged and never propagated into engine operations.
type recorder struct {
	journal   Journal
	mirror    StatusMirror
	mirrorTTL time.Duration
	now       func() time.Time
}

func (r *recorder) event(ctx context.Context, kind models.EventKind, sessionID, jobID, detail string) {
	slog.Debug("engine transition", "kind", kind, "session_id", sessionID, "job_id", jobID)
	if r.journal == nil {
		return
	}
	ev := models.Event{
		ID:        uuid.NewString(),
		Timestamp: r.now().UTC(),
		Kind:      kind,
		SessionID: sessionID,
		JobID:     jobID,
		Detail:    detail,
	}
	if err := r.journal.Append(context.WithoutCancel(ctx), ev); err != nil {
		slog.Warn("journal append failed", "kind", kind, "job_id", jobID, "session_id", sessionID, "error", err)
	}
}

func (r *recorder) status(ctx context.Context, jobID string, status models.JobStatus) {
	if r.mirror == nil {
		return
	}
	if err := r.mirror.SetJobStatus(context.WithoutCancel(ctx), jobID, string(status), r.mirrorTTL); err != nil {
		slog.Warn("status mirror update failed", "job_id", jobID, "status", status, "error", err)
	}
}
