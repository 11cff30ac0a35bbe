package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/kiranshivaraju/qruntime/pkg/models"
)

const (
	defaultRetentionDays = 30
	defaultListCapacity  = 64
	maxListCapacity      = 1000
)

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var eventColumns = []string{"id", "occurred_at", "kind", "session_id", "job_id", "detail"}

// PostgresStore implements Store on a PostgreSQL table.
type PostgresStore struct {
	db            *sql.DB
	retentionDays int
	now           func() time.Time
	cancel        context.CancelFunc
	done          chan struct{}
}

// NewPostgresStore creates a journal over db. A retentionDays of zero uses
// the default of 30 days.
func NewPostgresStore(db *sql.DB, retentionDays int) *PostgresStore {
	if retentionDays <= 0 {
		retentionDays = defaultRetentionDays
	}
	return &PostgresStore{db: db, retentionDays: retentionDays, now: time.Now}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Append(ctx context.Context, ev models.Event) error {
	query, args, err := psq.Insert("engine_events").
		Columns(eventColumns...).
		Values(ev.ID, ev.Timestamp, string(ev.Kind), ev.SessionID, ev.JobID, ev.Detail).
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

func applyEventFilter(qb sq.SelectBuilder, f EventFilter) sq.SelectBuilder {
	if f.SessionID != "" {
		qb = qb.Where(sq.Eq{"session_id": f.SessionID})
	}
	if f.JobID != "" {
		qb = qb.Where(sq.Eq{"job_id": f.JobID})
	}
	if f.Kind != "" {
		qb = qb.Where(sq.Eq{"kind": string(f.Kind)})
	}
	if !f.Since.IsZero() {
		qb = qb.Where(sq.GtOrEq{"occurred_at": f.Since})
	}
	return qb
}

// ListEvents returns matching events in the order they were appended.
func (s *PostgresStore) ListEvents(ctx context.Context, f EventFilter) ([]models.Event, error) {
	qb := applyEventFilter(psq.Select(eventColumns...).From("engine_events"), f).OrderBy("seq ASC")
	if f.Limit > 0 {
		qb = qb.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		qb = qb.Offset(uint64(f.Offset))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building event query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	allocCap := defaultListCapacity
	if f.Limit > 0 && f.Limit <= maxListCapacity {
		allocCap = f.Limit
	}
	events := make([]models.Event, 0, allocCap)

	for rows.Next() {
		var ev models.Event
		var kind string
		if err := rows.Scan(&ev.ID, &ev.Timestamp, &kind, &ev.SessionID, &ev.JobID, &ev.Detail); err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		ev.Kind = models.EventKind(kind)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating event rows: %w", err)
	}

	return events, nil
}

// Cleanup removes events older than the retention period.
func (s *PostgresStore) Cleanup(ctx context.Context) (int64, error) {
	cutoff := s.now().AddDate(0, 0, -s.retentionDays)

	query, args, err := psq.Delete("engine_events").Where(sq.Lt{"occurred_at": cutoff}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("building cleanup: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("cleaning up events: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// StartCleanupRoutine periodically deletes expired events until Close.
func (s *PostgresStore) StartCleanupRoutine(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.Cleanup(ctx)
				if err != nil {
					slog.Warn("journal cleanup failed", "error", err)
					continue
				}
				if n > 0 {
					slog.Info("journal cleanup removed events", "count", n)
				}
			}
		}
	}()
}

// Close stops the cleanup routine and waits for it to exit. It does not
// close the underlying *sql.DB, which the caller owns.
// It is safe to call Close even if StartCleanupRoutine was never called.
func (s *PostgresStore) Close() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
		s.cancel = nil
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
