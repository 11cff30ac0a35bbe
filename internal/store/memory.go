package store

import (
	"context"
	"sync"

	"github.com/kiranshivaraju/qruntime/pkg/models"
)

// MemoryStore is the journal used when no database is configured. Its
// contents are lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	events []models.Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

func (s *MemoryStore) Append(_ context.Context, ev models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *MemoryStore) ListEvents(_ context.Context, f EventFilter) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Event, 0)
	skipped := 0
	for _, ev := range s.events {
		if !f.matches(ev) {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		out = append(out, ev)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
