package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

// LogStore keeps operational log entries in insertion order.
type LogStore struct {
	mu      sync.Mutex
	nextID  int64
	entries []types.LogEntry
}

func NewLogStore() *LogStore {
	return &LogStore{}
}

func (s *LogStore) Insert(_ context.Context, e types.LogEntry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	s.nextID++
	e.ID = s.nextID
	e.Context = maps.Clone(e.Context)
	s.entries = append(s.entries, e)
	return e.ID, nil
}

// Query returns the requested page newest first, plus the total match count.
func (s *LogStore) Query(_ context.Context, q types.LogQuery) ([]types.LogEntry, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []types.LogEntry
	for i := len(s.entries) - 1; i >= 0; i-- {
		if q.Matches(s.entries[i]) {
			matched = append(matched, s.entries[i])
		}
	}
	total := len(matched)

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return []types.LogEntry{}, total, nil
		}
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	out := make([]types.LogEntry, len(matched))
	for i, e := range matched {
		e.Context = maps.Clone(e.Context)
		out[i] = e
	}
	return out, total, nil
}

func (s *LogStore) Clear(_ context.Context, c types.LogClear) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(c.Matches), nil
}

func (s *LogStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(func(e types.LogEntry) bool { return e.Timestamp.Before(cutoff) }), nil
}

func (s *LogStore) removeLocked(match func(types.LogEntry) bool) int64 {
	kept := s.entries[:0]
	var removed int64
	for _, e := range s.entries {
		if match(e) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return removed
}
