package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/store"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

// RecordStore keeps records in a map. Commit appends to the paired
// AuditTrail inside the same critical section, so a transition and its entry
// become visible together.
type RecordStore struct {
	mu    sync.RWMutex
	data  map[string]types.Record
	keys  map[string]string // survey_id + "\x00" + response_id -> id
	audit *AuditTrail
}

// NewRecordStore pairs the store with the trail its commits append to. The
// same trail must back the engine's history reads.
func NewRecordStore(audit *AuditTrail) *RecordStore {
	if audit == nil {
		panic("memory: NewRecordStore needs an AuditTrail")
	}
	return &RecordStore{
		data:  make(map[string]types.Record),
		keys:  make(map[string]string),
		audit: audit,
	}
}

func sourceKey(surveyID, responseID string) string {
	return surveyID + "\x00" + responseID
}

func (s *RecordStore) Create(_ context.Context, rec types.Record) (types.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := sourceKey(rec.SurveyID, rec.ResponseID)
	if id, ok := s.keys[k]; ok {
		return clone(s.data[id]), store.ErrDuplicate
	}
	if _, ok := s.data[rec.ID]; ok {
		return types.Record{}, store.ErrDuplicate
	}

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.ModifiedAt.IsZero() {
		rec.ModifiedAt = rec.CreatedAt
	}
	if rec.Version == 0 {
		rec.Version = 1
	}
	rec = clone(rec)
	s.data[rec.ID] = rec
	s.keys[k] = rec.ID
	return clone(rec), nil
}

func (s *RecordStore) Get(_ context.Context, id string) (types.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data[id]
	if !ok {
		return types.Record{}, store.ErrNotFound
	}
	return clone(rec), nil
}

func (s *RecordStore) Update(_ context.Context, id string, expectedVersion int64, mutate func(*types.Record) error) (types.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.data[id]
	if !ok {
		return types.Record{}, store.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return types.Record{}, store.ErrConflict
	}

	next := clone(cur)
	if err := mutate(&next); err != nil {
		return types.Record{}, err
	}
	// Identity and version are owned by the store.
	next.ID, next.SurveyID, next.ResponseID, next.CreatedAt = cur.ID, cur.SurveyID, cur.ResponseID, cur.CreatedAt
	next.Version = cur.Version + 1
	if next.ModifiedAt.IsZero() || next.ModifiedAt.Before(cur.ModifiedAt) {
		next.ModifiedAt = time.Now().UTC()
	}
	s.data[id] = next
	return clone(next), nil
}

func (s *RecordStore) List(_ context.Context, f types.RecordFilter) ([]types.Record, error) {
	s.mu.RLock()
	out := make([]types.Record, 0, len(s.data))
	for _, rec := range s.data {
		if f.Matches(rec) {
			out = append(out, clone(rec))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []types.Record{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *RecordStore) Commit(_ context.Context, t store.Transition) (types.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.data[t.Before.ID]
	if !ok {
		return types.Record{}, store.ErrNotFound
	}
	if cur.Version != t.Before.Version || cur.Status != t.Before.Status {
		return types.Record{}, store.ErrConflict
	}

	next := clone(t.After)
	next.ID, next.SurveyID, next.ResponseID, next.CreatedAt = cur.ID, cur.SurveyID, cur.ResponseID, cur.CreatedAt
	next.Version = cur.Version + 1

	s.audit.append(t.Entry)
	s.data[cur.ID] = next
	return clone(next), nil
}

// Records returns a copy of all stored records.  Test-only helper.
func (s *RecordStore) Records() []types.Record {
	out, _ := s.List(context.Background(), types.RecordFilter{})
	return out
}
