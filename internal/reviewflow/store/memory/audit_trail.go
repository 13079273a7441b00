package memory

import (
	"context"
	"iter"
	"sort"
	"sync"
	"time"

	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

// AuditTrail is an in-memory append-only log of workflow transitions.
// It is intended for use in tests and dev environments.
type AuditTrail struct {
	mu       sync.Mutex
	seq      int64
	byRecord map[string][]types.AuditEntry
}

func NewAuditTrail() *AuditTrail {
	return &AuditTrail{byRecord: make(map[string][]types.AuditEntry)}
}

func (a *AuditTrail) Append(_ context.Context, e types.AuditEntry) error {
	a.append(e)
	return nil
}

func (a *AuditTrail) append(e types.AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	a.seq++
	e.Seq = a.seq
	a.byRecord[e.RecordID] = append(a.byRecord[e.RecordID], e)
}

func (a *AuditTrail) History(_ context.Context, recordID string) iter.Seq2[types.AuditEntry, error] {
	return func(yield func(types.AuditEntry, error) bool) {
		a.mu.Lock()
		entries := append([]types.AuditEntry(nil), a.byRecord[recordID]...)
		a.mu.Unlock()

		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Timestamp.Before(entries[j].Timestamp)
		})
		for _, e := range entries {
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (a *AuditTrail) Count(_ context.Context, recordID string) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.byRecord[recordID]), nil
}

// Entries returns every entry in insertion order.  Test-only helper.
func (a *AuditTrail) Entries() []types.AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []types.AuditEntry
	for _, es := range a.byRecord {
		out = append(out, es...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}
