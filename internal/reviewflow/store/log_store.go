package store

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

// LogStore persists operational log entries.
type LogStore interface {
	Insert(ctx context.Context, e types.LogEntry) (int64, error)
	Query(ctx context.Context, q types.LogQuery) ([]types.LogEntry, int, error)
	Clear(ctx context.Context, c types.LogClear) (int64, error)
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
