package store

import (
	"context"
	"iter"

	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

// AuditTrail is the append-only log of workflow transitions. There is no
// update or delete method.
type AuditTrail interface {
	Append(ctx context.Context, e types.AuditEntry) error
	// History yields a record's entries by timestamp, ties by insertion order.
	// Each range over the returned sequence re-reads the log.
	History(ctx context.Context, recordID string) iter.Seq2[types.AuditEntry, error]
	Count(ctx context.Context, recordID string) (int, error)
}
