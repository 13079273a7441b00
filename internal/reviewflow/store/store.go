package store

import (
	"context"
	"errors"

	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

var (
	ErrNotFound  = errors.New("store: not found")
	ErrConflict  = errors.New("store: version conflict")
	ErrDuplicate = errors.New("store: duplicate source key")
)

// Transition is a validated state change. Commit writes After only if the
// stored version still equals Before.Version, and appends Entry in the same
// unit of work.
type Transition struct {
	Before types.Record
	After  types.Record
	Entry  types.AuditEntry
}

// RecordStore holds survey response records and their current status.
// Records are never deleted through this interface.
type RecordStore interface {
	// Create inserts a new record. ErrDuplicate is returned (together with the
	// existing record) when survey_id+response_id is already present.
	Create(ctx context.Context, rec types.Record) (types.Record, error)
	Get(ctx context.Context, id string) (types.Record, error)
	// Update applies mutate to the stored record if its version equals
	// expectedVersion, bumping the version. ErrConflict otherwise.
	Update(ctx context.Context, id string, expectedVersion int64, mutate func(*types.Record) error) (types.Record, error)
	List(ctx context.Context, f types.RecordFilter) ([]types.Record, error)
	// Commit atomically applies a transition and its audit entry.
	Commit(ctx context.Context, t Transition) (types.Record, error)
}
