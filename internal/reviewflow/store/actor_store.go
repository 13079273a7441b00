package store

import (
	"context"

	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

// ActorStore is the identity/permission provider's view of role assignments.
// Unknown actors resolve to types.RoleNone without error.
type ActorStore interface {
	RoleOf(ctx context.Context, actorID string) (types.Role, error)
	SetRole(ctx context.Context, actorID string, role types.Role) error
}
