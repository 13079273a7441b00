package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

type ActorStore struct {
	mu    sync.RWMutex
	roles map[string]types.Role
}

func NewActorStore(roles map[string]types.Role) *ActorStore {
	m := make(map[string]types.Role, len(roles))
	for id, r := range roles {
		id = strings.TrimSpace(id)
		if id != "" && r.Valid() {
			m[id] = r
		}
	}
	return &ActorStore{roles: m}
}

func (s *ActorStore) RoleOf(_ context.Context, actorID string) (types.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roles[actorID], nil
}

// SetRole assigns a role; RoleNone removes the actor.
func (s *ActorStore) SetRole(_ context.Context, actorID string, role types.Role) error {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if role == types.RoleNone {
		delete(s.roles, actorID)
		return nil
	}
	s.roles[actorID] = role
	return nil
}
