package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/store"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

// Authorization is the single table naming which role may act in each
// non-terminal state.
type Authorization struct {
	required map[types.Status]types.Role
}

func DefaultAuthorization() Authorization {
	return Authorization{required: map[types.Status]types.Role{
		types.StatusPendingA: types.RoleInterviewer,
		types.StatusPendingB: types.RoleSupervisor,
		types.StatusPendingC: types.RoleExaminer,
	}}
}

// NewAuthorization applies per-state overrides to the default table.
// Terminal states cannot be given a role.
func NewAuthorization(overrides map[types.Status]types.Role) (Authorization, error) {
	a := DefaultAuthorization()
	for st, role := range overrides {
		if !st.Valid() || st.IsTerminal() {
			return Authorization{}, fmt.Errorf("%w: cannot assign a role to state %q", ErrInvalidInput, st)
		}
		if !role.Valid() {
			return Authorization{}, fmt.Errorf("%w: unknown role %q for state %s", ErrInvalidInput, role, st)
		}
		a.required[st] = role
	}
	return a, nil
}

// RequiredRole returns the role authorized for s; RoleNone for terminal states.
func (a Authorization) RequiredRole(s types.Status) types.Role {
	return a.required[s]
}

func (a Authorization) CanAct(role types.Role, s types.Status) bool {
	if role == types.RoleNone || s.IsTerminal() {
		return false
	}
	return a.required[s] == role
}

// RoleRegistry resolves actors to roles through the identity provider's
// ActorStore and answers capability checks from the Authorization table.
type RoleRegistry struct {
	store store.ActorStore
	auth  Authorization

	mu     sync.RWMutex
	admins map[string]struct{}
}

func NewRoleRegistry(st store.ActorStore, auth Authorization) *RoleRegistry {
	if auth.required == nil {
		auth = DefaultAuthorization()
	}
	return &RoleRegistry{store: st, auth: auth, admins: make(map[string]struct{})}
}

func (r *RoleRegistry) RoleOf(ctx context.Context, actorID string) (types.Role, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return types.RoleNone, nil
	}
	role, err := r.store.RoleOf(ctx, actorID)
	if err != nil {
		return types.RoleNone, fmt.Errorf("resolve role for %s: %w", actorID, err)
	}
	if !role.Valid() {
		return types.RoleNone, nil
	}
	return role, nil
}

func (r *RoleRegistry) CanAct(role types.Role, s types.Status) bool {
	return r.auth.CanAct(role, s)
}

func (r *RoleRegistry) RequiredRole(s types.Status) types.Role {
	return r.auth.RequiredRole(s)
}

// Assign records an externally granted role. It exists for provisioning
// (config files, dev seeding); the workflow itself never calls it.
func (r *RoleRegistry) Assign(ctx context.Context, actorID string, role types.Role) error {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return fmt.Errorf("%w: actor id is required", ErrInvalidInput)
	}
	if role != types.RoleNone && !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	return r.store.SetRole(ctx, actorID, role)
}

// GrantAdmin lets the named actors change runtime settings and manage the
// operational log. Admin rights are separate from workflow roles.
func (r *RoleRegistry) GrantAdmin(actorIDs ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range actorIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return fmt.Errorf("%w: admin actor id is required", ErrInvalidInput)
		}
		r.admins[id] = struct{}{}
	}
	return nil
}

func (r *RoleRegistry) IsAdmin(actorID string) bool {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.admins[actorID]
	return ok
}
