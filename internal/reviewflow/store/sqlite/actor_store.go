package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/BrandonDHaskell/reviewflow/internal/db"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

type ActorStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewActorStore(db *sql.DB, writer *dbpkg.Worker) *ActorStore {
	return &ActorStore{db: db, writer: writer}
}

func (s *ActorStore) RoleOf(ctx context.Context, actorID string) (types.Role, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return types.RoleNone, nil
	}

	var role string
	err := s.db.QueryRowContext(ctx,
		`SELECT role FROM actors WHERE actor_id = ?;`, actorID,
	).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return types.RoleNone, nil
	}
	if err != nil {
		return types.RoleNone, fmt.Errorf("RoleOf query: %w", err)
	}
	return types.Role(role), nil
}

// SetRole upserts the actor's role; RoleNone removes the row.
func (s *ActorStore) SetRole(ctx context.Context, actorID string, role types.Role) error {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return nil
	}
	now := time.Now().UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if role == types.RoleNone {
			if _, err := tx.ExecContext(ctx, `DELETE FROM actors WHERE actor_id = ?;`, actorID); err != nil {
				return fmt.Errorf("SetRole delete: %w", err)
			}
			return nil
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO actors(actor_id, role, updated_at_ms) VALUES (?, ?, ?)
ON CONFLICT(actor_id) DO UPDATE SET
  role = excluded.role,
  updated_at_ms = excluded.updated_at_ms;
`, actorID, string(role), now); err != nil {
			return fmt.Errorf("SetRole upsert: %w", err)
		}
		return nil
	})
}
