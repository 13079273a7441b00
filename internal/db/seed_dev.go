package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type SeedDevOptions struct {
	// Actors maps actor id to role name; used to pre-populate the actors
	// table so a fresh dev database can be exercised immediately.
	Actors map[string]string
}

// DefaultDevActors is one reviewer per workflow role.
var DefaultDevActors = map[string]string{
	"interviewer-1": "interviewer_a",
	"supervisor-1":  "supervisor_b",
	"examiner-1":    "examiner_c",
}

func SeedDev(ctx context.Context, db *sql.DB, opt SeedDevOptions) error {
	now := time.Now().UTC().UnixMilli()

	actors := opt.Actors
	if len(actors) == 0 {
		actors = DefaultDevActors
	}

	for id, role := range actors {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, `
INSERT INTO actors(actor_id, role, updated_at_ms)
VALUES (?, ?, ?)
ON CONFLICT(actor_id) DO NOTHING;
`, id, role, now); err != nil {
			return fmt.Errorf("seed actor %s: %w", id, err)
		}
	}

	return nil
}
