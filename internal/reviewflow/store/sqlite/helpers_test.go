package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/BrandonDHaskell/reviewflow/internal/db"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

// openTestDB returns a private in-memory database migrated to the production
// schema. It is closed when the test finishes.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Shared cache keeps the database alive while the pool holds a conn.
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf(
		"file:test_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		name,
	)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("openTestDB: sql.Open: %v", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: ping: %v", err)
	}
	if err := db.Migrate(context.Background(), conn); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: migrate: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// newTestWriter returns a db.Worker closed at test end.
func newTestWriter(t *testing.T, conn *sql.DB) *db.Worker {
	t.Helper()

	w := db.NewWorker(conn)
	t.Cleanup(func() { w.Close() })
	return w
}

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newRecord(id, survey, response string, created time.Time) types.Record {
	return types.Record{
		ID:           id,
		SurveyID:     survey,
		ResponseID:   response,
		Status:       types.StatusPendingA,
		AssignedRole: types.RoleInterviewer,
		Payload:      []byte(`{"q1":"yes"}`),
		Version:      1,
		CreatedAt:    created,
		ModifiedAt:   created,
	}
}
