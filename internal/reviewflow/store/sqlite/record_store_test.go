package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/store"
	sqlitestore "github.com/BrandonDHaskell/reviewflow/internal/reviewflow/store/sqlite"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

// ═══════════════════════════════════════════════════════════════════════════
// Create / Get
// ═══════════════════════════════════════════════════════════════════════════

func TestRecordStore_CreateAndGet_RoundTrip(t *testing.T) {
	conn := openTestDB(t)
	rs := sqlitestore.NewRecordStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	in := newRecord("r-1", "s-1", "resp-1", t0)
	saved, err := rs.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := rs.Get(ctx, "r-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != types.StatusPendingA || got.AssignedRole != types.RoleInterviewer {
		t.Errorf("unexpected state: %s/%s", got.Status, got.AssignedRole)
	}
	if string(got.Payload) != `{"q1":"yes"}` {
		t.Errorf("payload: got %s", got.Payload)
	}
	if got.Sampled != nil {
		t.Errorf("expected undecided sampling, got %v", *got.Sampled)
	}
	if !got.CreatedAt.Equal(t0) || got.Version != 1 {
		t.Errorf("created=%v version=%d", got.CreatedAt, got.Version)
	}
	if saved.ID != got.ID {
		t.Errorf("Create returned id %q, want %q", saved.ID, got.ID)
	}
}

func TestRecordStore_Create_DuplicateSourceKeyReturnsExisting(t *testing.T) {
	conn := openTestDB(t)
	rs := sqlitestore.NewRecordStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	if _, err := rs.Create(ctx, newRecord("r-1", "s-1", "resp-1", t0)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	existing, err := rs.Create(ctx, newRecord("r-2", "s-1", "resp-1", t0.Add(time.Minute)))
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if existing.ID != "r-1" {
		t.Errorf("expected existing record r-1, got %q", existing.ID)
	}

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 row, got %d", n)
	}
}

func TestRecordStore_Get_Missing(t *testing.T) {
	conn := openTestDB(t)
	rs := sqlitestore.NewRecordStore(conn, newTestWriter(t, conn))

	if _, err := rs.Get(context.Background(), "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Commit
// ═══════════════════════════════════════════════════════════════════════════

func approveTransition(cur types.Record, at time.Time) store.Transition {
	sampled := true
	after := cur
	after.Status = types.StatusPendingB
	after.AssignedRole = types.RoleSupervisor
	after.Sampled = &sampled
	after.ModifiedAt = at
	return store.Transition{
		Before: cur,
		After:  after,
		Entry: types.AuditEntry{
			RecordID:   cur.ID,
			ActorID:    "alice",
			ActorRole:  types.RoleInterviewer,
			FromStatus: cur.Status,
			ToStatus:   types.StatusPendingB,
			Action:     types.ActionApprove,
			Timestamp:  at,
		},
	}
}

func TestRecordStore_Commit_WritesRecordAndAuditEntry(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	rs := sqlitestore.NewRecordStore(conn, w)
	audit := sqlitestore.NewAuditTrail(conn, w)
	ctx := context.Background()

	cur, err := rs.Create(ctx, newRecord("r-1", "s-1", "resp-1", t0))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := rs.Commit(ctx, approveTransition(cur, t0.Add(time.Minute)))
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if got.Status != types.StatusPendingB || got.Version != 2 || !got.IsSampled() {
		t.Errorf("unexpected committed record: %+v", got)
	}

	n, err := audit.Count(ctx, "r-1")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 audit entry, got %d", n)
	}
}

func TestRecordStore_Commit_StaleVersionConflicts(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	rs := sqlitestore.NewRecordStore(conn, w)
	audit := sqlitestore.NewAuditTrail(conn, w)
	ctx := context.Background()

	cur, err := rs.Create(ctx, newRecord("r-1", "s-1", "resp-1", t0))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := rs.Commit(ctx, approveTransition(cur, t0.Add(time.Minute))); err != nil {
		t.Fatalf("first Commit: %v", err)
	}

	// Same snapshot again: the row has moved on.
	_, err = rs.Commit(ctx, approveTransition(cur, t0.Add(2*time.Minute)))
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	n, _ := audit.Count(ctx, "r-1")
	if n != 1 {
		t.Errorf("losing commit must not leave an audit entry; got %d", n)
	}
}

func TestRecordStore_Commit_UnknownRecord(t *testing.T) {
	conn := openTestDB(t)
	rs := sqlitestore.NewRecordStore(conn, newTestWriter(t, conn))

	ghost := newRecord("ghost", "s", "r", t0)
	_, err := rs.Commit(context.Background(), approveTransition(ghost, t0))
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordStore_TerminalRowRejectsAssignedRole(t *testing.T) {
	conn := openTestDB(t)
	rs := sqlitestore.NewRecordStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	cur, err := rs.Create(ctx, newRecord("r-1", "s-1", "resp-1", t0))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	tr := approveTransition(cur, t0.Add(time.Minute))
	tr.After.Status = types.StatusFinalized // role left set: schema CHECK must fire
	tr.Entry.ToStatus = types.StatusFinalized
	if _, err := rs.Commit(ctx, tr); err == nil {
		t.Fatal("expected CHECK constraint failure")
	}

	got, _ := rs.Get(ctx, "r-1")
	if got.Status != types.StatusPendingA || got.Version != 1 {
		t.Errorf("failed commit must roll back; got %s v%d", got.Status, got.Version)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Update
// ═══════════════════════════════════════════════════════════════════════════

func TestRecordStore_Update_BumpsVersionAndKeepsIdentity(t *testing.T) {
	conn := openTestDB(t)
	rs := sqlitestore.NewRecordStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	if _, err := rs.Create(ctx, newRecord("r-1", "s-1", "resp-1", t0)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := rs.Update(ctx, "r-1", 1, func(r *types.Record) error {
		r.AssignedActor = "alice"
		r.SurveyID = "tampered"
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Version != 2 || got.AssignedActor != "alice" || got.SurveyID != "s-1" {
		t.Errorf("unexpected update result: %+v", got)
	}

	if _, err := rs.Update(ctx, "r-1", 1, func(*types.Record) error { return nil }); !errors.Is(err, store.ErrConflict) {
		t.Errorf("expected ErrConflict for stale version, got %v", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// List
// ═══════════════════════════════════════════════════════════════════════════

func TestRecordStore_List_FiltersAndPages(t *testing.T) {
	conn := openTestDB(t)
	rs := sqlitestore.NewRecordStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c", "d"} {
		survey := "s-1"
		if i == 3 {
			survey = "s-2"
		}
		if _, err := rs.Create(ctx, newRecord(id, survey, id, t0.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}

	all, err := rs.List(ctx, types.RecordFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 4 || all[0].ID != "a" || all[3].ID != "d" {
		t.Fatalf("expected a..d in creation order, got %d", len(all))
	}

	bySurvey, _ := rs.List(ctx, types.RecordFilter{SurveyID: "s-2"})
	if len(bySurvey) != 1 || bySurvey[0].ID != "d" {
		t.Errorf("survey filter: got %+v", bySurvey)
	}

	window, _ := rs.List(ctx, types.RecordFilter{From: t0.Add(time.Hour), To: t0.Add(3 * time.Hour)})
	if len(window) != 2 || window[0].ID != "b" || window[1].ID != "c" {
		t.Errorf("date window: got %d records", len(window))
	}

	page, _ := rs.List(ctx, types.RecordFilter{Limit: 2, Offset: 1})
	if len(page) != 2 || page[0].ID != "b" {
		t.Errorf("paging: got %d records", len(page))
	}

	none, _ := rs.List(ctx, types.RecordFilter{Status: types.StatusFinalized})
	if none == nil || len(none) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", none)
	}
}
