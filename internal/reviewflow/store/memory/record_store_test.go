package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/store"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/store/memory"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

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

func TestRecordStore_Create_DuplicateSourceKey(t *testing.T) {
	rs := memory.NewRecordStore(memory.NewAuditTrail())
	ctx := context.Background()

	if _, err := rs.Create(ctx, newRecord("r-1", "s", "a", t0)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := rs.Create(ctx, newRecord("r-2", "s", "a", t0))
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if got.ID != "r-1" {
		t.Errorf("expected existing r-1, got %q", got.ID)
	}
	if n := len(rs.Records()); n != 1 {
		t.Errorf("expected 1 record, got %d", n)
	}
}

func TestRecordStore_RequiresAuditTrail(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic for a nil AuditTrail")
		}
	}()
	memory.NewRecordStore(nil)
}

func TestRecordStore_ReturnsCopies(t *testing.T) {
	rs := memory.NewRecordStore(memory.NewAuditTrail())
	ctx := context.Background()
	_, _ = rs.Create(ctx, newRecord("r-1", "s", "a", t0))

	got, _ := rs.Get(ctx, "r-1")
	got.Payload[2] = 'X'
	got.Status = types.StatusFinalized

	again, _ := rs.Get(ctx, "r-1")
	if again.Status != types.StatusPendingA || string(again.Payload) != `{"q1":"yes"}` {
		t.Errorf("caller mutation leaked into store: %+v", again)
	}
}

func TestRecordStore_Commit_AppendsAuditAndBumpsVersion(t *testing.T) {
	audit := memory.NewAuditTrail()
	rs := memory.NewRecordStore(audit)
	ctx := context.Background()

	cur, _ := rs.Create(ctx, newRecord("r-1", "s", "a", t0))
	after := cur
	after.Status = types.StatusFinalized
	after.AssignedRole = types.RoleNone
	tr := store.Transition{
		Before: cur,
		After:  after,
		Entry: types.AuditEntry{
			RecordID: "r-1", ActorID: "alice", ActorRole: types.RoleInterviewer,
			FromStatus: types.StatusPendingA, ToStatus: types.StatusFinalized,
			Action: types.ActionApprove, Timestamp: t0.Add(time.Minute),
		},
	}

	got, err := rs.Commit(ctx, tr)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if got.Version != 2 || got.Status != types.StatusFinalized {
		t.Errorf("unexpected record after commit: %+v", got)
	}

	if _, err := rs.Commit(ctx, tr); !errors.Is(err, store.ErrConflict) {
		t.Errorf("expected ErrConflict replaying a stale transition, got %v", err)
	}

	entries := audit.Entries()
	if len(entries) != 1 || entries[0].Seq != 1 {
		t.Errorf("expected exactly one audit entry with seq 1, got %+v", entries)
	}
}

func TestRecordStore_Commit_UnknownRecord(t *testing.T) {
	rs := memory.NewRecordStore(memory.NewAuditTrail())
	_, err := rs.Commit(context.Background(), store.Transition{Before: types.Record{ID: "ghost"}})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordStore_Update_CAS(t *testing.T) {
	rs := memory.NewRecordStore(memory.NewAuditTrail())
	ctx := context.Background()
	_, _ = rs.Create(ctx, newRecord("r-1", "s", "a", t0))

	got, err := rs.Update(ctx, "r-1", 1, func(r *types.Record) error {
		r.AssignedActor = "alice"
		r.ID = "hijack"
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.ID != "r-1" || got.AssignedActor != "alice" || got.Version != 2 {
		t.Errorf("unexpected update: %+v", got)
	}

	if _, err := rs.Update(ctx, "r-1", 1, func(*types.Record) error { return nil }); !errors.Is(err, store.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	boom := errors.New("boom")
	if _, err := rs.Update(ctx, "r-1", 2, func(*types.Record) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("expected mutate error, got %v", err)
	}
	if cur, _ := rs.Get(ctx, "r-1"); cur.Version != 2 {
		t.Errorf("failed mutate must not write; version %d", cur.Version)
	}
}

func TestRecordStore_List_OrderFilterPage(t *testing.T) {
	rs := memory.NewRecordStore(memory.NewAuditTrail())
	ctx := context.Background()
	// Same creation time for b and c: ID breaks the tie.
	_, _ = rs.Create(ctx, newRecord("c", "s", "c", t0.Add(time.Hour)))
	_, _ = rs.Create(ctx, newRecord("b", "s", "b", t0.Add(time.Hour)))
	_, _ = rs.Create(ctx, newRecord("a", "s", "a", t0))

	all, _ := rs.List(ctx, types.RecordFilter{})
	if len(all) != 3 || all[0].ID != "a" || all[1].ID != "b" || all[2].ID != "c" {
		t.Fatalf("unexpected order: %v", all)
	}

	page, _ := rs.List(ctx, types.RecordFilter{Offset: 1, Limit: 1})
	if len(page) != 1 || page[0].ID != "b" {
		t.Errorf("paging: %v", page)
	}

	past, _ := rs.List(ctx, types.RecordFilter{Offset: 10})
	if past == nil || len(past) != 0 {
		t.Errorf("offset past end: %v", past)
	}

	byRole, _ := rs.List(ctx, types.RecordFilter{Role: types.RoleSupervisor})
	if len(byRole) != 0 {
		t.Errorf("role filter: %v", byRole)
	}
}
