package sqlite_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlitestore "github.com/BrandonDHaskell/reviewflow/internal/reviewflow/store/sqlite"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

func seedRecord(t *testing.T, rs *sqlitestore.RecordStore, id string) {
	t.Helper()
	if _, err := rs.Create(context.Background(), newRecord(id, "s", id, t0)); err != nil {
		t.Fatalf("seed record %s: %v", id, err)
	}
}

func entry(recordID string, at time.Time, notes string) types.AuditEntry {
	return types.AuditEntry{
		RecordID:   recordID,
		ActorID:    "bob",
		ActorRole:  types.RoleSupervisor,
		FromStatus: types.StatusPendingB,
		ToStatus:   types.StatusPendingA,
		Action:     types.ActionReject,
		Notes:      notes,
		Timestamp:  at,
	}
}

func collect(t *testing.T, a *sqlitestore.AuditTrail, recordID string) []types.AuditEntry {
	t.Helper()
	var out []types.AuditEntry
	for e, err := range a.History(context.Background(), recordID) {
		if err != nil {
			t.Fatalf("History: %v", err)
		}
		out = append(out, e)
	}
	return out
}

// ═══════════════════════════════════════════════════════════════════════════
// History ordering
// ═══════════════════════════════════════════════════════════════════════════

func TestAuditTrail_History_OrderedByTimeThenInsertion(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedRecord(t, sqlitestore.NewRecordStore(conn, w), "r-1")
	a := sqlitestore.NewAuditTrail(conn, w)
	ctx := context.Background()

	// Inserted out of time order; two share a timestamp.
	for _, e := range []types.AuditEntry{
		entry("r-1", t0.Add(2*time.Minute), "third"),
		entry("r-1", t0, "first"),
		entry("r-1", t0.Add(time.Minute), "second-a"),
		entry("r-1", t0.Add(time.Minute), "second-b"),
	} {
		if err := a.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got := collect(t, a, "r-1")
	want := []string{"first", "second-a", "second-b", "third"}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].Notes != w {
			t.Errorf("entry %d: got %q, want %q", i, got[i].Notes, w)
		}
	}
}

func TestAuditTrail_History_PagesPastPageSize(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedRecord(t, sqlitestore.NewRecordStore(conn, w), "r-1")
	a := sqlitestore.NewAuditTrail(conn, w)
	ctx := context.Background()

	const n = 300
	for i := range n {
		if err := a.Append(ctx, entry("r-1", t0.Add(time.Duration(i%7)*time.Second), fmt.Sprint(i))); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	got := collect(t, a, "r-1")
	if len(got) != n {
		t.Fatalf("expected %d entries, got %d", n, len(got))
	}
	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		if cur.Timestamp.Before(prev.Timestamp) ||
			(cur.Timestamp.Equal(prev.Timestamp) && cur.Seq <= prev.Seq) {
			t.Fatalf("out of order at %d: %v/%d after %v/%d", i, cur.Timestamp, cur.Seq, prev.Timestamp, prev.Seq)
		}
	}
}

func TestAuditTrail_History_RestartableAndEarlyStop(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedRecord(t, sqlitestore.NewRecordStore(conn, w), "r-1")
	a := sqlitestore.NewAuditTrail(conn, w)
	ctx := context.Background()

	for i := range 3 {
		_ = a.Append(ctx, entry("r-1", t0.Add(time.Duration(i)*time.Second), fmt.Sprint(i)))
	}

	seq := a.History(ctx, "r-1")
	for range seq {
		break
	}
	count := 0
	for _, err := range seq {
		if err != nil {
			t.Fatalf("History: %v", err)
		}
		count++
	}
	if count != 3 {
		t.Errorf("second range should re-read all 3 entries, got %d", count)
	}

	if got := collect(t, a, "other"); len(got) != 0 {
		t.Errorf("expected no entries for unknown record, got %d", len(got))
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Append-only enforcement
// ═══════════════════════════════════════════════════════════════════════════

func TestAuditTrail_RowsCannotBeUpdatedOrDeleted(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedRecord(t, sqlitestore.NewRecordStore(conn, w), "r-1")
	a := sqlitestore.NewAuditTrail(conn, w)
	ctx := context.Background()

	if err := a.Append(ctx, entry("r-1", t0, "original")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if _, err := conn.ExecContext(ctx, `UPDATE audit_entries SET notes = 'edited';`); err == nil {
		t.Error("expected UPDATE on audit_entries to be rejected")
	}
	if _, err := conn.ExecContext(ctx, `DELETE FROM audit_entries;`); err == nil {
		t.Error("expected DELETE on audit_entries to be rejected")
	}

	got := collect(t, a, "r-1")
	if len(got) != 1 || got[0].Notes != "original" {
		t.Errorf("audit row changed: %+v", got)
	}
}

func TestAuditTrail_Append_RequiresExistingRecord(t *testing.T) {
	conn := openTestDB(t)
	a := sqlitestore.NewAuditTrail(conn, newTestWriter(t, conn))

	if err := a.Append(context.Background(), entry("ghost", t0, "")); err == nil {
		t.Fatal("expected foreign key violation for unknown record")
	}
}
