package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"time"

	dbpkg "github.com/BrandonDHaskell/reviewflow/internal/db"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

// historyPageSize bounds how many rows History holds before yielding, so a
// consumer never ranges while a cursor pins the single connection.
const historyPageSize = 128

type AuditTrail struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAuditTrail(db *sql.DB, writer *dbpkg.Worker) *AuditTrail {
	return &AuditTrail{db: db, writer: writer}
}

func (a *AuditTrail) Append(ctx context.Context, e types.AuditEntry) error {
	return a.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return insertAuditEntry(ctx, tx, e)
	})
}

func insertAuditEntry(ctx context.Context, tx *sql.Tx, e types.AuditEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO audit_entries(
  record_id, actor_id, actor_role, from_status, to_status, action, notes, at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`,
		e.RecordID, e.ActorID, string(e.ActorRole), string(e.FromStatus), string(e.ToStatus),
		string(e.Action), e.Notes, toMs(e.Timestamp),
	); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (a *AuditTrail) History(ctx context.Context, recordID string) iter.Seq2[types.AuditEntry, error] {
	return func(yield func(types.AuditEntry, error) bool) {
		var (
			afterMs  int64 = -1
			afterSeq int64 = -1
		)
		for {
			page, err := a.page(ctx, recordID, afterMs, afterSeq)
			if err != nil {
				yield(types.AuditEntry{}, err)
				return
			}
			for _, e := range page {
				if !yield(e, nil) {
					return
				}
			}
			if len(page) < historyPageSize {
				return
			}
			last := page[len(page)-1]
			afterMs, afterSeq = toMs(last.Timestamp), last.Seq
		}
	}
}

func (a *AuditTrail) page(ctx context.Context, recordID string, afterMs, afterSeq int64) ([]types.AuditEntry, error) {
	rows, err := a.db.QueryContext(ctx, `
SELECT seq, record_id, actor_id, actor_role, from_status, to_status, action, notes, at_ms
FROM audit_entries
WHERE record_id = ? AND (at_ms > ? OR (at_ms = ? AND seq > ?))
ORDER BY at_ms, seq
LIMIT ?;
`, recordID, afterMs, afterMs, afterSeq, historyPageSize)
	if err != nil {
		return nil, fmt.Errorf("History query: %w", err)
	}
	defer rows.Close()

	var out []types.AuditEntry
	for rows.Next() {
		var (
			e                      types.AuditEntry
			role, from, to, action string
			atMs                   int64
		)
		if err := rows.Scan(&e.Seq, &e.RecordID, &e.ActorID, &role, &from, &to, &action, &e.Notes, &atMs); err != nil {
			return nil, fmt.Errorf("History scan: %w", err)
		}
		e.ActorRole = types.Role(role)
		e.FromStatus = types.Status(from)
		e.ToStatus = types.Status(to)
		e.Action = types.Action(action)
		e.Timestamp = fromMs(atMs)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (a *AuditTrail) Count(ctx context.Context, recordID string) (int, error) {
	var n int
	if err := a.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_entries WHERE record_id = ?;`, recordID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("Count query: %w", err)
	}
	return n, nil
}
