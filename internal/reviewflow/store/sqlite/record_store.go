package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/BrandonDHaskell/reviewflow/internal/db"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/store"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

// RecordStore persists records in the records table. Commit writes the
// record and its audit_entries row in one Worker transaction.
type RecordStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewRecordStore(db *sql.DB, writer *dbpkg.Worker) *RecordStore {
	return &RecordStore{db: db, writer: writer}
}

func (s *RecordStore) Create(ctx context.Context, rec types.Record) (types.Record, error) {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.ModifiedAt.IsZero() {
		rec.ModifiedAt = rec.CreatedAt
	}
	if rec.Version == 0 {
		rec.Version = 1
	}

	var out types.Record
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		existing, err := scanRecord(tx.QueryRowContext(ctx,
			`SELECT `+recordColumns+` FROM records WHERE survey_id = ? AND response_id = ?;`,
			rec.SurveyID, rec.ResponseID,
		))
		if err == nil {
			out = existing
			return store.ErrDuplicate
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("Create lookup source key: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO records(
  id, survey_id, response_id, status, assigned_role, assigned_actor,
  payload, sampled, version, created_at_ms, modified_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
			rec.ID, rec.SurveyID, rec.ResponseID, string(rec.Status), string(rec.AssignedRole), rec.AssignedActor,
			nullablePayload(rec.Payload), nullableSampled(rec.Sampled), rec.Version,
			toMs(rec.CreatedAt), toMs(rec.ModifiedAt),
		); err != nil {
			return fmt.Errorf("Create insert: %w", err)
		}

		out, err = getTx(ctx, tx, rec.ID)
		return err
	})
	if errors.Is(err, store.ErrDuplicate) {
		return out, store.ErrDuplicate
	}
	if err != nil {
		return types.Record{}, err
	}
	return out, nil
}

func (s *RecordStore) Get(ctx context.Context, id string) (types.Record, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = ?;`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Record{}, store.ErrNotFound
	}
	if err != nil {
		return types.Record{}, fmt.Errorf("Get query: %w", err)
	}
	return rec, nil
}

func getTx(ctx context.Context, tx *sql.Tx, id string) (types.Record, error) {
	rec, err := scanRecord(tx.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = ?;`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Record{}, store.ErrNotFound
	}
	if err != nil {
		return types.Record{}, fmt.Errorf("get record %s: %w", id, err)
	}
	return rec, nil
}

func (s *RecordStore) Update(ctx context.Context, id string, expectedVersion int64, mutate func(*types.Record) error) (types.Record, error) {
	var out types.Record
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		cur, err := getTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if cur.Version != expectedVersion {
			return store.ErrConflict
		}

		next := cur
		if err := mutate(&next); err != nil {
			return err
		}
		if next.ModifiedAt.IsZero() || next.ModifiedAt.Before(cur.ModifiedAt) {
			next.ModifiedAt = time.Now().UTC()
		}

		if err := writeRecord(ctx, tx, cur, next); err != nil {
			return err
		}
		next.ID, next.SurveyID, next.ResponseID, next.CreatedAt = cur.ID, cur.SurveyID, cur.ResponseID, cur.CreatedAt
		next.Version = cur.Version + 1
		next.ModifiedAt = fromMs(toMs(next.ModifiedAt))
		out = next
		return nil
	})
	if err != nil {
		return types.Record{}, err
	}
	return out, nil
}

// writeRecord is the conditional update shared by Update and Commit: it only
// succeeds if the row still carries cur's version and status.
func writeRecord(ctx context.Context, tx *sql.Tx, cur, next types.Record) error {
	res, err := tx.ExecContext(ctx, `
UPDATE records
SET status         = ?,
    assigned_role  = ?,
    assigned_actor = ?,
    payload        = ?,
    sampled        = ?,
    version        = version + 1,
    modified_at_ms = ?
WHERE id = ? AND version = ? AND status = ?;
`,
		string(next.Status), string(next.AssignedRole), next.AssignedActor,
		nullablePayload(next.Payload), nullableSampled(next.Sampled), toMs(next.ModifiedAt),
		cur.ID, cur.Version, string(cur.Status),
	)
	if err != nil {
		return fmt.Errorf("update record %s: %w", cur.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update record %s rows: %w", cur.ID, err)
	}
	if n == 0 {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM records WHERE id = ?;`, cur.ID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("update record %s exists: %w", cur.ID, err)
		}
		return store.ErrConflict
	}
	return nil
}

func (s *RecordStore) List(ctx context.Context, f types.RecordFilter) ([]types.Record, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Role != types.RoleNone {
		where = append(where, "assigned_role = ?")
		args = append(args, string(f.Role))
	}
	if f.SurveyID != "" {
		where = append(where, "survey_id = ?")
		args = append(args, f.SurveyID)
	}
	if !f.From.IsZero() {
		where = append(where, "created_at_ms >= ?")
		args = append(args, toMs(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "created_at_ms < ?")
		args = append(args, toMs(f.To))
	}

	q := `SELECT ` + recordColumns + ` FROM records`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at_ms, id"

	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	q += " LIMIT ? OFFSET ?;"
	args = append(args, limit, max(f.Offset, 0))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("List query: %w", err)
	}
	defer rows.Close()

	out := []types.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("List scan: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *RecordStore) Commit(ctx context.Context, t store.Transition) (types.Record, error) {
	var out types.Record
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := writeRecord(ctx, tx, t.Before, t.After); err != nil {
			return err
		}
		if err := insertAuditEntry(ctx, tx, t.Entry); err != nil {
			return err
		}
		rec, err := getTx(ctx, tx, t.Before.ID)
		if err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return types.Record{}, err
	}
	return out, nil
}
