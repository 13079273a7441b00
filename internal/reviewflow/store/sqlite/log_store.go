package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/BrandonDHaskell/reviewflow/internal/db"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

type LogStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewLogStore(db *sql.DB, writer *dbpkg.Worker) *LogStore {
	return &LogStore{db: db, writer: writer}
}

func (s *LogStore) Insert(ctx context.Context, e types.LogEntry) (int64, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	var ctxJSON any
	if len(e.Context) > 0 {
		b, err := json.Marshal(e.Context)
		if err != nil {
			return 0, fmt.Errorf("Insert encode context: %w", err)
		}
		ctxJSON = string(b)
	}

	var id int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO op_logs(level, category, message, context_json, at_ms)
VALUES (?, ?, ?, ?, ?);
`, int(e.Level), e.Category, e.Message, ctxJSON, toMs(e.Timestamp))
		if err != nil {
			return fmt.Errorf("Insert op_log: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

func logWhere(q types.LogQuery) (string, []any) {
	var (
		where []string
		args  []any
	)
	if q.MinLevel != 0 {
		where = append(where, "level >= ?")
		args = append(args, int(q.MinLevel))
	}
	if q.Category != "" {
		where = append(where, "category = ?")
		args = append(args, q.Category)
	}
	if !q.From.IsZero() {
		where = append(where, "at_ms >= ?")
		args = append(args, toMs(q.From))
	}
	if !q.To.IsZero() {
		where = append(where, "at_ms < ?")
		args = append(args, toMs(q.To))
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func (s *LogStore) Query(ctx context.Context, q types.LogQuery) ([]types.LogEntry, int, error) {
	where, args := logWhere(q)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM op_logs`+where+`;`, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("Query count: %w", err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}
	pageArgs := append(append([]any{}, args...), limit, max(q.Offset, 0))

	rows, err := s.db.QueryContext(ctx, `
SELECT id, level, category, message, context_json, at_ms
FROM op_logs`+where+`
ORDER BY at_ms DESC, id DESC
LIMIT ? OFFSET ?;`, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("Query select: %w", err)
	}
	defer rows.Close()

	out := []types.LogEntry{}
	for rows.Next() {
		var (
			e       types.LogEntry
			level   int
			ctxJSON sql.NullString
			atMs    int64
		)
		if err := rows.Scan(&e.ID, &level, &e.Category, &e.Message, &ctxJSON, &atMs); err != nil {
			return nil, 0, fmt.Errorf("Query scan: %w", err)
		}
		e.Level = types.LogLevel(level)
		e.Timestamp = fromMs(atMs)
		if ctxJSON.Valid && ctxJSON.String != "" {
			if err := json.Unmarshal([]byte(ctxJSON.String), &e.Context); err != nil {
				return nil, 0, fmt.Errorf("Query decode context %d: %w", e.ID, err)
			}
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

func (s *LogStore) Clear(ctx context.Context, c types.LogClear) (int64, error) {
	var (
		where []string
		args  []any
	)
	if c.Level != 0 {
		where = append(where, "level = ?")
		args = append(args, int(c.Level))
	}
	if c.Category != "" {
		where = append(where, "category = ?")
		args = append(args, c.Category)
	}
	if !c.OlderThan.IsZero() {
		where = append(where, "at_ms < ?")
		args = append(args, toMs(c.OlderThan))
	}
	q := `DELETE FROM op_logs`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	return s.exec(ctx, "Clear", q+";", args...)
}

// PruneOlderThan deletes op_logs rows recorded before cutoff, using the
// idx_op_logs_time index.
func (s *LogStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.exec(ctx, "PruneOlderThan", `DELETE FROM op_logs WHERE at_ms < ?;`, toMs(cutoff))
}

func (s *LogStore) exec(ctx context.Context, op, q string, args ...any) (int64, error) {
	var n int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		n, _ = res.RowsAffected()
		return nil
	})
	return n, err
}
