package sqlite

import (
	"database/sql"
	"time"

	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

const recordColumns = `id, survey_id, response_id, status, assigned_role, assigned_actor,
  payload, sampled, version, created_at_ms, modified_at_ms`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (types.Record, error) {
	var (
		rec        types.Record
		status     string
		role       string
		payload    []byte
		sampled    sql.NullInt64
		createdMs  int64
		modifiedMs int64
	)
	if err := row.Scan(
		&rec.ID, &rec.SurveyID, &rec.ResponseID, &status, &role, &rec.AssignedActor,
		&payload, &sampled, &rec.Version, &createdMs, &modifiedMs,
	); err != nil {
		return types.Record{}, err
	}
	rec.Status = types.Status(status)
	rec.AssignedRole = types.Role(role)
	if len(payload) > 0 {
		rec.Payload = payload
	}
	if sampled.Valid {
		v := sampled.Int64 == 1
		rec.Sampled = &v
	}
	rec.CreatedAt = fromMs(createdMs)
	rec.ModifiedAt = fromMs(modifiedMs)
	return rec, nil
}

func toMs(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMs(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func nullableSampled(v *bool) any {
	if v == nil {
		return nil
	}
	if *v {
		return 1
	}
	return 0
}

func nullablePayload(p []byte) any {
	if len(p) == 0 {
		return nil
	}
	return []byte(p)
}
