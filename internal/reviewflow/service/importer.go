package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/store"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

// ImportRequest is one raw response handed over by the survey source.
type ImportRequest struct {
	SurveyID   string          `json:"survey_id" validate:"required,max=128"`
	ResponseID string          `json:"response_id" validate:"required,max=128"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

type ImportResult struct {
	Record  types.Record `json:"record"`
	Created bool         `json:"created"`
}

// Importer is the entry point for the import source: it creates records in
// the initial state, keyed by survey_id + response_id.
type Importer struct {
	records store.RecordStore
	roles   *RoleRegistry
	oplog   *OpLog
	now     func() time.Time
}

func NewImporter(records store.RecordStore, roles *RoleRegistry, oplog *OpLog) *Importer {
	return &Importer{records: records, roles: roles, oplog: oplog, now: time.Now}
}

// Import creates a pending_a record. Re-importing the same source key is
// idempotent: the existing record comes back with Created=false.
func (i *Importer) Import(ctx context.Context, req ImportRequest) (ImportResult, error) {
	req.SurveyID = strings.TrimSpace(req.SurveyID)
	req.ResponseID = strings.TrimSpace(req.ResponseID)

	if err := validateStruct(req); err != nil {
		i.oplog.Warning(ctx, CategoryImport, "import rejected", map[string]any{"error": err.Error()})
		return ImportResult{}, err
	}
	if err := validPayload(req.Payload); err != nil {
		i.oplog.Warning(ctx, CategoryImport, "import rejected", map[string]any{
			"survey_id": req.SurveyID, "response_id": req.ResponseID, "error": err.Error(),
		})
		return ImportResult{}, err
	}

	now := i.now().UTC()
	rec := types.Record{
		ID:           uuid.NewString(),
		SurveyID:     req.SurveyID,
		ResponseID:   req.ResponseID,
		Status:       types.StatusPendingA,
		AssignedRole: i.roles.RequiredRole(types.StatusPendingA),
		Payload:      req.Payload,
		Version:      1,
		CreatedAt:    now,
		ModifiedAt:   now,
	}

	saved, err := i.records.Create(ctx, rec)
	if errors.Is(err, store.ErrDuplicate) {
		i.oplog.Debug(ctx, CategoryImport, "duplicate import ignored", map[string]any{
			"survey_id": req.SurveyID, "response_id": req.ResponseID, "record_id": saved.ID,
		})
		return ImportResult{Record: saved, Created: false}, nil
	}
	if err != nil {
		i.oplog.Error(ctx, CategoryImport, "import failed", map[string]any{
			"survey_id": req.SurveyID, "response_id": req.ResponseID, "error": err.Error(),
		})
		return ImportResult{}, fmt.Errorf("import %s/%s: %w", req.SurveyID, req.ResponseID, err)
	}

	i.oplog.Info(ctx, CategoryImport, "record imported", map[string]any{
		"record_id": saved.ID, "survey_id": saved.SurveyID, "response_id": saved.ResponseID,
	})
	return ImportResult{Record: saved, Created: true}, nil
}
