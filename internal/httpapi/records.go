package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/service"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

const maxListLimit = 500

type actionBody struct {
	Action string `json:"action"`
	Notes  string `json:"notes,omitempty"`
}

type bulkBody struct {
	RecordIDs []string `json:"record_ids"`
	Action    string   `json:"action"`
	Notes     string   `json:"notes,omitempty"`
}

type payloadBody struct {
	Payload json.RawMessage `json:"payload"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req service.ImportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	res, err := s.importer.Import(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, "import", err)
		return
	}
	status := http.StatusCreated
	if !res.Created {
		status = http.StatusOK
	}
	respond(w, r, status, res)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.engine.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, "get record", err)
		return
	}
	respond(w, r, http.StatusOK, rec)
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	f, err := parseRecordFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, string(service.KindInvalidInput), err.Error())
		return
	}
	recs, err := s.engine.List(r.Context(), f)
	if err != nil {
		s.writeServiceError(w, "list records", err)
		return
	}
	if recs == nil {
		recs = []types.Record{}
	}
	respond(w, r, http.StatusOK, recordList{Records: recs, Count: len(recs)})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entries, err := s.engine.CollectHistory(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, "history", err)
		return
	}
	respond(w, r, http.StatusOK, historyResponse{RecordID: id, Entries: entries})
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var body actionBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	action, err := types.ParseAction(body.Action)
	if err != nil {
		writeError(w, http.StatusBadRequest, string(service.KindInvalidInput), err.Error())
		return
	}

	res, err := s.engine.ApplyAction(r.Context(), service.ActionRequest{
		RecordID: chi.URLParam(r, "id"),
		ActorID:  ActorFromContext(r.Context()),
		Action:   action,
		Notes:    body.Notes,
	})
	if err != nil {
		s.writeServiceError(w, "apply action", err)
		return
	}
	respond(w, r, http.StatusOK, res)
}

func (s *Server) handleBulkAction(w http.ResponseWriter, r *http.Request) {
	var body bulkBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if len(body.RecordIDs) == 0 {
		writeError(w, http.StatusBadRequest, string(service.KindInvalidInput), "record_ids is required")
		return
	}
	action, err := types.ParseAction(body.Action)
	if err != nil {
		writeError(w, http.StatusBadRequest, string(service.KindInvalidInput), err.Error())
		return
	}

	results := s.engine.ApplyBulk(r.Context(), service.BulkRequest{
		RecordIDs: body.RecordIDs,
		ActorID:   ActorFromContext(r.Context()),
		Action:    action,
		Notes:     body.Notes,
	})
	respond(w, r, http.StatusOK, toBulkResponse(results))
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	rec, err := s.engine.Claim(r.Context(), chi.URLParam(r, "id"), ActorFromContext(r.Context()))
	if err != nil {
		s.writeServiceError(w, "claim", err)
		return
	}
	respond(w, r, http.StatusOK, rec)
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	rec, err := s.engine.Release(r.Context(), chi.URLParam(r, "id"), ActorFromContext(r.Context()))
	if err != nil {
		s.writeServiceError(w, "release", err)
		return
	}
	respond(w, r, http.StatusOK, rec)
}

func (s *Server) handleEditPayload(w http.ResponseWriter, r *http.Request) {
	var body payloadBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	rec, err := s.engine.EditPayload(r.Context(), chi.URLParam(r, "id"), ActorFromContext(r.Context()), body.Payload)
	if err != nil {
		s.writeServiceError(w, "edit payload", err)
		return
	}
	respond(w, r, http.StatusOK, rec)
}

func parseRecordFilter(q url.Values) (types.RecordFilter, error) {
	var f types.RecordFilter
	var err error

	if v := q.Get("status"); v != "" {
		if f.Status, err = types.ParseStatus(v); err != nil {
			return f, err
		}
	}
	if v := q.Get("role"); v != "" {
		if f.Role, err = types.ParseRole(v); err != nil {
			return f, err
		}
	}
	f.SurveyID = strings.TrimSpace(q.Get("survey_id"))
	if f.From, err = parseTime(q, "from"); err != nil {
		return f, err
	}
	if f.To, err = parseTime(q, "to"); err != nil {
		return f, err
	}
	if f.Limit, err = parseNonNegative(q, "limit"); err != nil {
		return f, err
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset, err = parseNonNegative(q, "offset"); err != nil {
		return f, err
	}
	return f, nil
}

// parseTime accepts RFC 3339 timestamps or bare dates (YYYY-MM-DD, UTC).
func parseTime(q url.Values, key string) (time.Time, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: expected RFC 3339 time or YYYY-MM-DD", key)
	}
	return t, nil
}

func parseNonNegative(q url.Values, key string) (int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}
