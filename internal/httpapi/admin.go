package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/service"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

type samplingRate struct {
	Rate float64 `json:"rate"`
}

type clearResult struct {
	Deleted int64 `json:"deleted"`
}

func (s *Server) handleGetSamplingRate(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, samplingRate{Rate: s.sampling.Rate()})
}

// handleSetSamplingRate changes the rate for records whose sampling decision
// is still pending; decided records keep theirs.
func (s *Server) handleSetSamplingRate(w http.ResponseWriter, r *http.Request) {
	var body samplingRate
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if body.Rate < 0 || body.Rate > 1 {
		writeError(w, http.StatusBadRequest, string(service.KindInvalidInput), "rate must be within [0, 1]")
		return
	}
	prev := s.sampling.Rate()
	now := s.sampling.SetRate(body.Rate)
	s.oplog.Info(r.Context(), service.CategoryConfig, "sampling rate changed", map[string]any{
		"actor_id": ActorFromContext(r.Context()), "from": prev, "to": now,
	})
	respond(w, r, http.StatusOK, samplingRate{Rate: now})
}

func (s *Server) handleQueryLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var lq types.LogQuery
	var err error

	if v := strings.TrimSpace(q.Get("min_level")); v != "" {
		if lq.MinLevel, err = types.ParseLogLevel(v); err != nil {
			writeError(w, http.StatusBadRequest, string(service.KindInvalidInput), err.Error())
			return
		}
	}
	lq.Category = strings.TrimSpace(q.Get("category"))
	if lq.From, err = parseTime(q, "from"); err == nil {
		lq.To, err = parseTime(q, "to")
	}
	if err == nil {
		lq.Limit, err = parseNonNegative(q, "limit")
	}
	if err == nil {
		lq.Offset, err = parseNonNegative(q, "offset")
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, string(service.KindInvalidInput), err.Error())
		return
	}

	entries, total, err := s.oplog.Query(r.Context(), lq)
	if err != nil {
		s.writeServiceError(w, "query logs", err)
		return
	}
	limit := lq.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	respond(w, r, http.StatusOK, logPage{
		Entries: toLogEntries(entries),
		Total:   total,
		Limit:   limit,
		Offset:  lq.Offset,
	})
}

// handleClearLogs deletes by level, category and/or age. older_than takes a
// timestamp; older_than_days is relative to now.
func (s *Server) handleClearLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var c types.LogClear
	var err error

	if v := strings.TrimSpace(q.Get("level")); v != "" {
		if c.Level, err = types.ParseLogLevel(v); err != nil {
			writeError(w, http.StatusBadRequest, string(service.KindInvalidInput), err.Error())
			return
		}
	}
	c.Category = strings.TrimSpace(q.Get("category"))
	if c.OlderThan, err = parseTime(q, "older_than"); err != nil {
		writeError(w, http.StatusBadRequest, string(service.KindInvalidInput), err.Error())
		return
	}
	if q.Has("older_than_days") {
		days, err := parseNonNegative(q, "older_than_days")
		if err != nil {
			writeError(w, http.StatusBadRequest, string(service.KindInvalidInput), err.Error())
			return
		}
		c.OlderThan = time.Now().UTC().AddDate(0, 0, -days)
	}

	n, err := s.oplog.Clear(r.Context(), c)
	if err != nil {
		s.writeServiceError(w, "clear logs", err)
		return
	}
	s.oplog.Info(r.Context(), service.CategoryConfig, "operational logs cleared", map[string]any{
		"actor_id": ActorFromContext(r.Context()), "deleted": n,
	})
	respond(w, r, http.StatusOK, clearResult{Deleted: n})
}
