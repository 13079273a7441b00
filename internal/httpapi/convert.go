package httpapi

import (
	"time"

	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/service"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

type recordList struct {
	Records []types.Record `json:"records"`
	Count   int            `json:"count"`
}

type historyResponse struct {
	RecordID string             `json:"record_id"`
	Entries  []types.AuditEntry `json:"entries"`
}

type bulkItem struct {
	RecordID string       `json:"record_id"`
	OK       bool         `json:"ok"`
	Status   types.Status `json:"status,omitempty"`
	Error    string       `json:"error,omitempty"`
	Message  string       `json:"message,omitempty"`
}

type bulkResponse struct {
	Results   []bulkItem `json:"results"`
	Succeeded int        `json:"succeeded"`
	Failed    int        `json:"failed"`
}

func toBulkResponse(in []service.BulkResult) bulkResponse {
	out := bulkResponse{Results: make([]bulkItem, 0, len(in))}
	for _, r := range in {
		item := bulkItem{RecordID: r.RecordID, OK: r.Err == nil, Status: r.Status}
		if r.Err != nil {
			item.Error = string(service.KindOf(r.Err))
			item.Message = r.Err.Error()
			out.Failed++
		} else {
			out.Succeeded++
		}
		out.Results = append(out.Results, item)
	}
	return out
}

// logEntry renders the level by name rather than its ordinal.
type logEntry struct {
	ID        int64          `json:"id"`
	Level     string         `json:"level"`
	Category  string         `json:"category"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type logPage struct {
	Entries []logEntry `json:"entries"`
	Total   int        `json:"total"`
	Limit   int        `json:"limit"`
	Offset  int        `json:"offset"`
}

func toLogEntries(in []types.LogEntry) []logEntry {
	out := make([]logEntry, 0, len(in))
	for _, e := range in {
		out = append(out, logEntry{
			ID:        e.ID,
			Level:     e.Level.String(),
			Category:  e.Category,
			Message:   e.Message,
			Context:   e.Context,
			Timestamp: e.Timestamp,
		})
	}
	return out
}
