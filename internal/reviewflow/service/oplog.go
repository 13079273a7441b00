package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/store"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

// Operational log categories.
const (
	CategoryWorkflow = "workflow"
	CategoryImport   = "import"
	CategoryConfig   = "config"
	CategoryStorage  = "storage"
)

// OpLog is the operational log sink: level/category filtered entries kept in
// a LogStore and mirrored to the process logger. A nil *OpLog, or one
// without a store, discards everything and reads back empty.
type OpLog struct {
	store    store.LogStore
	logger   *log.Logger
	minLevel atomic.Int32
	now      func() time.Time
}

func NewOpLog(st store.LogStore, logger *log.Logger, minLevel types.LogLevel) *OpLog {
	l := &OpLog{store: st, logger: logger, now: time.Now}
	l.SetMinLevel(minLevel)
	return l
}

func (l *OpLog) MinLevel() types.LogLevel {
	if l == nil {
		return types.LevelCritical + 1
	}
	return types.LogLevel(l.minLevel.Load())
}

func (l *OpLog) SetMinLevel(level types.LogLevel) {
	if l == nil {
		return
	}
	if !level.Valid() {
		level = types.LevelInfo
	}
	l.minLevel.Store(int32(level))
}

// Log records one entry. Storage failures are reported on the process
// logger only; an operational log outage must not fail workflow calls.
func (l *OpLog) Log(ctx context.Context, level types.LogLevel, category, message string, fields map[string]any) {
	if l == nil || level < l.MinLevel() {
		return
	}
	e := types.LogEntry{
		Level:     level,
		Category:  category,
		Message:   message,
		Context:   fields,
		Timestamp: l.now().UTC(),
	}
	if l.logger != nil {
		l.logger.Printf("[%s] %s: %s%s", level, category, message, formatFields(fields))
	}
	if l.store == nil {
		return
	}
	if _, err := l.store.Insert(ctx, e); err != nil && l.logger != nil {
		l.logger.Printf("oplog insert error: %v", err)
	}
}

func (l *OpLog) Debug(ctx context.Context, category, message string, fields map[string]any) {
	l.Log(ctx, types.LevelDebug, category, message, fields)
}

func (l *OpLog) Info(ctx context.Context, category, message string, fields map[string]any) {
	l.Log(ctx, types.LevelInfo, category, message, fields)
}

func (l *OpLog) Warning(ctx context.Context, category, message string, fields map[string]any) {
	l.Log(ctx, types.LevelWarning, category, message, fields)
}

func (l *OpLog) Error(ctx context.Context, category, message string, fields map[string]any) {
	l.Log(ctx, types.LevelError, category, message, fields)
}

func (l *OpLog) Critical(ctx context.Context, category, message string, fields map[string]any) {
	l.Log(ctx, types.LevelCritical, category, message, fields)
}

// Query returns one page of entries, newest first, and the total match count.
func (l *OpLog) Query(ctx context.Context, q types.LogQuery) ([]types.LogEntry, int, error) {
	if q.Limit <= 0 || q.Limit > 500 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if l == nil || l.store == nil {
		return nil, 0, nil
	}
	return l.store.Query(ctx, q)
}

// Clear bulk-deletes entries by level, category and/or age.
func (l *OpLog) Clear(ctx context.Context, c types.LogClear) (int64, error) {
	if c.IsEmpty() {
		return 0, fmt.Errorf("%w: clear needs a level, category or cutoff", ErrInvalidInput)
	}
	if c.Level != 0 && !c.Level.Valid() {
		return 0, fmt.Errorf("%w: unknown level %d", ErrInvalidInput, int(c.Level))
	}
	if l == nil || l.store == nil {
		return 0, nil
	}
	return l.store.Clear(ctx, c)
}

func formatFields(fields map[string]any) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	return b.String()
}
