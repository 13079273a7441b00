package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/service"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/store/memory"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

func TestOpLog_MinLevelFilters(t *testing.T) {
	logs := memory.NewLogStore()
	l := service.NewOpLog(logs, silentLogger(), types.LevelWarning)
	ctx := context.Background()

	l.Debug(ctx, service.CategoryWorkflow, "dropped", nil)
	l.Info(ctx, service.CategoryWorkflow, "dropped", nil)
	l.Warning(ctx, service.CategoryWorkflow, "kept", map[string]any{"k": 1})
	l.Critical(ctx, service.CategoryStorage, "kept", nil)

	entries, total, err := l.Query(ctx, types.LogQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, entries, 2)

	l.SetMinLevel(types.LevelDebug)
	l.Debug(ctx, service.CategoryWorkflow, "now kept", nil)
	_, total, _ = l.Query(ctx, types.LogQuery{})
	assert.Equal(t, 3, total)

	l.SetMinLevel(types.LogLevel(99))
	assert.Equal(t, types.LevelInfo, l.MinLevel(), "invalid level falls back to info")
}

func TestOpLog_NilIsDiscard(t *testing.T) {
	var l *service.OpLog
	ctx := context.Background()
	assert.NotPanics(t, func() {
		l.Error(ctx, service.CategoryWorkflow, "ignored", nil)
		l.SetMinLevel(types.LevelDebug)
	})

	entries, total, err := l.Query(ctx, types.LogQuery{})
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Zero(t, total)

	n, err := l.Clear(ctx, types.LogClear{Category: service.CategoryWorkflow})
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = l.Clear(ctx, types.LogClear{})
	assert.ErrorIs(t, err, service.ErrInvalidInput, "filters are still checked")

	storeless := service.NewOpLog(nil, nil, types.LevelDebug)
	storeless.Info(ctx, service.CategoryImport, "dropped", nil)
	_, total, err = storeless.Query(ctx, types.LogQuery{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestOpLog_ClearNeedsAFilter(t *testing.T) {
	logs := memory.NewLogStore()
	l := service.NewOpLog(logs, silentLogger(), types.LevelDebug)
	ctx := context.Background()

	l.Info(ctx, service.CategoryImport, "a", nil)
	l.Info(ctx, service.CategoryWorkflow, "b", nil)

	_, err := l.Clear(ctx, types.LogClear{})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	n, err := l.Clear(ctx, types.LogClear{Category: service.CategoryImport})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestOpLog_EngineRecordsTransitionsAndFailures(t *testing.T) {
	h := newHarness(t, 0)
	rec := h.importRecord(t, "S1", "R1")
	ctx := context.Background()

	_, err := h.act(t, rec.ID, carol, types.ActionApprove, "")
	require.Error(t, err)
	_, err = h.act(t, rec.ID, alice, types.ActionApprove, "")
	require.NoError(t, err)

	warn, _, err := h.oplog.Query(ctx, types.LogQuery{Category: service.CategoryWorkflow, MinLevel: types.LevelWarning})
	require.NoError(t, err)
	require.Len(t, warn, 1)
	assert.Equal(t, "unauthorized", warn[0].Context["kind"])

	all, _, err := h.oplog.Query(ctx, types.LogQuery{Category: service.CategoryWorkflow})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "transition applied", all[0].Message, "newest first")
	assert.WithinDuration(t, time.Now(), all[0].Timestamp, time.Minute)
}
