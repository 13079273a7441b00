package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/service"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/store/memory"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

func TestLogPruner_DisabledWhenRetentionZero(t *testing.T) {
	pruner := service.NewLogPruner(memory.NewLogStore(), service.PrunerConfig{
		RetentionDays: 0,
		IntervalHours: 1,
	}, silentLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pruner.Start(ctx)
	pruner.Stop()

	if n := pruner.PruneNow(ctx); n != 0 {
		t.Errorf("disabled pruner removed %d rows", n)
	}
}

func TestLogPruner_PrunesOldEntries(t *testing.T) {
	logs := memory.NewLogStore()
	ctx := context.Background()

	for _, age := range []int{40, 1} {
		if _, err := logs.Insert(ctx, types.LogEntry{
			Level:     types.LevelInfo,
			Category:  service.CategoryWorkflow,
			Message:   "entry",
			Timestamp: time.Now().UTC().AddDate(0, 0, -age),
		}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	pruner := service.NewLogPruner(logs, service.PrunerConfig{RetentionDays: 30}, nil)
	if n := pruner.PruneNow(ctx); n != 1 {
		t.Errorf("expected 1 pruned, got %d", n)
	}

	_, total, _ := logs.Query(ctx, types.LogQuery{})
	if total != 1 {
		t.Errorf("expected the recent entry to survive, got %d", total)
	}
}

func TestLogPruner_StartPrunesImmediately(t *testing.T) {
	logs := memory.NewLogStore()
	ctx := context.Background()
	_, _ = logs.Insert(ctx, types.LogEntry{
		Level: types.LevelInfo, Category: "x", Message: "old",
		Timestamp: time.Now().UTC().AddDate(0, 0, -90),
	})

	pruner := service.NewLogPruner(logs, service.PrunerConfig{RetentionDays: 30, IntervalHours: 24}, silentLogger())
	pruner.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for {
		_, total, _ := logs.Query(ctx, types.LogQuery{})
		if total == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("initial prune did not run")
		}
		time.Sleep(10 * time.Millisecond)
	}
	pruner.Stop()
}

func TestLogPruner_StopIsIdempotent(t *testing.T) {
	pruner := service.NewLogPruner(memory.NewLogStore(), service.PrunerConfig{
		RetentionDays: 30,
		IntervalHours: 1,
	}, silentLogger())

	// Stop before Start must not block.
	pruner.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	pruner.Start(ctx)
	pruner.Start(ctx)

	cancel()
	pruner.Stop()
	pruner.Stop()
}
