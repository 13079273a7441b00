package service

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/store"
)

// LogPruner periodically deletes operational log entries older than a
// configurable retention period.  It runs as a background goroutine and
// is safe to stop via its context or the Stop method.
//
// A retention of 0 disables pruning entirely.  Audit entries are never
// touched; only the op_logs store is pruned.
type LogPruner struct {
	store     store.LogStore
	retention time.Duration
	interval  time.Duration
	logger    *log.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// PrunerConfig holds the parameters for NewLogPruner.
type PrunerConfig struct {
	// RetentionDays is how many days of operational log to keep.
	// 0 means keep everything (pruner will not start).
	RetentionDays int

	// IntervalHours is how often the pruner runs.  Defaults to 6.
	IntervalHours int
}

func NewLogPruner(s store.LogStore, cfg PrunerConfig, logger *log.Logger) *LogPruner {
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &LogPruner{
		store:     s,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		interval:  interval,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start runs an immediate prune, then repeats on the configured interval
// until ctx is cancelled or Stop is called.  Calling Start twice is a no-op.
func (p *LogPruner) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	if p.retention <= 0 {
		p.logger.Printf("log pruner disabled (retention=0)")
		close(p.done)
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	go p.loop(ctx)

	p.logger.Printf("log pruner started (retention=%dd, interval=%s)",
		int(p.retention.Hours()/24), p.interval)
}

// Stop signals the pruner to exit and waits for it.  Safe to call more than
// once, and before Start.
func (p *LogPruner) Stop() {
	p.mu.Lock()
	started, cancel := p.started, p.cancel
	p.mu.Unlock()

	if !started {
		return
	}
	if cancel != nil {
		cancel()
	}
	<-p.done
}

func (p *LogPruner) loop(ctx context.Context) {
	defer close(p.done)

	p.PruneNow(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PruneNow(ctx)
		}
	}
}

// PruneNow runs a single retention pass and returns the rows removed.
func (p *LogPruner) PruneNow(ctx context.Context) int64 {
	if p.retention <= 0 {
		return 0
	}
	cutoff := time.Now().UTC().Add(-p.retention)
	deleted, err := p.store.PruneOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Printf("log prune error: %v", err)
		return 0
	}
	if deleted > 0 {
		p.logger.Printf("log prune: deleted %d rows older than %s",
			deleted, cutoff.Format(time.RFC3339))
	}
	return deleted
}
