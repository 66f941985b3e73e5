package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/toonshare/internal/logger"
)

// DefaultGCInterval is used when no interval is configured
const DefaultGCInterval = 10 * time.Minute

// Job is one housekeeping task. Sweep returns how many entries it evicted.
type Job struct {
	Name  string
	Sweep func() int
}

// GarbageCollector periodically evicts expired in-memory state
// (memory sessions, stale thumbnail entries). It never touches the stores.
type GarbageCollector struct {
	jobs     []Job
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewGarbageCollector creates a new garbage collector. Jobs with a nil Sweep are skipped.
func NewGarbageCollector(log logger.Logger, interval time.Duration, jobs ...Job) *GarbageCollector {
	if interval <= 0 {
		interval = DefaultGCInterval
	}

	kept := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		if j.Sweep != nil {
			kept = append(kept, j)
		}
	}

	return &GarbageCollector{
		jobs:     kept,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic garbage collection process
func (gc *GarbageCollector) Start(ctx context.Context) {
	ticker := time.NewTicker(gc.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				gc.Collect()
			case <-gc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the garbage collector. Safe to call more than once.
func (gc *GarbageCollector) Stop() {
	gc.stopOnce.Do(func() { close(gc.stopCh) })
}

// Collect runs every job once and returns the total number of evicted entries
func (gc *GarbageCollector) Collect() int {
	total := 0
	for _, job := range gc.jobs {
		removed := gc.run(job)
		if removed > 0 {
			gc.logger.Debug("garbage collected entries",
				logger.String("job", job.Name),
				logger.Int("removed", removed))
		}
		total += removed
	}

	if total > 0 {
		gc.logger.Info("garbage collection completed", logger.Int("total_removed", total))
	}
	return total
}

// run isolates a panicking job so the others still run.
func (gc *GarbageCollector) run(job Job) (removed int) {
	defer func() {
		if r := recover(); r != nil {
			gc.logger.Error("garbage collection job panicked",
				logger.String("job", job.Name))
			removed = 0
		}
	}()
	return job.Sweep()
}
