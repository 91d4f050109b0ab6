// Package parallel runs independent jobs, such as one call graph build per
// trace, on a bounded pool of goroutines.
package parallel

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/trace-callgraph/pkg/errors"
)

// PoolConfig configures the worker pool behavior.
type PoolConfig struct {
	// MaxWorkers is the maximum number of concurrent workers.
	// Default: min(runtime.NumCPU(), 8)
	MaxWorkers int

	// Timeout bounds the whole Execute call. Zero means no timeout.
	Timeout time.Duration

	// CollectMetrics enables collection of execution metrics.
	CollectMetrics bool
}

// DefaultPoolConfig returns a default pool configuration.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{MaxWorkers: min(max(runtime.NumCPU(), 2), 8)}
}

// WithWorkers returns a new config with the specified number of workers.
func (c PoolConfig) WithWorkers(n int) PoolConfig {
	c.MaxWorkers = n
	return c
}

// WithTimeout returns a new config with the specified timeout.
func (c PoolConfig) WithTimeout(d time.Duration) PoolConfig {
	c.Timeout = d
	return c
}

// WithMetrics returns a new config with metrics collection enabled.
func (c PoolConfig) WithMetrics() PoolConfig {
	c.CollectMetrics = true
	return c
}

// PoolMetrics holds execution statistics.
type PoolMetrics struct {
	TotalTasks     int64
	CompletedTasks int64
	FailedTasks    int64
	SkippedTasks   int64
	TotalDuration  time.Duration
	MaxTaskTime    time.Duration
}

// TaskResult holds the outcome of one input.
type TaskResult[T any, R any] struct {
	Input    T
	Result   R
	Error    error
	Duration time.Duration
}

// WorkerPool runs a function over many inputs with bounded concurrency.
type WorkerPool[T any, R any] struct {
	config  PoolConfig
	metrics PoolMetrics
	mu      sync.Mutex
}

// NewWorkerPool creates a new worker pool with the given configuration.
func NewWorkerPool[T any, R any](config PoolConfig) *WorkerPool[T, R] {
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = DefaultPoolConfig().MaxWorkers
	}
	return &WorkerPool[T, R]{config: config}
}

// Execute calls fn once per input and returns the results in input order.
// Inputs never started because ctx ended carry a Cancelled error.
func (p *WorkerPool[T, R]) Execute(ctx context.Context, inputs []T, fn func(ctx context.Context, input T) (R, error)) []TaskResult[T, R] {
	if len(inputs) == 0 {
		return nil
	}

	started := time.Now()
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	results := make([]TaskResult[T, R], len(inputs))
	ran := make([]bool, len(inputs))
	next := atomic.Int64{}

	var wg sync.WaitGroup
	for w := 0; w < min(p.config.MaxWorkers, len(inputs)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				idx := int(next.Add(1) - 1)
				if idx >= len(inputs) || ctx.Err() != nil {
					return
				}
				taskStart := time.Now()
				result, err := fn(ctx, inputs[idx])
				results[idx] = TaskResult[T, R]{
					Input:    inputs[idx],
					Result:   result,
					Error:    err,
					Duration: time.Since(taskStart),
				}
				ran[idx] = true
			}
		}()
	}
	wg.Wait()

	for i := range results {
		if !ran[i] {
			results[i] = TaskResult[T, R]{
				Input: inputs[i],
				Error: apperrors.Wrap(apperrors.CodeCancelled, "task not started", ctx.Err()),
			}
		}
	}

	if p.config.CollectMetrics {
		p.record(results, ran, time.Since(started))
	}
	return results
}

func (p *WorkerPool[T, R]) record(results []TaskResult[T, R], ran []bool, total time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.metrics.TotalDuration += total
	for i, r := range results {
		p.metrics.TotalTasks++
		switch {
		case !ran[i]:
			p.metrics.SkippedTasks++
		case r.Error != nil:
			p.metrics.FailedTasks++
		default:
			p.metrics.CompletedTasks++
		}
		p.metrics.MaxTaskTime = max(p.metrics.MaxTaskTime, r.Duration)
	}
}

// Metrics returns the accumulated execution metrics.
func (p *WorkerPool[T, R]) Metrics() PoolMetrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metrics
}

// ForEach runs fn over items and returns how many succeeded along with the
// first error in input order.
func ForEach[T any](ctx context.Context, items []T, config PoolConfig, fn func(ctx context.Context, item T) error) (int64, error) {
	pool := NewWorkerPool[T, struct{}](config)
	results := pool.Execute(ctx, items, func(ctx context.Context, item T) (struct{}, error) {
		return struct{}{}, fn(ctx, item)
	})

	var processed int64
	var firstError error
	for _, r := range results {
		if r.Error == nil {
			processed++
		} else if firstError == nil {
			firstError = r.Error
		}
	}
	return processed, firstError
}

// ProgressTracker reports completion of a batch at a fixed interval.
type ProgressTracker struct {
	total     int64
	completed atomic.Int64
	callback  func(completed, total int64)
	interval  time.Duration
	stopCh    chan struct{}
	stopped   atomic.Bool
}

// NewProgressTracker creates a new progress tracker.
func NewProgressTracker(total int64, callback func(completed, total int64), interval time.Duration) *ProgressTracker {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &ProgressTracker{
		total:    total,
		callback: callback,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins progress tracking in a background goroutine.
func (pt *ProgressTracker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(pt.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-pt.stopCh:
				return
			case <-ticker.C:
				if pt.callback != nil {
					pt.callback(pt.completed.Load(), pt.total)
				}
			}
		}
	}()
}

// Increment increments the completed count.
func (pt *ProgressTracker) Increment() {
	pt.completed.Add(1)
}

// Stop stops progress tracking and reports the final count once.
func (pt *ProgressTracker) Stop() {
	if pt.stopped.CompareAndSwap(false, true) {
		close(pt.stopCh)
		if pt.callback != nil {
			pt.callback(pt.completed.Load(), pt.total)
		}
	}
}

// Completed returns the current completed count.
func (pt *ProgressTracker) Completed() int64 {
	return pt.completed.Load()
}
