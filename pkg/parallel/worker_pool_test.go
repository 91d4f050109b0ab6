package parallel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/trace-callgraph/pkg/errors"
)

func TestWorkerPool_ExecuteKeepsOrder(t *testing.T) {
	pool := NewWorkerPool[int, int](DefaultPoolConfig().WithWorkers(3))

	inputs := []int{1, 2, 3, 4, 5, 6, 7}
	results := pool.Execute(context.Background(), inputs, func(_ context.Context, input int) (int, error) {
		return input * 2, nil
	})

	require.Len(t, results, len(inputs))
	for i, r := range results {
		assert.NoError(t, r.Error)
		assert.Equal(t, inputs[i], r.Input)
		assert.Equal(t, inputs[i]*2, r.Result)
	}
}

func TestWorkerPool_BoundedConcurrency(t *testing.T) {
	pool := NewWorkerPool[int, struct{}](PoolConfig{MaxWorkers: 2})

	var running, peak atomic.Int32
	pool.Execute(context.Background(), make([]int, 10), func(context.Context, int) (struct{}, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return struct{}{}, nil
	})

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestWorkerPool_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := NewWorkerPool[int, int](DefaultPoolConfig().WithMetrics())
	results := pool.Execute(ctx, []int{1, 2, 3}, func(context.Context, int) (int, error) {
		t.Fatal("task should not run")
		return 0, nil
	})

	require.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, apperrors.IsCancelled(r.Error))
	}
	assert.Equal(t, int64(3), pool.Metrics().SkippedTasks)
}

func TestWorkerPool_Timeout(t *testing.T) {
	pool := NewWorkerPool[int, int](PoolConfig{MaxWorkers: 1, Timeout: 20 * time.Millisecond})

	results := pool.Execute(context.Background(), []int{1, 2, 3}, func(ctx context.Context, input int) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	require.Len(t, results, 3)
	assert.ErrorIs(t, results[0].Error, context.DeadlineExceeded)
	assert.True(t, apperrors.IsCancelled(results[2].Error))
}

func TestWorkerPool_Metrics(t *testing.T) {
	pool := NewWorkerPool[int, int](DefaultPoolConfig().WithMetrics())

	pool.Execute(context.Background(), []int{1, 2, 3, 4}, func(_ context.Context, input int) (int, error) {
		if input%2 == 0 {
			return 0, errors.New("even")
		}
		return input, nil
	})

	m := pool.Metrics()
	assert.Equal(t, int64(4), m.TotalTasks)
	assert.Equal(t, int64(2), m.CompletedTasks)
	assert.Equal(t, int64(2), m.FailedTasks)
	assert.Zero(t, m.SkippedTasks)
}

func TestForEach(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}

	processed, err := ForEach(context.Background(), []string{"a", "b", "c"}, DefaultPoolConfig(),
		func(_ context.Context, item string) error {
			mu.Lock()
			seen[item] = true
			mu.Unlock()
			if item == "b" {
				return errors.New("bad trace")
			}
			return nil
		})

	assert.Equal(t, int64(2), processed)
	assert.EqualError(t, err, "bad trace")
	assert.Len(t, seen, 3)
}

func TestForEach_Empty(t *testing.T) {
	processed, err := ForEach(context.Background(), []int(nil), DefaultPoolConfig(),
		func(context.Context, int) error { return nil })
	assert.Zero(t, processed)
	assert.NoError(t, err)
}

func TestProgressTracker(t *testing.T) {
	var mu sync.Mutex
	var last [2]int64
	tracker := NewProgressTracker(3, func(completed, total int64) {
		mu.Lock()
		last = [2]int64{completed, total}
		mu.Unlock()
	}, time.Hour)

	tracker.Start(context.Background())
	tracker.Increment()
	tracker.Increment()
	tracker.Stop()
	tracker.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, [2]int64{2, 3}, last)
	assert.Equal(t, int64(2), tracker.Completed())
}
