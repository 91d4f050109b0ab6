package statistics

import (
	"sort"

	"github.com/trace-callgraph/internal/callgraph"
)

// ThreadStatsCalculator calculates per-thread totals of a build.
type ThreadStatsCalculator struct {
	maxThreads int
}

// ThreadStatsOption configures the ThreadStatsCalculator.
type ThreadStatsOption func(*ThreadStatsCalculator)

// WithMaxThreads sets the maximum number of threads to return.
func WithMaxThreads(n int) ThreadStatsOption {
	return func(c *ThreadStatsCalculator) {
		c.maxThreads = n
	}
}

// NewThreadStatsCalculator creates a new ThreadStatsCalculator.
func NewThreadStatsCalculator(opts ...ThreadStatsOption) *ThreadStatsCalculator {
	c := &ThreadStatsCalculator{
		maxThreads: 0, // 0 means no limit
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ThreadEntry represents a thread with its statistics. Duration is the time
// covered by the thread's root invocations.
type ThreadEntry struct {
	TID         int64   `json:"tid"`
	ProcessID   int     `json:"pid"`
	ThreadName  string  `json:"name"`
	Duration    int64   `json:"duration"`
	Invocations int     `json:"invocations"`
	RootCalls   int     `json:"rootCalls"`
	MaxDepth    int     `json:"maxDepth"`
	Percentage  float64 `json:"percentage"`
}

// ThreadStatsResult holds the calculation result.
type ThreadStatsResult struct {
	Threads       []ThreadEntry
	TotalDuration int64
}

// Calculate calculates thread statistics from a build result.
func (c *ThreadStatsCalculator) Calculate(res *callgraph.Result) *ThreadStatsResult {
	result := &ThreadStatsResult{
		Threads: make([]ThreadEntry, 0),
	}
	if res == nil {
		return result
	}

	entries := make([]ThreadEntry, 0, len(res.Threads))
	for _, thread := range res.ThreadNodes() {
		result.TotalDuration += thread.Duration
		entries = append(entries, ThreadEntry{
			TID:         thread.ThreadID,
			ProcessID:   thread.ProcessID,
			ThreadName:  thread.Name,
			Duration:    thread.Duration,
			Invocations: len(thread.Calls()),
			RootCalls:   len(thread.RootFunctions()),
			MaxDepth:    thread.MaxDepth,
		})
	}

	for i := range entries {
		if result.TotalDuration > 0 {
			entries[i].Percentage = float64(entries[i].Duration) / float64(result.TotalDuration) * 100
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Duration > entries[j].Duration
	})

	if c.maxThreads > 0 && len(entries) > c.maxThreads {
		entries = entries[:c.maxThreads]
	}

	result.Threads = entries
	return result
}

// GetThreadByTID returns thread info by TID.
func (r *ThreadStatsResult) GetThreadByTID(tid int64) *ThreadEntry {
	for i := range r.Threads {
		if r.Threads[i].TID == tid {
			return &r.Threads[i]
		}
	}
	return nil
}

// GetThreadByName returns thread info by name.
func (r *ThreadStatsResult) GetThreadByName(name string) *ThreadEntry {
	for i := range r.Threads {
		if r.Threads[i].ThreadName == name {
			return &r.Threads[i]
		}
	}
	return nil
}
