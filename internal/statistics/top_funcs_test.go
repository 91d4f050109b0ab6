package statistics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trace-callgraph/internal/callgraph"
	"github.com/trace-callgraph/internal/intervalstore"
	"github.com/trace-callgraph/internal/symbol"
	"github.com/trace-callgraph/internal/testutil"
	"github.com/trace-callgraph/pkg/utils"
)

func buildResult(t *testing.T, store intervalstore.Store) *callgraph.Result {
	t.Helper()
	opts := &callgraph.Options{
		ProcessesPattern: []string{testutil.ProcessesAttribute},
		ThreadsPattern:   []string{intervalstore.Wildcard},
		CallStackPath:    []string{"CallStack"},
		Logger:           &utils.NullLogger{},
		Clock:            utils.NewMockClock(time.Unix(0, 0)),
	}
	res, err := callgraph.NewBuilder(store, opts).Build(context.Background())
	require.NoError(t, err)
	return res
}

// twoThreads: main calls hot twice on t1; worker calls hot via helper on t2.
func twoThreads(t *testing.T) *callgraph.Result {
	return buildResult(t, testutil.NewTraceBuilder(t, 0).
		Thread("t1", int64(11)).
		Push("t1", 0, "main").
		Push("t1", 10, "hot").
		Pop("t1", 40).
		Push("t1", 50, "hot").
		Pop("t1", 90).
		Pop("t1", 100).
		Thread("t2", int64(22)).
		Push("t2", 0, "worker").
		Push("t2", 5, "helper").
		Push("t2", 10, "hot").
		Pop("t2", 30).
		Pop("t2", 35).
		Pop("t2", 50).
		Close(100))
}

func TestTopFuncsCalculator_Calculate(t *testing.T) {
	result := NewTopFuncsCalculator().Calculate(twoThreads(t))

	require.NotNil(t, result)
	assert.Equal(t, int64(150), result.TotalTime)
	require.Len(t, result.TopFuncs, 4)

	hot := result.TopFuncs[0]
	assert.Equal(t, "hot", hot.Name)
	assert.Equal(t, int64(90), hot.SelfTime)
	assert.Equal(t, int64(90), hot.TotalTime)
	assert.Equal(t, int64(3), hot.Calls)
	assert.InDelta(t, 60.0, hot.SelfPercent, 1e-9)

	assert.Equal(t, "main", result.TopFuncs[1].Name)
	assert.Equal(t, int64(30), result.TopFuncs[1].SelfTime)
	assert.Equal(t, int64(100), result.TopFuncs[1].TotalTime)
	assert.Equal(t, "worker", result.TopFuncs[2].Name)
	assert.Equal(t, int64(20), result.TopFuncs[2].SelfTime)
	assert.Equal(t, "helper", result.TopFuncs[3].Name)
	assert.Equal(t, int64(10), result.TopFuncs[3].SelfTime)
}

func TestTopFuncsCalculator_TopN(t *testing.T) {
	result := NewTopFuncsCalculator(WithTopN(2)).Calculate(twoThreads(t))

	require.Len(t, result.TopFuncs, 2)
	assert.Equal(t, "hot", result.TopFuncs[0].Name)
	assert.Equal(t, "main", result.TopFuncs[1].Name)
}

func TestTopFuncsCalculator_NilResult(t *testing.T) {
	result := NewTopFuncsCalculator().Calculate(nil)

	require.NotNil(t, result)
	assert.Equal(t, int64(0), result.TotalTime)
	assert.Empty(t, result.TopFuncs)
}

func TestTopFuncsCalculator_RecursionTotalCountedOnce(t *testing.T) {
	res := buildResult(t, testutil.NewTraceBuilder(t, 0).
		Push("t", 0, "fib").
		Push("t", 10, "fib").
		Pop("t", 20).
		Pop("t", 30).
		Close(30))

	result := NewTopFuncsCalculator().Calculate(res)

	require.Len(t, result.TopFuncs, 1)
	assert.Equal(t, int64(30), result.TopFuncs[0].TotalTime)
	assert.Equal(t, int64(30), result.TopFuncs[0].SelfTime)
	assert.Equal(t, int64(2), result.TopFuncs[0].Calls)
}

func TestTopFuncsCalculator_Resolver(t *testing.T) {
	res := buildResult(t, testutil.NewTraceBuilder(t, 0).
		Push("t", 0, int64(0x400)).
		Pop("t", 10).
		Close(10))

	result := NewTopFuncsCalculator(
		WithResolver(symbol.NewMapResolver(map[uint64]string{0x400: "start"})),
	).Calculate(res)

	require.Len(t, result.TopFuncs, 1)
	assert.Equal(t, "start", result.TopFuncs[0].Name)
}

func TestTopFuncsResult_GetTopFuncsCallstacks(t *testing.T) {
	result := NewTopFuncsCalculator().Calculate(twoThreads(t))

	stacks := result.GetTopFuncsCallstacks(1)
	require.Contains(t, stacks, "hot")
	assert.Equal(t, 2, stacks["hot"].Count)
	assert.Equal(t, []string{"main;hot"}, stacks["hot"].CallStacks)

	all := result.GetTopFuncsCallstacks(5)
	assert.Equal(t, []string{"main;hot", "worker;helper;hot"}, all["hot"].CallStacks)
}

func TestTopFuncsCalculator_AliasedSymbolsCountedOnce(t *testing.T) {
	res := buildResult(t, testutil.NewTraceBuilder(t, 0).
		Push("t", 0, "work").
		Push("t", 10, int64(0x10)).
		Pop("t", 60).
		Pop("t", 100).
		Close(100))

	result := NewTopFuncsCalculator(
		WithResolver(symbol.NewMapResolver(map[uint64]string{0x10: "work"})),
	).Calculate(res)

	require.Len(t, result.TopFuncs, 1)
	work := result.TopFuncs[0]
	assert.Equal(t, "work", work.Name)
	assert.Equal(t, int64(100), work.SelfTime)
	assert.Equal(t, int64(100), work.TotalTime)
	assert.Equal(t, int64(2), work.Calls)
	assert.LessOrEqual(t, work.TotalTime, result.TotalTime)
}
