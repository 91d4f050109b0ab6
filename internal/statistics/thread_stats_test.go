package statistics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThreadStatsCalculator_Calculate(t *testing.T) {
	result := NewThreadStatsCalculator().Calculate(twoThreads(t))

	require.NotNil(t, result)
	assert.Equal(t, int64(150), result.TotalDuration)
	require.Len(t, result.Threads, 2)

	first := result.Threads[0]
	assert.Equal(t, "t1", first.ThreadName)
	assert.Equal(t, int64(11), first.TID)
	assert.Equal(t, int64(100), first.Duration)
	assert.Equal(t, 3, first.Invocations)
	assert.Equal(t, 1, first.RootCalls)
	assert.Equal(t, 1, first.MaxDepth)
	assert.InDelta(t, 66.67, first.Percentage, 0.01)

	second := result.Threads[1]
	assert.Equal(t, "t2", second.ThreadName)
	assert.Equal(t, int64(22), second.TID)
	assert.Equal(t, 2, second.MaxDepth)
	assert.InDelta(t, 33.33, second.Percentage, 0.01)
}

func TestThreadStatsCalculator_MaxThreads(t *testing.T) {
	result := NewThreadStatsCalculator(WithMaxThreads(1)).Calculate(twoThreads(t))

	require.Len(t, result.Threads, 1)
	assert.Equal(t, "t1", result.Threads[0].ThreadName)
	assert.Equal(t, int64(150), result.TotalDuration)
}

func TestThreadStatsCalculator_NilResult(t *testing.T) {
	result := NewThreadStatsCalculator().Calculate(nil)

	require.NotNil(t, result)
	assert.Empty(t, result.Threads)
}

func TestThreadStatsResult_Lookup(t *testing.T) {
	result := NewThreadStatsCalculator().Calculate(twoThreads(t))

	require.NotNil(t, result.GetThreadByTID(22))
	assert.Equal(t, "t2", result.GetThreadByTID(22).ThreadName)
	assert.Nil(t, result.GetThreadByTID(99))

	require.NotNil(t, result.GetThreadByName("t1"))
	assert.Equal(t, int64(11), result.GetThreadByName("t1").TID)
	assert.Nil(t, result.GetThreadByName("missing"))
}
