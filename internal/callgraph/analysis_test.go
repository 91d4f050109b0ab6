package callgraph

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/trace-callgraph/pkg/errors"
)

type recordingListener struct {
	mu      sync.Mutex
	results []*Result
}

func (l *recordingListener) OnComplete(result *Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = append(l.results, result)
}

func TestAnalysis_PublishesAfterBuild(t *testing.T) {
	a := NewAnalysis(NewBuilder(mainCallsFoo(t), testOptions()))
	assert.Nil(t, a.Result())
	assert.Nil(t, a.ThreadNodes())
	assert.Nil(t, a.MergedView())

	listener := &recordingListener{}
	a.AddListener(listener)

	require.NoError(t, a.Run(context.Background()))

	res := a.Result()
	require.NotNil(t, res)
	assert.NotEmpty(t, res.BuildID)
	assert.Len(t, a.ThreadNodes(), 1)
	assert.Equal(t, int64(100), a.MergedView().Duration)

	require.Len(t, listener.results, 1)
	assert.Same(t, res, listener.results[0])
}

func TestAnalysis_FailedRunPublishesNothing(t *testing.T) {
	store := mainCallsFoo(t)
	a := NewAnalysis(NewBuilder(store, testOptions()))
	require.NoError(t, a.Run(context.Background()))
	require.NotNil(t, a.Result())

	listener := &recordingListener{}
	a.AddListener(listener)

	store.Dispose()
	err := a.Run(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsStoreUnavailable(err))
	assert.Nil(t, a.Result())
	assert.Empty(t, listener.results)
}

func TestAnalysis_RemoveListener(t *testing.T) {
	a := NewAnalysis(NewBuilder(mainCallsFoo(t), testOptions()))

	var calls []string
	first := a.AddListener(ListenerFunc(func(*Result) { calls = append(calls, "first") }))
	a.AddListener(ListenerFunc(func(*Result) { calls = append(calls, "second") }))

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, []string{"first", "second"}, calls)

	a.RemoveListener(first)
	a.RemoveListener(12345)
	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, []string{"first", "second", "second"}, calls)
}

func TestAnalysis_RerunBuildsFreshResult(t *testing.T) {
	a := NewAnalysis(NewBuilder(mainCallsFoo(t), testOptions()))

	require.NoError(t, a.Run(context.Background()))
	first := a.Result()
	require.NoError(t, a.Run(context.Background()))
	second := a.Result()

	assert.NotSame(t, first, second)
	assert.NotEqual(t, first.BuildID, second.BuildID)
	assert.Equal(t, summarize(&first.Threads[0].AggregatedCallSite), summarize(&second.Threads[0].AggregatedCallSite))
}
