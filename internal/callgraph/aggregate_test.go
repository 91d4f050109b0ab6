package callgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trace-callgraph/internal/symbol"
)

func mustCall(t *testing.T, arena *callArena, start, end int64, depth int, name string, parent int) *CalledFunction {
	t.Helper()
	f, err := arena.create(start, end, depth, symbol.StringSymbol(name), -1, parent)
	require.NoError(t, err)
	return f
}

func TestAggregatedCallSite_MergeAccumulates(t *testing.T) {
	var arena callArena
	main := mustCall(t, &arena, 0, 100, 0, "main", NoParent)
	foo1 := mustCall(t, &arena, 10, 40, 1, "foo", main.ID)
	foo2 := mustCall(t, &arena, 50, 70, 1, "foo", main.ID)

	agg := newAggregatedCallSite(main)
	agg.Merge(foo1, newAggregatedCallSite(foo1))
	agg.Merge(foo2, newAggregatedCallSite(foo2))

	assert.Equal(t, int64(100), agg.Duration)
	assert.Equal(t, int64(50), agg.SelfTime)
	assert.Equal(t, 1, agg.MaxDepth)

	require.Len(t, agg.Children(), 1)
	foo := agg.Child(symbol.StringSymbol("foo"))
	require.NotNil(t, foo)
	assert.Equal(t, int64(2), foo.Calls)
	assert.Equal(t, int64(50), foo.Duration)
	assert.Equal(t, int64(50), foo.SelfTime)
	assert.Equal(t, int64(10), foo.FirstStart)
	assert.Len(t, foo.Invocations(), 2)
}

func TestAggregatedCallSite_AccumulateMergesSubtrees(t *testing.T) {
	var arena callArena
	main := mustCall(t, &arena, 0, 100, 0, "main", NoParent)
	a1 := mustCall(t, &arena, 0, 40, 1, "a", main.ID)
	b1 := mustCall(t, &arena, 0, 10, 2, "b", a1.ID)
	a2 := mustCall(t, &arena, 50, 90, 1, "a", main.ID)
	b2 := mustCall(t, &arena, 50, 70, 2, "b", a2.ID)

	agg1 := newAggregatedCallSite(a1)
	agg1.Merge(b1, newAggregatedCallSite(b1))
	agg2 := newAggregatedCallSite(a2)
	agg2.Merge(b2, newAggregatedCallSite(b2))

	root := newAggregatedCallSite(main)
	root.Merge(a1, agg1)
	root.Merge(a2, agg2)

	a := root.Child(symbol.StringSymbol("a"))
	require.NotNil(t, a)
	assert.Equal(t, int64(80), a.Duration)
	assert.Equal(t, int64(50), a.SelfTime)
	assert.Equal(t, 2, a.MaxDepth)

	b := a.Child(symbol.StringSymbol("b"))
	require.NotNil(t, b)
	assert.Equal(t, int64(2), b.Calls)
	assert.Equal(t, int64(30), b.Duration)
	assert.Equal(t, int64(20), root.SelfTime)
}

func TestAggregatedCallSite_ChildrenOrder(t *testing.T) {
	var arena callArena
	main := mustCall(t, &arena, 0, 100, 0, "main", NoParent)
	late := mustCall(t, &arena, 60, 70, 1, "late", main.ID)
	early := mustCall(t, &arena, 10, 20, 1, "early", main.ID)

	agg := newAggregatedCallSite(main)
	agg.Merge(late, newAggregatedCallSite(late))
	agg.Merge(early, newAggregatedCallSite(early))

	children := agg.Children()
	require.Len(t, children, 2)
	assert.Equal(t, "early", children[0].Symbol.String())
	assert.Equal(t, "late", children[1].Symbol.String())
}

func TestAggregatedCallSite_Clone(t *testing.T) {
	var arena callArena
	main := mustCall(t, &arena, 0, 100, 0, "main", NoParent)
	foo := mustCall(t, &arena, 10, 40, 1, "foo", main.ID)

	agg := newAggregatedCallSite(main)
	agg.Merge(foo, newAggregatedCallSite(foo))

	clone := agg.Clone()
	clone.accumulate(agg.Clone())

	assert.Equal(t, int64(100), agg.Duration)
	assert.Equal(t, int64(1), agg.Child(symbol.StringSymbol("foo")).Calls)
	assert.Equal(t, int64(200), clone.Duration)
	assert.Equal(t, int64(2), clone.Child(symbol.StringSymbol("foo")).Calls)
}

func TestThreadNode_Merge(t *testing.T) {
	thread := newThreadNode(42, 7, "worker")
	assert.Equal(t, -1, thread.Depth)

	first := mustCall(t, &thread.arena, 50, 80, 0, "b", NoParent)
	second := mustCall(t, &thread.arena, 0, 20, 0, "a", NoParent)

	thread.Merge(first, newAggregatedCallSite(first))
	thread.Merge(second, newAggregatedCallSite(second))

	assert.Equal(t, int64(50), thread.Duration)
	assert.Equal(t, int64(0), thread.SelfTime)
	assert.Equal(t, int64(0), thread.FirstStart)
	assert.Equal(t, 0, thread.MaxDepth)

	roots := thread.RootFunctions()
	require.Len(t, roots, 2)
	assert.Same(t, second, roots[0])
	assert.Same(t, first, roots[1])
	assert.Len(t, thread.Calls(), 2)
	assert.Same(t, first, thread.Call(first.ID))
	assert.Nil(t, thread.Parent(first))
}
