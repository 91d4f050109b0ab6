package intervalstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/trace-callgraph/pkg/errors"
	"github.com/trace-callgraph/pkg/model"
)

// newStackStore builds Processes/Thread/CallStack with main [0,99] and
// foo [10,39] on a [0,102] history.
func newStackStore(t *testing.T) (*MemoryStore, model.AttributeID) {
	t.Helper()

	s := NewMemoryStore(0)
	thread := s.AttributeAndAdd(model.RootAttribute, "Processes", "Thread")
	stack := s.AttributeAndAdd(thread, "CallStack")
	require.NoError(t, s.UpdateOngoingState(int64(42), thread))

	require.NoError(t, s.PushAttribute(0, "main", stack))
	require.NoError(t, s.PushAttribute(10, "foo", stack))
	require.NoError(t, s.PopAttribute(40, stack))
	require.NoError(t, s.PopAttribute(100, stack))
	require.NoError(t, s.CloseHistory(102))
	return s, stack
}

func TestMemoryStore_Attributes(t *testing.T) {
	s, stack := newStackStore(t)

	procs := s.AttributesMatching(model.RootAttribute, "Processes")
	require.Len(t, procs, 1)
	assert.Equal(t, "Processes", s.AttributeName(procs[0]))

	threads := s.AttributesMatching(procs[0], Wildcard)
	require.Len(t, threads, 1)
	assert.Equal(t, "Thread", s.AttributeName(threads[0]))

	got, err := s.AttributeRelative(threads[0], "CallStack")
	require.NoError(t, err)
	assert.Equal(t, stack, got)

	levels, err := s.SubAttributes(stack)
	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.Equal(t, "1", s.AttributeName(levels[0]))
	assert.Equal(t, "2", s.AttributeName(levels[1]))
	assert.Equal(t, stack, s.Parent(levels[0]))

	assert.Equal(t, []model.AttributeID{model.RootAttribute}, s.AttributesMatching(model.RootAttribute))
	assert.Empty(t, s.AttributesMatching(model.RootAttribute, "Nope", Wildcard))

	_, err = s.AttributeRelative(threads[0], "Missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMemoryStore_Partition(t *testing.T) {
	s, stack := newStackStore(t)
	levels, err := s.SubAttributes(stack)
	require.NoError(t, err)

	depth1 := s.Intervals(levels[1])
	require.Len(t, depth1, 3)
	assert.Equal(t, model.Interval{Attribute: levels[1], Start: 0, End: 9}, depth1[0])
	assert.Equal(t, model.Interval{Attribute: levels[1], Start: 10, End: 39, Value: "foo"}, depth1[1])
	assert.Equal(t, model.Interval{Attribute: levels[1], Start: 40, End: 102}, depth1[2])

	for _, id := range levels {
		ivs := s.Intervals(id)
		assert.Equal(t, int64(0), ivs[0].Start)
		assert.Equal(t, int64(102), ivs[len(ivs)-1].End)
		for i := 1; i < len(ivs); i++ {
			assert.Equal(t, ivs[i-1].End+1, ivs[i].Start)
		}
	}
}

func TestMemoryStore_QuerySingle(t *testing.T) {
	s, stack := newStackStore(t)
	ctx := context.Background()
	levels, _ := s.SubAttributes(stack)

	iv, err := s.QuerySingle(ctx, 50, levels[0])
	require.NoError(t, err)
	assert.Equal(t, "main", iv.Value)
	assert.Equal(t, model.TimeRange{Start: 0, End: 99}, iv.Range())

	thread := s.Parent(stack)
	iv, err = s.QuerySingle(ctx, 0, thread)
	require.NoError(t, err)
	assert.Equal(t, int64(42), iv.Value)

	_, err = s.QuerySingle(ctx, 500, levels[0])
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMemoryStore_Query2D(t *testing.T) {
	s, stack := newStackStore(t)
	levels, _ := s.SubAttributes(stack)

	ivs, err := s.Query2D(context.Background(), levels, s.TimeSpan())
	require.NoError(t, err)
	require.Len(t, ivs, 5)
	for i := 1; i < len(ivs); i++ {
		assert.GreaterOrEqual(t, ivs[i-1].End, ivs[i].End)
	}

	ivs, err = s.Query2D(context.Background(), levels, model.TimeRange{Start: 20, End: 30})
	require.NoError(t, err)
	require.Len(t, ivs, 2)
}

func TestMemoryStore_Failures(t *testing.T) {
	t.Run("not closed", func(t *testing.T) {
		s := NewMemoryStore(0)
		id := s.AttributeAndAdd(model.RootAttribute, "a")
		_, err := s.Query2D(context.Background(), []model.AttributeID{id}, model.TimeRange{Start: 0, End: 1})
		assert.True(t, apperrors.IsStoreUnavailable(err))
	})

	t.Run("disposed", func(t *testing.T) {
		s, stack := newStackStore(t)
		s.Dispose()
		_, err := s.Query2D(context.Background(), []model.AttributeID{stack}, s.TimeSpan())
		assert.True(t, apperrors.IsStoreUnavailable(err))
		_, err = s.QuerySingle(context.Background(), 0, stack)
		assert.True(t, apperrors.IsStoreUnavailable(err))
	})

	t.Run("cancelled", func(t *testing.T) {
		s, stack := newStackStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := s.Query2D(ctx, []model.AttributeID{stack}, s.TimeSpan())
		assert.True(t, apperrors.IsCancelled(err))
	})

	t.Run("modify in the past", func(t *testing.T) {
		s := NewMemoryStore(0)
		id := s.AttributeAndAdd(model.RootAttribute, "a")
		require.NoError(t, s.ModifyAttribute(10, "x", id))
		err := s.ModifyAttribute(5, "y", id)
		assert.True(t, apperrors.IsInvalidInterval(err))
	})

	t.Run("pop empty stack", func(t *testing.T) {
		s := NewMemoryStore(0)
		id := s.AttributeAndAdd(model.RootAttribute, "stack")
		assert.Error(t, s.PopAttribute(3, id))
	})

	t.Run("close before last change", func(t *testing.T) {
		s := NewMemoryStore(0)
		id := s.AttributeAndAdd(model.RootAttribute, "a")
		require.NoError(t, s.ModifyAttribute(10, "x", id))
		assert.Error(t, s.CloseHistory(5))
	})

	t.Run("modify after close", func(t *testing.T) {
		s, stack := newStackStore(t)
		assert.Error(t, s.ModifyAttribute(200, "x", stack))
	})
}

func TestMemoryStore_ModifySameInstantReplaces(t *testing.T) {
	s := NewMemoryStore(0)
	id := s.AttributeAndAdd(model.RootAttribute, "a")
	require.NoError(t, s.ModifyAttribute(5, "x", id))
	require.NoError(t, s.ModifyAttribute(5, "y", id))
	require.NoError(t, s.CloseHistory(9))

	ivs := s.Intervals(id)
	require.Len(t, ivs, 2)
	assert.Equal(t, "y", ivs[1].Value)
}
