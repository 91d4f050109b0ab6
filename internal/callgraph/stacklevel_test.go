package callgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/trace-callgraph/pkg/errors"
	"github.com/trace-callgraph/pkg/model"
)

func rng(start, end int64) model.TimeRange {
	return model.TimeRange{Start: start, End: end}
}

func TestStackLevel_MarkCoveredMerges(t *testing.T) {
	l := newStackLevel(0, 1)

	require.NoError(t, l.markCovered(rng(20, 29)))
	require.NoError(t, l.markCovered(rng(0, 9)))
	assert.Equal(t, []model.TimeRange{rng(0, 9), rng(20, 29)}, l.covered())

	require.NoError(t, l.markCovered(rng(10, 19)))
	assert.Equal(t, []model.TimeRange{rng(0, 29)}, l.covered())

	require.NoError(t, l.markCovered(rng(25, 40)))
	assert.Equal(t, []model.TimeRange{rng(0, 40)}, l.covered())
	assert.True(t, l.isCovered(rng(5, 35)))
	assert.False(t, l.isCovered(rng(5, 41)))
}

func TestStackLevel_MarkCoveredKeepsNeighbours(t *testing.T) {
	l := newStackLevel(1, 2)
	require.NoError(t, l.insert(segment{kind: segmentOrphaned, rng: rng(0, 9)}))
	require.NoError(t, l.insert(segment{kind: segmentPending, rng: rng(20, 29)}))

	require.NoError(t, l.markCovered(rng(10, 19)))

	require.Len(t, l.segments, 3)
	assert.Equal(t, segmentOrphaned, l.segments[0].kind)
	assert.Equal(t, segmentCovered, l.segments[1].kind)
	assert.Equal(t, segmentPending, l.segments[2].kind)
	assert.Len(t, l.unresolved(), 2)
}

func TestStackLevel_MarkCoveredRejectsOverlap(t *testing.T) {
	l := newStackLevel(1, 2)
	require.NoError(t, l.insert(segment{kind: segmentOrphaned, rng: rng(10, 19)}))

	err := l.markCovered(rng(15, 25))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetErrorCode(err))
}

func TestStackLevel_InsertRejectsOverlap(t *testing.T) {
	l := newStackLevel(0, 1)
	require.NoError(t, l.markCovered(rng(0, 9)))

	assert.Error(t, l.insert(segment{kind: segmentOrphaned, rng: rng(9, 12)}))
	assert.NoError(t, l.insert(segment{kind: segmentOrphaned, rng: rng(10, 12)}))
	assert.False(t, l.free(rng(11, 11)))
	assert.True(t, l.free(rng(13, 20)))
}

func TestStackLevel_TakeOrphansWithin(t *testing.T) {
	l := newStackLevel(1, 2)
	for _, r := range []model.TimeRange{rng(0, 4), rng(10, 14), rng(20, 24), rng(30, 34)} {
		require.NoError(t, l.insert(segment{
			kind:     segmentOrphaned,
			rng:      r,
			interval: model.Interval{Start: r.Start, End: r.End, Value: "x"},
		}))
	}

	got := l.takeOrphansWithin(rng(8, 26))
	require.Len(t, got, 2)
	assert.Equal(t, int64(10), got[0].Start)
	assert.Equal(t, int64(20), got[1].Start)
	assert.Len(t, l.segments, 2)
}

func TestStackLevel_Pending(t *testing.T) {
	l := newStackLevel(0, 1)
	require.NoError(t, l.insert(segment{kind: segmentPending, rng: rng(0, 99)}))
	require.NoError(t, l.insert(segment{kind: segmentPending, rng: rng(100, 149)}))

	s, ok := l.pendingIncluding(rng(10, 20))
	require.True(t, ok)
	assert.Equal(t, rng(0, 99), s.rng)

	_, ok = l.pendingIncluding(rng(90, 110))
	assert.False(t, ok)

	assert.Len(t, l.pendingOverlapping(rng(90, 110)), 2)

	assert.False(t, l.removePending(rng(0, 50)))
	assert.True(t, l.removePending(rng(0, 99)))
	assert.Len(t, l.segments, 1)
}
