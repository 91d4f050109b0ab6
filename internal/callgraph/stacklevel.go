package callgraph

import (
	"sort"

	apperrors "github.com/trace-callgraph/pkg/errors"
	"github.com/trace-callgraph/pkg/model"
)

type segmentKind int

const (
	// segmentCovered is fully resolved: a finished call or a null state.
	segmentCovered segmentKind = iota
	// segmentOrphaned holds a valued interval whose caller is not known yet.
	segmentOrphaned
	// segmentPending holds a call whose callees are not all resolved yet.
	segmentPending
)

func (k segmentKind) String() string {
	switch k {
	case segmentCovered:
		return "covered"
	case segmentOrphaned:
		return "orphaned"
	default:
		return "pending"
	}
}

// parentRef is where a call attaches once complete. A nil call means the
// thread root.
type parentRef struct {
	call *CalledFunction
	agg  mergeTarget
}

func (p parentRef) id() int {
	if p.call == nil {
		return NoParent
	}
	return p.call.ID
}

// segment is one sub-range of a stack level in exactly one state.
type segment struct {
	kind     segmentKind
	rng      model.TimeRange
	interval model.Interval      // orphaned
	call     *CalledFunction     // pending
	agg      *AggregatedCallSite // pending
	parent   parentRef           // pending
}

// stackLevel tracks one (thread, depth) pair as a sorted list of disjoint
// segments. Adjacent covered segments are always merged.
type stackLevel struct {
	depth     int
	attribute model.AttributeID
	segments  []segment
}

func newStackLevel(depth int, attribute model.AttributeID) *stackLevel {
	return &stackLevel{depth: depth, attribute: attribute}
}

// indexAt returns the index of the segment containing t, or -1.
func (l *stackLevel) indexAt(t int64) int {
	i := sort.Search(len(l.segments), func(i int) bool { return l.segments[i].rng.End >= t })
	if i < len(l.segments) && l.segments[i].rng.Start <= t {
		return i
	}
	return -1
}

// free reports whether no segment overlaps r.
func (l *stackLevel) free(r model.TimeRange) bool {
	i := sort.Search(len(l.segments), func(i int) bool { return l.segments[i].rng.End >= r.Start })
	return i == len(l.segments) || l.segments[i].rng.Start > r.End
}

func (l *stackLevel) insert(s segment) error {
	if !l.free(s.rng) {
		return apperrors.Newf(apperrors.CodeInvalidInput,
			"%s range %s overlaps another interval at depth %d", s.kind, s.rng, l.depth)
	}
	i := sort.Search(len(l.segments), func(i int) bool { return l.segments[i].rng.Start > s.rng.Start })
	l.segments = append(l.segments, segment{})
	copy(l.segments[i+1:], l.segments[i:])
	l.segments[i] = s
	return nil
}

func (l *stackLevel) removeAt(i int) segment {
	s := l.segments[i]
	l.segments = append(l.segments[:i], l.segments[i+1:]...)
	return s
}

// markCovered records r as resolved, merging it with every covered segment
// it overlaps or touches. r must not overlap an orphaned or pending segment.
func (l *stackLevel) markCovered(r model.TimeRange) error {
	lo := sort.Search(len(l.segments), func(i int) bool { return l.segments[i].rng.End+1 >= r.Start })
	hi := lo
	merged := r
	var before, after []segment
	for ; hi < len(l.segments) && l.segments[hi].rng.Start <= r.End+1; hi++ {
		s := l.segments[hi]
		switch {
		case s.kind == segmentCovered:
			merged, _ = merged.Union(s.rng)
		case s.rng.Overlaps(r):
			return apperrors.Newf(apperrors.CodeInvalidInput,
				"range %s overlaps %s range %s at depth %d", r, s.kind, s.rng, l.depth)
		case s.rng.End < r.Start:
			before = append(before, s)
		default:
			after = append(after, s)
		}
	}

	window := make([]segment, 0, len(before)+1+len(after))
	window = append(window, before...)
	window = append(window, segment{kind: segmentCovered, rng: merged})
	window = append(window, after...)

	rest := append([]segment(nil), l.segments[hi:]...)
	l.segments = append(append(l.segments[:lo], window...), rest...)
	return nil
}

// isCovered reports whether a single covered segment includes r.
func (l *stackLevel) isCovered(r model.TimeRange) bool {
	i := l.indexAt(r.Start)
	return i >= 0 && l.segments[i].kind == segmentCovered && l.segments[i].rng.Includes(r)
}

// pendingIncluding returns the pending segment whose range includes r.
func (l *stackLevel) pendingIncluding(r model.TimeRange) (segment, bool) {
	i := l.indexAt(r.Start)
	if i < 0 || l.segments[i].kind != segmentPending || !l.segments[i].rng.Includes(r) {
		return segment{}, false
	}
	return l.segments[i], true
}

// pendingOverlapping returns copies of the pending segments overlapping r.
func (l *stackLevel) pendingOverlapping(r model.TimeRange) []segment {
	var out []segment
	i := sort.Search(len(l.segments), func(i int) bool { return l.segments[i].rng.End >= r.Start })
	for ; i < len(l.segments) && l.segments[i].rng.Start <= r.End; i++ {
		if l.segments[i].kind == segmentPending {
			out = append(out, l.segments[i])
		}
	}
	return out
}

// takeOrphansWithin removes and returns the orphaned intervals inside r.
func (l *stackLevel) takeOrphansWithin(r model.TimeRange) []model.Interval {
	var out []model.Interval
	i := sort.Search(len(l.segments), func(i int) bool { return l.segments[i].rng.End >= r.Start })
	for i < len(l.segments) && l.segments[i].rng.Start <= r.End {
		s := l.segments[i]
		if s.kind == segmentOrphaned && r.Includes(s.rng) {
			out = append(out, l.removeAt(i).interval)
			continue
		}
		i++
	}
	return out
}

// removePending drops the pending segment spanning exactly r.
func (l *stackLevel) removePending(r model.TimeRange) bool {
	i := l.indexAt(r.Start)
	if i < 0 || l.segments[i].kind != segmentPending || l.segments[i].rng != r {
		return false
	}
	l.removeAt(i)
	return true
}

// covered returns the covered ranges in time order.
func (l *stackLevel) covered() []model.TimeRange {
	var out []model.TimeRange
	for _, s := range l.segments {
		if s.kind == segmentCovered {
			out = append(out, s.rng)
		}
	}
	return out
}

// unresolved returns the segments that are not covered.
func (l *stackLevel) unresolved() []segment {
	var out []segment
	for _, s := range l.segments {
		if s.kind != segmentCovered {
			out = append(out, s)
		}
	}
	return out
}
