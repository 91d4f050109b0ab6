// Package model holds the value types shared by the interval store and the
// call-graph builder.
package model

import (
	"fmt"

	apperrors "github.com/trace-callgraph/pkg/errors"
)

// TimeRange is a closed [Start, End] interval of trace time.
type TimeRange struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// NewTimeRange returns the range [start, end] or an invalid interval error
// when start is after end.
func NewTimeRange(start, end int64) (TimeRange, error) {
	if start > end {
		return TimeRange{}, apperrors.Newf(apperrors.CodeInvalidInterval,
			"start %d is after end %d", start, end)
	}
	return TimeRange{Start: start, End: end}, nil
}

// Overlaps reports whether the two ranges share at least one instant.
func (r TimeRange) Overlaps(o TimeRange) bool {
	return r.Start <= o.End && o.Start <= r.End
}

// OverlapsOrContiguous reports whether the ranges overlap or touch with no
// instant between them.
func (r TimeRange) OverlapsOrContiguous(o TimeRange) bool {
	return r.Start <= o.End+1 && o.Start <= r.End+1
}

// Includes reports whether o lies entirely within r.
func (r TimeRange) Includes(o TimeRange) bool {
	return r.Start <= o.Start && o.End <= r.End
}

// IncludesTime reports whether t lies within r.
func (r TimeRange) IncludesTime(t int64) bool {
	return r.Start <= t && t <= r.End
}

// Intersection returns the common part of both ranges, if any.
func (r TimeRange) Intersection(o TimeRange) (TimeRange, bool) {
	if !r.Overlaps(o) {
		return TimeRange{}, false
	}
	return TimeRange{Start: max(r.Start, o.Start), End: min(r.End, o.End)}, true
}

// Union merges two overlapping or contiguous ranges. Disjoint inputs are
// refused: r is returned unchanged with ok false.
func (r TimeRange) Union(o TimeRange) (u TimeRange, ok bool) {
	if !r.OverlapsOrContiguous(o) {
		return r, false
	}
	return TimeRange{Start: min(r.Start, o.Start), End: max(r.End, o.End)}, true
}

// Length is the number of instants in the range.
func (r TimeRange) Length() int64 {
	return r.End - r.Start + 1
}

func (r TimeRange) String() string {
	return fmt.Sprintf("[%d, %d]", r.Start, r.End)
}
