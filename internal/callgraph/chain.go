package callgraph

import (
	"github.com/trace-callgraph/internal/symbol"
	apperrors "github.com/trace-callgraph/pkg/errors"
	"github.com/trace-callgraph/pkg/model"
)

// threadStats counts what happened while building one thread.
type threadStats struct {
	Intervals  int
	NullRanges int
	Calls      int
	Orphaned   int
	Adopted    int
	Pending    int
	Duplicates int
}

// levelChain is the per-thread state of a build: one stackLevel per depth,
// addressed by index so a level's parent is depth-1 and its child depth+1.
type levelChain struct {
	thread    *ThreadNode
	processID int
	levels    []*stackLevel
	depthOf   map[model.AttributeID]int
	stats     threadStats
}

func newLevelChain(thread *ThreadNode, processID int, attributes []model.AttributeID) *levelChain {
	c := &levelChain{
		thread:    thread,
		processID: processID,
		levels:    make([]*stackLevel, len(attributes)),
		depthOf:   make(map[model.AttributeID]int, len(attributes)),
	}
	for d, attr := range attributes {
		c.levels[d] = newStackLevel(d, attr)
		c.depthOf[attr] = d
	}
	return c
}

// process routes one interval returned by the range query.
func (c *levelChain) process(iv model.Interval) error {
	c.stats.Intervals++

	d, ok := c.depthOf[iv.Attribute]
	if !ok {
		return apperrors.Newf(apperrors.CodeInvalidInput, "interval for attribute %d outside the call stack", iv.Attribute)
	}
	r, err := model.NewTimeRange(iv.Start, iv.End)
	if err != nil {
		return err
	}
	lvl := c.levels[d]

	if c.isDuplicate(lvl, iv, r) {
		c.stats.Duplicates++
		return nil
	}

	if iv.IsNull() {
		c.stats.NullRanges++
		if err := lvl.markCovered(r); err != nil {
			return err
		}
		return c.cascadeCompletion(d, r)
	}

	if !lvl.free(r) {
		return apperrors.Newf(apperrors.CodeInvalidInput, "interval %s overlaps another at depth %d", r, d)
	}

	parent, ok := c.findResolvableParent(d, r)
	if !ok {
		c.stats.Orphaned++
		return lvl.insert(segment{kind: segmentOrphaned, rng: r, interval: iv})
	}
	if err := c.resolve(d, iv, parent); err != nil {
		return err
	}
	return c.cascadeCompletion(d, r)
}

// isDuplicate reports whether iv was already seen at its level.
func (c *levelChain) isDuplicate(lvl *stackLevel, iv model.Interval, r model.TimeRange) bool {
	if lvl.isCovered(r) {
		return true
	}
	i := lvl.indexAt(r.Start)
	return i >= 0 && lvl.segments[i].rng == r && lvl.segments[i].kind != segmentCovered
}

// findResolvableParent returns the in-progress caller of a call spanning r
// at depth d. Depth 0 always resolves to the thread root.
func (c *levelChain) findResolvableParent(d int, r model.TimeRange) (parentRef, bool) {
	if d == 0 {
		return parentRef{agg: c.thread}, true
	}
	s, ok := c.levels[d-1].pendingIncluding(r)
	if !ok {
		return parentRef{}, false
	}
	return parentRef{call: s.call, agg: s.agg}, true
}

// resolve creates the call for iv under parent, adopts its known callees and
// either finalizes it or leaves it pending at depth d.
func (c *levelChain) resolve(d int, iv model.Interval, parent parentRef) error {
	call, err := c.thread.arena.create(iv.Start, iv.End+1, d, symbol.New(iv.Value), c.processID, parent.id())
	if err != nil {
		return err
	}
	c.stats.Calls++

	agg := newAggregatedCallSite(call)
	r := iv.Range()

	complete, err := c.tryResolveChildrenOf(d, r, call, agg)
	if err != nil {
		return err
	}
	s := segment{kind: segmentPending, rng: r, call: call, agg: agg, parent: parent}
	if complete {
		return c.finalize(d, s)
	}
	c.stats.Pending++
	return c.levels[d].insert(s)
}

// tryResolveChildrenOf adopts every orphan of the child level lying inside
// r, then reports whether the child level fully covers r.
func (c *levelChain) tryResolveChildrenOf(d int, r model.TimeRange, call *CalledFunction, agg *AggregatedCallSite) (bool, error) {
	if d+1 >= len(c.levels) {
		return true, nil
	}
	child := c.levels[d+1]
	for _, orphan := range child.takeOrphansWithin(r) {
		c.stats.Adopted++
		if err := c.resolve(d+1, orphan, parentRef{call: call, agg: agg}); err != nil {
			return false, err
		}
	}
	return child.isCovered(r), nil
}

// finalize attaches a complete call to its caller and marks its range
// covered at depth d.
func (c *levelChain) finalize(d int, s segment) error {
	if s.parent.call != nil {
		if err := s.parent.call.AddChild(s.call); err != nil {
			return err
		}
	}
	s.parent.agg.Merge(s.call, s.agg)

	lvl := c.levels[d]
	lvl.removePending(s.rng)
	return lvl.markCovered(s.rng)
}

// cascadeCompletion finalizes every pending caller at depth d-1 whose range
// became fully covered at depth d, then continues one level up.
func (c *levelChain) cascadeCompletion(d int, r model.TimeRange) error {
	if d == 0 {
		return nil
	}
	for _, s := range c.levels[d-1].pendingOverlapping(r) {
		if !c.levels[d].isCovered(s.rng) {
			continue
		}
		c.stats.Pending--
		if err := c.finalize(d-1, s); err != nil {
			return err
		}
		if err := c.cascadeCompletion(d-1, s.rng); err != nil {
			return err
		}
	}
	return nil
}

// verify checks that every level ends up covering exactly span.
func (c *levelChain) verify(span model.TimeRange) error {
	for d, lvl := range c.levels {
		if left := lvl.unresolved(); len(left) > 0 {
			return apperrors.Newf(apperrors.CodeIncompleteCoverage,
				"depth %d: %d unresolved ranges, first %s %s", d, len(left), left[0].kind, left[0].rng)
		}
		cov := lvl.covered()
		if len(cov) != 1 || cov[0] != span {
			return apperrors.Newf(apperrors.CodeIncompleteCoverage,
				"depth %d: covered %v instead of %s", d, cov, span)
		}
	}
	return nil
}
