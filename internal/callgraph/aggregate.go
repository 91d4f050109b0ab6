package callgraph

import (
	"sort"

	"github.com/trace-callgraph/internal/symbol"
)

// AggregatedCallSite merges every invocation of one symbol made from the same
// call site into totals.
type AggregatedCallSite struct {
	Symbol     symbol.Symbol
	Depth      int
	Duration   int64
	SelfTime   int64
	Calls      int64
	MaxDepth   int
	FirstStart int64

	invocations []*CalledFunction
	children    map[string]*AggregatedCallSite
}

// mergeTarget is implemented by call sites and thread roots.
type mergeTarget interface {
	Merge(invocation *CalledFunction, child *AggregatedCallSite)
}

func newAggregatedCallSite(call *CalledFunction) *AggregatedCallSite {
	return &AggregatedCallSite{
		Symbol:      call.Symbol,
		Depth:       call.Depth,
		Duration:    call.Duration(),
		SelfTime:    call.Duration(),
		Calls:       1,
		MaxDepth:    call.Depth,
		FirstStart:  call.Start,
		invocations: []*CalledFunction{call},
		children:    make(map[string]*AggregatedCallSite),
	}
}

// Merge folds child, built from a single callee invocation, into this call
// site. A child with an already known symbol is accumulated into the
// existing entry.
func (a *AggregatedCallSite) Merge(invocation *CalledFunction, child *AggregatedCallSite) {
	a.addChild(child)
	a.SelfTime -= invocation.Duration()
	a.MaxDepth = max(a.MaxDepth, child.MaxDepth)
}

func (a *AggregatedCallSite) addChild(child *AggregatedCallSite) {
	key := child.Symbol.Key()
	if existing, ok := a.children[key]; ok {
		existing.accumulate(child)
		return
	}
	a.children[key] = child
}

// accumulate adds o's totals and subtree into a.
func (a *AggregatedCallSite) accumulate(o *AggregatedCallSite) {
	a.Duration += o.Duration
	a.SelfTime += o.SelfTime
	a.Calls += o.Calls
	a.MaxDepth = max(a.MaxDepth, o.MaxDepth)
	a.FirstStart = min(a.FirstStart, o.FirstStart)
	a.invocations = append(a.invocations, o.invocations...)
	for _, oc := range o.children {
		a.addChild(oc)
	}
}

// Children returns the callees ordered by their earliest invocation.
func (a *AggregatedCallSite) Children() []*AggregatedCallSite {
	out := make([]*AggregatedCallSite, 0, len(a.children))
	for _, c := range a.children {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FirstStart != out[j].FirstStart {
			return out[i].FirstStart < out[j].FirstStart
		}
		return out[i].Symbol.Key() < out[j].Symbol.Key()
	})
	return out
}

// Child returns the callee with the given symbol, if any.
func (a *AggregatedCallSite) Child(sym symbol.Symbol) *AggregatedCallSite {
	return a.children[sym.Key()]
}

// Invocations returns the concrete calls merged into this call site.
func (a *AggregatedCallSite) Invocations() []*CalledFunction {
	return a.invocations
}

// Clone returns a deep copy. Invocations are shared since they are
// immutable once a build completes.
func (a *AggregatedCallSite) Clone() *AggregatedCallSite {
	c := *a
	c.invocations = append([]*CalledFunction(nil), a.invocations...)
	c.children = make(map[string]*AggregatedCallSite, len(a.children))
	for k, child := range a.children {
		c.children[k] = child.Clone()
	}
	return &c
}

// ThreadNode is the virtual root of one thread's aggregated tree. It sits at
// depth -1 and owns every invocation recorded for the thread.
type ThreadNode struct {
	AggregatedCallSite

	ThreadID  int64
	ProcessID int
	Name      string

	arena callArena
	roots []*CalledFunction
}

func newThreadNode(threadID int64, processID int, name string) *ThreadNode {
	return &ThreadNode{
		AggregatedCallSite: AggregatedCallSite{
			Symbol:   symbol.StringSymbol(name),
			Depth:    -1,
			MaxDepth: -1,
			children: make(map[string]*AggregatedCallSite),
		},
		ThreadID:  threadID,
		ProcessID: processID,
		Name:      name,
	}
}

// Merge folds a completed root invocation into the thread.
func (t *ThreadNode) Merge(invocation *CalledFunction, child *AggregatedCallSite) {
	if len(t.children) == 0 {
		t.FirstStart = child.FirstStart
	}
	t.addChild(child)
	t.Duration += invocation.Duration()
	t.MaxDepth = max(t.MaxDepth, child.MaxDepth)
	t.FirstStart = min(t.FirstStart, child.FirstStart)

	i := sort.Search(len(t.roots), func(i int) bool { return t.roots[i].Start > invocation.Start })
	t.roots = append(t.roots, nil)
	copy(t.roots[i+1:], t.roots[i:])
	t.roots[i] = invocation
}

// RootFunctions returns the depth 0 invocations ordered by start time.
func (t *ThreadNode) RootFunctions() []*CalledFunction {
	return t.roots
}

// Calls returns every invocation of the thread in creation order.
func (t *ThreadNode) Calls() []*CalledFunction {
	return t.arena.calls
}

// Call returns the invocation with the given id.
func (t *ThreadNode) Call(id int) *CalledFunction {
	return t.arena.get(id)
}

// Parent returns the caller of f, or nil for a root invocation.
func (t *ThreadNode) Parent(f *CalledFunction) *CalledFunction {
	return t.arena.get(f.ParentID)
}
