package callgraph

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
)

// Listener is notified after every successful build.
type Listener interface {
	OnComplete(result *Result)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(result *Result)

// OnComplete calls f.
func (f ListenerFunc) OnComplete(result *Result) { f(result) }

// Analysis owns the latest published build of one store. Readers see
// either nil or a complete result.
type Analysis struct {
	builder *Builder
	result  atomic.Pointer[Result]

	mu        sync.Mutex
	listeners map[uint64]Listener
	lastID    uint64
}

// NewAnalysis creates an analysis driven by builder.
func NewAnalysis(builder *Builder) *Analysis {
	return &Analysis{
		builder:   builder,
		listeners: make(map[uint64]Listener),
	}
}

// Run rebuilds the call graph. The previous result is withdrawn first, so a
// failed run leaves nothing published.
func (a *Analysis) Run(ctx context.Context) error {
	a.result.Store(nil)

	res, err := a.builder.Build(ctx)
	if err != nil {
		return err
	}
	a.result.Store(res)

	for _, l := range a.snapshotListeners() {
		l.OnComplete(res)
	}
	return nil
}

// Result returns the published build, or nil.
func (a *Analysis) Result() *Result {
	return a.result.Load()
}

// ThreadNodes returns the per-thread roots of the published build.
func (a *Analysis) ThreadNodes() []*ThreadNode {
	res := a.result.Load()
	if res == nil {
		return nil
	}
	return res.ThreadNodes()
}

// MergedView returns the multi-thread root of the published build, or nil.
func (a *Analysis) MergedView() *ThreadNode {
	res := a.result.Load()
	if res == nil {
		return nil
	}
	return res.MergedView()
}

// AddListener registers l and returns the id to remove it with.
func (a *Analysis) AddListener(l Listener) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.lastID
	a.lastID++
	a.listeners[id] = l
	return id
}

// RemoveListener unregisters a listener. Unknown ids are ignored.
func (a *Analysis) RemoveListener(id uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.listeners, id)
}

// snapshotListeners returns the listeners in registration order.
func (a *Analysis) snapshotListeners() []Listener {
	a.mu.Lock()
	defer a.mu.Unlock()

	ids := make([]uint64, 0, len(a.listeners))
	for id := range a.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]Listener, len(ids))
	for i, id := range ids {
		out[i] = a.listeners[id]
	}
	return out
}
