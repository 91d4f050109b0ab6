package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trace-callgraph/internal/intervalstore"
	"github.com/trace-callgraph/pkg/model"
)

// ProcessesAttribute is the attribute every TraceBuilder thread lives under.
const ProcessesAttribute = "Processes"

// TraceBuilder records thread call stacks into a MemoryStore laid out as
// Processes/<thread>/CallStack/<depth>.
type TraceBuilder struct {
	t      *testing.T
	store  *intervalstore.MemoryStore
	stacks map[string]model.AttributeID
}

// NewTraceBuilder starts an empty history at start.
func NewTraceBuilder(t *testing.T, start int64) *TraceBuilder {
	t.Helper()
	return &TraceBuilder{
		t:      t,
		store:  intervalstore.NewMemoryStore(start),
		stacks: make(map[string]model.AttributeID),
	}
}

// Thread declares a thread. A non-nil value becomes the thread attribute's
// state from the history start.
func (b *TraceBuilder) Thread(name string, value any) *TraceBuilder {
	b.t.Helper()
	thread := b.store.AttributeAndAdd(model.RootAttribute, ProcessesAttribute, name)
	if value != nil {
		require.NoError(b.t, b.store.UpdateOngoingState(value, thread))
	}
	b.stacks[name] = b.store.AttributeAndAdd(thread, "CallStack")
	return b
}

// Push enters value on the thread's stack at time at.
func (b *TraceBuilder) Push(thread string, at int64, value any) *TraceBuilder {
	b.t.Helper()
	require.NoError(b.t, b.store.PushAttribute(at, value, b.stack(thread)))
	return b
}

// Pop leaves the top of the thread's stack at time at.
func (b *TraceBuilder) Pop(thread string, at int64) *TraceBuilder {
	b.t.Helper()
	require.NoError(b.t, b.store.PopAttribute(at, b.stack(thread)))
	return b
}

// Store returns the store being built.
func (b *TraceBuilder) Store() *intervalstore.MemoryStore {
	return b.store
}

// Close ends the history at end and returns the queryable store.
func (b *TraceBuilder) Close(end int64) *intervalstore.MemoryStore {
	b.t.Helper()
	require.NoError(b.t, b.store.CloseHistory(end))
	return b.store
}

func (b *TraceBuilder) stack(thread string) model.AttributeID {
	b.t.Helper()
	id, ok := b.stacks[thread]
	if !ok {
		b.Thread(thread, nil)
		id = b.stacks[thread]
	}
	return id
}
