// Package callgraph reconstructs per-invocation call trees and aggregated
// call graphs from the call stack levels of an interval store.
package callgraph

import (
	"sort"

	"github.com/trace-callgraph/internal/symbol"
	apperrors "github.com/trace-callgraph/pkg/errors"
)

// NoParent is the ParentID of a root invocation.
const NoParent = -1

// CalledFunction is one concrete invocation. End is exclusive.
type CalledFunction struct {
	ID        int           `json:"id"`
	ParentID  int           `json:"parentId"`
	Start     int64         `json:"start"`
	End       int64         `json:"end"`
	Depth     int           `json:"depth"`
	ProcessID int           `json:"processId"`
	SelfTime  int64         `json:"selfTime"`
	Symbol    symbol.Symbol `json:"-"`

	children []*CalledFunction
}

// newCalledFunction creates an invocation spanning [start, end).
func newCalledFunction(id int, start, end int64, depth int, sym symbol.Symbol, processID, parentID int) (*CalledFunction, error) {
	if start > end {
		return nil, apperrors.Newf(apperrors.CodeInvalidInterval,
			"call %s starts at %d after its end %d", sym, start, end)
	}
	return &CalledFunction{
		ID:        id,
		ParentID:  parentID,
		Start:     start,
		End:       end,
		Depth:     depth,
		ProcessID: processID,
		SelfTime:  end - start,
		Symbol:    sym,
	}, nil
}

// Duration returns End - Start.
func (f *CalledFunction) Duration() int64 {
	return f.End - f.Start
}

// Children returns the callees ordered by start time.
func (f *CalledFunction) Children() []*CalledFunction {
	return f.children
}

// AddChild attaches a callee recorded with f as its parent and removes its
// duration from f's self time.
func (f *CalledFunction) AddChild(child *CalledFunction) error {
	if child.ParentID != f.ID {
		return apperrors.Newf(apperrors.CodeParentMismatch,
			"call %d has parent %d, not %d", child.ID, child.ParentID, f.ID)
	}
	if child.Duration() > f.SelfTime {
		return apperrors.Newf(apperrors.CodeInvalidInterval,
			"callee %d [%d, %d) does not fit in caller %d", child.ID, child.Start, child.End, f.ID)
	}

	i := sort.Search(len(f.children), func(i int) bool { return f.children[i].Start > child.Start })
	f.children = append(f.children, nil)
	copy(f.children[i+1:], f.children[i:])
	f.children[i] = child
	f.SelfTime -= child.Duration()
	return nil
}

// callArena owns every invocation of one thread. Parent links are indices
// into it.
type callArena struct {
	calls []*CalledFunction
}

func (a *callArena) create(start, end int64, depth int, sym symbol.Symbol, processID, parentID int) (*CalledFunction, error) {
	f, err := newCalledFunction(len(a.calls), start, end, depth, sym, processID, parentID)
	if err != nil {
		return nil, err
	}
	a.calls = append(a.calls, f)
	return f, nil
}

func (a *callArena) get(id int) *CalledFunction {
	if id < 0 || id >= len(a.calls) {
		return nil
	}
	return a.calls[id]
}
