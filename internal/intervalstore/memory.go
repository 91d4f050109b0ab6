package intervalstore

import (
	"context"
	"sort"
	"strconv"
	"sync"

	apperrors "github.com/trace-callgraph/pkg/errors"
	"github.com/trace-callgraph/pkg/model"
)

// attributeHistory is the timeline of one attribute: closed intervals plus
// the ongoing state that has not been closed yet.
type attributeHistory struct {
	intervals    []model.Interval
	ongoingStart int64
	ongoing      any
}

// MemoryStore keeps a whole state history in memory. It is built with the
// Modify/Push/Pop methods and becomes queryable once CloseHistory is called.
type MemoryStore struct {
	mu       sync.RWMutex
	tree     attributeTree
	history  []*attributeHistory
	start    int64
	end      int64
	closed   bool
	disposed bool
}

// NewMemoryStore creates an empty history starting at start.
func NewMemoryStore(start int64) *MemoryStore {
	return &MemoryStore{start: start, end: start}
}

// AttributeAndAdd resolves path relative to parent, creating missing
// attributes. New attributes start with a null state at the history start.
func (s *MemoryStore) AttributeAndAdd(parent model.AttributeID, path ...string) model.AttributeID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.tree.addPath(parent, path...)
	for len(s.history) < len(s.tree.nodes) {
		s.history = append(s.history, &attributeHistory{ongoingStart: s.start})
	}
	return id
}

// ModifyAttribute closes the ongoing state of id at t-1 and starts value at t.
func (s *MemoryStore) ModifyAttribute(t int64, value any, id model.AttributeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modify(t, value, id)
}

func (s *MemoryStore) modify(t int64, value any, id model.AttributeID) error {
	h, err := s.historyOf(id)
	if err != nil {
		return err
	}
	if s.closed {
		return apperrors.New(apperrors.CodeInvalidInput, "history is closed")
	}
	if t < h.ongoingStart {
		return apperrors.Newf(apperrors.CodeInvalidInterval,
			"attribute %d modified at %d before its ongoing state at %d", id, t, h.ongoingStart)
	}
	if t > h.ongoingStart {
		h.intervals = append(h.intervals, model.Interval{
			Attribute: id,
			Start:     h.ongoingStart,
			End:       t - 1,
			Value:     h.ongoing,
		})
		h.ongoingStart = t
	}
	h.ongoing = value
	if t > s.end {
		s.end = t
	}
	return nil
}

// UpdateOngoingState replaces the ongoing value of id without closing it.
func (s *MemoryStore) UpdateOngoingState(value any, id model.AttributeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.historyOf(id)
	if err != nil {
		return err
	}
	h.ongoing = value
	return nil
}

// PushAttribute pushes value on the call stack rooted at id. The stack
// depth is kept as id's own value and each depth gets a sub-attribute named
// after it ("1", "2", ...).
func (s *MemoryStore) PushAttribute(t int64, value any, id model.AttributeID) error {
	s.mu.Lock()
	h, err := s.historyOf(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	depth, _ := model.IntegerValue(h.ongoing)
	s.mu.Unlock()

	sub := s.AttributeAndAdd(id, strconv.FormatInt(depth+1, 10))

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.modify(t, depth+1, id); err != nil {
		return err
	}
	return s.modify(t, value, sub)
}

// PopAttribute pops the top of the call stack rooted at id.
func (s *MemoryStore) PopAttribute(t int64, id model.AttributeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.historyOf(id)
	if err != nil {
		return err
	}
	depth, ok := model.IntegerValue(h.ongoing)
	if !ok || depth <= 0 {
		return apperrors.Newf(apperrors.CodeInvalidInput, "pop on empty stack %d", id)
	}
	sub, ok := s.tree.child(id, strconv.FormatInt(depth, 10))
	if !ok {
		return apperrors.Newf(apperrors.CodeNotFound, "stack level %d of %d", depth, id)
	}
	if err := s.modify(t, nil, sub); err != nil {
		return err
	}
	var next any
	if depth > 1 {
		next = depth - 1
	}
	return s.modify(t, next, id)
}

// CloseHistory closes every ongoing state at end and makes the store
// queryable.
func (s *MemoryStore) CloseHistory(end int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if end < s.end {
		return apperrors.Newf(apperrors.CodeInvalidInterval,
			"history closed at %d before last change at %d", end, s.end)
	}
	for id, h := range s.history {
		h.intervals = append(h.intervals, model.Interval{
			Attribute: model.AttributeID(id),
			Start:     h.ongoingStart,
			End:       end,
			Value:     h.ongoing,
		})
		h.ongoingStart = end + 1
		h.ongoing = nil
	}
	s.end = end
	s.closed = true
	return nil
}

// Dispose releases the history. Later queries fail as unavailable.
func (s *MemoryStore) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposed = true
	s.history = nil
}

// Intervals returns every closed interval of id in time order.
func (s *MemoryStore) Intervals(id model.AttributeID) []model.Interval {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.tree.valid(id) || s.disposed {
		return nil
	}
	return append([]model.Interval(nil), s.history[id].intervals...)
}

// Attributes returns the number of attributes in the store.
func (s *MemoryStore) Attributes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tree.nodes)
}

// Parent returns the parent attribute of id.
func (s *MemoryStore) Parent(id model.AttributeID) model.AttributeID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.tree.valid(id) {
		return model.RootAttribute
	}
	return s.tree.nodes[id].parent
}

// TimeSpan implements Store.
func (s *MemoryStore) TimeSpan() model.TimeRange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.TimeRange{Start: s.start, End: s.end}
}

// AttributesMatching implements Store.
func (s *MemoryStore) AttributesMatching(parent model.AttributeID, pattern ...string) []model.AttributeID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.matching(parent, pattern...)
}

// AttributeRelative implements Store.
func (s *MemoryStore) AttributeRelative(parent model.AttributeID, path ...string) (model.AttributeID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.tree.relative(parent, path...)
	if !ok {
		return 0, apperrors.Newf(apperrors.CodeNotFound, "attribute %v under %d", path, parent)
	}
	return id, nil
}

// SubAttributes implements Store.
func (s *MemoryStore) SubAttributes(id model.AttributeID) ([]model.AttributeID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id != model.RootAttribute && !s.tree.valid(id) {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "attribute %d", id)
	}
	return append([]model.AttributeID(nil), s.tree.childrenOf(id)...), nil
}

// AttributeName implements Store.
func (s *MemoryStore) AttributeName(id model.AttributeID) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.name(id)
}

// QuerySingle implements Store.
func (s *MemoryStore) QuerySingle(ctx context.Context, t int64, id model.AttributeID) (model.Interval, error) {
	if err := ctx.Err(); err != nil {
		return model.Interval{}, apperrors.Wrap(apperrors.CodeCancelled, "query cancelled", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.readable(); err != nil {
		return model.Interval{}, err
	}
	h, err := s.historyOf(id)
	if err != nil {
		return model.Interval{}, err
	}
	ivs := h.intervals
	i := sort.Search(len(ivs), func(i int) bool { return ivs[i].End >= t })
	if i == len(ivs) || ivs[i].Start > t {
		return model.Interval{}, apperrors.Newf(apperrors.CodeNotFound, "no state for %d at %d", id, t)
	}
	return ivs[i], nil
}

// Query2D implements Store. Results are ordered by descending end time.
func (s *MemoryStore) Query2D(ctx context.Context, ids []model.AttributeID, r model.TimeRange) ([]model.Interval, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeCancelled, "query cancelled", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.readable(); err != nil {
		return nil, err
	}

	var out []model.Interval
	for _, id := range ids {
		h, err := s.historyOf(id)
		if err != nil {
			return nil, err
		}
		for _, iv := range h.intervals {
			if iv.Range().Overlaps(r) {
				out = append(out, iv)
			}
		}
	}
	sortForQuery(out)
	return out, nil
}

func (s *MemoryStore) readable() error {
	if s.disposed {
		return apperrors.New(apperrors.CodeStoreUnavailable, "store disposed")
	}
	if !s.closed {
		return apperrors.New(apperrors.CodeStoreUnavailable, "history not closed")
	}
	return nil
}

func (s *MemoryStore) historyOf(id model.AttributeID) (*attributeHistory, error) {
	if s.disposed {
		return nil, apperrors.New(apperrors.CodeStoreUnavailable, "store disposed")
	}
	if !s.tree.valid(id) || int(id) >= len(s.history) {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "attribute %d", id)
	}
	return s.history[id], nil
}

// sortForQuery orders intervals by end descending, then attribute.
func sortForQuery(ivs []model.Interval) {
	sort.SliceStable(ivs, func(i, j int) bool {
		if ivs[i].End != ivs[j].End {
			return ivs[i].End > ivs[j].End
		}
		return ivs[i].Attribute < ivs[j].Attribute
	})
}
