package intervalstore

import (
	"encoding/json"
	"io"
	"sort"

	apperrors "github.com/trace-callgraph/pkg/errors"
	"github.com/trace-callgraph/pkg/model"
)

// Dump is the portable JSON form of a closed state history.
type Dump struct {
	Start      int64            `json:"start"`
	End        int64            `json:"end"`
	Attributes []DumpAttribute  `json:"attributes"`
	Intervals  []model.Interval `json:"intervals"`
}

// DumpAttribute is one attribute tree entry. Parent is -1 for top level
// attributes; entries must be listed parents first.
type DumpAttribute struct {
	ID     model.AttributeID `json:"id"`
	Parent model.AttributeID `json:"parent"`
	Name   string            `json:"name"`
}

// LoadJSON reads a dump into a closed MemoryStore. Integral numbers are kept
// as int64 so addresses survive the round trip.
func LoadJSON(r io.Reader) (*MemoryStore, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var d Dump
	if err := dec.Decode(&d); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "failed to decode interval dump", err)
	}
	return FromDump(&d)
}

// FromDump builds a closed MemoryStore from d.
func FromDump(d *Dump) (*MemoryStore, error) {
	if d.Start > d.End {
		return nil, apperrors.Newf(apperrors.CodeInvalidInterval, "dump span start %d after end %d", d.Start, d.End)
	}

	s := NewMemoryStore(d.Start)
	for _, a := range d.Attributes {
		if a.Parent != model.RootAttribute && !s.tree.valid(a.Parent) {
			return nil, apperrors.Newf(apperrors.CodeInvalidInput, "attribute %d listed before parent %d", a.ID, a.Parent)
		}
		id := s.tree.add(a.Parent, a.Name)
		if id != a.ID {
			return nil, apperrors.Newf(apperrors.CodeInvalidInput, "attribute ids must be dense, got %d at %d", a.ID, id)
		}
		s.history = append(s.history, &attributeHistory{})
	}

	for _, iv := range d.Intervals {
		if !s.tree.valid(iv.Attribute) {
			return nil, apperrors.Newf(apperrors.CodeInvalidInput, "interval for unknown attribute %d", iv.Attribute)
		}
		if iv.Start > iv.End {
			return nil, apperrors.Newf(apperrors.CodeInvalidInterval, "interval [%d, %d] of attribute %d", iv.Start, iv.End, iv.Attribute)
		}
		iv.Value = normalizeValue(iv.Value)
		h := s.history[iv.Attribute]
		h.intervals = append(h.intervals, iv)
	}
	for _, h := range s.history {
		sort.Slice(h.intervals, func(i, j int) bool { return h.intervals[i].Start < h.intervals[j].Start })
		h.ongoingStart = d.End + 1
	}

	s.end = d.End
	s.closed = true
	return s, nil
}

// ToDump exports the closed history of s.
func (s *MemoryStore) ToDump() *Dump {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d := &Dump{Start: s.start, End: s.end}
	for i, n := range s.tree.nodes {
		d.Attributes = append(d.Attributes, DumpAttribute{ID: model.AttributeID(i), Parent: n.parent, Name: n.name})
	}
	for _, h := range s.history {
		d.Intervals = append(d.Intervals, h.intervals...)
	}
	return d
}

// WriteJSON writes the closed history of s as a dump.
func (s *MemoryStore) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	return enc.Encode(s.ToDump())
}

func normalizeValue(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
