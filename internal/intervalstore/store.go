// Package intervalstore provides the interval-indexed state stores the
// call-graph builder reads from: an in-memory store with a history builder
// API, and a SQL-backed store on top of GORM.
package intervalstore

import (
	"context"

	"github.com/trace-callgraph/pkg/model"
)

// Wildcard matches any single attribute name in a pattern.
const Wildcard = "*"

// Store is the read side of an interval-indexed state history. Every
// attribute's intervals, null ones included, partition the store's time span.
type Store interface {
	// TimeSpan returns the [start, end] range covered by the history.
	TimeSpan() model.TimeRange

	// AttributesMatching resolves a path pattern relative to parent. Each
	// pattern element is an attribute name or Wildcard. An empty pattern
	// matches parent itself.
	AttributesMatching(parent model.AttributeID, pattern ...string) []model.AttributeID

	// AttributeRelative resolves an exact path relative to parent.
	AttributeRelative(parent model.AttributeID, path ...string) (model.AttributeID, error)

	// SubAttributes lists the direct children of id in creation order.
	SubAttributes(id model.AttributeID) ([]model.AttributeID, error)

	// AttributeName returns the last path element of id.
	AttributeName(id model.AttributeID) string

	// QuerySingle returns the interval of id containing t.
	QuerySingle(ctx context.Context, t int64, id model.AttributeID) (model.Interval, error)

	// Query2D returns every interval of ids intersecting r. Results tend to
	// come back by descending end time; callers must not rely on any order.
	Query2D(ctx context.Context, ids []model.AttributeID, r model.TimeRange) ([]model.Interval, error)
}

// attributeNode is one entry of an attribute tree.
type attributeNode struct {
	name     string
	parent   model.AttributeID
	children []model.AttributeID
}

// attributeTree resolves attribute paths. It is shared by every store kind.
type attributeTree struct {
	nodes []attributeNode
	roots []model.AttributeID
}

func (t *attributeTree) valid(id model.AttributeID) bool {
	return id >= 0 && int(id) < len(t.nodes)
}

func (t *attributeTree) childrenOf(id model.AttributeID) []model.AttributeID {
	if id == model.RootAttribute {
		return t.roots
	}
	if !t.valid(id) {
		return nil
	}
	return t.nodes[id].children
}

func (t *attributeTree) child(parent model.AttributeID, name string) (model.AttributeID, bool) {
	for _, c := range t.childrenOf(parent) {
		if t.nodes[c].name == name {
			return c, true
		}
	}
	return 0, false
}

func (t *attributeTree) add(parent model.AttributeID, name string) model.AttributeID {
	id := model.AttributeID(len(t.nodes))
	t.nodes = append(t.nodes, attributeNode{name: name, parent: parent})
	if parent == model.RootAttribute {
		t.roots = append(t.roots, id)
	} else {
		t.nodes[parent].children = append(t.nodes[parent].children, id)
	}
	return id
}

func (t *attributeTree) addPath(parent model.AttributeID, path ...string) model.AttributeID {
	cur := parent
	for _, name := range path {
		next, ok := t.child(cur, name)
		if !ok {
			next = t.add(cur, name)
		}
		cur = next
	}
	return cur
}

func (t *attributeTree) matching(parent model.AttributeID, pattern ...string) []model.AttributeID {
	if parent != model.RootAttribute && !t.valid(parent) {
		return nil
	}
	current := []model.AttributeID{parent}
	for _, elem := range pattern {
		var next []model.AttributeID
		for _, id := range current {
			for _, c := range t.childrenOf(id) {
				if elem == Wildcard || t.nodes[c].name == elem {
					next = append(next, c)
				}
			}
		}
		current = next
		if len(current) == 0 {
			break
		}
	}
	return current
}

func (t *attributeTree) relative(parent model.AttributeID, path ...string) (model.AttributeID, bool) {
	cur := parent
	for _, name := range path {
		next, ok := t.child(cur, name)
		if !ok {
			return 0, false
		}
		cur = next
	}
	return cur, true
}

func (t *attributeTree) name(id model.AttributeID) string {
	if !t.valid(id) {
		return ""
	}
	return t.nodes[id].name
}
