package callgraph

import (
	"github.com/trace-callgraph/internal/symbol"
)

// Node is one function of a function graph.
type Node struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Label     string  `json:"label,omitempty"`
	SelfPct   float64 `json:"selfPct"`
	TotalPct  float64 `json:"totalPct"`
	SelfTime  int64   `json:"selfTime"`
	TotalTime int64   `json:"totalTime"`
	Calls     int64   `json:"calls"`
}

// Edge is a caller to callee relationship.
type Edge struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
	Count  int64   `json:"count"`
	Time   int64   `json:"time"`
}

// Graph flattens an aggregated tree into one node per function and one edge
// per distinct caller/callee pair, whatever the call sites.
type Graph struct {
	Name      string  `json:"name,omitempty"`
	TotalTime int64   `json:"totalTime"`
	Nodes     []*Node `json:"nodes"`
	Edges     []*Edge `json:"edges"`

	nodeMap map[string]*Node
	edgeMap map[string]*Edge
}

// NewGraph creates an empty graph.
func NewGraph(name string) *Graph {
	return &Graph{
		Name:    name,
		Nodes:   make([]*Node, 0),
		Edges:   make([]*Edge, 0),
		nodeMap: make(map[string]*Node),
		edgeMap: make(map[string]*Edge),
	}
}

// AddNode adds a node or accumulates into the existing one.
func (g *Graph) AddNode(id, name string, selfTime, totalTime, calls int64) *Node {
	if node, exists := g.nodeMap[id]; exists {
		node.SelfTime += selfTime
		node.TotalTime += totalTime
		node.Calls += calls
		return node
	}

	node := &Node{
		ID:        id,
		Name:      name,
		Label:     name,
		SelfTime:  selfTime,
		TotalTime: totalTime,
		Calls:     calls,
	}
	g.nodeMap[id] = node
	g.Nodes = append(g.Nodes, node)
	return node
}

// AddEdge adds an edge or accumulates into the existing one.
func (g *Graph) AddEdge(source, target string, count, time int64) *Edge {
	edgeID := source + "->" + target
	if edge, exists := g.edgeMap[edgeID]; exists {
		edge.Count += count
		edge.Time += time
		return edge
	}

	edge := &Edge{
		ID:     edgeID,
		Source: source,
		Target: target,
		Count:  count,
		Time:   time,
	}
	g.edgeMap[edgeID] = edge
	g.Edges = append(g.Edges, edge)
	return edge
}

// GetNode returns a node by id.
func (g *Graph) GetNode(id string) *Node {
	return g.nodeMap[id]
}

// GetEdge returns the edge between two node ids.
func (g *Graph) GetEdge(source, target string) *Edge {
	return g.edgeMap[source+"->"+target]
}

// CalculatePercentages fills the percentage fields relative to TotalTime.
func (g *Graph) CalculatePercentages() {
	if g.TotalTime == 0 {
		return
	}
	total := float64(g.TotalTime)

	for _, node := range g.Nodes {
		node.SelfPct = float64(node.SelfTime) / total * 100
		node.TotalPct = float64(node.TotalTime) / total * 100
	}
	for _, edge := range g.Edges {
		edge.Weight = float64(edge.Time) / total * 100
	}
}

// Prune drops nodes below minNodePct of the total time, the edges touching
// them, and edges below minEdgePct.
func (g *Graph) Prune(minNodePct, minEdgePct float64) {
	if minNodePct <= 0 && minEdgePct <= 0 {
		return
	}

	keep := make(map[string]bool, len(g.Nodes))
	nodes := g.Nodes[:0]
	for _, node := range g.Nodes {
		if node.TotalPct >= minNodePct {
			nodes = append(nodes, node)
			keep[node.ID] = true
			continue
		}
		delete(g.nodeMap, node.ID)
	}
	g.Nodes = nodes

	edges := g.Edges[:0]
	for _, edge := range g.Edges {
		if keep[edge.Source] && keep[edge.Target] && edge.Weight >= minEdgePct {
			edges = append(edges, edge)
			continue
		}
		delete(g.edgeMap, edge.ID)
	}
	g.Edges = edges
}

// GraphStats summarizes a graph.
type GraphStats struct {
	NodeCount   int
	EdgeCount   int
	MaxSelfPct  float64
	MaxTotalPct float64
}

// Stats returns statistics about the graph.
func (g *Graph) Stats() *GraphStats {
	stats := &GraphStats{
		NodeCount: len(g.Nodes),
		EdgeCount: len(g.Edges),
	}
	for _, node := range g.Nodes {
		stats.MaxSelfPct = max(stats.MaxSelfPct, node.SelfPct)
		stats.MaxTotalPct = max(stats.MaxTotalPct, node.TotalPct)
	}
	return stats
}

// BuildGraph flattens the tree under root. A function's total time is
// counted once per call chain so recursion does not inflate it.
func BuildGraph(root *ThreadNode, resolver symbol.Resolver) *Graph {
	name := root.Name
	if name == "" {
		name = "all threads"
	}
	g := NewGraph(name)
	g.TotalTime = root.Duration

	onStack := make(map[string]int)
	var walk func(parent string, site *AggregatedCallSite)
	walk = func(parent string, site *AggregatedCallSite) {
		id := site.Symbol.Key()
		total := site.Duration
		if onStack[id] > 0 {
			total = 0
		}
		label := symbol.Name(resolver, site.Symbol)
		if label == "" {
			label = site.Symbol.String()
		}
		g.AddNode(id, label, site.SelfTime, total, site.Calls)
		if parent != "" {
			g.AddEdge(parent, id, site.Calls, site.Duration)
		}

		onStack[id]++
		for _, child := range site.Children() {
			walk(id, child)
		}
		onStack[id]--
	}
	for _, child := range root.Children() {
		walk("", child)
	}

	g.CalculatePercentages()
	return g
}
