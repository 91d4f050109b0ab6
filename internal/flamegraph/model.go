// Package flamegraph turns aggregated call trees into flame graph data.
package flamegraph

// Node represents a node in the flame graph tree. Value is the total time
// spent in the frame including its callees.
type Node struct {
	Name     string  `json:"name"`
	Value    int64   `json:"value"`
	Self     int64   `json:"self"`
	Calls    int64   `json:"calls,omitempty"`
	Children []*Node `json:"children,omitempty"`

	key         string
	childrenMap map[string]int
}

// NewNode creates a new flame graph node. key identifies the frame among its
// siblings; name is what gets rendered.
func NewNode(key, name string, value, self, calls int64) *Node {
	return &Node{
		Name:        name,
		Value:       value,
		Self:        self,
		Calls:       calls,
		Children:    make([]*Node, 0),
		key:         key,
		childrenMap: make(map[string]int),
	}
}

// AddChild adds a child node and returns its index. A child with an already
// known key is merged into the existing one.
func (n *Node) AddChild(child *Node) int {
	if idx, exists := n.childrenMap[child.key]; exists {
		existing := n.Children[idx]
		existing.Value += child.Value
		existing.Self += child.Self
		existing.Calls += child.Calls
		for _, c := range child.Children {
			existing.AddChild(c)
		}
		return idx
	}
	idx := len(n.Children)
	n.childrenMap[child.key] = idx
	n.Children = append(n.Children, child)
	return idx
}

// GetChild returns a child node by key, or nil if not found.
func (n *Node) GetChild(key string) *Node {
	if idx, exists := n.childrenMap[key]; exists {
		return n.Children[idx]
	}
	return nil
}

// FlameGraph represents the complete flame graph structure.
type FlameGraph struct {
	Name       string `json:"name"`
	Root       *Node  `json:"root"`
	TotalValue int64  `json:"totalValue"`
	MaxDepth   int    `json:"maxDepth,omitempty"`
}

// NewFlameGraph creates a new flame graph with an empty root node.
func NewFlameGraph(name string) *FlameGraph {
	return &FlameGraph{
		Name: name,
		Root: NewNode("", "root", 0, 0, 0),
	}
}

// Cleanup removes internal maps and drops nodes below threshold.
// minPercent is the minimum percentage (0-100) of the total for a node to be
// kept. The time of a dropped subtree is credited to its parent's self time.
func (fg *FlameGraph) Cleanup(minPercent float64) {
	if fg.Root == nil {
		return
	}

	threshold := int64(float64(fg.TotalValue) * minPercent / 100.0)
	fg.cleanupNode(fg.Root, threshold)
}

func (fg *FlameGraph) cleanupNode(node *Node, threshold int64) {
	node.childrenMap = nil

	if len(node.Children) == 0 {
		node.Children = nil
		return
	}

	filtered := make([]*Node, 0, len(node.Children))
	for _, child := range node.Children {
		if child.Value >= threshold {
			fg.cleanupNode(child, threshold)
			filtered = append(filtered, child)
			continue
		}
		node.Self += child.Value
	}

	if len(filtered) == 0 {
		node.Children = nil
	} else {
		node.Children = filtered
	}
}

// CalculateMaxDepth calculates the maximum depth of the flame graph.
func (fg *FlameGraph) CalculateMaxDepth() int {
	if fg.Root == nil {
		return 0
	}
	fg.MaxDepth = fg.calculateDepth(fg.Root, 0)
	return fg.MaxDepth
}

func (fg *FlameGraph) calculateDepth(node *Node, currentDepth int) int {
	maxChildDepth := currentDepth
	for _, child := range node.Children {
		childDepth := fg.calculateDepth(child, currentDepth+1)
		if childDepth > maxChildDepth {
			maxChildDepth = childDepth
		}
	}
	return maxChildDepth
}

// Walk visits every node below the root depth first. stack holds the frame
// names from the first level down to the visited node.
func (fg *FlameGraph) Walk(fn func(stack []string, node *Node) error) error {
	if fg.Root == nil {
		return nil
	}
	var walk func(stack []string, node *Node) error
	walk = func(stack []string, node *Node) error {
		for _, child := range node.Children {
			next := append(stack[:len(stack):len(stack)], child.Name)
			if err := fn(next, child); err != nil {
				return err
			}
			if err := walk(next, child); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(nil, fg.Root)
}
