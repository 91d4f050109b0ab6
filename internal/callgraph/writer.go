package callgraph

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/trace-callgraph/pkg/writer"
)

// NewGraphJSONWriter returns a compact JSON writer for graphs.
func NewGraphJSONWriter() *writer.JSONWriter[*Graph] {
	return writer.NewJSONWriter[*Graph]()
}

// XDotJSONOutput is the graphviz xdot_json document layout.
type XDotJSONOutput struct {
	Name     string       `json:"name"`
	Directed bool         `json:"directed"`
	Strict   bool         `json:"strict"`
	Objects  []XDotObject `json:"objects"`
	Edges    []XDotEdge   `json:"edges"`
}

// XDotObject is a node in xdot_json format.
type XDotObject struct {
	ID    int    `json:"_gvid"`
	Name  string `json:"name"`
	Label string `json:"label,omitempty"`
	Shape string `json:"shape,omitempty"`
}

// XDotEdge is an edge in xdot_json format.
type XDotEdge struct {
	ID    int    `json:"_gvid"`
	Head  int    `json:"head"`
	Tail  int    `json:"tail"`
	Label string `json:"label,omitempty"`
}

// XDotWriter writes graphs in xdot_json format.
type XDotWriter struct{}

// NewXDotWriter creates a new xdot writer.
func NewXDotWriter() *XDotWriter {
	return &XDotWriter{}
}

// Write writes g in xdot_json format.
func (w *XDotWriter) Write(g *Graph, out io.Writer) error {
	return json.NewEncoder(out).Encode(w.convert(g))
}

// WriteToFile writes g in xdot_json format to a file.
func (w *XDotWriter) WriteToFile(g *Graph, path string) error {
	return writer.WriteFile(path, func(f io.Writer) error { return w.Write(g, f) })
}

func (w *XDotWriter) convert(g *Graph) *XDotJSONOutput {
	output := &XDotJSONOutput{
		Name:     "callgraph",
		Directed: true,
		Objects:  make([]XDotObject, 0, len(g.Nodes)),
		Edges:    make([]XDotEdge, 0, len(g.Edges)),
	}

	index := make(map[string]int, len(g.Nodes))
	for i, node := range g.Nodes {
		index[node.ID] = i
		output.Objects = append(output.Objects, XDotObject{
			ID:    i,
			Name:  node.ID,
			Label: nodeLabel(node),
			Shape: "box",
		})
	}

	for i, edge := range g.Edges {
		tail, okTail := index[edge.Source]
		head, okHead := index[edge.Target]
		if !okTail || !okHead {
			continue
		}
		output.Edges = append(output.Edges, XDotEdge{
			ID:    i,
			Tail:  tail,
			Head:  head,
			Label: edgeLabel(edge),
		})
	}
	return output
}

// DOTWriter writes graphs in graphviz DOT format.
type DOTWriter struct{}

// NewDOTWriter creates a new DOT writer.
func NewDOTWriter() *DOTWriter {
	return &DOTWriter{}
}

// Write writes g in DOT format.
func (w *DOTWriter) Write(g *Graph, out io.Writer) error {
	if _, err := fmt.Fprintln(out, "digraph callgraph {"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(out, "  node [shape=box];"); err != nil {
		return err
	}
	for _, node := range g.Nodes {
		if _, err := fmt.Fprintf(out, "  %q [label=%q];\n", node.ID, nodeLabel(node)); err != nil {
			return err
		}
	}
	for _, edge := range g.Edges {
		if _, err := fmt.Fprintf(out, "  %q -> %q [label=%q];\n", edge.Source, edge.Target, edgeLabel(edge)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(out, "}")
	return err
}

// WriteToFile writes g in DOT format to a file.
func (w *DOTWriter) WriteToFile(g *Graph, path string) error {
	return writer.WriteFile(path, func(f io.Writer) error { return w.Write(g, f) })
}

func nodeLabel(n *Node) string {
	return fmt.Sprintf("%s\n%.2f%%\n(%.2f%%)\n%dx", n.Label, n.TotalPct, n.SelfPct, n.Calls)
}

func edgeLabel(e *Edge) string {
	return fmt.Sprintf("%.2f%%\n%dx", e.Weight, e.Count)
}
