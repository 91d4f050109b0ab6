package flamegraph

import (
	"fmt"
	"io"
	"strings"

	"github.com/trace-callgraph/pkg/writer"
)

// JSONWriter writes flame graph data as JSON.
type JSONWriter = writer.JSONWriter[*FlameGraph]

// NewJSONWriter creates a new JSON writer.
func NewJSONWriter() *JSONWriter {
	return writer.NewJSONWriter[*FlameGraph]()
}

// NewPrettyJSONWriter creates a JSON writer with pretty printing.
func NewPrettyJSONWriter() *JSONWriter {
	return writer.NewPrettyJSONWriter[*FlameGraph]()
}

// GzipWriter writes flame graph data as gzipped JSON.
type GzipWriter = writer.GzipWriter[*FlameGraph]

// NewGzipWriter creates a new gzip writer with default compression.
func NewGzipWriter() *GzipWriter {
	return writer.NewGzipWriter[*FlameGraph]()
}

// NewGzipWriterWithLevel creates a gzip writer with specified compression level.
func NewGzipWriterWithLevel(level int) *GzipWriter {
	return writer.NewGzipWriterWithLevel[*FlameGraph](level)
}

// WriteResult is an alias to the common writer.WriteResult.
type WriteResult = writer.WriteResult

// FoldedWriter writes flame graph data in collapsed/folded format.
// This format is compatible with flamegraph.pl script.
type FoldedWriter struct{}

// NewFoldedWriter creates a new folded format writer.
func NewFoldedWriter() *FoldedWriter {
	return &FoldedWriter{}
}

// foldedFrame keeps frame names from breaking the line format: ';' separates
// frames and the last space precedes the count.
var foldedFrame = strings.NewReplacer(";", ":", " ", "_", "\t", "_", "\n", "_", "\r", "_")

// Write writes one line per frame with self time.
// Format: frame1;frame2;frame3 self
func (w *FoldedWriter) Write(fg *FlameGraph, out io.Writer) error {
	return fg.Walk(func(stack []string, node *Node) error {
		if node.Self <= 0 {
			return nil
		}
		frames := make([]string, len(stack))
		for i, name := range stack {
			frames[i] = foldedFrame.Replace(name)
		}
		_, err := fmt.Fprintf(out, "%s %d\n", strings.Join(frames, ";"), node.Self)
		return err
	})
}

// WriteToFile writes the flame graph in folded format to a file.
func (w *FoldedWriter) WriteToFile(fg *FlameGraph, path string) error {
	return writer.ToFile[*FlameGraph](w, fg, path)
}
