package flamegraph

import (
	"context"
	"io"

	"github.com/trace-callgraph/internal/callgraph"
	"github.com/trace-callgraph/internal/symbol"
	apperrors "github.com/trace-callgraph/pkg/errors"
)

// GeneratorOptions holds configuration options for the flame graph generator.
type GeneratorOptions struct {
	// MinPercent is the minimum percentage of the total for a node to be included.
	MinPercent float64

	// Resolver names the frames. Nil renders symbols as-is.
	Resolver symbol.Resolver
}

// DefaultGeneratorOptions returns default generator options.
func DefaultGeneratorOptions() *GeneratorOptions {
	return &GeneratorOptions{
		MinPercent: 0.01,
	}
}

// Generator generates flame graph data from aggregated call trees.
type Generator struct {
	opts *GeneratorOptions
}

// NewGenerator creates a new flame graph generator.
func NewGenerator(opts *GeneratorOptions) *Generator {
	if opts == nil {
		opts = DefaultGeneratorOptions()
	}
	return &Generator{opts: opts}
}

// Generate builds a flame graph from one aggregated root, either a thread or
// the merged view of a build.
func (g *Generator) Generate(ctx context.Context, root *callgraph.ThreadNode) (*FlameGraph, error) {
	if root == nil {
		return nil, apperrors.ErrInvalidInput
	}

	name := root.Name
	if name == "" {
		name = "all threads"
	}
	fg := NewFlameGraph(name)
	fg.Root.Value = root.Duration

	for _, site := range root.Children() {
		select {
		case <-ctx.Done():
			return nil, apperrors.Wrap(apperrors.CodeCancelled, "flame graph generation cancelled", ctx.Err())
		default:
		}
		fg.Root.AddChild(g.convert(site))
	}

	fg.TotalValue = fg.Root.Value
	fg.Cleanup(g.opts.MinPercent)
	fg.CalculateMaxDepth()

	return fg, nil
}

// GenerateMerged builds one flame graph over every thread of a build.
func (g *Generator) GenerateMerged(ctx context.Context, res *callgraph.Result) (*FlameGraph, error) {
	if res == nil {
		return nil, apperrors.ErrInvalidInput
	}
	return g.Generate(ctx, res.MergedView())
}

// GeneratePerThread builds one flame graph per thread of a build.
func (g *Generator) GeneratePerThread(ctx context.Context, res *callgraph.Result) ([]*FlameGraph, error) {
	if res == nil {
		return nil, apperrors.ErrInvalidInput
	}
	out := make([]*FlameGraph, 0, len(res.Threads))
	for _, thread := range res.ThreadNodes() {
		fg, err := g.Generate(ctx, thread)
		if err != nil {
			return nil, err
		}
		out = append(out, fg)
	}
	return out, nil
}

func (g *Generator) convert(site *callgraph.AggregatedCallSite) *Node {
	node := NewNode(site.Symbol.Key(), g.frameName(site.Symbol), site.Duration, site.SelfTime, site.Calls)
	for _, child := range site.Children() {
		node.AddChild(g.convert(child))
	}
	return node
}

func (g *Generator) frameName(sym symbol.Symbol) string {
	if name := symbol.Name(g.opts.Resolver, sym); name != "" {
		return name
	}
	return sym.String()
}

// Writer defines the interface for writing flame graph output.
type Writer interface {
	Write(fg *FlameGraph, w io.Writer) error
}
