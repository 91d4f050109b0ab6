package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/trace-callgraph/internal/callgraph"
	"github.com/trace-callgraph/internal/flamegraph"
	"github.com/trace-callgraph/internal/symbol"
	"github.com/trace-callgraph/pkg/config"
	apperrors "github.com/trace-callgraph/pkg/errors"
	"github.com/trace-callgraph/pkg/utils"
)

// Export formats.
const (
	FormatJSON   = "json"
	FormatFolded = "folded"
	FormatPprof  = "pprof"
	FormatGraph  = "graph"
)

// Output file names inside a build directory.
const (
	FlameGraphFile     = "flamegraph.json"
	FlameGraphGzipFile = "flamegraph.json.gz"
	FoldedFile         = "flamegraph.folded"
	ProfileFile        = "profile.pb.gz"
	CallGraphFile      = "callgraph.json"
	CallGraphDOTFile   = "callgraph.dot"
	SummaryFile        = "summary.json"
)

// Exporter writes the artifacts of one build into a directory.
type Exporter struct {
	cfg       config.ExportConfig
	generator *flamegraph.Generator
	resolver  symbol.Resolver
	logger    utils.Logger
}

// NewExporter creates an exporter for the configured formats.
func NewExporter(cfg config.ExportConfig, resolver symbol.Resolver, logger utils.Logger) *Exporter {
	if logger == nil {
		logger = &utils.NullLogger{}
	}
	return &Exporter{
		cfg: cfg,
		generator: flamegraph.NewGenerator(&flamegraph.GeneratorOptions{
			MinPercent: cfg.MinPercent,
			Resolver:   resolver,
		}),
		resolver: resolver,
		logger:   logger,
	}
}

// Export writes every configured format of res into dir and returns the
// files written.
func (e *Exporter) Export(ctx context.Context, res *callgraph.Result, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeExportError, "failed to create output directory", err)
	}

	var merged *flamegraph.FlameGraph
	mergedGraph := func() (*flamegraph.FlameGraph, error) {
		if merged != nil {
			return merged, nil
		}
		fg, err := e.generator.GenerateMerged(ctx, res)
		if err != nil {
			return nil, err
		}
		merged = fg
		return fg, nil
	}

	var files []string
	for _, format := range e.cfg.Formats {
		var (
			written []string
			err     error
		)
		switch format {
		case FormatJSON:
			written, err = e.writeJSON(mergedGraph, dir)
		case FormatFolded:
			written, err = e.writeFolded(mergedGraph, dir)
		case FormatPprof:
			written, err = e.writePprof(ctx, res, dir)
		case FormatGraph:
			written, err = e.writeGraph(res, dir)
		default:
			err = apperrors.Newf(apperrors.CodeInvalidInput, "unsupported export format: %s", format)
		}
		if err != nil {
			return files, err
		}
		for _, f := range written {
			e.logger.Debug("wrote %s", f)
		}
		files = append(files, written...)
	}
	return files, nil
}

func (e *Exporter) writeJSON(merged func() (*flamegraph.FlameGraph, error), dir string) ([]string, error) {
	fg, err := merged()
	if err != nil {
		return nil, err
	}

	if e.cfg.Gzip {
		path := filepath.Join(dir, FlameGraphGzipFile)
		stats, err := flamegraph.NewGzipWriter().WriteToFileWithStats(fg, path)
		if err != nil {
			return nil, exportError(path, err)
		}
		e.logger.Debug("flame graph compressed %d -> %d bytes", stats.JSONSize, stats.CompressedSize)
		return []string{path}, nil
	}

	path := filepath.Join(dir, FlameGraphFile)
	if err := flamegraph.NewJSONWriter().WriteToFile(fg, path); err != nil {
		return nil, exportError(path, err)
	}
	return []string{path}, nil
}

func (e *Exporter) writeFolded(merged func() (*flamegraph.FlameGraph, error), dir string) ([]string, error) {
	fg, err := merged()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, FoldedFile)
	if err := flamegraph.NewFoldedWriter().WriteToFile(fg, path); err != nil {
		return nil, exportError(path, err)
	}
	return []string{path}, nil
}

func (e *Exporter) writePprof(ctx context.Context, res *callgraph.Result, dir string) ([]string, error) {
	graphs, err := e.generator.GeneratePerThread(ctx, res)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, ProfileFile)
	if err := flamegraph.NewPprofWriter().WriteAllToFile(graphs, path); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (e *Exporter) writeGraph(res *callgraph.Result, dir string) ([]string, error) {
	g := callgraph.BuildGraph(res.MergedView(), e.resolver)
	g.Prune(e.cfg.MinPercent, e.cfg.MinPercent)

	jsonPath := filepath.Join(dir, CallGraphFile)
	if err := callgraph.NewGraphJSONWriter().WriteToFile(g, jsonPath); err != nil {
		return nil, exportError(jsonPath, err)
	}
	dotPath := filepath.Join(dir, CallGraphDOTFile)
	if err := callgraph.NewDOTWriter().WriteToFile(g, dotPath); err != nil {
		return nil, exportError(dotPath, err)
	}
	return []string{jsonPath, dotPath}, nil
}

func exportError(path string, err error) error {
	if apperrors.GetErrorCode(err) != apperrors.CodeUnknown {
		return err
	}
	return apperrors.Wrap(apperrors.CodeExportError, fmt.Sprintf("failed to write %s", path), err)
}
