package writer

import (
	"compress/gzip"
	"encoding/json"
	"io"

	apperrors "github.com/trace-callgraph/pkg/errors"
)

// JSONWriter writes data as JSON.
type JSONWriter[T any] struct {
	// Indent specifies the indentation for pretty printing.
	// Empty string means compact output.
	Indent string
}

// NewJSONWriter creates a new JSON writer with compact output.
func NewJSONWriter[T any]() *JSONWriter[T] {
	return &JSONWriter[T]{}
}

// NewPrettyJSONWriter creates a JSON writer with pretty printing.
func NewPrettyJSONWriter[T any]() *JSONWriter[T] {
	return &JSONWriter[T]{Indent: "  "}
}

// Write writes the data as JSON to w.
func (w *JSONWriter[T]) Write(data T, out io.Writer) error {
	encoder := json.NewEncoder(out)
	if w.Indent != "" {
		encoder.SetIndent("", w.Indent)
	}
	if err := encoder.Encode(data); err != nil {
		return apperrors.Wrap(apperrors.CodeExportError, "failed to encode json", err)
	}
	return nil
}

// WriteToFile writes the data as JSON to a file.
func (w *JSONWriter[T]) WriteToFile(data T, path string) error {
	return ToFile[T](w, data, path)
}

// GzipWriter writes data as gzipped JSON.
type GzipWriter[T any] struct {
	// CompressionLevel is the gzip compression level (1-9).
	CompressionLevel int
}

// NewGzipWriter creates a new gzip writer with default compression.
func NewGzipWriter[T any]() *GzipWriter[T] {
	return &GzipWriter[T]{CompressionLevel: gzip.DefaultCompression}
}

// NewGzipWriterWithLevel creates a gzip writer with specified compression level.
func NewGzipWriterWithLevel[T any](level int) *GzipWriter[T] {
	return &GzipWriter[T]{CompressionLevel: level}
}

// Write writes the data as gzipped JSON to w.
func (w *GzipWriter[T]) Write(data T, out io.Writer) error {
	_, err := w.write(data, out)
	return err
}

// write returns the size of the uncompressed JSON.
func (w *GzipWriter[T]) write(data T, out io.Writer) (int64, error) {
	gz, err := gzip.NewWriterLevel(out, w.CompressionLevel)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeExportError, "failed to create gzip writer", err)
	}

	raw := &countingWriter{w: gz}
	if err := json.NewEncoder(raw).Encode(data); err != nil {
		gz.Close()
		return 0, apperrors.Wrap(apperrors.CodeExportError, "failed to encode json", err)
	}
	if err := gz.Close(); err != nil {
		return 0, apperrors.Wrap(apperrors.CodeExportError, "failed to close gzip stream", err)
	}
	return raw.n, nil
}

// WriteToFile writes the data as gzipped JSON to a file.
func (w *GzipWriter[T]) WriteToFile(data T, path string) error {
	return ToFile[T](w, data, path)
}

// WriteResult contains statistics about the written file.
type WriteResult struct {
	JSONSize       int64
	CompressedSize int64
	CompressionPct float64
}

// WriteToFileWithStats writes the file and reports how well it compressed.
func (w *GzipWriter[T]) WriteToFileWithStats(data T, path string) (*WriteResult, error) {
	res := &WriteResult{}
	err := WriteFile(path, func(out io.Writer) error {
		compressed := &countingWriter{w: out}
		n, err := w.write(data, compressed)
		res.JSONSize = n
		res.CompressedSize = compressed.n
		return err
	})
	if err != nil {
		return nil, err
	}
	if res.JSONSize > 0 {
		res.CompressionPct = float64(res.CompressedSize) / float64(res.JSONSize) * 100
	}
	return res, nil
}
