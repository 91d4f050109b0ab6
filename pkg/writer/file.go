// Package writer provides the file and JSON encoders shared by every export.
package writer

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	apperrors "github.com/trace-callgraph/pkg/errors"
)

// Encoder writes a value of type T to a stream.
type Encoder[T any] interface {
	Write(data T, w io.Writer) error
}

// WriteFile writes path through a temporary file in the same directory and
// renames it into place, so readers never see a partial export.
func WriteFile(path string, write func(w io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return apperrors.Wrap(apperrors.CodeExportError, "failed to create "+path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	buf := bufio.NewWriter(tmp)
	if err := write(buf); err != nil {
		return wrapWrite(path, err)
	}
	if err := buf.Flush(); err != nil {
		return wrapWrite(path, err)
	}
	if err := tmp.Close(); err != nil {
		return wrapWrite(path, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return wrapWrite(path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return wrapWrite(path, err)
	}
	return nil
}

// ToFile encodes data into path with enc.
func ToFile[T any](enc Encoder[T], data T, path string) error {
	return WriteFile(path, func(w io.Writer) error { return enc.Write(data, w) })
}

func wrapWrite(path string, err error) error {
	if apperrors.GetErrorCode(err) != apperrors.CodeUnknown {
		return err
	}
	return apperrors.Wrap(apperrors.CodeExportError, "failed to write "+path, err)
}

// countingWriter counts the bytes passed through to w.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
