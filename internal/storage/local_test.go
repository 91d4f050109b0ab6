package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/trace-callgraph/pkg/errors"
)

func newLocal(t *testing.T) (*LocalStorage, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewLocalStorage(dir)
	require.NoError(t, err)
	return s, dir
}

func TestNewLocalStorage_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifacts")

	s, err := NewLocalStorage(path)
	require.NoError(t, err)
	assert.Equal(t, path, s.GetBasePath())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLocalStorage_UploadDownload(t *testing.T) {
	s, dir := newLocal(t)
	ctx := context.Background()
	content := []byte(`{"name":"main"}`)

	require.NoError(t, s.Upload(ctx, "b1/flame.json", bytes.NewReader(content)))

	data, err := os.ReadFile(filepath.Join(dir, "b1", "flame.json"))
	require.NoError(t, err)
	assert.Equal(t, content, data)

	reader, err := s.Download(ctx, "b1/flame.json")
	require.NoError(t, err)
	defer reader.Close()
	data, err = io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, content, data)

	exists, err := s.Exists(ctx, "b1/flame.json")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLocalStorage_UploadCancelled(t *testing.T) {
	s, _ := newLocal(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Upload(ctx, "x", bytes.NewReader(nil))
	require.Error(t, err)
	assert.True(t, apperrors.IsCancelled(err))
}

func TestLocalStorage_UploadFile(t *testing.T) {
	s, dir := newLocal(t)
	src := filepath.Join(t.TempDir(), "graph.dot")
	require.NoError(t, os.WriteFile(src, []byte("digraph {}"), 0644))

	require.NoError(t, s.UploadFile(context.Background(), "b1/graph.dot", src))
	data, err := os.ReadFile(filepath.Join(dir, "b1", "graph.dot"))
	require.NoError(t, err)
	assert.Equal(t, "digraph {}", string(data))

	err = s.UploadFile(context.Background(), "b1/missing", "/nonexistent/file")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeStorageError, apperrors.GetErrorCode(err))
}

func TestLocalStorage_Missing(t *testing.T) {
	s, _ := newLocal(t)
	ctx := context.Background()

	_, err := s.Download(ctx, "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	exists, err := s.Exists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, s.Delete(ctx, "missing"))
}

func TestLocalStorage_Delete(t *testing.T) {
	s, dir := newLocal(t)
	ctx := context.Background()
	require.NoError(t, s.Upload(ctx, "gone.txt", bytes.NewReader([]byte("x"))))

	require.NoError(t, s.Delete(ctx, "gone.txt"))
	_, err := os.Stat(filepath.Join(dir, "gone.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStorage_GetURL(t *testing.T) {
	s, dir := newLocal(t)
	assert.Equal(t, filepath.Join(dir, "path", "to", "file.txt"), s.GetURL("path/to/file.txt"))
}
