// Package testutil provides utilities for testing.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trace-callgraph/internal/intervalstore"
)

// WriteFile writes content to a file in the given directory.
func WriteFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	return path
}

// WriteDump writes store as a JSON dump in dir and returns its path.
func WriteDump(t *testing.T, dir, filename string, store *intervalstore.MemoryStore) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, store.WriteJSON(f))
	require.NoError(t, f.Close())
	return path
}
