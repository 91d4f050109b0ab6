package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	testifymock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/trace-callgraph/internal/mock"
)

func TestPublisher_PublishLocal(t *testing.T) {
	s, dir := newLocal(t)
	out := t.TempDir()
	files := []string{filepath.Join(out, "flame.json"), filepath.Join(out, "profile.pb.gz")}
	for _, f := range files {
		require.NoError(t, os.WriteFile(f, []byte(filepath.Base(f)), 0644))
	}

	p := NewPublisher(s, "traces", nil)
	artifacts, err := p.Publish(context.Background(), "b1", files)
	require.NoError(t, err)

	require.Len(t, artifacts, 2)
	assert.Equal(t, "traces/b1/flame.json", artifacts[0].Key)
	assert.Equal(t, filepath.Join(dir, "traces", "b1", "flame.json"), artifacts[0].URL)
	data, err := os.ReadFile(filepath.Join(dir, "traces", "b1", "profile.pb.gz"))
	require.NoError(t, err)
	assert.Equal(t, "profile.pb.gz", string(data))
}

func TestPublisher_StopsAtFirstFailure(t *testing.T) {
	m := &mock.MockStorage{}
	m.ExpectUploadFile("b1/a.json", "/out/a.json", nil)
	m.ExpectGetURL("b1/a.json", "https://bucket/b1/a.json")
	m.ExpectUploadFile("b1/b.json", "/out/b.json", errors.New("denied"))

	p := NewPublisher(m, "", nil)
	artifacts, err := p.Publish(context.Background(), "b1", []string{"/out/a.json", "/out/b.json", "/out/c.json"})

	require.Error(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, "https://bucket/b1/a.json", artifacts[0].URL)
	m.AssertExpectations(t)
	m.AssertNotCalled(t, "UploadFile", testifymock.Anything, "b1/c.json", "/out/c.json")
}
